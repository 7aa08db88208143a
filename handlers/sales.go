package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"salon-manager/models"
	"salon-manager/monitoring"
)

type SalesHandler struct {
	Deps
}

func NewSalesHandler(d Deps) *SalesHandler {
	return &SalesHandler{Deps: d}
}

type TransactionRequest struct {
	Services []uint `json:"services" form:"services"`
	Method   string `json:"method" form:"method"`
}

func (h *SalesHandler) ListSales(c *gin.Context) {
	page, err := h.Repo.ListTransactions(c.Request.Context(), c.Query("page"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// NewSale returns what the checkout form needs: the appointment, its
// services and what they add up to.
func (h *SalesHandler) NewSale(c *gin.Context) {
	id, ok := paramID(c, "appointment_id")
	if !ok {
		return
	}
	appointment, err := h.Repo.GetAppointment(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"appointment": appointment,
		"services":    appointment.Services,
		"total":       models.SumPrices(appointment.Services),
		"methods":     []string{models.PaymentCash, models.PaymentVisa},
	})
}

func (h *SalesHandler) RegisterTransaction(c *gin.Context) {
	id, ok := paramID(c, "appointment_id")
	if !ok {
		return
	}
	var req TransactionRequest
	if !bind(c, &req) {
		return
	}

	t, err := h.Repo.RegisterTransaction(c.Request.Context(), id, req.Services, req.Method)
	if err != nil {
		respondError(c, err)
		return
	}

	monitoring.TransactionsTotal.WithLabelValues(t.Method).Inc()
	monitoring.RevenueTotal.WithLabelValues(t.Method).Add(t.TotalAmount.InexactFloat64())
	h.Log.WithFields(logrus.Fields{
		"transaction_id": t.ID,
		"appointment_id": id,
		"total":          t.TotalAmount.StringFixed(2),
		"method":         t.Method,
	}).Info("transaction registered")

	c.JSON(http.StatusCreated, t)
}

func (h *SalesHandler) DeleteTransaction(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.Repo.DeleteTransaction(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
