package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"salon-manager/models"
)

type ClientVoucherRequest struct {
	VoucherID         uint   `json:"voucher" form:"voucher"`
	PurchaseDate      string `json:"purchase_date" form:"purchase_date"`
	ExpirationDate    string `json:"expiration_date" form:"expiration_date"`
	SessionsRemaining *uint  `json:"sessions_remaining" form:"sessions_remaining"`
}

type ClientVoucherResponse struct {
	ID                uint            `json:"id"`
	ClientID          uint            `json:"client_id"`
	Client            string          `json:"client,omitempty"`
	VoucherID         uint            `json:"voucher_id"`
	Voucher           string          `json:"voucher"`
	DiscountedPrice   decimal.Decimal `json:"discounted_price"`
	PurchaseDate      string          `json:"purchase_date"`
	ExpirationDate    string          `json:"expiration_date"`
	SessionsRemaining uint            `json:"sessions_remaining"`
	IsActive          bool            `json:"is_active"`
}

// dates parses the optional purchase and expiration dates. Blank values are
// left zero so defaults can fill them.
func (r ClientVoucherRequest) dates() (purchase, expiration time.Time, err error) {
	v := models.NewValidationError()
	if raw := strings.TrimSpace(r.PurchaseDate); raw != "" {
		if purchase, err = parseDate("purchase_date", raw); err != nil {
			v.Add("purchase_date", "enter a valid date")
		}
	}
	if raw := strings.TrimSpace(r.ExpirationDate); raw != "" {
		if expiration, err = parseDate("expiration_date", raw); err != nil {
			v.Add("expiration_date", "enter a valid date")
		}
	}
	return purchase, expiration, v.OrNil()
}

func (h *ClientHandler) ListClientVouchers(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	client, err := h.Repo.GetClientByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	vouchers, err := h.Repo.ListClientVouchers(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]ClientVoucherResponse, 0, len(vouchers))
	for i := range vouchers {
		out = append(out, toClientVoucherResponse(&vouchers[i]))
	}
	c.JSON(http.StatusOK, gin.H{"client": toClientResponse(client), "vouchers": out})
}

func (h *ClientHandler) AssignVoucher(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req ClientVoucherRequest
	if !bind(c, &req) {
		return
	}
	client, err := h.Repo.GetClientByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	purchase, expiration, err := req.dates()
	if err != nil {
		respondError(c, err)
		return
	}
	cv := &models.ClientVoucher{
		ClientID:          client.ID,
		VoucherID:         req.VoucherID,
		PurchaseDate:      purchase,
		ExpirationDate:    expiration,
		SessionsRemaining: req.SessionsRemaining,
	}
	cv.ApplyDefaults(h.now())

	if err := h.Repo.CreateClientVoucher(c.Request.Context(), cv); err != nil {
		respondError(c, err)
		return
	}
	cv.Client = client
	c.JSON(http.StatusCreated, toClientVoucherResponse(cv))
}

func (h *ClientHandler) GetClientVoucher(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	cv, err := h.Repo.GetClientVoucher(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toClientVoucherResponse(cv))
}

// UpdateClientVoucher changes the voucher and the dates. Blank dates keep
// the stored ones.
func (h *ClientHandler) UpdateClientVoucher(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req ClientVoucherRequest
	if !bind(c, &req) {
		return
	}
	cv, err := h.Repo.GetClientVoucher(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	purchase, expiration, err := req.dates()
	if err != nil {
		respondError(c, err)
		return
	}
	if req.VoucherID != 0 {
		cv.VoucherID = req.VoucherID
	}
	if !purchase.IsZero() {
		cv.PurchaseDate = purchase
	}
	if !expiration.IsZero() {
		cv.ExpirationDate = expiration
	}
	if req.SessionsRemaining != nil {
		cv.SessionsRemaining = req.SessionsRemaining
	}

	if err := h.Repo.UpdateClientVoucher(c.Request.Context(), cv); err != nil {
		respondError(c, err)
		return
	}
	updated, err := h.Repo.GetClientVoucher(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toClientVoucherResponse(updated))
}

func (h *ClientHandler) DeleteClientVoucher(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.Repo.DeleteClientVoucher(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ClientHandler) RedeemClientVoucher(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	cv, err := h.Repo.RedeemClientVoucher(c.Request.Context(), id, h.now())
	if err != nil {
		respondError(c, err)
		return
	}
	h.Log.WithField("client_voucher_id", id).Info("voucher session redeemed")
	c.JSON(http.StatusOK, toClientVoucherResponse(cv))
}

func (h *ClientHandler) ClientPayments(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	client, err := h.Repo.GetClientByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	page, err := h.Repo.ClientPayments(c.Request.Context(), id, c.Query("page"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"client": toClientResponse(client), "payments": page})
}

func toClientVoucherResponse(cv *models.ClientVoucher) ClientVoucherResponse {
	out := ClientVoucherResponse{
		ID:             cv.ID,
		ClientID:       cv.ClientID,
		VoucherID:      cv.VoucherID,
		PurchaseDate:   cv.PurchaseDate.Format(dateLayout),
		ExpirationDate: cv.ExpirationDate.Format(dateLayout),
		IsActive:       cv.IsActive,
	}
	if cv.Client != nil {
		out.Client = cv.Client.String()
	}
	if cv.Voucher != nil {
		out.Voucher = cv.Voucher.Name
		out.DiscountedPrice = cv.Voucher.DiscountedPrice
	}
	if cv.SessionsRemaining != nil {
		out.SessionsRemaining = *cv.SessionsRemaining
	}
	return out
}
