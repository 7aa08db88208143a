package handlers

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"salon-manager/models"
	"salon-manager/monitoring"
	"salon-manager/utils"
)

const (
	exportSheet    = "Clientes"
	exportFilename = "listado_clientes.xlsx"
	importField    = "excel_file"
	importWidth    = 4
	maxImportSize  = 10 << 20
)

var exportHeader = []string{"Nombre", "Apellidos", "Teléfono", "email"}

func (h *ClientHandler) ExportClients(c *gin.Context) {
	clients, err := h.Repo.AllClients(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	rows := make([][]interface{}, 0, len(clients))
	for _, client := range clients {
		rows = append(rows, []interface{}{
			client.FirstName,
			client.LastName,
			deref(client.TelephoneNumber),
			deref(client.Email),
		})
	}

	var buf bytes.Buffer
	if err := utils.WriteSpreadsheet(&buf, exportSheet, exportHeader, rows); err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+exportFilename)
	c.Data(http.StatusOK, utils.XLSXContentType, buf.Bytes())
}

// ImportClients creates one client per spreadsheet row. Rows that fail
// validation or insertion are counted and skipped.
func (h *ClientHandler) ImportClients(c *gin.Context) {
	header, err := c.FormFile(importField)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file was submitted"})
		return
	}
	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "error processing file: " + err.Error()})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImportSize))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "error processing file: " + err.Error()})
		return
	}

	rows, err := utils.ReadSpreadsheet(header.Filename, data, importWidth)
	if errors.Is(err, utils.ErrUnsupportedFormat) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "error processing file: " + err.Error()})
		return
	}

	ctx := c.Request.Context()
	imported, failed := 0, 0
	for i, row := range rows {
		client := &models.Client{
			FirstName:       strings.TrimSpace(row[0]),
			LastName:        strings.TrimSpace(row[1]),
			TelephoneNumber: blankToNil(&row[2]),
			Email:           blankToNil(&row[3]),
		}
		if err := h.Repo.CreateClient(ctx, client); err != nil {
			failed++
			h.Log.WithFields(logrus.Fields{"row": i + 2, "file": header.Filename}).
				WithError(err).Info("skipping client row")
			continue
		}
		imported++
		h.Events.PublishAsync(ctx, utils.TopicClientEvents, "client_created", client.ID, toClientResponse(client))
	}

	monitoring.ClientImports.WithLabelValues("imported").Add(float64(imported))
	monitoring.ClientImports.WithLabelValues("failed").Add(float64(failed))
	h.Log.WithFields(logrus.Fields{"imported": imported, "failed": failed}).Info("client import finished")

	c.JSON(http.StatusOK, gin.H{"imported": imported, "failed": failed})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
