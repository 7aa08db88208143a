package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salon-manager/models"
)

func idOf(body map[string]interface{}) uint {
	return uint(body["id"].(float64))
}

func fieldsOf(t *testing.T, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	fields, ok := body["fields"].(map[string]interface{})
	require.True(t, ok, "response has no field errors: %v", body)
	return fields
}

func TestEmployeeEndpoints(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()
	color := &models.Category{Name: "Color", Color: "#ff0000"}
	require.NoError(t, env.repo.CreateCategory(ctx, color))
	cut := env.service(t, "Corte", "15.00", 30)
	dye := &models.Service{Name: "Tinte", Price: decimal.RequireFromString("40"), CategoryID: &color.ID}
	require.NoError(t, env.repo.CreateService(ctx, dye))
	retired := &models.Service{Name: "Permanente", Price: decimal.RequireFromString("50"), Available: models.AvailableNo}
	require.NoError(t, env.repo.CreateService(ctx, retired))

	w := env.do(t, http.MethodPost, "/api/v1/employees", gin.H{
		"first_name": "Marta", "last_name": "Ruiz", "telephone_number": "600222333", "email": "",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)
	assert.Equal(t, models.DefaultEmployeeColor, created["color"])
	assert.Nil(t, created["email"])

	tests := []struct {
		name  string
		body  gin.H
		field string
	}{
		{"duplicate telephone", gin.H{"first_name": "Otra", "last_name": "Ruiz", "telephone_number": "600222333"}, "telephone_number"},
		{"bad colour", gin.H{"first_name": "Eva", "last_name": "Gil", "telephone_number": "600333444", "color": "blue"}, "color"},
		{"unknown service", gin.H{"first_name": "Eva", "last_name": "Gil", "telephone_number": "600333444", "services": []uint{999}}, "services"},
		{"missing name", gin.H{"last_name": "Gil", "telephone_number": "600333444"}, "first_name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/v1/employees", tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Contains(t, fieldsOf(t, decode(t, w)), tt.field)
		})
	}

	w = env.do(t, http.MethodPost, "/api/v1/employees", gin.H{
		"first_name": "Eva", "last_name": "Gil", "telephone_number": "600444555", "services": []uint{cut.ID},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	eva := idOf(decode(t, w))
	path := fmt.Sprintf("/api/v1/employees/%d", eva)

	w = env.do(t, http.MethodPut, path, gin.H{"first_name": "Eva", "last_name": "Gil Sanz", "telephone_number": "600444555"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode(t, w)
	assert.Equal(t, "Gil Sanz", updated["last_name"])
	assert.Len(t, updated["services"], 1, "omitted services keep the assignments")

	w = env.do(t, http.MethodGet, path+"/services", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["services"], 1)

	w = env.do(t, http.MethodPut, path, gin.H{
		"first_name": "Eva", "last_name": "Gil Sanz", "telephone_number": "600444555", "services": []uint{},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = env.do(t, http.MethodGet, path+"/services", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["services"], "an empty list clears the assignments")

	w = env.do(t, http.MethodPut, path+"/services", gin.H{"services": []uint{dye.ID, cut.ID}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decode(t, w)["services"], 2)

	w = env.do(t, http.MethodGet, path+"/services", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	services := body["services"].([]interface{})
	require.Len(t, services, 2)
	assert.Equal(t, "Corte", services[0].(map[string]interface{})["name"], "uncategorised services come first")
	assert.Len(t, body["groups"], 2)

	w = env.do(t, http.MethodPut, path+"/services", gin.H{"services": []uint{999}})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, fieldsOf(t, decode(t, w)), "services")

	w = env.do(t, http.MethodGet, path+"/assignable-services", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body = decode(t, w)
	assert.ElementsMatch(t, []interface{}{float64(cut.ID), float64(dye.ID)}, body["assigned"])
	assert.Equal(t, "Eva", body["employee"].(map[string]interface{})["first_name"])
	offered := 0
	for _, g := range body["groups"].([]interface{}) {
		for _, s := range g.(map[string]interface{})["services"].([]interface{}) {
			assert.NotEqual(t, retired.Name, s.(map[string]interface{})["name"])
			offered++
		}
	}
	assert.Equal(t, 2, offered, "unavailable services are not offered")

	w = env.do(t, http.MethodGet, "/api/v1/employees", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var employees []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &employees))
	assert.Len(t, employees, 2)

	for _, p := range []string{"/api/v1/employees/999", "/api/v1/employees/999/services", "/api/v1/employees/999/assignable-services"} {
		w = env.do(t, http.MethodGet, p, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, p)
	}

	w = env.do(t, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = env.do(t, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServiceEndpoints(t *testing.T) {
	env := newTestEnv(t, false)

	tests := []struct {
		name    string
		body    gin.H
		field   string
		message string
	}{
		{"bad duration", gin.H{"name": "Corte", "duration": "1:3x", "price": "15"}, "duration", "invalid duration format"},
		{"minutes out of range", gin.H{"name": "Corte", "duration": "00:75", "price": "15"}, "duration", "invalid duration format"},
		{"unknown category", gin.H{"name": "Corte", "duration": "00:45", "price": "15", "category": 999}, "category", "select a valid choice"},
		{"bad availability", gin.H{"name": "Corte", "price": "15", "available": "maybe"}, "available", "select a valid choice"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/v1/services", tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Equal(t, []interface{}{tt.message}, fieldsOf(t, decode(t, w))[tt.field])
		})
	}

	w := env.do(t, http.MethodPost, "/api/v1/services", gin.H{"name": "Corte", "duration": "00:45", "price": "15.00"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)
	assert.Equal(t, "00:45", created["duration"])
	assert.EqualValues(t, 45, created["duration_minutes"])
	assert.Equal(t, models.AvailableYes, created["available"])
	assert.Equal(t, models.DefaultCategoryColor, created["color"])
	path := fmt.Sprintf("/api/v1/services/%d", idOf(created))

	w = env.do(t, http.MethodPut, path, gin.H{"name": "Corte", "duration": "01:00", "price": "18", "available": "no"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode(t, w)
	assert.Equal(t, "01:00", updated["duration"])
	assert.Equal(t, models.AvailableNo, updated["available"])

	w = env.do(t, http.MethodPut, path, gin.H{"name": "Corte", "duration": "soon", "price": "18"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, fieldsOf(t, decode(t, w)), "duration")

	w = env.do(t, http.MethodGet, "/api/v1/services/uncategorized", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var uncategorized []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &uncategorized))
	assert.Len(t, uncategorized, 1)

	w = env.do(t, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = env.do(t, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCategoryEndpoints(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()
	env.service(t, "Consulta", "0", 15)

	w := env.do(t, http.MethodPost, "/api/v1/categories", gin.H{"name": "Peluquería"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)
	assert.Equal(t, models.DefaultCategoryColor, created["color"])
	id := idOf(created)

	tests := []struct {
		name  string
		body  gin.H
		field string
	}{
		{"duplicate name", gin.H{"name": "Peluquería"}, "name"},
		{"missing name", gin.H{"name": " "}, "name"},
		{"bad colour", gin.H{"name": "Uñas", "color": "red"}, "color"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/v1/categories", tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Contains(t, fieldsOf(t, decode(t, w)), tt.field)
		})
	}

	w = env.do(t, http.MethodPut, fmt.Sprintf("/api/v1/categories/%d", id), gin.H{"name": "Peluquería", "color": "#ff0000"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "#ff0000", decode(t, w)["color"])

	for i := 0; i < models.ServicesPerPage+1; i++ {
		s := &models.Service{Name: fmt.Sprintf("Servicio %02d", i), Price: decimal.RequireFromString("10"), CategoryID: &id}
		require.NoError(t, env.repo.CreateService(ctx, s))
	}

	w = env.do(t, http.MethodGet, "/api/v1/categories", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Len(t, body["categories"], 1)
	assert.Len(t, body["uncategorized_services"], 1)

	servicesPath := fmt.Sprintf("/api/v1/categories/%d/services", id)
	pages := []struct {
		query    string
		page     float64
		items    int
		next     bool
		previous bool
	}{
		{"", 1, models.ServicesPerPage, true, false},
		{"?page=2", 2, 1, false, true},
		{"?page=abc", 1, models.ServicesPerPage, true, false},
		{"?page=9", 2, 1, false, true},
	}
	for _, p := range pages {
		w = env.do(t, http.MethodGet, servicesPath+p.query, nil)
		require.Equal(t, http.StatusOK, w.Code, p.query)
		body = decode(t, w)
		assert.Equal(t, "Peluquería", body["category"].(map[string]interface{})["name"])
		page := body["services"].(map[string]interface{})
		assert.Equal(t, p.page, page["page"], p.query)
		assert.EqualValues(t, 2, page["num_pages"], p.query)
		assert.EqualValues(t, models.ServicesPerPage+1, page["count"], p.query)
		assert.Len(t, page["items"], p.items, p.query)
		assert.Equal(t, p.next, page["has_next"], p.query)
		assert.Equal(t, p.previous, page["has_previous"], p.query)
	}
	w = env.do(t, http.MethodGet, servicesPath, nil)
	first := decode(t, w)["services"].(map[string]interface{})["items"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "Servicio 00", first["name"])
	assert.Equal(t, "#ff0000", first["color"])

	w = env.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/categories/%d", id), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = env.do(t, http.MethodGet, servicesPath, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/categories", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Empty(t, body["categories"])
	assert.Len(t, body["uncategorized_services"], models.ServicesPerPage+2, "deleting a category keeps its services")
}

func TestVoucherEndpoints(t *testing.T) {
	env := newTestEnv(t, false)
	cut := env.service(t, "Corte", "15.00", 30)
	env.service(t, "Tinte", "40.00", 60)

	w := env.do(t, http.MethodGet, "/api/v1/vouchers/new", nil)
	require.Equal(t, http.StatusOK, w.Code)
	groups := decode(t, w)["groups"].([]interface{})
	require.Len(t, groups, 1)
	assert.Len(t, groups[0].(map[string]interface{})["services"], 2)

	w = env.do(t, http.MethodPost, "/api/v1/vouchers", gin.H{
		"name": "Bono 5 cortes", "services": []uint{cut.ID}, "total_sessions": 5, "price_session": "15.00", "discount": 10,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)
	assert.Equal(t, "67.5", created["discounted_price"])
	assert.Len(t, created["services"], 1)
	path := fmt.Sprintf("/api/v1/vouchers/%d", idOf(created))

	tests := []struct {
		name   string
		body   gin.H
		fields []string
	}{
		{"every field wrong", gin.H{"name": "", "total_sessions": 0, "price_session": "0", "discount": 150},
			[]string{"name", "total_sessions", "price_session", "discount"}},
		{"unknown service", gin.H{"name": "Bono", "services": []uint{999}, "total_sessions": 1, "price_session": "10"},
			[]string{"services"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/v1/vouchers", tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			fields := fieldsOf(t, decode(t, w))
			assert.Len(t, fields, len(tt.fields))
			for _, f := range tt.fields {
				assert.Contains(t, fields, f)
			}
		})
	}

	w = env.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Bono 5 cortes", body["voucher"].(map[string]interface{})["name"])
	assert.Len(t, body["groups"], 1)

	w = env.do(t, http.MethodPut, path, gin.H{"name": "Bono 10 cortes", "total_sessions": 10, "price_session": "15", "discount": 0})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode(t, w)
	assert.Equal(t, "150", updated["discounted_price"])
	assert.Len(t, updated["services"], 1, "omitted services keep the bundle")

	w = env.do(t, http.MethodPut, path, gin.H{"name": "Bono 10 cortes", "services": []uint{}, "total_sessions": 10, "price_session": "15"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = env.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["groups"], "an empty list clears the bundle")

	w = env.do(t, http.MethodGet, "/api/v1/vouchers?page=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode(t, w)
	assert.EqualValues(t, 1, page["count"])
	assert.Len(t, page["items"], 1)

	w = env.do(t, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = env.do(t, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = env.do(t, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestClientVoucherEndpoints(t *testing.T) {
	env := newTestEnv(t, false)
	client := env.client(t, "Ana", "García", "")
	voucher := &models.Voucher{Name: "Bono 2 sesiones", TotalSessions: 2, PriceSession: decimal.RequireFromString("20")}
	require.NoError(t, env.repo.CreateVoucher(context.Background(), voucher, nil))
	assignPath := fmt.Sprintf("/api/v1/clients/%d/vouchers", client.ID)

	invalid := []struct {
		name  string
		body  gin.H
		field string
	}{
		{"unknown voucher", gin.H{"voucher": 999}, "voucher"},
		{"missing voucher", gin.H{}, "voucher"},
		{"unreadable date", gin.H{"voucher": voucher.ID, "purchase_date": "10/05/2024"}, "purchase_date"},
		{"expires before purchase", gin.H{"voucher": voucher.ID, "purchase_date": "2024-05-10", "expiration_date": "2024-05-01"}, "expiration_date"},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, assignPath, tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Contains(t, fieldsOf(t, decode(t, w)), tt.field)
		})
	}

	w := env.do(t, http.MethodPost, "/api/v1/clients/999/vouchers", gin.H{"voucher": voucher.ID})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodPost, assignPath, gin.H{"voucher": voucher.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assigned := decode(t, w)
	today := models.Today(time.Now().UTC())
	assert.Equal(t, today.Format(dateLayout), assigned["purchase_date"])
	assert.Equal(t, today.Add(models.DefaultVoucherLifetime).Format(dateLayout), assigned["expiration_date"])
	assert.EqualValues(t, 2, assigned["sessions_remaining"])
	assert.Equal(t, true, assigned["is_active"])
	assert.Equal(t, "Bono 2 sesiones", assigned["voucher"])
	assert.Equal(t, "40", assigned["discounted_price"])
	assert.Equal(t, "Ana García", assigned["client"])
	path := fmt.Sprintf("/api/v1/client-vouchers/%d", idOf(assigned))

	w = env.do(t, http.MethodPut, path, gin.H{"sessions_remaining": 1})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode(t, w)
	assert.EqualValues(t, 1, updated["sessions_remaining"])
	assert.Equal(t, assigned["purchase_date"], updated["purchase_date"], "blank dates keep the stored ones")
	assert.Equal(t, assigned["expiration_date"], updated["expiration_date"])

	w = env.do(t, http.MethodPut, path, gin.H{"voucher": 999})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, fieldsOf(t, decode(t, w)), "voucher")

	w = env.do(t, http.MethodPost, path+"/redeem", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	redeemed := decode(t, w)
	assert.EqualValues(t, 0, redeemed["sessions_remaining"])
	assert.Equal(t, false, redeemed["is_active"], "the last session deactivates the voucher")

	w = env.do(t, http.MethodPost, path+"/redeem", nil)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, models.ErrVoucherUnavailable.Error(), decode(t, w)["error"])

	w = env.do(t, http.MethodGet, assignPath, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Ana García", body["client"].(map[string]interface{})["full_name"])
	vouchers := body["vouchers"].([]interface{})
	require.Len(t, vouchers, 1)
	assert.EqualValues(t, 0, vouchers[0].(map[string]interface{})["sessions_remaining"])

	w = env.do(t, http.MethodPost, "/api/v1/client-vouchers/999/redeem", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = env.do(t, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
