package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"salon-manager/models"
	"salon-manager/utils"
)

// Deps is everything the handlers share. Cache, Search and Events may be
// nil or disabled; the handlers then fall back to the database alone.
type Deps struct {
	Repo              models.Repository
	Events            *utils.Publisher
	Cache             utils.RedisClient
	Search            utils.ElasticsearchClient
	Log               logrus.FieldLogger
	JWTSecret         string
	LowStockThreshold int
	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now().UTC()
	}
	return time.Now().UTC()
}

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02T15:04:05"
)

// respondError maps repository errors to status codes. Unexpected errors are
// attached to the context for the error middleware to report.
func respondError(c *gin.Context, err error) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": verr.Fields})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, models.ErrConflict),
		errors.Is(err, models.ErrInsufficientStock),
		errors.Is(err, models.ErrVoucherUnavailable):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// bind reads a JSON or form body depending on the Content-Type.
func bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBind(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := parseUint(c.Param(name))
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid %s format", strings.ReplaceAll(name, "_", " "))})
		return 0, false
	}
	return id, true
}

func parseUint(s string) (uint, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	return uint(n), err
}

// fieldError builds a single-field validation error.
func fieldError(field, format string, args ...interface{}) error {
	v := models.NewValidationError()
	v.Add(field, format, args...)
	return v
}

func parseDate(field, raw string) (time.Time, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fieldError(field, "enter a valid date")
	}
	return t, nil
}

// parseClock reads "HH:MM" or "HH:MM:SS" as an offset into a day.
func parseClock(field, raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second, nil
		}
	}
	return 0, fieldError(field, "enter a valid time")
}

// parseLocalDateTime accepts ISO datetimes with or without seconds or zone.
func parseLocalDateTime(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{time.RFC3339, dateTimeLayout, "2006-01-02T15:04", "2006-01-02 15:04:05", "2006-01-02 15:04"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func formatDateTime(t time.Time) string {
	return t.Format(dateTimeLayout)
}

// invalidateAgenda drops every cached agenda payload.
func (d Deps) invalidateAgenda(ctx context.Context) {
	if d.Cache == nil {
		return
	}
	if err := d.Cache.DeleteByPrefix(ctx, agendaCachePrefix); err != nil {
		d.Log.WithError(err).Warn("failed to invalidate agenda cache")
	}
}

func idsOrNil(ids *[]uint) []uint {
	if ids == nil {
		return nil
	}
	if *ids == nil {
		return []uint{}
	}
	return *ids
}

func blankToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
