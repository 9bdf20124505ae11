package web

import (
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"weather_alerts/internal/message"
	"weather_alerts/internal/model"
	"weather_alerts/internal/storage"
	"weather_alerts/internal/weather"
)

var nonPhoneChars = regexp.MustCompile(`[^\d+]`)

// NormalizePhone strips formatting characters and validates the international
// "+" prefix. Returns the empty string for anything unusable.
func NormalizePhone(phone string) string {
	phone = nonPhoneChars.ReplaceAllString(phone, "")
	if !strings.HasPrefix(phone, "+") || len(phone) < 8 {
		return ""
	}
	return phone
}

type subscribeRequest struct {
	Phone      string `json:"phone"`
	Country    string `json:"country"`
	PostalCode string `json:"postal_code"`
}

func (s *Server) handleSubscribe(c *gin.Context) {
	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	phone := NormalizePhone(req.Phone)
	country := strings.ToUpper(strings.TrimSpace(req.Country))
	postalCode := strings.TrimSpace(req.PostalCode)

	if phone == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "phone must be in international format, e.g. +49 1234 5678 90"})
		return
	}
	if country == "" || postalCode == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required fields"})
		return
	}

	ctx := c.Request.Context()

	existing, err := s.store.GetByPhone(ctx, phone)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.log.Error("lookup subscriber", "phone", phone, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if existing != nil && existing.IsActive {
		c.JSON(http.StatusConflict, gin.H{"error": "phone number already subscribed"})
		return
	}

	geo, err := s.geocoder.GeocodeZip(ctx, postalCode, country)
	if err != nil {
		var statusErr *weather.StatusError
		if errors.As(err, &statusErr) && statusErr.Code >= 400 && statusErr.Code < 500 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid postal code or country code"})
			return
		}
		s.log.Error("geocode postal code", "postal_code", postalCode, "country", country, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "geocoding service unavailable, please try again"})
		return
	}

	tzName := s.tz.TimezoneName(geo.Lat, geo.Lon)

	if existing != nil {
		existing.Country = country
		existing.PostalCode = postalCode
		existing.LocationName = geo.Name
		existing.Lat = geo.Lat
		existing.Lon = geo.Lon
		existing.Timezone = tzName
		existing.LastSentDate = ""
		existing.IsActive = true
		existing.UnsubscribeToken = newToken()
		existing.LastNotifiedAt = nil

		if err := s.store.UpdateSubscriber(ctx, existing); err != nil {
			s.log.Error("reactivate subscriber", "subscriber_id", existing.ID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.JSON(http.StatusOK, subscriberResponse(existing))
		return
	}

	sub := &model.Subscriber{
		Phone:            phone,
		Country:          country,
		PostalCode:       postalCode,
		LocationName:     geo.Name,
		Lat:              geo.Lat,
		Lon:              geo.Lon,
		Timezone:         tzName,
		IsActive:         true,
		UnsubscribeToken: newToken(),
	}
	if err := s.store.CreateSubscriber(ctx, sub); err != nil {
		s.log.Error("create subscriber", "phone", phone, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusCreated, subscriberResponse(sub))
}

func (s *Server) handleUnsubscribe(c *gin.Context) {
	token := c.Param("token")
	ctx := c.Request.Context()

	sub, err := s.store.GetByToken(ctx, token)
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "invalid or expired unsubscribe link"})
		return
	}
	if err != nil {
		s.log.Error("lookup unsubscribe token", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	if !sub.IsActive {
		c.JSON(http.StatusOK, gin.H{"message": "you are already unsubscribed"})
		return
	}

	if err := s.store.Deactivate(ctx, sub.ID); err != nil {
		s.log.Error("deactivate subscriber", "subscriber_id", sub.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "unsubscribed", "phone": sub.Phone})
}

func (s *Server) handlePreview(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid subscriber id"})
		return
	}
	ctx := c.Request.Context()

	sub, err := s.store.GetSubscriber(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "subscriber not found"})
		return
	}
	if err != nil {
		s.log.Error("get subscriber", "subscriber_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	var preview string
	var severity model.Severity
	if s.cfg.ForceSendAlert {
		preview = message.BuildTestAlert(sub.Country, sub.PostalCode)
	} else {
		forecast, err := s.forecaster.Forecast(ctx, sub.Lat, sub.Lon)
		if err != nil {
			s.log.Error("fetch forecast for preview", "subscriber_id", id, "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "weather provider unavailable"})
			return
		}
		severity = weather.Classify(forecast, time.Now().UTC(), s.cfg.ForecastHorizonHours)
		preview = message.BuildAlert(sub.Country, sub.PostalCode, severity)
	}

	c.JSON(http.StatusOK, gin.H{
		"subscriber_id": sub.ID,
		"country":       sub.Country,
		"postal_code":   sub.PostalCode,
		"location_name": sub.LocationName,
		"lat":           sub.Lat,
		"lon":           sub.Lon,
		"timezone":      sub.Timezone,
		"severity":      severity,
		"sms_preview":   preview,
	})
}

func (s *Server) handleAdminRun(c *gin.Context) {
	if s.cfg.AdminToken == "" || c.GetHeader("X-Admin-Token") != s.cfg.AdminToken {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	report, err := s.runner.Run(c.Request.Context(), s.cfg, limit)
	if err != nil {
		s.log.Error("admin dispatch run", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "dispatch run failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "stats": report.Stats})
}

func subscriberResponse(sub *model.Subscriber) gin.H {
	loc := sub.LocationName
	if loc == "" {
		loc = "your area"
	}
	return gin.H{
		"id":            sub.ID,
		"location_name": loc,
		"timezone":      sub.Timezone,
		"message":       "subscribed: you will receive a daily alert at the configured local hour when bad weather is expected",
	}
}

func newToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
