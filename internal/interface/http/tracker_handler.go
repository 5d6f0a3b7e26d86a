package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cric2000/Amazon-price-tracker/internal/application"
	"github.com/cric2000/Amazon-price-tracker/pkg/response"
)

type TrackerHandler struct {
	Tracker *application.TrackerService
}

func NewTrackerHandler(tracker *application.TrackerService) *TrackerHandler {
	return &TrackerHandler{Tracker: tracker}
}

type sweepDTO struct {
	Checked int `json:"checked"`
	Updated int `json:"updated"`
	Alerted int `json:"alerted"`
	Skipped int `json:"skipped"`
}

// UpdatePrices runs a full sweep over every tracked product. The endpoint is
// meant for schedulers; it stays exposed behind the private-IP allowlist so an
// external cron can still hit it.
func (h *TrackerHandler) UpdatePrices(c *gin.Context) {
	res, err := h.Tracker.RefreshAll(c.Request.Context())
	if err != nil {
		response.Error[any](c, http.StatusInternalServerError, "price update sweep failed", nil)
		return
	}
	response.Success(c, http.StatusOK, sweepDTO(res), res.Message(), nil)
}
