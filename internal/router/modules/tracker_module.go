package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cric2000/Amazon-price-tracker/internal/container"
	handlers "github.com/cric2000/Amazon-price-tracker/internal/interface/http"
	"github.com/cric2000/Amazon-price-tracker/internal/interface/middleware"
)

// TrackerModule exposes the sweep trigger for schedulers. Requests from
// private/loopback addresses bypass the limiter; anything else gets a very
// small budget so a public caller cannot use the endpoint to hammer retailers.

type TrackerModule struct {
	Handler *handlers.TrackerHandler
}

func NewTrackerModule(h *handlers.TrackerHandler) *TrackerModule {
	return &TrackerModule{Handler: h}
}

func (m *TrackerModule) Register(rg *gin.RouterGroup) {
	rl := middleware.RateLimit(container.GetRedis(), 2, time.Minute, middleware.KeyByIP(), middleware.AllowPrivateIP())
	rg.GET("/internal/update-prices", rl, m.Handler.UpdatePrices)
}
