package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cric2000/Amazon-price-tracker/internal/container"
	handlers "github.com/cric2000/Amazon-price-tracker/internal/interface/http"
	"github.com/cric2000/Amazon-price-tracker/internal/interface/middleware"
	"github.com/cric2000/Amazon-price-tracker/pkg/helpers"
)

// ProductModule exposes the tracked-product CRUD and search routes. All of
// them require a session. Create gets its own tighter limiter since every
// call fetches a retailer page synchronously.

type ProductModule struct {
	Handler *handlers.ProductHandler
	JWT     *helpers.JWTManager
}

func NewProductModule(h *handlers.ProductHandler, jwt *helpers.JWTManager) *ProductModule {
	return &ProductModule{Handler: h, JWT: jwt}
}

func (m *ProductModule) Register(rg *gin.RouterGroup) {
	auth := rg.Group("/products")
	auth.Use(middleware.Auth(m.JWT, container.GetRedis()))
	auth.Use(middleware.RateLimit(container.GetRedis(), 120, time.Minute, middleware.KeyByUserID(), nil))

	createLimiter := middleware.RateLimit(container.GetRedis(), 10, time.Minute, middleware.KeyByIPAndPath(), nil)

	auth.POST("", createLimiter, m.Handler.Create)
	auth.GET("", m.Handler.List)
	auth.GET("/search", m.Handler.Search)
	auth.GET("/:id", m.Handler.Get)
	auth.PUT("/:id/target", m.Handler.UpdateTarget)
	auth.DELETE("/:id", m.Handler.Delete)
}
