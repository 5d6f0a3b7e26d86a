package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cric2000/Amazon-price-tracker/internal/application"
	"github.com/cric2000/Amazon-price-tracker/internal/domain/entity"
	repo "github.com/cric2000/Amazon-price-tracker/internal/domain/repository"
	"github.com/cric2000/Amazon-price-tracker/internal/scraper"
	"github.com/cric2000/Amazon-price-tracker/pkg/response"
	"github.com/cric2000/Amazon-price-tracker/pkg/validation"
)

type ProductHandler struct {
	Tracker *application.TrackerService
}

func NewProductHandler(tracker *application.TrackerService) *ProductHandler {
	return &ProductHandler{Tracker: tracker}
}

type productDTO struct {
	ID           string     `json:"id"`
	URL          string     `json:"url"`
	Title        string     `json:"title"`
	ImageURL     string     `json:"image_url,omitempty"`
	CurrentPrice float64    `json:"current_price"`
	TargetPrice  float64    `json:"target_price"`
	CreatedAt    time.Time  `json:"created_at"`
	History      []priceDTO `json:"history,omitempty"`
}

type priceDTO struct {
	Price     float64   `json:"price"`
	CheckedAt time.Time `json:"checked_at"`
}

func toProductDTO(p *entity.Product, history []entity.PriceHistory) productDTO {
	dto := productDTO{
		ID:           p.ID,
		URL:          p.URL,
		Title:        p.Title,
		ImageURL:     p.ImageURL,
		CurrentPrice: p.CurrentPrice,
		TargetPrice:  p.TargetPrice,
		CreatedAt:    p.CreatedAt,
	}
	for _, h := range history {
		dto.History = append(dto.History, priceDTO{Price: h.Price, CheckedAt: h.CheckedAt})
	}
	return dto
}

type createProductRequest struct {
	URL         string  `json:"url" binding:"required,url"`
	TargetPrice float64 `json:"target_price" binding:"required,gt=0"`
}

// Create registers a URL for tracking. The page is fetched synchronously so
// the response already carries the extracted title and baseline price.
func (h *ProductHandler) Create(c *gin.Context) {
	var req createProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid request", validation.ToDetails(err))
		return
	}

	p, err := h.Tracker.Ingest(c.Request.Context(), c.GetString("userEmail"), req.URL, req.TargetPrice)
	if err != nil {
		switch {
		case errors.Is(err, application.ErrUserNotFound):
			response.Error[any](c, http.StatusUnauthorized, "user not found", nil)
		case errors.Is(err, application.ErrUnsupportedURL):
			response.Error[any](c, http.StatusUnprocessableEntity, "unsupported product URL", nil)
		case errors.Is(err, application.ErrProductExists):
			response.Error[any](c, http.StatusConflict, "product already tracked", nil)
		case errors.Is(err, scraper.ErrPriceNotFound):
			response.Error[any](c, http.StatusUnprocessableEntity, "could not read a price from the page", nil)
		default:
			var fe *scraper.FetchError
			if errors.As(err, &fe) {
				response.Error[any](c, http.StatusBadGateway, "could not fetch the product page", nil)
				return
			}
			response.Error[any](c, http.StatusInternalServerError, "failed to track product", nil)
		}
		return
	}

	response.Success(c, http.StatusCreated, toProductDTO(p, nil), "product tracked", nil)
}

func (h *ProductHandler) List(c *gin.Context) {
	items, err := h.Tracker.ListProducts(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		response.Error[any](c, http.StatusInternalServerError, "failed to list products", nil)
		return
	}

	out := make([]productDTO, 0, len(items))
	for _, item := range items {
		out = append(out, toProductDTO(&item.Product, item.History))
	}
	response.Success(c, http.StatusOK, out, "products", nil)
}

func (h *ProductHandler) Get(c *gin.Context) {
	item, err := h.Tracker.GetProduct(c.Request.Context(), c.GetString("userID"), c.Param("id"))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			response.Error[any](c, http.StatusNotFound, "product not found", nil)
			return
		}
		response.Error[any](c, http.StatusInternalServerError, "failed to load product", nil)
		return
	}
	response.Success(c, http.StatusOK, toProductDTO(&item.Product, item.History), "product", nil)
}

type updateTargetRequest struct {
	TargetPrice float64 `json:"target_price" binding:"required,gt=0"`
}

func (h *ProductHandler) UpdateTarget(c *gin.Context) {
	var req updateTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid request", validation.ToDetails(err))
		return
	}

	p, err := h.Tracker.UpdateTargetPrice(c.Request.Context(), c.GetString("userID"), c.Param("id"), req.TargetPrice)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			response.Error[any](c, http.StatusNotFound, "product not found", nil)
			return
		}
		response.Error[any](c, http.StatusInternalServerError, "failed to update target price", nil)
		return
	}
	response.Success(c, http.StatusOK, toProductDTO(p, nil), "target price updated", nil)
}

func (h *ProductHandler) Delete(c *gin.Context) {
	err := h.Tracker.DeleteProduct(c.Request.Context(), c.GetString("userID"), c.Param("id"))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			response.Error[any](c, http.StatusNotFound, "product not found", nil)
			return
		}
		response.Error[any](c, http.StatusInternalServerError, "failed to delete product", nil)
		return
	}
	response.Success[any](c, http.StatusOK, nil, "product deleted", nil)
}

func (h *ProductHandler) Search(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		response.Error[any](c, http.StatusBadRequest, "query parameter q is required", nil)
		return
	}
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))

	hits, err := h.Tracker.SearchProducts(c.Request.Context(), c.GetString("userID"), q, size)
	if err != nil {
		response.Error[any](c, http.StatusInternalServerError, "search failed", nil)
		return
	}
	response.Success(c, http.StatusOK, hits, "search results", nil)
}
