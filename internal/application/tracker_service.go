package application

import (
	"context"
	"encoding/json"
	"errors"
	"expvar"
	"fmt"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/cric2000/Amazon-price-tracker/internal/domain/entity"
	repo "github.com/cric2000/Amazon-price-tracker/internal/domain/repository"
	"github.com/cric2000/Amazon-price-tracker/internal/scraper"
	"github.com/cric2000/Amazon-price-tracker/pkg/helpers"
)

var (
	ErrUnsupportedURL = errors.New("no extractor for url")
	ErrProductExists  = errors.New("product already tracked")
)

var (
	sweepsTotal     = expvar.NewInt("tracker_sweeps_total")
	productsChecked = expvar.NewInt("tracker_products_checked")
	pricesUpdated   = expvar.NewInt("tracker_prices_updated")
	alertsSent      = expvar.NewInt("tracker_alerts_sent")
	itemErrors      = expvar.NewInt("tracker_item_errors")
)

// SweepLock grants exclusive handling of one product for the duration of a
// re-check, so overlapping sweeps cannot double-update or double-notify.
type SweepLock interface {
	Acquire(ctx context.Context, productID string) (bool, error)
	Release(ctx context.Context, productID string)
}

// RedisSweepLock implements SweepLock with a SETNX lease.
type RedisSweepLock struct {
	RDB *redis.Client
	TTL time.Duration
}

func (l *RedisSweepLock) key(productID string) string {
	return "tracker:lease:" + productID
}

func (l *RedisSweepLock) Acquire(ctx context.Context, productID string) (bool, error) {
	return helpers.AcquireLease(ctx, l.RDB, l.key(productID), l.TTL)
}

func (l *RedisSweepLock) Release(ctx context.Context, productID string) {
	helpers.ReleaseLease(ctx, l.RDB, l.key(productID))
}

// TrackerService orchestrates fetch, extract, store-diff, and notify for one
// newly added product or for the full tracked set.
type TrackerService struct {
	Users      repo.UserRepository
	Products   repo.ProductRepository
	Fetcher    scraper.Fetcher
	Extractors *scraper.Registry
	Notifier   PriceNotifier
	Lock       SweepLock
	Logger     *logrus.Logger

	ES              *elasticsearch.Client
	ESProductsIndex string

	// BatchWait inserts a pause between product fetches during a sweep so a
	// large tracked set does not hammer one retailer.
	BatchWait time.Duration
}

func NewTrackerService(users repo.UserRepository, products repo.ProductRepository, fetcher scraper.Fetcher, extractors *scraper.Registry, notifier PriceNotifier, lock SweepLock, logger *logrus.Logger) *TrackerService {
	return &TrackerService{
		Users:      users,
		Products:   products,
		Fetcher:    fetcher,
		Extractors: extractors,
		Notifier:   notifier,
		Lock:       lock,
		Logger:     logger,
	}
}

// Ingest registers a new product for the owner: fetch the page, extract the
// current price, persist the product with that price as its baseline, and
// write the first history row. No alert is sent on ingestion; the first
// observation is the baseline, so a threshold comparison against it carries
// no information.
func (s *TrackerService) Ingest(ctx context.Context, ownerEmail, url string, targetPrice float64) (*entity.Product, error) {
	owner, err := s.Users.GetByEmail(ctx, ownerEmail)
	if err != nil || owner == nil {
		return nil, ErrUserNotFound
	}

	ext := s.Extractors.Find(url)
	if ext == nil {
		return nil, ErrUnsupportedURL
	}

	html, err := s.Fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	res, err := ext.Extract(html)
	if err != nil {
		return nil, err
	}

	p := &entity.Product{
		UserID:       owner.ID,
		URL:          url,
		Title:        res.Title,
		ImageURL:     res.ImageURL,
		CurrentPrice: res.Price,
		TargetPrice:  targetPrice,
	}
	if err := s.Products.Create(ctx, p); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrProductExists
		}
		return nil, fmt.Errorf("create product: %w", err)
	}
	if err := s.Products.AppendHistory(ctx, &entity.PriceHistory{ProductID: p.ID, Price: res.Price}); err != nil {
		return nil, fmt.Errorf("append history: %w", err)
	}

	s.indexProduct(ctx, p)
	return p, nil
}

// SweepResult summarizes one RefreshAll pass.
type SweepResult struct {
	Checked int
	Updated int
	Alerted int
	Skipped int
}

func (r SweepResult) Message() string {
	return fmt.Sprintf("checked %d products: %d updated, %d alerted, %d skipped", r.Checked, r.Updated, r.Alerted, r.Skipped)
}

// RefreshAll re-checks every tracked product across all owners. Per-item
// failures are logged and skipped; only a failure to enumerate the product
// set aborts the sweep. Products are processed sequentially, one fetch at a
// time.
func (s *TrackerService) RefreshAll(ctx context.Context) (SweepResult, error) {
	products, err := s.Products.ListAll(ctx)
	if err != nil {
		return SweepResult{}, fmt.Errorf("list products: %w", err)
	}

	sweepsTotal.Add(1)
	var res SweepResult
	for i := range products {
		if s.BatchWait > 0 && res.Checked > 0 {
			time.Sleep(s.BatchWait)
		}

		p := &products[i]
		res.Checked++
		productsChecked.Add(1)

		updated, alerted, err := s.refreshOne(ctx, p)
		if err != nil {
			res.Skipped++
			itemErrors.Add(1)
			if s.Logger != nil {
				s.Logger.WithError(err).WithFields(logrus.Fields{
					"product_id": p.ID,
					"url":        p.URL,
				}).Warn("skipping product")
			}
			continue
		}
		if updated {
			res.Updated++
			pricesUpdated.Add(1)
		}
		if alerted {
			res.Alerted++
			alertsSent.Add(1)
		}
	}
	return res, nil
}

// refreshOne re-checks a single product. An alert fires only on the
// invocation where the stored price actually changes to a value at or below
// the target, so repeated sweeps over unchanged HTML notify nobody.
func (s *TrackerService) refreshOne(ctx context.Context, p *entity.Product) (updated bool, alerted bool, err error) {
	if s.Lock != nil {
		ok, lErr := s.Lock.Acquire(ctx, p.ID)
		if lErr != nil {
			return false, false, fmt.Errorf("acquire lease: %w", lErr)
		}
		if !ok {
			return false, false, errors.New("product leased by another sweep")
		}
		defer s.Lock.Release(ctx, p.ID)
	}

	ext := s.Extractors.Find(p.URL)
	if ext == nil {
		return false, false, ErrUnsupportedURL
	}

	html, err := s.Fetcher.Fetch(ctx, p.URL)
	if err != nil {
		return false, false, err
	}
	res, err := ext.Extract(html)
	if err != nil {
		return false, false, err
	}

	if res.Price == p.CurrentPrice {
		return false, false, nil
	}

	if err := s.Products.UpdateCurrentPrice(ctx, p.ID, res.Price); err != nil {
		return false, false, fmt.Errorf("update price: %w", err)
	}
	if err := s.Products.AppendHistory(ctx, &entity.PriceHistory{ProductID: p.ID, Price: res.Price}); err != nil {
		return false, false, fmt.Errorf("append history: %w", err)
	}

	if p.BelowTarget(res.Price) {
		// The price/history write is already committed; a notify failure is
		// logged and swallowed, never rolled back.
		if nErr := s.Notifier.NotifyPriceDrop(ctx, p, res.Price); nErr != nil {
			if s.Logger != nil {
				s.Logger.WithError(nErr).WithField("product_id", p.ID).Warn("price alert failed")
			}
		} else {
			alerted = true
		}
	}

	p.CurrentPrice = res.Price
	s.indexProduct(ctx, p)
	return true, alerted, nil
}

// ProductWithHistory pairs a product with its recorded observations, newest
// first.
type ProductWithHistory struct {
	Product entity.Product
	History []entity.PriceHistory
}

// ListProducts returns the user's products, newest first, each with its
// latest observation.
func (s *TrackerService) ListProducts(ctx context.Context, userID string) ([]ProductWithHistory, error) {
	products, err := s.Products.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]ProductWithHistory, 0, len(products))
	for _, p := range products {
		h, err := s.Products.HistoryByProduct(ctx, p.ID, 1)
		if err != nil {
			return nil, err
		}
		out = append(out, ProductWithHistory{Product: p, History: h})
	}
	return out, nil
}

// GetProduct returns one of the user's products with its full history.
func (s *TrackerService) GetProduct(ctx context.Context, userID, productID string) (*ProductWithHistory, error) {
	p, err := s.ownedProduct(ctx, userID, productID)
	if err != nil {
		return nil, err
	}
	h, err := s.Products.HistoryByProduct(ctx, p.ID, 0)
	if err != nil {
		return nil, err
	}
	return &ProductWithHistory{Product: *p, History: h}, nil
}

// UpdateTargetPrice changes the alert threshold for one of the user's
// products.
func (s *TrackerService) UpdateTargetPrice(ctx context.Context, userID, productID string, target float64) (*entity.Product, error) {
	p, err := s.ownedProduct(ctx, userID, productID)
	if err != nil {
		return nil, err
	}
	if err := s.Products.UpdateTargetPrice(ctx, productID, target); err != nil {
		return nil, err
	}
	p.TargetPrice = target
	s.indexProduct(ctx, p)
	return p, nil
}

// DeleteProduct stops tracking one of the user's products. History rows go
// with it (ON DELETE CASCADE).
func (s *TrackerService) DeleteProduct(ctx context.Context, userID, productID string) error {
	if _, err := s.ownedProduct(ctx, userID, productID); err != nil {
		return err
	}
	if err := s.Products.Delete(ctx, productID); err != nil {
		return err
	}
	s.removeProductIndex(ctx, productID)
	return nil
}

// ownedProduct loads a product and hides its existence from non-owners.
func (s *TrackerService) ownedProduct(ctx context.Context, userID, productID string) (*entity.Product, error) {
	p, err := s.Products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, repo.ErrNotFound
	}
	return p, nil
}

func isUniqueViolation(err error) bool {
	// 23505 is Postgres unique_violation; pgconn errors render the code.
	return err != nil && strings.Contains(err.Error(), "23505")
}

func (s *TrackerService) indexProduct(ctx context.Context, p *entity.Product) {
	if s.ES == nil || s.ESProductsIndex == "" {
		return
	}
	doc := map[string]any{
		"id":            p.ID,
		"user_id":       p.UserID,
		"url":           p.URL,
		"title":         p.Title,
		"current_price": p.CurrentPrice,
		"target_price":  p.TargetPrice,
		"updated_at":    time.Now().UTC().Format(time.RFC3339Nano),
	}
	b, _ := json.Marshal(doc)
	req := esapi.IndexRequest{Index: s.ESProductsIndex, DocumentID: p.ID, Body: strings.NewReader(string(b)), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("product_id", p.ID).Warn("es index failed")
		}
		return
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && s.Logger != nil {
		s.Logger.WithField("status", res.Status()).WithField("product_id", p.ID).Warn("es index response error")
	}
}

func (s *TrackerService) removeProductIndex(ctx context.Context, productID string) {
	if s.ES == nil || s.ESProductsIndex == "" {
		return
	}
	req := esapi.DeleteRequest{Index: s.ESProductsIndex, DocumentID: productID}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("product_id", productID).Warn("es delete failed")
		}
		return
	}
	_ = res.Body.Close()
}

// SearchProducts runs a multi_match query over the user's products in
// Elasticsearch.
func (s *TrackerService) SearchProducts(ctx context.Context, userID, q string, size int) ([]map[string]any, error) {
	if s.ES == nil || s.ESProductsIndex == "" {
		return []map[string]any{}, nil
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	query := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must": map[string]any{
					"multi_match": map[string]any{
						"query":  q,
						"fields": []string{"title^2", "url"},
					},
				},
				"filter": map[string]any{
					"term": map[string]any{"user_id": userID},
				},
			},
		},
		"size": size,
	}
	b, _ := json.Marshal(query)

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := s.ES.Search(
		s.ES.Search.WithContext(c),
		s.ES.Search.WithIndex(s.ESProductsIndex),
		s.ES.Search.WithBody(strings.NewReader(string(b))),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string         `json:"_id"`
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}
