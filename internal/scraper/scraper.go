package scraper

import (
	"context"
	"errors"
	"fmt"
)

// ErrPriceNotFound is returned when no numeric price can be derived from a page.
var ErrPriceNotFound = errors.New("price not found")

// FetchError wraps a failed page retrieval: network error, timeout, or a
// non-2xx status.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: status code %d", e.URL, e.StatusCode)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Result holds the fields extracted from a product page. Title and ImageURL
// are best-effort; only Price is mandatory.
type Result struct {
	Title    string
	ImageURL string
	Price    float64
}

// Fetcher retrieves raw HTML for a URL. Implementations make a fresh request
// per call; there is no caching or retry.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Extractor parses product fields out of raw HTML. Each implementation is
// tuned to one retailer's markup and kept behind this interface so
// orchestration can be tested against fixture HTML.
type Extractor interface {
	CanHandle(url string) bool
	Extract(html string) (Result, error)
}

// Registry picks the extractor for a URL.
type Registry struct {
	extractors []Extractor
}

func NewRegistry(extractors ...Extractor) *Registry {
	return &Registry{extractors: extractors}
}

// Find returns the first extractor that can handle the URL, or nil.
func (r *Registry) Find(url string) Extractor {
	for _, e := range r.extractors {
		if e.CanHandle(url) {
			return e
		}
	}
	return nil
}
