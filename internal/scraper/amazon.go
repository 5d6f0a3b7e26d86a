package scraper

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var nonPriceChars = regexp.MustCompile(`[^0-9.]`)

// AmazonExtractor pulls title, image, and price out of an Amazon product page.
// The price is split across two elements: a whole-units span and a
// fractional-units span, concatenated whole-then-fraction.
//
// Known fragility: the selectors are coupled to Amazon's current markup and
// there is no fallback chain. When the markup changes, extraction fails with
// ErrPriceNotFound rather than guessing.
type AmazonExtractor struct{}

func NewAmazonExtractor() *AmazonExtractor { return &AmazonExtractor{} }

func (a *AmazonExtractor) CanHandle(url string) bool {
	return strings.Contains(url, "amazon.")
}

func (a *AmazonExtractor) Extract(html string) (Result, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Result{}, fmt.Errorf("parse html: %w", err)
	}

	res := Result{
		Title: strings.TrimSpace(doc.Find("#productTitle").Text()),
	}
	if src, ok := doc.Find("#landingImage").Attr("src"); ok {
		res.ImageURL = src
	}

	whole := strings.TrimSpace(doc.Find(".a-price-whole").First().Text())
	fraction := strings.TrimSpace(doc.Find(".a-price-fraction").First().Text())

	price, err := parsePrice(whole, fraction)
	if err != nil {
		return Result{}, err
	}
	res.Price = price
	return res, nil
}

// parsePrice joins the whole and fractional spans, whole first. Amazon's
// whole-units span usually carries the trailing decimal point and a thousands
// separator ("1,299."); both variants parse to the same value, so "123" + "45"
// and "123." + "45" are each 123.45.
func parsePrice(whole, fraction string) (float64, error) {
	w := nonPriceChars.ReplaceAllString(whole, "")
	f := nonPriceChars.ReplaceAllString(fraction, "")

	raw := w
	if f != "" {
		raw = strings.ReplaceAll(w, ".", "") + "." + f
	}
	if raw == "" || raw == "." {
		return 0, ErrPriceNotFound
	}
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrPriceNotFound, whole+fraction)
	}
	return price, nil
}

var _ Extractor = (*AmazonExtractor)(nil)
