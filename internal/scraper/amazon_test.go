package scraper

import (
	"errors"
	"fmt"
	"testing"
)

func productPage(title, whole, fraction, imageSrc string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body>
	<span id="productTitle"> %s </span>
	<img id="landingImage" src=%q alt="">
	<span class="a-price">
		<span class="a-price-whole">%s</span><span class="a-price-fraction">%s</span>
	</span>
	<span class="a-price">
		<span class="a-price-whole">999.</span><span class="a-price-fraction">99</span>
	</span>
</body>
</html>`, title, imageSrc, whole, fraction)
}

func TestExtractWholeAndFraction(t *testing.T) {
	tests := []struct {
		whole    string
		fraction string
		want     float64
	}{
		{"123", "45", 123.45},
		{"123.", "45", 123.45},
		{"1,299.", "95", 1299.95},
		{"58", "00", 58.00},
		{"499", "", 499},
	}

	e := NewAmazonExtractor()
	for _, tt := range tests {
		html := productPage("Echo Dot", tt.whole, tt.fraction, "https://img.example/dot.jpg")
		res, err := e.Extract(html)
		if err != nil {
			t.Fatalf("Extract(%q+%q): %v", tt.whole, tt.fraction, err)
		}
		if res.Price != tt.want {
			t.Errorf("Extract(%q+%q) price = %v, want %v", tt.whole, tt.fraction, res.Price, tt.want)
		}
	}
}

func TestExtractUsesFirstPriceElements(t *testing.T) {
	// The page fixture contains a second price block (999.99); the first one
	// must win.
	html := productPage("Echo Dot", "123.", "45", "")
	res, err := NewAmazonExtractor().Extract(html)
	if err != nil {
		t.Fatal(err)
	}
	if res.Price != 123.45 {
		t.Errorf("price = %v, want 123.45", res.Price)
	}
}

func TestExtractTitleAndImage(t *testing.T) {
	html := productPage("Kindle Paperwhite", "139.", "99", "https://img.example/kindle.jpg")
	res, err := NewAmazonExtractor().Extract(html)
	if err != nil {
		t.Fatal(err)
	}
	if res.Title != "Kindle Paperwhite" {
		t.Errorf("title = %q", res.Title)
	}
	if res.ImageURL != "https://img.example/kindle.jpg" {
		t.Errorf("image = %q", res.ImageURL)
	}
}

func TestExtractMissingPriceSelectors(t *testing.T) {
	pages := []string{
		`<html><body><p>nothing here</p></body></html>`,
		`<html><body><span id="productTitle">Title only</span></body></html>`,
		`<html><body><span class="a-price-whole">not a number</span></body></html>`,
		``,
	}
	e := NewAmazonExtractor()
	for i, html := range pages {
		_, err := e.Extract(html)
		if !errors.Is(err, ErrPriceNotFound) {
			t.Errorf("page %d: err = %v, want ErrPriceNotFound", i, err)
		}
	}
}

func TestExtractTitleFailureDoesNotBlockPrice(t *testing.T) {
	html := `<html><body><span class="a-price-whole">42.</span><span class="a-price-fraction">50</span></body></html>`
	res, err := NewAmazonExtractor().Extract(html)
	if err != nil {
		t.Fatal(err)
	}
	if res.Price != 42.50 {
		t.Errorf("price = %v, want 42.50", res.Price)
	}
	if res.Title != "" || res.ImageURL != "" {
		t.Errorf("expected empty title/image, got %q %q", res.Title, res.ImageURL)
	}
}

func TestCanHandle(t *testing.T) {
	e := NewAmazonExtractor()
	if !e.CanHandle("https://www.amazon.in/dp/B09B8V1LZ3") {
		t.Error("expected amazon.in URL to be handled")
	}
	if e.CanHandle("https://example.com/product/1") {
		t.Error("did not expect example.com URL to be handled")
	}
}

func TestRegistryFind(t *testing.T) {
	reg := NewRegistry(NewAmazonExtractor())
	if reg.Find("https://www.amazon.com/dp/B0TEST") == nil {
		t.Error("expected extractor for amazon URL")
	}
	if reg.Find("https://shop.example.org/item") != nil {
		t.Error("expected no extractor for unknown retailer")
	}
}
