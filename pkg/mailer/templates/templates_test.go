package templates

import (
	"strings"
	"testing"
)

func TestRenderPriceAlert(t *testing.T) {
	data := map[string]any{
		"Title":       "Echo Dot (4th Gen)",
		"NewPrice":    3499.0,
		"TargetPrice": 3500.0,
		"URL":         "https://www.amazon.in/dp/B09B8V1LZ3",
		"AppName":     "price-tracker",
	}

	subject, text, html, err := Render(PriceAlert, data)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(subject, "Price Drop Alert") || !strings.Contains(subject, "Echo Dot") {
		t.Errorf("subject = %q", subject)
	}
	if !strings.Contains(text, "3499") {
		t.Errorf("text missing price: %q", text)
	}
	if !strings.Contains(html, "https://www.amazon.in/dp/B09B8V1LZ3") {
		t.Errorf("html missing product link: %q", html)
	}
}

func TestRenderWelcome(t *testing.T) {
	subject, text, html, err := Render(Welcome, map[string]any{"AppName": "price-tracker"})
	if err != nil {
		t.Fatal(err)
	}
	if subject == "" || text == "" || html == "" {
		t.Error("all three parts should render")
	}
	if !strings.Contains(html, "price-tracker") {
		t.Errorf("html missing app name: %q", html)
	}
}

func TestRenderUnknownTemplate(t *testing.T) {
	if _, _, _, err := Render("nonexistent", nil); err == nil {
		t.Error("expected error for unknown template")
	}
}
