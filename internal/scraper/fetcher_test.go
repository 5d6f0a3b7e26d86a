package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestFetchReturnsBody(t *testing.T) {
	var gotUA string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer ts.Close()

	f := NewHTTPFetcher(5*time.Second, "Mozilla/5.0 (test)")
	body, err := f.Fetch(context.Background(), ts.URL)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(body, "ok") {
		t.Errorf("unexpected body: %q", body)
	}
	if gotUA != "Mozilla/5.0 (test)" {
		t.Errorf("user agent = %q", gotUA)
	}
}

func TestFetchNonSuccessStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	f := NewHTTPFetcher(5*time.Second, "ua")
	_, err := f.Fetch(context.Background(), ts.URL)

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want *FetchError", err)
	}
	if fe.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d", fe.StatusCode)
	}
}

func TestFetchTimeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer ts.Close()

	f := NewHTTPFetcher(20*time.Millisecond, "ua")
	_, err := f.Fetch(context.Background(), ts.URL)

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want *FetchError", err)
	}
}

func TestFetchUnreachableHost(t *testing.T) {
	f := NewHTTPFetcher(time.Second, "ua")
	_, err := f.Fetch(context.Background(), "http://127.0.0.1:1/nothing")

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want *FetchError", err)
	}
}
