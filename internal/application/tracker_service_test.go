package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cric2000/Amazon-price-tracker/internal/domain/entity"
	repo "github.com/cric2000/Amazon-price-tracker/internal/domain/repository"
	"github.com/cric2000/Amazon-price-tracker/internal/scraper"
)

// ---- fakes ----

type fakeUserRepo struct {
	byEmail map[string]*entity.User
	byID    map[string]*entity.User
}

func newFakeUserRepo(users ...*entity.User) *fakeUserRepo {
	r := &fakeUserRepo{byEmail: map[string]*entity.User{}, byID: map[string]*entity.User{}}
	for _, u := range users {
		r.byEmail[u.Email] = u
		r.byID[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) Create(ctx context.Context, u *entity.User) error {
	u.ID = "user-" + strconv.Itoa(len(r.byID)+1)
	r.byEmail[u.Email] = u
	r.byID[u.ID] = u
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	if u, ok := r.byID[id]; ok {
		return u, nil
	}
	return nil, repo.ErrNotFound
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	if u, ok := r.byEmail[email]; ok {
		return u, nil
	}
	return nil, repo.ErrNotFound
}

func (r *fakeUserRepo) Update(ctx context.Context, u *entity.User) error { return nil }

type fakeProductRepo struct {
	products map[string]*entity.Product
	history  []entity.PriceHistory
	nextID   int
	listErr  error
}

func newFakeProductRepo(products ...*entity.Product) *fakeProductRepo {
	r := &fakeProductRepo{products: map[string]*entity.Product{}}
	for _, p := range products {
		r.products[p.ID] = p
	}
	return r
}

func (r *fakeProductRepo) Create(ctx context.Context, p *entity.Product) error {
	for _, existing := range r.products {
		if existing.UserID == p.UserID && existing.URL == p.URL {
			return errors.New("ERROR: duplicate key value violates unique constraint (SQLSTATE 23505)")
		}
	}
	r.nextID++
	p.ID = "prod-" + strconv.Itoa(r.nextID)
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	r.products[p.ID] = p
	return nil
}

func (r *fakeProductRepo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	if p, ok := r.products[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, repo.ErrNotFound
}

func (r *fakeProductRepo) ListAll(ctx context.Context) ([]entity.Product, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []entity.Product
	// deterministic order by id
	for i := 1; i <= r.nextID+len(r.products); i++ {
		if p, ok := r.products["prod-"+strconv.Itoa(i)]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *fakeProductRepo) ListByUser(ctx context.Context, userID string) ([]entity.Product, error) {
	all, _ := r.ListAll(ctx)
	var out []entity.Product
	for _, p := range all {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakeProductRepo) UpdateCurrentPrice(ctx context.Context, id string, price float64) error {
	p, ok := r.products[id]
	if !ok {
		return repo.ErrNotFound
	}
	p.CurrentPrice = price
	p.UpdatedAt = time.Now()
	return nil
}

func (r *fakeProductRepo) UpdateTargetPrice(ctx context.Context, id string, price float64) error {
	p, ok := r.products[id]
	if !ok {
		return repo.ErrNotFound
	}
	p.TargetPrice = price
	return nil
}

func (r *fakeProductRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.products[id]; !ok {
		return repo.ErrNotFound
	}
	delete(r.products, id)
	return nil
}

func (r *fakeProductRepo) AppendHistory(ctx context.Context, h *entity.PriceHistory) error {
	h.ID = int64(len(r.history) + 1)
	h.CheckedAt = time.Now()
	r.history = append(r.history, *h)
	return nil
}

func (r *fakeProductRepo) HistoryByProduct(ctx context.Context, productID string, limit int) ([]entity.PriceHistory, error) {
	var out []entity.PriceHistory
	for i := len(r.history) - 1; i >= 0; i-- {
		if r.history[i].ProductID == productID {
			out = append(out, r.history[i])
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *fakeProductRepo) historyFor(productID string) []entity.PriceHistory {
	h, _ := r.HistoryByProduct(context.Background(), productID, 0)
	return h
}

type fakeFetcher struct {
	pages map[string]string
	fails map[string]error
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (string, error) {
	if err, ok := f.fails[url]; ok {
		return "", err
	}
	if html, ok := f.pages[url]; ok {
		return html, nil
	}
	return "", &scraper.FetchError{URL: url, StatusCode: 404}
}

type alert struct {
	productID string
	price     float64
}

type fakeNotifier struct {
	alerts []alert
	fail   error
}

func (n *fakeNotifier) NotifyPriceDrop(ctx context.Context, p *entity.Product, newPrice float64) error {
	if n.fail != nil {
		return n.fail
	}
	n.alerts = append(n.alerts, alert{productID: p.ID, price: newPrice})
	return nil
}

type denyLock struct{}

func (denyLock) Acquire(ctx context.Context, productID string) (bool, error) { return false, nil }
func (denyLock) Release(ctx context.Context, productID string)               {}

// ---- helpers ----

func amazonPage(title string, price float64) string {
	whole := int(price)
	frac := int(price*100+0.5) % 100
	return fmt.Sprintf(`<html><body>
		<span id="productTitle">%s</span>
		<img id="landingImage" src="https://img.example/%s.jpg">
		<span class="a-price-whole">%d.</span><span class="a-price-fraction">%02d</span>
	</body></html>`, title, title, whole, frac)
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTracker(users *fakeUserRepo, products *fakeProductRepo, fetcher *fakeFetcher, notifier *fakeNotifier) *TrackerService {
	return NewTrackerService(users, products, fetcher, scraper.NewRegistry(scraper.NewAmazonExtractor()), notifier, nil, quietLogger())
}

// ---- ingest ----

func TestIngestCreatesProductWithHistory(t *testing.T) {
	users := newFakeUserRepo(&entity.User{ID: "user-1", Email: "a@example.com"})
	products := newFakeProductRepo()
	url := "https://www.amazon.in/dp/B0TEST"
	fetcher := &fakeFetcher{pages: map[string]string{url: amazonPage("Echo Dot", 123.45)}}
	notifier := &fakeNotifier{}
	svc := newTracker(users, products, fetcher, notifier)

	p, err := svc.Ingest(context.Background(), "a@example.com", url, 100)
	if err != nil {
		t.Fatal(err)
	}
	if p.CurrentPrice != 123.45 {
		t.Errorf("current price = %v", p.CurrentPrice)
	}
	if p.Title != "Echo Dot" {
		t.Errorf("title = %q", p.Title)
	}
	if h := products.historyFor(p.ID); len(h) != 1 || h[0].Price != 123.45 {
		t.Errorf("history = %+v, want one entry at 123.45", h)
	}
}

func TestIngestNeverNotifies(t *testing.T) {
	users := newFakeUserRepo(&entity.User{ID: "user-1", Email: "a@example.com"})
	products := newFakeProductRepo()
	url := "https://www.amazon.in/dp/B0TEST"
	// Initial price already far below target; still no alert.
	fetcher := &fakeFetcher{pages: map[string]string{url: amazonPage("Echo Dot", 10)}}
	notifier := &fakeNotifier{}
	svc := newTracker(users, products, fetcher, notifier)

	if _, err := svc.Ingest(context.Background(), "a@example.com", url, 500); err != nil {
		t.Fatal(err)
	}
	if len(notifier.alerts) != 0 {
		t.Errorf("alerts = %+v, want none on ingestion", notifier.alerts)
	}
}

func TestIngestUnknownOwner(t *testing.T) {
	svc := newTracker(newFakeUserRepo(), newFakeProductRepo(), &fakeFetcher{}, &fakeNotifier{})
	_, err := svc.Ingest(context.Background(), "ghost@example.com", "https://www.amazon.in/dp/X", 10)
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("err = %v, want ErrUserNotFound", err)
	}
}

func TestIngestExtractionFailureCreatesNothing(t *testing.T) {
	users := newFakeUserRepo(&entity.User{ID: "user-1", Email: "a@example.com"})
	products := newFakeProductRepo()
	url := "https://www.amazon.in/dp/B0TEST"
	fetcher := &fakeFetcher{pages: map[string]string{url: `<html><body>no price here</body></html>`}}
	svc := newTracker(users, products, fetcher, &fakeNotifier{})

	_, err := svc.Ingest(context.Background(), "a@example.com", url, 10)
	if !errors.Is(err, scraper.ErrPriceNotFound) {
		t.Fatalf("err = %v, want ErrPriceNotFound", err)
	}
	if len(products.products) != 0 || len(products.history) != 0 {
		t.Error("expected no partial commit after failed extraction")
	}
}

func TestIngestDuplicateURL(t *testing.T) {
	users := newFakeUserRepo(&entity.User{ID: "user-1", Email: "a@example.com"})
	products := newFakeProductRepo()
	url := "https://www.amazon.in/dp/B0TEST"
	fetcher := &fakeFetcher{pages: map[string]string{url: amazonPage("Echo Dot", 99)}}
	svc := newTracker(users, products, fetcher, &fakeNotifier{})

	if _, err := svc.Ingest(context.Background(), "a@example.com", url, 10); err != nil {
		t.Fatal(err)
	}
	_, err := svc.Ingest(context.Background(), "a@example.com", url, 10)
	if !errors.Is(err, ErrProductExists) {
		t.Errorf("err = %v, want ErrProductExists", err)
	}
}

// ---- refresh ----

func trackedProduct(id, userID, url string, current, target float64) *entity.Product {
	return &entity.Product{ID: id, UserID: userID, URL: url, Title: "Item " + id, CurrentPrice: current, TargetPrice: target}
}

func TestRefreshPriceDropBelowTarget(t *testing.T) {
	users := newFakeUserRepo(&entity.User{ID: "user-1", Email: "a@example.com"})
	url := "https://www.amazon.in/dp/B0TEST"
	products := newFakeProductRepo(trackedProduct("prod-1", "user-1", url, 100, 90))
	products.nextID = 1
	fetcher := &fakeFetcher{pages: map[string]string{url: amazonPage("Item", 85)}}
	notifier := &fakeNotifier{}
	svc := newTracker(users, products, fetcher, notifier)

	res, err := svc.RefreshAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Updated != 1 || res.Alerted != 1 {
		t.Errorf("result = %+v, want 1 updated, 1 alerted", res)
	}
	if got := products.products["prod-1"].CurrentPrice; got != 85 {
		t.Errorf("current price = %v, want 85", got)
	}
	if h := products.historyFor("prod-1"); len(h) != 1 || h[0].Price != 85 {
		t.Errorf("history = %+v, want one entry at 85", h)
	}
	if len(notifier.alerts) != 1 || notifier.alerts[0].price != 85 {
		t.Errorf("alerts = %+v, want one at 85", notifier.alerts)
	}
}

func TestRefreshUnchangedPrice(t *testing.T) {
	users := newFakeUserRepo(&entity.User{ID: "user-1", Email: "a@example.com"})
	url := "https://www.amazon.in/dp/B0TEST"
	products := newFakeProductRepo(trackedProduct("prod-1", "user-1", url, 100, 90))
	products.nextID = 1
	fetcher := &fakeFetcher{pages: map[string]string{url: amazonPage("Item", 100)}}
	notifier := &fakeNotifier{}
	svc := newTracker(users, products, fetcher, notifier)

	res, err := svc.RefreshAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Updated != 0 || res.Alerted != 0 {
		t.Errorf("result = %+v, want nothing updated or alerted", res)
	}
	if len(products.history) != 0 {
		t.Errorf("history = %+v, want none", products.history)
	}
	if len(notifier.alerts) != 0 {
		t.Errorf("alerts = %+v, want none", notifier.alerts)
	}
}

func TestRefreshDropAboveTargetUpdatesWithoutAlert(t *testing.T) {
	users := newFakeUserRepo(&entity.User{ID: "user-1", Email: "a@example.com"})
	url := "https://www.amazon.in/dp/B0TEST"
	products := newFakeProductRepo(trackedProduct("prod-1", "user-1", url, 100, 90))
	products.nextID = 1
	fetcher := &fakeFetcher{pages: map[string]string{url: amazonPage("Item", 95)}}
	notifier := &fakeNotifier{}
	svc := newTracker(users, products, fetcher, notifier)

	res, err := svc.RefreshAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Updated != 1 || res.Alerted != 0 {
		t.Errorf("result = %+v, want 1 updated, 0 alerted", res)
	}
	if len(notifier.alerts) != 0 {
		t.Errorf("alerts = %+v, want none above target", notifier.alerts)
	}
}

func TestRefreshIdempotentAcrossRuns(t *testing.T) {
	users := newFakeUserRepo(&entity.User{ID: "user-1", Email: "a@example.com"})
	url := "https://www.amazon.in/dp/B0TEST"
	products := newFakeProductRepo(trackedProduct("prod-1", "user-1", url, 100, 90))
	products.nextID = 1
	fetcher := &fakeFetcher{pages: map[string]string{url: amazonPage("Item", 85)}}
	notifier := &fakeNotifier{}
	svc := newTracker(users, products, fetcher, notifier)

	if _, err := svc.RefreshAll(context.Background()); err != nil {
		t.Fatal(err)
	}
	// Second sweep over identical HTML: price matches stored state now.
	res, err := svc.RefreshAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Updated != 0 || res.Alerted != 0 {
		t.Errorf("second sweep result = %+v, want no updates or alerts", res)
	}
	if len(products.history) != 1 {
		t.Errorf("history rows = %d, want 1 after two sweeps", len(products.history))
	}
	if len(notifier.alerts) != 1 {
		t.Errorf("alerts = %d, want exactly 1 after two sweeps", len(notifier.alerts))
	}
}

func TestRefreshIsolatesPerItemFailures(t *testing.T) {
	users := newFakeUserRepo(&entity.User{ID: "user-1", Email: "a@example.com"})
	url1 := "https://www.amazon.in/dp/B01"
	url2 := "https://www.amazon.in/dp/B02"
	url3 := "https://www.amazon.in/dp/B03"
	products := newFakeProductRepo(
		trackedProduct("prod-1", "user-1", url1, 100, 90),
		trackedProduct("prod-2", "user-1", url2, 100, 90),
		trackedProduct("prod-3", "user-1", url3, 100, 90),
	)
	products.nextID = 3
	fetcher := &fakeFetcher{
		pages: map[string]string{
			url1: amazonPage("Item1", 85),
			url3: amazonPage("Item3", 80),
		},
		fails: map[string]error{
			url2: &scraper.FetchError{URL: url2, Err: errors.New("connection refused")},
		},
	}
	notifier := &fakeNotifier{}
	svc := newTracker(users, products, fetcher, notifier)

	res, err := svc.RefreshAll(context.Background())
	if err != nil {
		t.Fatalf("sweep must succeed despite item failure, got %v", err)
	}
	if res.Checked != 3 || res.Updated != 2 || res.Alerted != 2 || res.Skipped != 1 {
		t.Errorf("result = %+v, want checked 3, updated 2, alerted 2, skipped 1", res)
	}
	if products.products["prod-1"].CurrentPrice != 85 {
		t.Error("product 1 not updated")
	}
	if products.products["prod-2"].CurrentPrice != 100 {
		t.Error("product 2 should be untouched")
	}
	if products.products["prod-3"].CurrentPrice != 80 {
		t.Error("product 3 not updated")
	}
}

func TestRefreshEnumerationFailureIsFatal(t *testing.T) {
	users := newFakeUserRepo()
	products := newFakeProductRepo()
	products.listErr = errors.New("connection reset")
	svc := newTracker(users, products, &fakeFetcher{}, &fakeNotifier{})

	if _, err := svc.RefreshAll(context.Background()); err == nil {
		t.Fatal("expected error when product enumeration fails")
	}
}

func TestRefreshNotifyFailureKeepsCommittedUpdate(t *testing.T) {
	users := newFakeUserRepo(&entity.User{ID: "user-1", Email: "a@example.com"})
	url := "https://www.amazon.in/dp/B0TEST"
	products := newFakeProductRepo(trackedProduct("prod-1", "user-1", url, 100, 90))
	products.nextID = 1
	fetcher := &fakeFetcher{pages: map[string]string{url: amazonPage("Item", 85)}}
	notifier := &fakeNotifier{fail: errors.New("smtp unavailable")}
	svc := newTracker(users, products, fetcher, notifier)

	res, err := svc.RefreshAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Updated != 1 || res.Alerted != 0 {
		t.Errorf("result = %+v, want updated without alert", res)
	}
	if products.products["prod-1"].CurrentPrice != 85 {
		t.Error("price update must survive a notify failure")
	}
	if len(products.historyFor("prod-1")) != 1 {
		t.Error("history append must survive a notify failure")
	}
}

func TestRefreshSkipsLeasedProducts(t *testing.T) {
	users := newFakeUserRepo(&entity.User{ID: "user-1", Email: "a@example.com"})
	url := "https://www.amazon.in/dp/B0TEST"
	products := newFakeProductRepo(trackedProduct("prod-1", "user-1", url, 100, 90))
	products.nextID = 1
	fetcher := &fakeFetcher{pages: map[string]string{url: amazonPage("Item", 85)}}
	notifier := &fakeNotifier{}
	svc := newTracker(users, products, fetcher, notifier)
	svc.Lock = denyLock{}

	res, err := svc.RefreshAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Skipped != 1 || res.Updated != 0 {
		t.Errorf("result = %+v, want leased product skipped", res)
	}
	if len(notifier.alerts) != 0 {
		t.Error("leased product must not be notified")
	}
}

// ---- product management ----

func TestUpdateTargetPriceRequiresOwnership(t *testing.T) {
	users := newFakeUserRepo()
	products := newFakeProductRepo(trackedProduct("prod-1", "user-1", "https://www.amazon.in/dp/X", 100, 90))
	products.nextID = 1
	svc := newTracker(users, products, &fakeFetcher{}, &fakeNotifier{})

	if _, err := svc.UpdateTargetPrice(context.Background(), "user-2", "prod-1", 50); !errors.Is(err, repo.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound for foreign product", err)
	}
	p, err := svc.UpdateTargetPrice(context.Background(), "user-1", "prod-1", 50)
	if err != nil {
		t.Fatal(err)
	}
	if p.TargetPrice != 50 {
		t.Errorf("target = %v, want 50", p.TargetPrice)
	}
}

func TestDeleteProductRequiresOwnership(t *testing.T) {
	users := newFakeUserRepo()
	products := newFakeProductRepo(trackedProduct("prod-1", "user-1", "https://www.amazon.in/dp/X", 100, 90))
	products.nextID = 1
	svc := newTracker(users, products, &fakeFetcher{}, &fakeNotifier{})

	if err := svc.DeleteProduct(context.Background(), "user-2", "prod-1"); !errors.Is(err, repo.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound for foreign product", err)
	}
	if err := svc.DeleteProduct(context.Background(), "user-1", "prod-1"); err != nil {
		t.Fatal(err)
	}
	if len(products.products) != 0 {
		t.Error("product not deleted")
	}
}

func TestGetProductReturnsFullHistory(t *testing.T) {
	users := newFakeUserRepo(&entity.User{ID: "user-1", Email: "a@example.com"})
	products := newFakeProductRepo(trackedProduct("prod-1", "user-1", "https://www.amazon.in/dp/X", 100, 90))
	products.nextID = 1
	for i := 0; i < 150; i++ {
		products.history = append(products.history, entity.PriceHistory{
			ID: int64(i + 1), ProductID: "prod-1", Price: float64(200 - i),
		})
	}
	svc := newTracker(users, products, &fakeFetcher{}, &fakeNotifier{})

	item, err := svc.GetProduct(context.Background(), "user-1", "prod-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(item.History) != 150 {
		t.Errorf("history = %d entries, want all 150 without truncation", len(item.History))
	}
}

func TestListProductsIncludesLatestObservation(t *testing.T) {
	users := newFakeUserRepo(&entity.User{ID: "user-1", Email: "a@example.com"})
	url := "https://www.amazon.in/dp/B0TEST"
	products := newFakeProductRepo(trackedProduct("prod-1", "user-1", url, 100, 90))
	products.nextID = 1
	products.history = []entity.PriceHistory{
		{ID: 1, ProductID: "prod-1", Price: 120},
		{ID: 2, ProductID: "prod-1", Price: 100},
	}
	svc := newTracker(users, products, &fakeFetcher{}, &fakeNotifier{})

	out, err := svc.ListProducts(context.Background(), "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 {
		t.Fatalf("got %d products", len(out))
	}
	if len(out[0].History) != 1 || out[0].History[0].Price != 100 {
		t.Errorf("latest history = %+v, want single newest entry at 100", out[0].History)
	}
}
