package application

import (
	"context"
	"testing"

	"github.com/cric2000/Amazon-price-tracker/internal/domain/entity"
	"github.com/cric2000/Amazon-price-tracker/internal/scraper"
	"github.com/cric2000/Amazon-price-tracker/pkg/helpers"
	"github.com/cric2000/Amazon-price-tracker/pkg/mailer"
)

type capturePublisher struct {
	jobs []mailer.EmailJob
}

func (p *capturePublisher) PublishJSON(ctx context.Context, body any) error {
	p.jobs = append(p.jobs, body.(mailer.EmailJob))
	return nil
}

func TestNotifyPriceDropEnqueuesJob(t *testing.T) {
	users := newFakeUserRepo(&entity.User{ID: "user-1", Email: "a@example.com"})
	pub := &capturePublisher{}
	n := NewQueueNotifier(users, pub, "price-tracker", true, quietLogger())

	p := &entity.Product{ID: "prod-1", UserID: "user-1", Title: "Echo Dot", URL: "https://www.amazon.in/dp/X", TargetPrice: 90}
	if err := n.NotifyPriceDrop(context.Background(), p, 85); err != nil {
		t.Fatal(err)
	}
	if len(pub.jobs) != 1 {
		t.Fatalf("jobs = %d, want 1", len(pub.jobs))
	}
	job := pub.jobs[0]
	if job.To != "a@example.com" || job.Template != "price_alert" {
		t.Errorf("job = %+v", job)
	}
	if job.Data["NewPrice"] != 85.0 {
		t.Errorf("NewPrice = %v", job.Data["NewPrice"])
	}
}

func TestNotifyPriceDropMissingOwnerIsSilent(t *testing.T) {
	pub := &capturePublisher{}
	n := NewQueueNotifier(newFakeUserRepo(), pub, "price-tracker", true, quietLogger())

	p := &entity.Product{ID: "prod-1", UserID: "ghost", TargetPrice: 90}
	if err := n.NotifyPriceDrop(context.Background(), p, 85); err != nil {
		t.Fatal(err)
	}
	if len(pub.jobs) != 0 {
		t.Errorf("jobs = %d, want none without an owner", len(pub.jobs))
	}
}

// A publisher that never connected (RabbitMQ down at startup) must surface an
// error, not panic, even when it reaches the notifier as a non-nil interface
// wrapping a nil pointer.
func TestNotifyPriceDropDisconnectedPublisher(t *testing.T) {
	users := newFakeUserRepo(&entity.User{ID: "user-1", Email: "a@example.com"})
	var pub *helpers.RabbitPublisher
	n := NewQueueNotifier(users, pub, "price-tracker", true, quietLogger())

	p := &entity.Product{ID: "prod-1", UserID: "user-1", TargetPrice: 90}
	err := n.NotifyPriceDrop(context.Background(), p, 85)
	if err == nil {
		t.Fatal("expected an error from a disconnected publisher")
	}
}

// Same degraded-broker scenario through a whole sweep: the price update and
// history row still commit, and the sweep finishes.
func TestRefreshSurvivesDisconnectedPublisher(t *testing.T) {
	users := newFakeUserRepo(&entity.User{ID: "user-1", Email: "a@example.com"})
	url := "https://www.amazon.in/dp/B0TEST"
	products := newFakeProductRepo(trackedProduct("prod-1", "user-1", url, 100, 90))
	products.nextID = 1
	fetcher := &fakeFetcher{pages: map[string]string{url: amazonPage("Item", 85)}}

	var pub *helpers.RabbitPublisher
	notifier := NewQueueNotifier(users, pub, "price-tracker", true, quietLogger())
	svc := NewTrackerService(users, products, fetcher, scraper.NewRegistry(scraper.NewAmazonExtractor()), notifier, nil, quietLogger())

	res, err := svc.RefreshAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Updated != 1 || res.Alerted != 0 {
		t.Errorf("result = %+v, want the update committed and no alert counted", res)
	}
	if products.products["prod-1"].CurrentPrice != 85 {
		t.Error("price update must survive a dead broker")
	}
}
