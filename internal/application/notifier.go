package application

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/cric2000/Amazon-price-tracker/internal/domain/entity"
	repo "github.com/cric2000/Amazon-price-tracker/internal/domain/repository"
	"github.com/cric2000/Amazon-price-tracker/pkg/mailer"
	tpl "github.com/cric2000/Amazon-price-tracker/pkg/mailer/templates"
)

// PriceNotifier alerts a product's owner about a price drop. Notification is
// best-effort: a returned error is logged by the caller and never rolls back
// the price update it follows.
type PriceNotifier interface {
	NotifyPriceDrop(ctx context.Context, p *entity.Product, newPrice float64) error
}

// QueueNotifier enqueues a price-alert email job; the price worker consumes
// the queue and sends through Mailgun.
type QueueNotifier struct {
	Users   repo.UserRepository
	Pub     Publisher
	AppName string
	Enabled bool
	Logger  *logrus.Logger
}

func NewQueueNotifier(users repo.UserRepository, pub Publisher, appName string, enabled bool, logger *logrus.Logger) *QueueNotifier {
	return &QueueNotifier{Users: users, Pub: pub, AppName: appName, Enabled: enabled, Logger: logger}
}

func (n *QueueNotifier) NotifyPriceDrop(ctx context.Context, p *entity.Product, newPrice float64) error {
	if p.UserID == "" {
		return nil
	}
	owner, err := n.Users.GetByID(ctx, p.UserID)
	if err != nil || owner == nil || owner.Email == "" {
		// Partial data is tolerated: no owner, no alert.
		return nil
	}
	if !n.Enabled || n.Pub == nil {
		if n.Logger != nil {
			n.Logger.WithField("product_id", p.ID).Debug("mail sending disabled, alert dropped")
		}
		return nil
	}

	job := mailer.EmailJob{
		To:       owner.Email,
		Template: tpl.PriceAlert,
		Data: map[string]any{
			"Title":       p.Title,
			"NewPrice":    newPrice,
			"TargetPrice": p.TargetPrice,
			"URL":         p.URL,
			"AppName":     n.AppName,
		},
	}
	return n.Pub.PublishJSON(ctx, job)
}

var _ PriceNotifier = (*QueueNotifier)(nil)
