// Package notifier tells people about newly created customers. Delivery is
// best effort: failures are logged and never reach the request.
package notifier

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Keoroanthony/customer-gateway/internal/models"
)

const sendTimeout = 30 * time.Second

type Sender interface {
	Name() string
	Send(ctx context.Context, c models.Customer) error
}

// Dispatcher fans a created customer out to every sender, each in its own
// goroutine.
type Dispatcher struct {
	senders []Sender
	log     *zap.Logger
	wg      sync.WaitGroup
}

func NewDispatcher(log *zap.Logger, senders ...Sender) *Dispatcher {
	return &Dispatcher{senders: senders, log: log.Named("notifier")}
}

func (d *Dispatcher) CustomerCreated(c models.Customer) {
	for _, s := range d.senders {
		d.wg.Add(1)
		go func(s Sender) {
			defer d.wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
			defer cancel()

			if err := s.Send(ctx, c); err != nil {
				d.log.Error("Failed to send customer notification",
					zap.String("sender", s.Name()),
					zap.String("customer_id", c.ID),
					zap.Error(err),
				)
				return
			}
			d.log.Info("Customer notification sent",
				zap.String("sender", s.Name()),
				zap.String("customer_id", c.ID),
			)
		}(s)
	}
}

// Wait blocks until in-flight notifications finish. Used on shutdown.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
