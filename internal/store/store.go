// Package store persists customer records. The orchestrator only sees the
// CustomerStore interface; MongoStore and GormStore are the backends.
package store

import (
	"context"
	"errors"

	"github.com/Keoroanthony/customer-gateway/internal/models"
)

var (
	ErrNotFound  = errors.New("customer not found")
	ErrInvalidID = errors.New("malformed customer id")
)

type CustomerStore interface {
	// List returns up to limit records after skipping skip. A zero limit
	// means no limit.
	List(ctx context.Context, skip, limit int64) ([]models.Customer, error)
	// Insert stores c, ignoring c.ID, and returns the stored record.
	Insert(ctx context.Context, c models.Customer) (models.Customer, error)
	Get(ctx context.Context, id string) (models.Customer, error)
	Update(ctx context.Context, id string, u models.CustomerUpdate) error
	Delete(ctx context.Context, id string) error
	// Ping checks the backend accepts commands.
	Ping(ctx context.Context) error
}
