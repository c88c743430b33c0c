// Package customers sequences the image upload and the record write behind
// each customer operation.
//
// There is no rollback across the two backends. An image uploaded for a
// record that then fails to persist (create failing in the store, update
// finding no match, a client disconnecting mid-request) stays in the image
// service unreferenced. Deleting a customer never deletes its image.
package customers

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Keoroanthony/customer-gateway/internal/apperrors"
	"github.com/Keoroanthony/customer-gateway/internal/images"
	"github.com/Keoroanthony/customer-gateway/internal/models"
	"github.com/Keoroanthony/customer-gateway/internal/store"
)

var (
	ErrNotFound     = apperrors.NotFound("Customer not found")
	ErrInvalidID    = apperrors.Invalid("Invalid customer id")
	ErrNoUpdateData = apperrors.Invalid("No update data provided")
)

// Uploader stores a photo and returns its reference.
type Uploader interface {
	Upload(ctx context.Context, p images.Photo) (string, error)
}

// Notifier is told about customers after they are persisted. It must not
// block.
type Notifier interface {
	CustomerCreated(c models.Customer)
}

type Service struct {
	store       store.CustomerStore
	uploader    Uploader
	notifier    Notifier
	maxPageSize int64
	log         *zap.Logger
}

type Option func(*Service)

// WithNotifier sets the notifier told about created customers.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// WithMaxPageSize caps List's limit. Zero leaves it unbounded.
func WithMaxPageSize(n int64) Option {
	return func(s *Service) {
		s.maxPageSize = n
	}
}

func NewService(st store.CustomerStore, up Uploader, log *zap.Logger, opts ...Option) *Service {
	s := &Service{
		store:    st,
		uploader: up,
		log:      log.Named("customers"),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) List(ctx context.Context, skip, limit int64, _ models.Principal) ([]models.Customer, error) {
	if skip < 0 || limit < 0 {
		return nil, apperrors.Invalid("skip and limit must be non-negative")
	}
	if s.maxPageSize > 0 && (limit == 0 || limit > s.maxPageSize) {
		return nil, apperrors.Invalid(fmt.Sprintf("limit must be between 1 and %d", s.maxPageSize))
	}

	s.log.Info("Getting all customers", zap.Int64("skip", skip), zap.Int64("limit", limit))
	customers, err := s.store.List(ctx, skip, limit)
	if err != nil {
		return nil, s.storeError(err)
	}
	return customers, nil
}

// Create uploads the photo and only then persists the record, so a stored
// customer always references a confirmed upload.
func (s *Service) Create(ctx context.Context, name, phone string, photo *images.Photo, _ models.Principal) (models.Customer, error) {
	switch {
	case name == "":
		return models.Customer{}, apperrors.Invalid("name is required")
	case phone == "":
		return models.Customer{}, apperrors.Invalid("phone is required")
	case photo == nil:
		return models.Customer{}, apperrors.Invalid("photo is required")
	}

	s.log.Info("Creating customer", zap.String("name", name))

	url, err := s.upload(ctx, *photo)
	if err != nil {
		return models.Customer{}, err
	}

	created, err := s.store.Insert(ctx, models.Customer{Name: name, Phone: phone, Photo: url})
	if err != nil {
		s.log.Warn("Customer not persisted, uploaded photo is orphaned", zap.String("photo", url), zap.Error(err))
		return models.Customer{}, s.storeError(err)
	}

	s.log.Info("Customer created successfully", zap.String("name", name), zap.String("id", created.ID))
	if s.notifier != nil {
		s.notifier.CustomerCreated(created)
	}
	return created, nil
}

func (s *Service) Get(ctx context.Context, id string, _ models.Principal) (models.Customer, error) {
	s.log.Info("Getting customer", zap.String("id", id))

	c, err := s.store.Get(ctx, id)
	if err != nil {
		return models.Customer{}, s.storeError(err)
	}

	s.log.Info("Customer found", zap.String("id", id))
	return c, nil
}

// Update replaces the supplied fields. Empty strings count as not supplied.
// A new photo is uploaded before the store is touched.
func (s *Service) Update(ctx context.Context, id string, name, phone string, photo *images.Photo, _ models.Principal) error {
	s.log.Info("Updating customer", zap.String("id", id))

	var u models.CustomerUpdate
	if name != "" {
		u.Name = &name
	}
	if phone != "" {
		u.Phone = &phone
	}
	if photo != nil {
		url, err := s.upload(ctx, *photo)
		if err != nil {
			return err
		}
		u.Photo = &url
	}

	if u.Empty() {
		return ErrNoUpdateData
	}

	if err := s.store.Update(ctx, id, u); err != nil {
		if u.Photo != nil {
			s.log.Warn("Customer not updated, uploaded photo is orphaned",
				zap.String("id", id),
				zap.String("photo", *u.Photo),
				zap.Error(err),
			)
		}
		return s.storeError(err)
	}

	s.log.Info("Customer updated successfully", zap.String("id", id))
	return nil
}

// Delete removes the record. The photo stays with the image service.
func (s *Service) Delete(ctx context.Context, id string, _ models.Principal) error {
	s.log.Info("Deleting customer", zap.String("id", id))

	if err := s.store.Delete(ctx, id); err != nil {
		return s.storeError(err)
	}

	s.log.Info("Customer deleted successfully", zap.String("id", id))
	return nil
}

func (s *Service) upload(ctx context.Context, p images.Photo) (string, error) {
	url, err := s.uploader.Upload(ctx, p)
	if err != nil {
		return "", apperrors.Upstream("Failed to upload image", err)
	}
	return url, nil
}

func (s *Service) storeError(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.log.Warn("Customer not found")
		return ErrNotFound
	case errors.Is(err, store.ErrInvalidID):
		return ErrInvalidID
	}
	return apperrors.Internal("", err)
}
