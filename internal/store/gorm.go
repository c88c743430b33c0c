package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Keoroanthony/customer-gateway/internal/models"
)

// CustomerRecord is the SQL row behind GormStore.
type CustomerRecord struct {
	ID    string `gorm:"primaryKey;size:36"`
	Name  string `gorm:"not null"`
	Phone string `gorm:"not null"`
	Photo string `gorm:"not null"`
}

func (CustomerRecord) TableName() string {
	return CustomersCollection
}

func (r CustomerRecord) model() models.Customer {
	return models.Customer{ID: r.ID, Name: r.Name, Phone: r.Phone, Photo: r.Photo}
}

// GormStore keeps customers in a SQL table keyed by uuid strings.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) List(ctx context.Context, skip, limit int64) ([]models.Customer, error) {
	q := s.db.WithContext(ctx).Order("id").Offset(int(skip))
	if limit > 0 {
		q = q.Limit(int(limit))
	}

	var records []CustomerRecord
	if err := q.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("find customers: %w", err)
	}

	customers := make([]models.Customer, 0, len(records))
	for _, r := range records {
		customers = append(customers, r.model())
	}
	return customers, nil
}

func (s *GormStore) Insert(ctx context.Context, c models.Customer) (models.Customer, error) {
	record := CustomerRecord{
		ID:    uuid.NewString(),
		Name:  c.Name,
		Phone: c.Phone,
		Photo: c.Photo,
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return models.Customer{}, fmt.Errorf("insert customer: %w", err)
	}
	return s.Get(ctx, record.ID)
}

func (s *GormStore) Get(ctx context.Context, id string) (models.Customer, error) {
	if err := validateUUID(id); err != nil {
		return models.Customer{}, err
	}

	var record CustomerRecord
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Customer{}, ErrNotFound
	}
	if err != nil {
		return models.Customer{}, fmt.Errorf("find customer %s: %w", id, err)
	}
	return record.model(), nil
}

func (s *GormStore) Update(ctx context.Context, id string, u models.CustomerUpdate) error {
	if err := validateUUID(id); err != nil {
		return err
	}

	res := s.db.WithContext(ctx).Model(&CustomerRecord{}).Where("id = ?", id).Updates(u.Fields())
	if res.Error != nil {
		return fmt.Errorf("update customer %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) Delete(ctx context.Context, id string) error {
	if err := validateUUID(id); err != nil {
		return err
	}

	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&CustomerRecord{})
	if res.Error != nil {
		return fmt.Errorf("delete customer %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func validateUUID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrInvalidID
	}
	return nil
}
