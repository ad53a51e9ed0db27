package medicine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrMedicineNotFound  = errors.New("medicine not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

const defaultLowStockThreshold = 10

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, m *Medicine) error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if m.Quantity < 0 {
		return fmt.Errorf("quantity must not be negative")
	}
	return s.repo.Create(ctx, m)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Medicine, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, m *Medicine) error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if m.Quantity < 0 {
		return fmt.Errorf("quantity must not be negative")
	}
	return s.repo.Update(ctx, m)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, term string, limit, offset int) ([]*Medicine, int, error) {
	if strings.TrimSpace(term) == "" {
		return s.repo.List(ctx, limit, offset)
	}
	return s.repo.Search(ctx, term, limit, offset)
}

// AdjustStock changes the quantity of a medicine by delta, which may be
// negative for dispensing. Stock never goes below zero.
func (s *Service) AdjustStock(ctx context.Context, id uuid.UUID, delta int) (*Medicine, error) {
	if delta == 0 {
		return s.repo.GetByID(ctx, id)
	}
	return s.repo.AdjustQuantity(ctx, id, delta)
}

func (s *Service) ListLowStock(ctx context.Context, threshold int) ([]*Medicine, error) {
	if threshold <= 0 {
		threshold = defaultLowStockThreshold
	}
	return s.repo.ListLowStock(ctx, threshold)
}

func (s *Service) ListExpiring(ctx context.Context, within time.Duration) ([]*Medicine, error) {
	if within <= 0 {
		within = 30 * 24 * time.Hour
	}
	return s.repo.ListExpiring(ctx, time.Now().Add(within))
}
