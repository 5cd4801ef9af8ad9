package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/investigate/case-graph/internal/domain"
	"github.com/investigate/case-graph/internal/repository"
)

// CaseService manages the investigation containers
type CaseService struct {
	store  repository.CaseStore
	logger *zap.Logger
}

// NewCaseService creates a case service
func NewCaseService(store repository.CaseStore, logger *zap.Logger) *CaseService {
	return &CaseService{store: store, logger: logger}
}

// Create opens a new case
func (s *CaseService) Create(ctx context.Context, c *domain.Case, createdBy string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	c.CreatedBy = createdBy
	if err := s.store.CreateCase(ctx, c); err != nil {
		return fmt.Errorf("failed to create case: %w", err)
	}
	s.logger.Info("Case created", zap.Int64("case_id", c.ID), zap.String("case_number", c.CaseNumber))
	return nil
}

// Get returns one case
func (s *CaseService) Get(ctx context.Context, id int64) (*domain.Case, error) {
	return s.store.GetCase(ctx, id)
}

// List returns every case
func (s *CaseService) List(ctx context.Context) ([]domain.Case, error) {
	return s.store.ListCases(ctx)
}
