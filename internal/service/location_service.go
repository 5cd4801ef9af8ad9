package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/investigate/case-graph/internal/domain"
	"github.com/investigate/case-graph/internal/geo"
	"github.com/investigate/case-graph/internal/repository"
)

// LocationService manages location points and frequent-place clusters
type LocationService struct {
	cases  repository.CaseStore
	store  repository.LocationStore
	logger *zap.Logger
}

// NewLocationService creates a location service
func NewLocationService(cases repository.CaseStore, store repository.LocationStore, logger *zap.Logger) *LocationService {
	return &LocationService{cases: cases, store: store, logger: logger}
}

// ImportPoints validates and stores location points
func (s *LocationService) ImportPoints(ctx context.Context, caseID int64, evidenceID *uuid.UUID, points []domain.LocationPoint) (int, error) {
	if _, err := s.cases.GetCase(ctx, caseID); err != nil {
		return 0, err
	}
	for i := range points {
		if err := points[i].Validate(); err != nil {
			return 0, fmt.Errorf("point %d: %w", i, err)
		}
		if evidenceID != nil && points[i].EvidenceID == nil {
			points[i].EvidenceID = evidenceID
		}
	}
	n, err := s.store.InsertLocationPoints(ctx, caseID, points)
	if err != nil {
		return 0, fmt.Errorf("failed to insert location points: %w", err)
	}
	s.logger.Info("Location points imported", zap.Int64("case_id", caseID), zap.Int("count", n))
	return n, nil
}

// ListPoints returns the points of a case in time order
func (s *LocationService) ListPoints(ctx context.Context, caseID int64) ([]domain.LocationPoint, error) {
	if _, err := s.cases.GetCase(ctx, caseID); err != nil {
		return nil, err
	}
	return s.store.ListLocationPoints(ctx, caseID)
}

// DeletePoints removes every point of a case
func (s *LocationService) DeletePoints(ctx context.Context, caseID int64) (int64, error) {
	if _, err := s.cases.GetCase(ctx, caseID); err != nil {
		return 0, err
	}
	return s.store.DeleteLocationPoints(ctx, caseID)
}

// CreateCluster stores a manually entered cluster
func (s *LocationService) CreateCluster(ctx context.Context, caseID int64, c *domain.LocationCluster) error {
	if _, err := s.cases.GetCase(ctx, caseID); err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return err
	}
	c.CaseID = caseID
	c.Detected = false
	if err := s.store.CreateLocationCluster(ctx, c); err != nil {
		return fmt.Errorf("failed to create location cluster: %w", err)
	}
	return nil
}

// ListClusters returns the manual and detected clusters of a case
func (s *LocationService) ListClusters(ctx context.Context, caseID int64) ([]domain.LocationCluster, error) {
	if _, err := s.cases.GetCase(ctx, caseID); err != nil {
		return nil, err
	}
	return s.store.ListLocationClusters(ctx, caseID)
}

// DetectClusters recomputes the detected clusters of a case from its points.
// Non-positive arguments use the geo defaults.
func (s *LocationService) DetectClusters(ctx context.Context, caseID int64, radiusMeters float64, minVisits int) ([]domain.LocationCluster, error) {
	points, err := s.ListPoints(ctx, caseID)
	if err != nil {
		return nil, err
	}
	detected := geo.DetectClusters(points, radiusMeters, minVisits)
	for i := range detected {
		detected[i].CaseID = caseID
	}
	stored, err := s.store.ReplaceDetectedClusters(ctx, caseID, detected)
	if err != nil {
		return nil, fmt.Errorf("failed to store detected clusters: %w", err)
	}
	s.logger.Info("Location clusters detected",
		zap.Int64("case_id", caseID),
		zap.Int("points", len(points)),
		zap.Int("clusters", len(stored)),
	)
	return stored, nil
}

// Timeline returns the location visualization payload of a case
func (s *LocationService) Timeline(ctx context.Context, caseID int64) (domain.Timeline, error) {
	points, err := s.ListPoints(ctx, caseID)
	if err != nil {
		return domain.Timeline{}, err
	}
	clusters, err := s.store.ListLocationClusters(ctx, caseID)
	if err != nil {
		return domain.Timeline{}, fmt.Errorf("failed to list location clusters: %w", err)
	}

	persons := []string{}
	seen := make(map[string]bool)
	var rng domain.DateRange
	for _, p := range points {
		if p.SuspectName != "" && !seen[p.SuspectName] {
			seen[p.SuspectName] = true
			persons = append(persons, p.SuspectName)
		}
		if p.Timestamp == nil {
			continue
		}
		if rng.Start == nil {
			rng.Start = p.Timestamp
		}
		rng.End = p.Timestamp
	}
	sort.Strings(persons)

	if points == nil {
		points = []domain.LocationPoint{}
	}
	if clusters == nil {
		clusters = []domain.LocationCluster{}
	}
	return domain.Timeline{
		Points:   points,
		Clusters: clusters,
		Persons:  persons,
		Summary: domain.TimelineSummary{
			TotalPoints:   len(points),
			TotalClusters: len(clusters),
			TotalPersons:  len(persons),
			DateRange:     rng,
		},
	}, nil
}

// Stats counts the location data of a case
func (s *LocationService) Stats(ctx context.Context, caseID int64) (domain.LocationStats, error) {
	points, err := s.ListPoints(ctx, caseID)
	if err != nil {
		return domain.LocationStats{}, err
	}
	clusters, err := s.store.ListLocationClusters(ctx, caseID)
	if err != nil {
		return domain.LocationStats{}, fmt.Errorf("failed to list location clusters: %w", err)
	}

	stats := domain.LocationStats{
		TotalPoints:   len(points),
		TotalClusters: len(clusters),
		Sources:       make(map[domain.LocationSource]int),
	}
	suspects := make(map[string]struct{})
	for _, p := range points {
		stats.Sources[p.Source]++
		if p.SuspectID != "" {
			suspects[p.SuspectID] = struct{}{}
		}
	}
	stats.UniqueSuspects = len(suspects)
	return stats, nil
}
