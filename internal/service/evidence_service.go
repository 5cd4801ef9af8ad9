package service

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/investigate/case-graph/internal/crypto"
	"github.com/investigate/case-graph/internal/domain"
	"github.com/investigate/case-graph/internal/repository"
)

// EvidenceInput describes a file to register. Content is hashed when present,
// otherwise SHA256 must carry the hex digest computed by the uploader.
type EvidenceInput struct {
	FileName     string              `json:"file_name" validate:"required"`
	FileType     string              `json:"file_type"`
	FileSize     int64               `json:"file_size" validate:"min=0"`
	SHA256       string              `json:"sha256_hash"`
	EvidenceType domain.EvidenceType `json:"evidence_type"`
	Source       string              `json:"evidence_source"`
	RecordsCount int                 `json:"records_count" validate:"min=0"`
	Description  string              `json:"description"`
	Content      io.Reader           `json:"-"`
}

// EvidenceService keeps the chain-of-custody log
type EvidenceService struct {
	cases  repository.CaseStore
	store  repository.EvidenceStore
	signer *crypto.Signer
	now    func() time.Time
	logger *zap.Logger
}

// NewEvidenceService creates an evidence service
func NewEvidenceService(cases repository.CaseStore, store repository.EvidenceStore, signer *crypto.Signer, logger *zap.Logger) *EvidenceService {
	return &EvidenceService{
		cases:  cases,
		store:  store,
		signer: signer,
		now:    time.Now,
		logger: logger,
	}
}

// Register records an evidence file and signs its custody fields
func (s *EvidenceService) Register(ctx context.Context, caseID int64, in EvidenceInput, collectedBy string) (*domain.Evidence, error) {
	if _, err := s.cases.GetCase(ctx, caseID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.FileName) == "" {
		return nil, domain.ValidationError("file_name is required")
	}

	sha, size := strings.ToLower(strings.TrimSpace(in.SHA256)), in.FileSize
	if in.Content != nil {
		var err error
		sha, size, err = crypto.SHA256Reader(in.Content)
		if err != nil {
			return nil, err
		}
	}
	if !validDigest(sha) {
		return nil, domain.ValidationError("sha256_hash must be 64 hex characters")
	}

	source := in.Source
	if source == "" {
		source = "manual_upload"
	}
	e := &domain.Evidence{
		ID:           uuid.New(),
		CaseID:       caseID,
		FileName:     in.FileName,
		FileType:     in.FileType,
		FileSize:     size,
		SHA256:       sha,
		EvidenceType: domain.ParseEvidenceType(string(in.EvidenceType)),
		Source:       source,
		RecordsCount: in.RecordsCount,
		Description:  in.Description,
		CollectedBy:  collectedBy,
		CollectedAt:  s.now().UTC(),
	}
	e.Signature = s.signer.SignEvidence(e.ID.String(), e.CaseID, e.SHA256, e.CollectedBy, e.CollectedAt)

	if err := s.store.CreateEvidence(ctx, e); err != nil {
		return nil, fmt.Errorf("failed to register evidence: %w", err)
	}
	s.logger.Info("Evidence registered",
		zap.Int64("case_id", caseID),
		zap.String("evidence_id", e.ID.String()),
		zap.String("sha256", e.SHA256),
	)
	return e, nil
}

// Get returns one evidence record of a case
func (s *EvidenceService) Get(ctx context.Context, caseID int64, id uuid.UUID) (*domain.Evidence, error) {
	return s.store.GetEvidence(ctx, caseID, id)
}

// List returns the custody log of a case, oldest first
func (s *EvidenceService) List(ctx context.Context, caseID int64) ([]domain.Evidence, error) {
	if _, err := s.cases.GetCase(ctx, caseID); err != nil {
		return nil, err
	}
	return s.store.ListEvidence(ctx, caseID)
}

// GetByHash returns the first evidence registered with the given digest
func (s *EvidenceService) GetByHash(ctx context.Context, sha256Hex string) (*domain.Evidence, error) {
	sha := strings.ToLower(strings.TrimSpace(sha256Hex))
	if !validDigest(sha) {
		return nil, domain.ValidationError("sha256_hash must be 64 hex characters")
	}
	return s.store.FindEvidenceByHash(ctx, sha)
}

// Verify checks whether a digest is in the custody log and whether its record is untampered.
// An unknown digest is not an error.
func (s *EvidenceService) Verify(ctx context.Context, sha256Hex string) (domain.EvidenceVerification, error) {
	e, err := s.GetByHash(ctx, sha256Hex)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.EvidenceVerification{Found: false}, nil
	}
	if err != nil {
		return domain.EvidenceVerification{}, err
	}
	valid := s.signer.Verify(e.Signature, e.ID.String(), fmt.Sprint(e.CaseID), e.SHA256, e.CollectedBy,
		e.CollectedAt.UTC().Format(time.RFC3339Nano))
	return domain.EvidenceVerification{Found: true, SignatureValid: valid, Evidence: e}, nil
}

// Attachable checks that an evidence id, when given, belongs to the case before import rows reference it
func (s *EvidenceService) Attachable(ctx context.Context, caseID int64, id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	if _, err := s.store.GetEvidence(ctx, caseID, *id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ValidationError("evidence %s does not belong to case %d", id, caseID)
		}
		return err
	}
	return nil
}

func validDigest(s string) bool {
	if len(s) != 64 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
