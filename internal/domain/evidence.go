package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// EvidenceType classifies an evidence file
type EvidenceType string

const (
	EvidenceCSVFile    EvidenceType = "csv_file"
	EvidenceImage      EvidenceType = "image"
	EvidenceDocument   EvidenceType = "document"
	EvidenceDatabase   EvidenceType = "database"
	EvidenceScreenshot EvidenceType = "screenshot"
	EvidenceExportFile EvidenceType = "export_file"
	EvidenceOther      EvidenceType = "other"
)

// ParseEvidenceType maps free text onto an EvidenceType, falling back to other
func ParseEvidenceType(s string) EvidenceType {
	switch t := EvidenceType(strings.ToLower(strings.TrimSpace(s))); t {
	case EvidenceCSVFile, EvidenceImage, EvidenceDocument, EvidenceDatabase, EvidenceScreenshot, EvidenceExportFile:
		return t
	default:
		return EvidenceOther
	}
}

// Evidence is a chain-of-custody record for an imported file.
// SHA256 identifies the content; Signature is an HMAC over the custody fields.
type Evidence struct {
	ID           uuid.UUID    `json:"id" db:"id"`
	CaseID       int64        `json:"case_id" db:"case_id"`
	FileName     string       `json:"file_name" db:"file_name"`
	FileType     string       `json:"file_type,omitempty" db:"file_type"`
	FileSize     int64        `json:"file_size" db:"file_size"`
	SHA256       string       `json:"sha256_hash" db:"sha256_hash"`
	Signature    string       `json:"signature" db:"signature"`
	EvidenceType EvidenceType `json:"evidence_type" db:"evidence_type"`
	Source       string       `json:"evidence_source" db:"evidence_source"` // smart_import, manual_upload, cellebrite, api_fetch
	RecordsCount int          `json:"records_count" db:"records_count"`
	Description  string       `json:"description,omitempty" db:"description"`
	CollectedBy  string       `json:"collected_by" db:"collected_by"`
	CollectedAt  time.Time    `json:"collected_at" db:"collected_at"`
}

// EvidenceVerification is the result of checking a hash against the custody log
type EvidenceVerification struct {
	Found          bool      `json:"found"`
	SignatureValid bool      `json:"signature_valid"`
	Evidence       *Evidence `json:"evidence,omitempty"`
}
