package domain

import (
	"strings"
	"time"
)

// CaseStatus is the workflow state of an investigation
type CaseStatus string

const (
	CaseStatusDraft         CaseStatus = "draft"
	CaseStatusOpen          CaseStatus = "open"
	CaseStatusInProgress    CaseStatus = "in_progress"
	CaseStatusPendingReview CaseStatus = "pending_review"
	CaseStatusClosed        CaseStatus = "closed"
	CaseStatusArchived      CaseStatus = "archived"
)

// ParseCaseStatus maps free text onto a CaseStatus, falling back to draft
func ParseCaseStatus(s string) CaseStatus {
	switch st := CaseStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case CaseStatusOpen, CaseStatusInProgress, CaseStatusPendingReview, CaseStatusClosed, CaseStatusArchived:
		return st
	default:
		return CaseStatusDraft
	}
}

// Case is the investigation container every other record is scoped to
type Case struct {
	ID          int64      `json:"id" db:"id"`
	CaseNumber  string     `json:"case_number" db:"case_number"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description,omitempty" db:"description"`
	Status      CaseStatus `json:"status" db:"status"`
	Currency    string     `json:"currency" db:"currency"`
	CreatedBy   string     `json:"created_by" db:"created_by"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// Validate checks required fields and fills defaults
func (c *Case) Validate() error {
	c.CaseNumber = strings.TrimSpace(c.CaseNumber)
	c.Title = strings.TrimSpace(c.Title)
	if c.CaseNumber == "" || c.Title == "" {
		return ValidationError("case requires case_number and title")
	}
	c.Status = ParseCaseStatus(string(c.Status))
	if c.Currency == "" {
		c.Currency = DefaultEdgeCurrency
	}
	return nil
}
