package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// CallType represents the direction or outcome of a call
type CallType string

const (
	CallTypeIncoming CallType = "incoming"
	CallTypeOutgoing CallType = "outgoing"
	CallTypeMissed   CallType = "missed"
	CallTypeBlocked  CallType = "blocked"
	CallTypeUnknown  CallType = "unknown"
)

// ParseCallType maps free text onto a CallType, falling back to unknown
func ParseCallType(s string) CallType {
	switch CallType(strings.ToLower(strings.TrimSpace(s))) {
	case CallTypeIncoming:
		return CallTypeIncoming
	case CallTypeOutgoing:
		return CallTypeOutgoing
	case CallTypeMissed:
		return CallTypeMissed
	case CallTypeBlocked:
		return CallTypeBlocked
	default:
		return CallTypeUnknown
	}
}

// Entity roles assigned by the network generator
const (
	RoleDeviceOwner = "Device Owner"
	RoleContact     = "Contact"
)

// CallRecord is one raw call imported from a device extraction
type CallRecord struct {
	ID              int64      `json:"id" db:"id"`
	CaseID          int64      `json:"case_id" db:"case_id"`
	EvidenceID      *uuid.UUID `json:"evidence_id,omitempty" db:"evidence_id"`
	DeviceID        string     `json:"device_id,omitempty" db:"device_id"`
	DeviceOwner     string     `json:"device_owner,omitempty" db:"device_owner"`
	DeviceNumber    string     `json:"device_number,omitempty" db:"device_number"`
	PartnerNumber   string     `json:"partner_number" db:"partner_number"`
	PartnerName     string     `json:"partner_name,omitempty" db:"partner_name"`
	CallType        CallType   `json:"call_type" db:"call_type"`
	StartTime       *time.Time `json:"start_time,omitempty" db:"start_time"`
	EndTime         *time.Time `json:"end_time,omitempty" db:"end_time"`
	DurationSeconds int        `json:"duration_seconds" db:"duration_seconds"`
	CellID          string     `json:"cell_id,omitempty" db:"cell_id"`
	GPSLat          *float64   `json:"gps_lat,omitempty" db:"gps_lat"`
	GPSLon          *float64   `json:"gps_lon,omitempty" db:"gps_lon"`
	IsSuspect       bool       `json:"is_suspect_call" db:"is_suspect_call"`
	IsDeleted       bool       `json:"is_deleted" db:"is_deleted"`
	Notes           string     `json:"notes,omitempty" db:"notes"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
}

// Validate normalizes the record and checks required fields
func (r *CallRecord) Validate() error {
	r.PartnerNumber = strings.TrimSpace(r.PartnerNumber)
	r.DeviceNumber = strings.TrimSpace(r.DeviceNumber)
	if r.PartnerNumber == "" {
		return ValidationError("call record partner_number is required")
	}
	if r.DurationSeconds < 0 {
		return ValidationError("call record duration_seconds must not be negative")
	}
	r.CallType = ParseCallType(string(r.CallType))
	return nil
}

// DeviceIdentifier is the device-side endpoint, preferring the number over the owner name
func (r CallRecord) DeviceIdentifier() string {
	if r.DeviceNumber != "" {
		return r.DeviceNumber
	}
	return strings.TrimSpace(r.DeviceOwner)
}

// CallEntity is a distinct phone identifier aggregated from call records
type CallEntity struct {
	ID             int64      `json:"id" db:"id"`
	CaseID         int64      `json:"case_id" db:"case_id"`
	GenerationID   uuid.UUID  `json:"generation_id" db:"generation_id"`
	EntityType     string     `json:"entity_type" db:"entity_type"`
	Label          string     `json:"label" db:"label"`
	PhoneNumber    string     `json:"phone_number" db:"phone_number"`
	PersonName     string     `json:"person_name,omitempty" db:"person_name"`
	TotalCalls     int        `json:"total_calls" db:"total_calls"`
	TotalDuration  int        `json:"total_duration" db:"total_duration"`
	IncomingCalls  int        `json:"incoming_calls" db:"incoming_calls"`
	OutgoingCalls  int        `json:"outgoing_calls" db:"outgoing_calls"`
	UniqueContacts int        `json:"unique_contacts" db:"unique_contacts"`
	RiskLevel      RiskLevel  `json:"risk_level" db:"risk_level"`
	RiskScore      int        `json:"risk_score" db:"risk_score"`
	ClusterID      int        `json:"cluster_id" db:"cluster_id"`
	Role           string     `json:"role" db:"role"`
	IsDevice       bool       `json:"is_device" db:"is_device"`
	IsSuspect      bool       `json:"is_suspect" db:"is_suspect"`
	FirstSeen      *time.Time `json:"first_seen,omitempty" db:"first_seen"`
	LastSeen       *time.Time `json:"last_seen,omitempty" db:"last_seen"`
}

// CallLink aggregates every call between an unordered pair of identifiers.
// SourceIdentifier is always the lexicographically smaller identifier.
type CallLink struct {
	ID               int64      `json:"id" db:"id"`
	CaseID           int64      `json:"case_id" db:"case_id"`
	GenerationID     uuid.UUID  `json:"generation_id" db:"generation_id"`
	SourceEntityID   int64      `json:"source_entity_id" db:"source_entity_id"`
	TargetEntityID   int64      `json:"target_entity_id" db:"target_entity_id"`
	SourceIdentifier string     `json:"source_identifier" db:"source_identifier"`
	TargetIdentifier string     `json:"target_identifier" db:"target_identifier"`
	LinkType         string     `json:"link_type" db:"link_type"`
	CallCount        int        `json:"call_count" db:"call_count"`
	TotalDuration    int        `json:"total_duration" db:"total_duration"`
	FirstContact     *time.Time `json:"first_contact,omitempty" db:"first_contact"`
	LastContact      *time.Time `json:"last_contact,omitempty" db:"last_contact"`
	Weight           int        `json:"weight" db:"weight"`
	CallTypes        []CallType `json:"call_types" db:"call_types"`
}

// CallNetwork is the derived entity/link set of one generation
type CallNetwork struct {
	GenerationID uuid.UUID    `json:"generation_id"`
	Entities     []CallEntity `json:"entities"`
	Links        []CallLink   `json:"links"`
}

// CallStats summarizes the call data of a case
type CallStats struct {
	TotalRecords         int     `json:"total_records"`
	TotalEntities        int     `json:"total_entities"`
	TotalLinks           int     `json:"total_links"`
	TotalDurationSeconds int64   `json:"total_duration_seconds"`
	TotalDurationHours   float64 `json:"total_duration_hours"`
}

// NetworkSnapshot is the archived form of one generation. Digest is the SHA-256 of the
// serialized entities and links; Signature is an HMAC over case, generation and digest.
type NetworkSnapshot struct {
	CaseID       int64        `json:"case_id"`
	GenerationID uuid.UUID    `json:"generation_id"`
	GeneratedAt  time.Time    `json:"generated_at"`
	Entities     []CallEntity `json:"entities"`
	Links        []CallLink   `json:"links"`
	Digest       string       `json:"digest"`
	Signature    string       `json:"signature"`
}

// NetworkRegenerated is published after a call network generation is committed
type NetworkRegenerated struct {
	CaseID       int64     `json:"case_id"`
	GenerationID uuid.UUID `json:"generation_id"`
	Entities     int       `json:"entities"`
	Links        int       `json:"links"`
	HighRisk     int       `json:"high_risk"`
	GeneratedAt  time.Time `json:"generated_at"`
}
