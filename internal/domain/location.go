package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// LocationSource represents how a location point was obtained
type LocationSource string

const (
	SourceGPS       LocationSource = "gps"
	SourceCellTower LocationSource = "cell_tower"
	SourceWiFi      LocationSource = "wifi"
	SourcePhotoEXIF LocationSource = "photo_exif"
	SourceManual    LocationSource = "manual"
	SourceAppData   LocationSource = "app_data"
	SourceUnknown   LocationSource = "unknown"
)

// ParseLocationSource maps free text onto a LocationSource, falling back to unknown
func ParseLocationSource(s string) LocationSource {
	switch src := LocationSource(strings.ToLower(strings.TrimSpace(s))); src {
	case SourceGPS, SourceCellTower, SourceWiFi, SourcePhotoEXIF, SourceManual, SourceAppData:
		return src
	default:
		return SourceUnknown
	}
}

// LocationPoint is one observed position of a suspect device
type LocationPoint struct {
	ID              int64          `json:"id" db:"id"`
	CaseID          int64          `json:"case_id" db:"case_id"`
	EvidenceID      *uuid.UUID     `json:"evidence_id,omitempty" db:"evidence_id"`
	SuspectID       string         `json:"suspect_id,omitempty" db:"suspect_id"`
	SuspectName     string         `json:"suspect_name,omitempty" db:"suspect_name"`
	DeviceID        string         `json:"device_id,omitempty" db:"device_id"`
	Latitude        float64        `json:"latitude" db:"latitude"`
	Longitude       float64        `json:"longitude" db:"longitude"`
	AccuracyMeters  *float64       `json:"accuracy_meters,omitempty" db:"accuracy_meters"`
	Source          LocationSource `json:"source" db:"source"`
	CellID          string         `json:"cell_id,omitempty" db:"cell_id"`
	LocationName    string         `json:"location_name,omitempty" db:"location_name"`
	LocationType    string         `json:"location_type,omitempty" db:"location_type"`
	Address         string         `json:"address,omitempty" db:"address"`
	Timestamp       *time.Time     `json:"timestamp,omitempty" db:"timestamp"`
	DurationMinutes int            `json:"duration_minutes" db:"duration_minutes"`
	Notes           string         `json:"notes,omitempty" db:"notes"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
}

// Validate checks coordinate ranges and normalizes the source
func (p *LocationPoint) Validate() error {
	if p.Latitude < -90 || p.Latitude > 90 {
		return ValidationError("latitude %f out of range", p.Latitude)
	}
	if p.Longitude < -180 || p.Longitude > 180 {
		return ValidationError("longitude %f out of range", p.Longitude)
	}
	p.Source = ParseLocationSource(string(p.Source))
	return nil
}

// LocationCluster is a frequently visited place, entered manually or detected from points
type LocationCluster struct {
	ID                   int64      `json:"id" db:"id"`
	CaseID               int64      `json:"case_id" db:"case_id"`
	Name                 string     `json:"name" db:"name"`
	ClusterType          string     `json:"cluster_type,omitempty" db:"cluster_type"` // home, work, meeting_point
	CenterLat            float64    `json:"center_lat" db:"center_lat"`
	CenterLon            float64    `json:"center_lon" db:"center_lon"`
	RadiusMeters         float64    `json:"radius_meters" db:"radius_meters"`
	VisitCount           int        `json:"visit_count" db:"visit_count"`
	TotalDurationMinutes int        `json:"total_duration_minutes" db:"total_duration_minutes"`
	UniqueVisitors       int        `json:"unique_visitors" db:"unique_visitors"`
	IsSuspicious         bool       `json:"is_suspicious" db:"is_suspicious"`
	RiskScore            int        `json:"risk_score" db:"risk_score"`
	Detected             bool       `json:"detected" db:"detected"`
	FirstVisit           *time.Time `json:"first_visit,omitempty" db:"first_visit"`
	LastVisit            *time.Time `json:"last_visit,omitempty" db:"last_visit"`
}

// Validate checks required fields and fills the default radius
func (c *LocationCluster) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ValidationError("cluster name is required")
	}
	if c.RadiusMeters <= 0 {
		c.RadiusMeters = 100
	}
	return nil
}

// DateRange spans the first and last timestamp of a timeline
type DateRange struct {
	Start *time.Time `json:"start"`
	End   *time.Time `json:"end"`
}

// TimelineSummary aggregates a location timeline
type TimelineSummary struct {
	TotalPoints   int       `json:"totalPoints"`
	TotalClusters int       `json:"totalClusters"`
	TotalPersons  int       `json:"totalPersons"`
	DateRange     DateRange `json:"dateRange"`
}

// Timeline is the location visualization payload of a case, points ordered by time
type Timeline struct {
	Points   []LocationPoint   `json:"points"`
	Clusters []LocationCluster `json:"clusters"`
	Persons  []string          `json:"persons"`
	Summary  TimelineSummary   `json:"summary"`
}

// LocationStats counts a case's location data grouped by source
type LocationStats struct {
	TotalPoints    int                    `json:"total_points"`
	TotalClusters  int                    `json:"total_clusters"`
	UniqueSuspects int                    `json:"unique_suspects"`
	Sources        map[LocationSource]int `json:"sources"`
}
