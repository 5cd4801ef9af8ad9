package geo

import (
	"fmt"
	"math"
	"time"

	"github.com/investigate/case-graph/internal/domain"
)

const earthRadiusMeters = 6371000.0

// Defaults for cluster detection
const (
	DefaultRadiusMeters = 200.0
	DefaultMinVisits    = 3
)

// Distance returns the great-circle distance between two coordinates in meters
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	rlat1, rlat2 := lat1*math.Pi/180, lat2*math.Pi/180
	dlat := (lat2 - lat1) * math.Pi / 180
	dlon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dlat/2)*math.Sin(dlat/2) + math.Cos(rlat1)*math.Cos(rlat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	return 2 * earthRadiusMeters * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// DetectClusters groups points greedily: each unassigned point, in input order, seeds a group of
// every unassigned point within radius of it. Groups with fewer than minVisits points are dropped
// and their points stay available to later seeds.
func DetectClusters(points []domain.LocationPoint, radiusMeters float64, minVisits int) []domain.LocationCluster {
	if radiusMeters <= 0 {
		radiusMeters = DefaultRadiusMeters
	}
	if minVisits <= 0 {
		minVisits = DefaultMinVisits
	}

	assigned := make([]bool, len(points))
	var clusters []domain.LocationCluster

	for i, seed := range points {
		if assigned[i] {
			continue
		}
		members := []int{}
		for j, p := range points {
			if assigned[j] {
				continue
			}
			if Distance(seed.Latitude, seed.Longitude, p.Latitude, p.Longitude) <= radiusMeters {
				members = append(members, j)
			}
		}
		if len(members) < minVisits {
			continue
		}
		for _, j := range members {
			assigned[j] = true
		}
		clusters = append(clusters, summarize(len(clusters)+1, points, members, radiusMeters))
	}
	return clusters
}

func summarize(n int, points []domain.LocationPoint, members []int, radius float64) domain.LocationCluster {
	c := domain.LocationCluster{
		Name:         fmt.Sprintf("Frequent place %d", n),
		ClusterType:  "frequent_place",
		RadiusMeters: radius,
		VisitCount:   len(members),
		Detected:     true,
	}

	visitors := make(map[string]struct{})
	var sumLat, sumLon float64
	for _, j := range members {
		p := points[j]
		sumLat += p.Latitude
		sumLon += p.Longitude
		c.TotalDurationMinutes += p.DurationMinutes
		if who := visitor(p); who != "" {
			visitors[who] = struct{}{}
		}
		c.FirstVisit, c.LastVisit = widen(c.FirstVisit, c.LastVisit, p.Timestamp)
	}
	c.CenterLat = sumLat / float64(len(members))
	c.CenterLon = sumLon / float64(len(members))
	c.UniqueVisitors = len(visitors)

	// several suspects at one place is a meeting point
	if c.UniqueVisitors > 1 {
		c.ClusterType = "meeting_point"
		c.IsSuspicious = true
		c.RiskScore = min(50+10*c.UniqueVisitors, 100)
	} else {
		c.RiskScore = min(5*c.VisitCount, 40)
	}
	return c
}

func visitor(p domain.LocationPoint) string {
	if p.SuspectID != "" {
		return p.SuspectID
	}
	return p.SuspectName
}

func widen(first, last, t *time.Time) (*time.Time, *time.Time) {
	if t == nil {
		return first, last
	}
	if first == nil || t.Before(*first) {
		v := *t
		first = &v
	}
	if last == nil || t.After(*last) {
		v := *t
		last = &v
	}
	return first, last
}
