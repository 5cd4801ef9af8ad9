package network

import (
	"sort"
	"strings"
	"time"

	"github.com/investigate/case-graph/internal/domain"
	"github.com/investigate/case-graph/internal/risk"
)

// Cluster ids assigned to generated entities
const (
	ClusterDevice      = 1
	ClusterHub         = 2
	ClusterConnector   = 3
	ClusterPeripheral  = 4
	maxLinkWeight      = 100
	entityTypePhone    = "phone"
	linkTypeCall       = "call"
	hubContactCount    = 5
	connectorThreshold = 2
)

type identifierStats struct {
	identifier string
	name       string
	calls      int
	duration   int
	incoming   int
	outgoing   int
	contacts   map[string]struct{}
	isDevice   bool
	isSuspect  bool
	firstSeen  *time.Time
	lastSeen   *time.Time
}

type linkStats struct {
	source    string
	target    string
	calls     int
	duration  int
	first     *time.Time
	last      *time.Time
	callTypes map[domain.CallType]struct{}
}

// Generate aggregates call records into a call network. It is a pure function of its input:
// the same records always produce the same entities and links in the same order.
// Generation ids and storage ids are left for the caller to assign.
func Generate(records []domain.CallRecord) domain.CallNetwork {
	stats := make(map[string]*identifierStats)
	links := make(map[[2]string]*linkStats)

	statFor := func(id string) *identifierStats {
		s, ok := stats[id]
		if !ok {
			s = &identifierStats{identifier: id, contacts: make(map[string]struct{})}
			stats[id] = s
		}
		return s
	}

	for _, r := range records {
		partner := strings.TrimSpace(r.PartnerNumber)
		if partner == "" {
			continue
		}
		device := r.DeviceIdentifier()

		p := statFor(partner)
		p.touch(r)
		if p.name == "" {
			p.name = strings.TrimSpace(r.PartnerName)
		}

		if device == "" {
			continue
		}
		if device == partner {
			// A self call still marks the device, it just produces no link.
			if r.DeviceNumber != "" {
				p.isDevice = true
			}
			continue
		}

		d := statFor(device)
		d.touch(r)
		d.isDevice = true
		if d.name == "" && r.DeviceNumber != "" {
			d.name = strings.TrimSpace(r.DeviceOwner)
		}

		switch r.CallType {
		case domain.CallTypeOutgoing:
			d.outgoing++
			p.incoming++
		case domain.CallTypeIncoming, domain.CallTypeMissed:
			d.incoming++
			p.outgoing++
		}

		d.contacts[partner] = struct{}{}
		p.contacts[device] = struct{}{}

		key := pairKey(device, partner)
		l, ok := links[key]
		if !ok {
			l = &linkStats{source: key[0], target: key[1], callTypes: make(map[domain.CallType]struct{})}
			links[key] = l
		}
		l.calls++
		l.duration += r.DurationSeconds
		l.first, l.last = widen(l.first, l.last, r.StartTime)
		l.callTypes[r.CallType] = struct{}{}
	}

	network := domain.CallNetwork{
		Entities: make([]domain.CallEntity, 0, len(stats)),
		Links:    make([]domain.CallLink, 0, len(links)),
	}

	for _, s := range stats {
		level, score := risk.ClassifyCalls(risk.CallActivity{
			Calls:           s.calls,
			DurationSeconds: s.duration,
			IsSuspect:       s.isSuspect,
		})
		role := domain.RoleContact
		if s.isDevice {
			role = domain.RoleDeviceOwner
		}
		label := s.identifier
		if s.name != "" {
			label = s.name
		}
		network.Entities = append(network.Entities, domain.CallEntity{
			EntityType:     entityTypePhone,
			Label:          label,
			PhoneNumber:    s.identifier,
			PersonName:     s.name,
			TotalCalls:     s.calls,
			TotalDuration:  s.duration,
			IncomingCalls:  s.incoming,
			OutgoingCalls:  s.outgoing,
			UniqueContacts: len(s.contacts),
			RiskLevel:      level,
			RiskScore:      score,
			ClusterID:      assignCluster(s.isDevice, len(s.contacts)),
			Role:           role,
			IsDevice:       s.isDevice,
			IsSuspect:      s.isSuspect,
			FirstSeen:      s.firstSeen,
			LastSeen:       s.lastSeen,
		})
	}
	sort.Slice(network.Entities, func(i, j int) bool {
		return network.Entities[i].PhoneNumber < network.Entities[j].PhoneNumber
	})

	for _, l := range links {
		types := make([]domain.CallType, 0, len(l.callTypes))
		for t := range l.callTypes {
			types = append(types, t)
		}
		sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

		network.Links = append(network.Links, domain.CallLink{
			SourceIdentifier: l.source,
			TargetIdentifier: l.target,
			LinkType:         linkTypeCall,
			CallCount:        l.calls,
			TotalDuration:    l.duration,
			FirstContact:     l.first,
			LastContact:      l.last,
			Weight:           min(l.calls, maxLinkWeight),
			CallTypes:        types,
		})
	}
	sort.Slice(network.Links, func(i, j int) bool {
		a, b := network.Links[i], network.Links[j]
		if a.SourceIdentifier != b.SourceIdentifier {
			return a.SourceIdentifier < b.SourceIdentifier
		}
		return a.TargetIdentifier < b.TargetIdentifier
	})

	return network
}

func (s *identifierStats) touch(r domain.CallRecord) {
	s.calls++
	s.duration += r.DurationSeconds
	if r.IsSuspect {
		s.isSuspect = true
	}
	s.firstSeen, s.lastSeen = widen(s.firstSeen, s.lastSeen, r.StartTime)
}

// assignCluster applies the ordered cluster rules; the first match wins
func assignCluster(isDevice bool, contacts int) int {
	switch {
	case isDevice:
		return ClusterDevice
	case contacts > hubContactCount:
		return ClusterHub
	case contacts > connectorThreshold:
		return ClusterConnector
	default:
		return ClusterPeripheral
	}
}

// pairKey orders two identifiers case-insensitively so A-B and B-A share one link
func pairKey(a, b string) [2]string {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if la > lb || (la == lb && a > b) {
		return [2]string{b, a}
	}
	return [2]string{a, b}
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
