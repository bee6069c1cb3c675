// Package selector ranks candidate locations for an item. It is pure: it
// reads the candidates it is given and never touches storage.
package selector

import (
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rackslot/rackslot-backend/internal/placement/domain"
)

// Policy tunes ranking.
type Policy struct {
	// GroundFirst ranks empty ground slots first, occupied ground second
	// and rack slots last. With it off, rack slots come first and ground
	// is the fallback.
	GroundFirst bool
}

// Request describes the item to place.
type Request struct {
	Weight         decimal.Decimal
	GroundRequired bool
}

// Selector picks the best slot for a Request.
type Selector struct {
	policy Policy
}

// New returns a selector with the given policy.
func New(p Policy) *Selector {
	return &Selector{policy: p}
}

// Policy returns the active policy.
func (s *Selector) Policy() Policy {
	return s.policy
}

// Select returns the best eligible candidate, or ok=false when nothing
// qualifies. The same inputs always give the same answer.
func (s *Selector) Select(candidates []*domain.Location, req Request) (*domain.Location, bool) {
	ranked := s.Rank(candidates, req)
	if len(ranked) == 0 {
		return nil, false
	}
	return ranked[0], true
}

// Rank returns every eligible candidate, best first.
func (s *Selector) Rank(candidates []*domain.Location, req Request) []*domain.Location {
	type entry struct {
		loc *domain.Location
		key scoreKey
	}

	entries := make([]entry, 0, len(candidates))
	for _, loc := range candidates {
		if Check(loc, req) != "" {
			continue
		}
		entries = append(entries, entry{loc: loc, key: s.score(loc, req)})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].key.less(entries[j].key)
	})

	out := make([]*domain.Location, len(entries))
	for i, e := range entries {
		out[i] = e.loc
	}
	return out
}

// Check returns why loc cannot take the item, or "" when it can.
func Check(loc *domain.Location, req Request) string {
	switch {
	case !loc.Available:
		return "location is not available"
	case !loc.Verified:
		return "location is not verified"
	case req.GroundRequired && !loc.IsGround():
		return "item must be stored at ground level"
	case !loc.Fits(req.Weight):
		return "not enough capacity"
	}
	return ""
}

type scoreKey struct {
	levelRank int
	headroom  decimal.Decimal
	row       string
	bay       string
	level     string
	code      string
}

func (s *Selector) score(loc *domain.Location, req Request) scoreKey {
	return scoreKey{
		levelRank: s.levelRank(loc),
		headroom:  headroom(loc, req.Weight),
		row:       loc.Row,
		bay:       loc.Bay,
		level:     loc.Level,
		code:      loc.Code,
	}
}

func (s *Selector) levelRank(loc *domain.Location) int {
	if s.policy.GroundFirst {
		switch {
		case loc.IsGround() && loc.Empty():
			return 0
		case loc.IsGround():
			return 1
		}
		return 2
	}
	if loc.IsGround() {
		return 1
	}
	return 0
}

// headroom is the share of capacity left after placing weight. Lower is a
// tighter fit. Unbounded slots score zero.
func headroom(loc *domain.Location, weight decimal.Decimal) decimal.Decimal {
	if !loc.Bounded() || loc.MaxWeight.Decimal.IsZero() {
		return decimal.Zero
	}
	used := loc.CurrentWeight.Add(weight).Div(loc.MaxWeight.Decimal)
	return decimal.NewFromInt(1).Sub(used)
}

func (a scoreKey) less(b scoreKey) bool {
	if a.levelRank != b.levelRank {
		return a.levelRank < b.levelRank
	}
	if c := a.headroom.Cmp(b.headroom); c != 0 {
		return c < 0
	}
	if c := strings.Compare(a.row, b.row); c != 0 {
		return c < 0
	}
	if c := compareNumeric(a.bay, b.bay); c != 0 {
		return c < 0
	}
	if c := compareNumeric(a.level, b.level); c != 0 {
		return c < 0
	}
	return a.code < b.code
}

// compareNumeric orders numerically when both sides are integers and
// falls back to string order otherwise.
func compareNumeric(a, b string) int {
	ai, aErr := strconv.Atoi(a)
	bi, bErr := strconv.Atoi(b)
	if aErr == nil && bErr == nil {
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(a, b)
}
