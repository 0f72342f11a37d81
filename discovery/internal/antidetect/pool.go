package antidetect

import (
	"log/slog"
	"math/rand/v2"
	"sync"
)

// Weights for the location walk: stay, or step to an adjacent index.
// Boundary indices renormalise over the remaining moves.
const (
	stayWeight = 0.30
	moveWeight = 0.35
)

// Pool rotates through the fingerprint catalog round-robin and walks
// the location catalog probabilistically. One Pool may be shared by
// concurrent invocations; the cursor is mutex-guarded.
type Pool struct {
	catalog Catalog
	logger  *slog.Logger

	mu     sync.Mutex
	cursor int // next fingerprint index

	randFloat func() float64   // uniform [0,1)
	randIntN  func(n int) int  // uniform [0,n)
}

// NewPool creates a Pool over the given catalog. An empty catalog
// falls back to the defaults.
func NewPool(catalog Catalog, logger *slog.Logger) *Pool {
	if len(catalog.Browsers) == 0 || len(catalog.Locations) == 0 {
		catalog = DefaultCatalog()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		catalog:   catalog,
		logger:    logger,
		randFloat: rand.Float64,
		randIntN:  rand.IntN,
	}
}

// Locations returns the location catalog (read-only).
func (p *Pool) Locations() []Location {
	return p.catalog.Locations
}

// NextFingerprint returns the next profile in strict round-robin
// order, wrapping at the end of the catalog. Rotation is deterministic
// so fingerprint diversity over consecutive sessions is guaranteed
// rather than left to chance.
func (p *Pool) NextFingerprint() Profile {
	p.mu.Lock()
	profile := p.catalog.Browsers[p.cursor]
	p.cursor = (p.cursor + 1) % len(p.catalog.Browsers)
	p.mu.Unlock()

	p.logger.Debug("selected browser fingerprint", "browser", profile.Browser)
	return profile
}

// NextLocation picks the next geolocation. Without a current location
// it picks uniformly at random. With one, it treats the catalog as a
// linear chain: stay with weight 0.30, step down or up with weight
// 0.35 each, dropping out-of-range moves and renormalising at the
// boundaries. The walk never jumps more than one index.
func (p *Pool) NextLocation(current *Location) Location {
	locs := p.catalog.Locations

	if current == nil {
		return locs[p.randIntN(len(locs))]
	}

	idx := -1
	for i := range locs {
		if locs[i].Name == current.Name {
			idx = i
			break
		}
	}
	if idx < 0 {
		p.logger.Warn("current location not in catalog, picking random", "location", current.Name)
		return locs[p.randIntN(len(locs))]
	}

	type move struct {
		index  int
		weight float64
	}
	moves := []move{{idx, stayWeight}}
	if idx > 0 {
		moves = append(moves, move{idx - 1, moveWeight})
	}
	if idx < len(locs)-1 {
		moves = append(moves, move{idx + 1, moveWeight})
	}

	total := 0.0
	for _, m := range moves {
		total += m.weight
	}

	r := p.randFloat() * total
	next := moves[len(moves)-1].index
	for _, m := range moves {
		if r < m.weight {
			next = m.index
			break
		}
		r -= m.weight
	}

	if next != idx {
		p.logger.Info("moving location", "from", locs[idx].Name, "to", locs[next].Name)
	}
	return locs[next]
}
