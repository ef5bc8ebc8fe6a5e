package hypothesis

// #region imports
import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// #endregion imports

// #region errors

var (
	// ErrDuplicateID is returned when inserting an identifier that already exists.
	ErrDuplicateID = errors.New("duplicate hypothesis id")
	// ErrNotFound is returned when looking up an identifier that does not exist.
	ErrNotFound = errors.New("hypothesis not found")
	// ErrBadParent is returned when a draft references a parent that is not
	// already registered, or references itself.
	ErrBadParent = errors.New("invalid parent reference")
)

// #endregion errors

// #region population

// Population is the in-memory registry of all hypotheses for one research
// session. It is the single authority for hypothesis mutation: inserts,
// review updates, score application, and retirement all go through it, and
// all timestamp updates happen here. Safe for concurrent use.
type Population struct {
	mu    sync.RWMutex
	byID  map[string]*Hypothesis
	order []string // insertion order, for stable iteration and tie-breaks
	now   func() time.Time
}

// NewPopulation creates an empty population.
func NewPopulation() *Population {
	return &Population{
		byID: make(map[string]*Hypothesis),
		now:  time.Now,
	}
}

// #endregion population

// #region insert

// Insert registers a draft as an active hypothesis. Fails with ErrDuplicateID
// if the identifier exists, and with ErrBadParent if any parent is missing or
// is the draft itself. Parents must already be registered, which rules out
// forward references and cycles by construction.
func (p *Population) Insert(d Draft) (*Hypothesis, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.byID[d.ID]; ok {
		return nil, fmt.Errorf("insert %s: %w", d.ID, ErrDuplicateID)
	}
	for _, pid := range d.ParentIDs {
		if pid == d.ID {
			return nil, fmt.Errorf("insert %s: self reference: %w", d.ID, ErrBadParent)
		}
		if _, ok := p.byID[pid]; !ok {
			return nil, fmt.Errorf("insert %s: parent %s: %w", d.ID, pid, ErrBadParent)
		}
	}

	now := p.now().UTC()
	h := &Hypothesis{
		ID:          d.ID,
		Title:       d.Title,
		Text:        d.Text,
		Novelty:     RatingUnset,
		Feasibility: RatingUnset,
		Score:       d.Score,
		ParentIDs:   append([]string(nil), d.ParentIDs...),
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	p.byID[h.ID] = h
	p.order = append(p.order, h.ID)
	return h.clone(), nil
}

// #endregion insert

// #region get

// Get returns a copy of the hypothesis with the given id.
func (p *Population) Get(id string) (*Hypothesis, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	h, ok := p.byID[id]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	return h.clone(), nil
}

// #endregion get

// #region active

// Active returns a snapshot of all active hypotheses in stable insertion
// order. Each call produces a fresh, independent snapshot.
func (p *Population) Active() []*Hypothesis {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var out []*Hypothesis
	for _, id := range p.order {
		if h := p.byID[id]; h.Active {
			out = append(out, h.clone())
		}
	}
	return out
}

// ActiveCount returns the number of active hypotheses.
func (p *Population) ActiveCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	n := 0
	for _, id := range p.order {
		if p.byID[id].Active {
			n++
		}
	}
	return n
}

// Len returns the total population size, active or not.
func (p *Population) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.order)
}

// #endregion active

// #region deactivate

// Deactivate retires a hypothesis. Idempotent: retiring an already-inactive
// hypothesis is a no-op. Retirement never deletes, so lineage stays intact.
func (p *Population) Deactivate(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	h, ok := p.byID[id]
	if !ok {
		return fmt.Errorf("deactivate %s: %w", id, ErrNotFound)
	}
	if !h.Active {
		return nil
	}
	h.Active = false
	h.UpdatedAt = p.now().UTC()
	return nil
}

// #endregion deactivate

// #region apply-review

// ApplyReview records a review outcome on a hypothesis. Ratings of RatingUnset
// leave the existing value untouched, so a partially failed review never
// erases earlier judgments. References are appended with order-preserving
// dedupe.
func (p *Population) ApplyReview(id string, r Review) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	h, ok := p.byID[id]
	if !ok {
		return fmt.Errorf("apply review %s: %w", id, ErrNotFound)
	}
	if r.Novelty != RatingUnset {
		h.Novelty = r.Novelty
	}
	if r.Feasibility != RatingUnset {
		h.Feasibility = r.Feasibility
	}
	if r.Commentary != "" {
		h.Comments = append(h.Comments, r.Commentary)
	}
	seen := make(map[string]bool, len(h.References))
	for _, ref := range h.References {
		seen[ref] = true
	}
	for _, ref := range r.References {
		if !seen[ref] {
			h.References = append(h.References, ref)
			seen[ref] = true
		}
	}
	h.UpdatedAt = p.now().UTC()
	return nil
}

// #endregion apply-review

// #region apply-scores

// ApplyScores commits a batch of new Elo scores in one step. IDs not present
// in the population are rejected before any score is written, so a round's
// scoring is all-or-nothing.
func (p *Population) ApplyScores(scores map[string]float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for id := range scores {
		if _, ok := p.byID[id]; !ok {
			return fmt.Errorf("apply scores: %s: %w", id, ErrNotFound)
		}
	}
	now := p.now().UTC()
	for id, s := range scores {
		h := p.byID[id]
		h.Score = s
		h.UpdatedAt = now
	}
	return nil
}

// #endregion apply-scores
