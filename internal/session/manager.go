// Package session manages research sessions: goal intake, settings
// validation, and cycle execution against per-session orchestrators.
package session

// #region imports
import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/danielpatrickdp/coscientist/go-controller/internal/cycle"
	"github.com/danielpatrickdp/coscientist/go-controller/internal/evolution"
	"github.com/danielpatrickdp/coscientist/go-controller/internal/llm"
	"github.com/danielpatrickdp/coscientist/go-controller/internal/metareview"
	"github.com/danielpatrickdp/coscientist/go-controller/internal/proximity"
	"github.com/danielpatrickdp/coscientist/go-controller/internal/tournament"
)

// #endregion imports

// #region errors

var (
	// ErrInvalidSettings is returned when session settings fail validation.
	ErrInvalidSettings = errors.New("invalid session settings")
	// ErrSessionNotFound is returned for unknown session ids.
	ErrSessionNotFound = errors.New("session not found")
)

// #endregion errors

// #region settings

// Settings are the per-session knobs for one research session.
type Settings struct {
	NumHypotheses         int     `json:"num_hypotheses" yaml:"num_hypotheses"`
	GenerationTemperature float64 `json:"generation_temperature" yaml:"generation_temperature"`
	ReviewTemperature     float64 `json:"review_temperature" yaml:"review_temperature"`
	EloKFactor            float64 `json:"elo_k_factor" yaml:"elo_k_factor"`
	EvolutionTopK         int     `json:"evolution_top_k" yaml:"evolution_top_k"`
	ProximityThreshold    float64 `json:"proximity_threshold" yaml:"proximity_threshold"`
	MaxParallelReviews    int     `json:"max_parallel_reviews" yaml:"max_parallel_reviews"`
}

// DefaultSettings returns the standard session settings.
func DefaultSettings() Settings {
	return Settings{
		NumHypotheses:         3,
		GenerationTemperature: 0.7,
		ReviewTemperature:     0.5,
		EloKFactor:            32,
		EvolutionTopK:         2,
		ProximityThreshold:    0,
		MaxParallelReviews:    4,
	}
}

// Validate checks settings synchronously, before any session state exists.
func (s Settings) Validate() error {
	if s.NumHypotheses < 1 {
		return fmt.Errorf("%w: num_hypotheses must be at least 1", ErrInvalidSettings)
	}
	if s.GenerationTemperature < 0 || s.GenerationTemperature > 2 {
		return fmt.Errorf("%w: generation_temperature outside [0,2]", ErrInvalidSettings)
	}
	if s.ReviewTemperature < 0 || s.ReviewTemperature > 2 {
		return fmt.Errorf("%w: review_temperature outside [0,2]", ErrInvalidSettings)
	}
	if s.EloKFactor <= 0 {
		return fmt.Errorf("%w: elo_k_factor must be positive", ErrInvalidSettings)
	}
	if s.EvolutionTopK < 2 {
		return fmt.Errorf("%w: evolution_top_k must be at least 2", ErrInvalidSettings)
	}
	if s.ProximityThreshold < 0 || s.ProximityThreshold >= 1 {
		return fmt.Errorf("%w: proximity_threshold outside [0,1)", ErrInvalidSettings)
	}
	return nil
}

// #endregion settings

// #region adapters

// Adapters are the model-backed collaborators a session needs. One set is
// shared across all sessions of a Manager.
type Adapters struct {
	Generator  llm.Generator
	Reviewer   llm.Reviewer
	Judge      llm.Judge
	Scorer     llm.Scorer
	Summarizer llm.Summarizer
}

// Recorder persists session and cycle artifacts.
type Recorder interface {
	cycle.Recorder
	SaveSession(id, goal string, settings Settings) error
}

// #endregion adapters

// #region session

// Session is one research goal and its orchestrator.
type Session struct {
	ID           string
	Goal         string
	Settings     Settings
	Orchestrator *cycle.Orchestrator
	CreatedAt    time.Time
}

// #endregion session

// #region manager

// Manager owns all live sessions. Safe for concurrent use.
type Manager struct {
	adapters Adapters
	recorder Recorder // nil = no persistence
	seed     int64    // 0 = time-seeded tournaments

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager builds a Manager. A nonzero seed makes tournament pairing
// deterministic across sessions, which replay harnesses rely on.
func NewManager(adapters Adapters, recorder Recorder, seed int64) *Manager {
	return &Manager{
		adapters: adapters,
		recorder: recorder,
		seed:     seed,
		sessions: make(map[string]*Session),
	}
}

// SetGoal validates settings, creates a session around the goal, and arms
// its orchestrator. Validation failures surface immediately; nothing is
// created on error.
func (m *Manager) SetGoal(goal string, settings Settings) (*Session, error) {
	goal = strings.TrimSpace(goal)
	if goal == "" {
		return nil, cycle.ErrNoGoal
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	seed := m.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	deps := cycle.Deps{
		Generator:  m.adapters.Generator,
		Reviewer:   m.adapters.Reviewer,
		Tournament: tournament.NewEngine(m.adapters.Judge, tournament.Config{KFactor: settings.EloKFactor}, rand.New(rand.NewSource(seed))),
		Selector:   evolution.NewSelector(nil, evolution.Config{TopK: settings.EvolutionTopK}),
		Proximity:  proximity.NewBuilder(m.adapters.Scorer, settings.ProximityThreshold),
		MetaReview: metareview.NewRunner(m.adapters.Summarizer),
	}
	if m.recorder != nil {
		deps.Recorder = m.recorder
	}

	id := "sess-" + uuid.NewString()[:8]
	o := cycle.NewOrchestrator(id, cycle.Config{
		NumHypotheses:         settings.NumHypotheses,
		GenerationTemperature: settings.GenerationTemperature,
		ReviewTemperature:     settings.ReviewTemperature,
		MaxParallelReviews:    settings.MaxParallelReviews,
	}, deps)
	if err := o.SetGoal(goal); err != nil {
		return nil, err
	}

	s := &Session{
		ID:           id,
		Goal:         goal,
		Settings:     settings,
		Orchestrator: o,
		CreatedAt:    time.Now().UTC(),
	}
	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	if m.recorder != nil {
		if err := m.recorder.SaveSession(id, goal, settings); err != nil {
			log.Printf("[SESSION] save session %s: %v", id, err)
		}
	}
	log.Printf("[SESSION] %s created for goal %q", id, goal)
	return s, nil
}

// Get returns a live session by id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", id, ErrSessionNotFound)
	}
	return s, nil
}

// List returns all live sessions, creation order not guaranteed.
func (m *Manager) List() []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

// RunCycle runs one cycle of the named session. The orchestrator enforces
// the single-cycle-in-flight rule.
func (m *Manager) RunCycle(ctx context.Context, id string) (*cycle.Result, error) {
	s, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	return s.Orchestrator.RunCycle(ctx)
}

// #endregion manager
