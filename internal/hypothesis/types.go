package hypothesis

// #region imports
import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// #endregion imports

// #region rating

// Rating is a reviewer's judgment of one hypothesis dimension.
type Rating string

const (
	RatingUnset  Rating = "UNSET"
	RatingLow    Rating = "LOW"
	RatingMedium Rating = "MEDIUM"
	RatingHigh   Rating = "HIGH"
)

// ParseRating normalizes free-form reviewer output to a Rating.
// Unknown values map to RatingUnset.
func ParseRating(s string) Rating {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "HIGH":
		return RatingHigh
	case "MEDIUM":
		return RatingMedium
	case "LOW":
		return RatingLow
	default:
		return RatingUnset
	}
}

// #endregion rating

// #region origin

// Origin tags how a hypothesis entered the population.
type Origin string

const (
	OriginGenerated Origin = "G"
	OriginEvolved   Origin = "E"
	OriginDefault   Origin = "H"
)

// NewID returns an origin-prefixed identifier, e.g. "G-3f9c2a1b".
func NewID(origin Origin) string {
	return fmt.Sprintf("%s-%s", origin, uuid.New().String()[:8])
}

// #endregion origin

// #region constants

// BaselineScore is the Elo score assigned to newly generated hypotheses.
const BaselineScore = 1200.0

// #endregion constants

// #region hypothesis

// Hypothesis is one candidate research idea with its score, reviews, and lineage.
type Hypothesis struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Text        string    `json:"text"`
	Novelty     Rating    `json:"novelty"`
	Feasibility Rating    `json:"feasibility"`
	Score       float64   `json:"elo_score"`
	Comments    []string  `json:"review_comments"`
	References  []string  `json:"references"`
	ParentIDs   []string  `json:"parent_ids"`
	Active      bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Draft is an unregistered hypothesis produced by generation or evolution.
// The population store fills in timestamps and the active flag at insert.
type Draft struct {
	ID        string
	Title     string
	Text      string
	Score     float64
	ParentIDs []string
}

// clone returns a deep copy so callers can never mutate store-held records.
func (h *Hypothesis) clone() *Hypothesis {
	c := *h
	c.Comments = append([]string(nil), h.Comments...)
	c.References = append([]string(nil), h.References...)
	c.ParentIDs = append([]string(nil), h.ParentIDs...)
	return &c
}

// #endregion hypothesis

// #region review

// Review is the outcome of one external review call for a single hypothesis.
type Review struct {
	Novelty     Rating
	Feasibility Rating
	Commentary  string
	References  []string
}

// #endregion review
