// Package session carries one respondent through the questionnaire: the
// presentation order drawn at start, the answers collected so far and the
// demographic profile.
package session

import (
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/genera/compass/internal/catalog"
	"github.com/genera/compass/internal/model"
	"github.com/genera/compass/internal/score"
)

var (
	// ErrAlreadySubmitted is returned when a session is answered or submitted twice
	ErrAlreadySubmitted = errors.New("session already submitted")

	// ErrNotFound is returned by the store for unknown or expired sessions
	ErrNotFound = errors.New("session not found")
)

// Session is the explicit context of one respondent
type Session struct {
	mu sync.Mutex

	id        string
	catalog   *catalog.Catalog
	seed      uint64
	order     []string
	responses model.ResponseSet
	profile   model.Profile
	submitted bool
	createdAt time.Time
}

// New starts a session whose presentation order is drawn from seed.
// The same seed always yields the same order for the same catalog.
func New(c *catalog.Catalog, seed uint64) *Session {
	order := c.ItemIDs()
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	return &Session{
		id:        uuid.NewString(),
		catalog:   c,
		seed:      seed,
		order:     order,
		responses: make(model.ResponseSet, len(order)),
		createdAt: time.Now(),
	}
}

// NewRandom starts a session with a freshly drawn seed
func NewRandom(c *catalog.Catalog) *Session {
	return New(c, rand.Uint64())
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// Seed returns the seed the presentation order was drawn from
func (s *Session) Seed() uint64 {
	return s.seed
}

// Catalog returns the catalog the session presents
func (s *Session) Catalog() *catalog.Catalog {
	return s.catalog
}

// CreatedAt returns when the session started
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// Order returns the presentation order; it never changes for the session lifetime
func (s *Session) Order() []string {
	return append([]string(nil), s.order...)
}

// Items returns the catalog items in presentation order
func (s *Session) Items() []model.Item {
	items := make([]model.Item, 0, len(s.order))
	for _, id := range s.order {
		item, _ := s.catalog.Item(id)
		items = append(items, item)
	}
	return items
}

// Answer records value for item id, replacing an earlier answer
func (s *Session) Answer(id string, value int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.submitted {
		return ErrAlreadySubmitted
	}
	if _, ok := s.catalog.Item(id); !ok {
		return &score.UnknownItemError{Unknown: []string{id}}
	}
	if scale := s.catalog.Scale(); !scale.Contains(value) {
		return &score.OutOfScaleError{ItemID: id, Value: value, Scale: scale}
	}

	s.responses[id] = value
	return nil
}

// SetProfile stores the demographic fields
func (s *Session) SetProfile(p model.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.submitted {
		return ErrAlreadySubmitted
	}
	s.profile = p
	return nil
}

// Profile returns the demographic fields recorded so far
func (s *Session) Profile() model.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

// Progress reports how many items are answered out of the total
func (s *Session) Progress() (answered, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.responses), s.catalog.Len()
}

// Responses returns a copy of the answers recorded so far
func (s *Session) Responses() model.ResponseSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.responses.Clone()
}

// Next returns the first unanswered item in presentation order
func (s *Session) Next() (model.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.order {
		if _, ok := s.responses[id]; !ok {
			item, _ := s.catalog.Item(id)
			return item, true
		}
	}
	return model.Item{}, false
}

// Submit freezes the session and hands out its responses. It succeeds once;
// completeness is left to the scorer.
func (s *Session) Submit() (model.ResponseSet, model.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.submitted {
		return nil, model.Profile{}, ErrAlreadySubmitted
	}
	s.submitted = true
	return s.responses.Clone(), s.profile, nil
}

// Submitted reports whether Submit already ran
func (s *Session) Submitted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitted
}
