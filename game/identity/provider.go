package identity

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// UserIDKey is the fixed key the user id is stored under
const UserIDKey = "userId"

// Provider gets or creates the client's user id
type Provider struct {
	store  Store
	newID  func() string
	logger zerolog.Logger
	mu     sync.Mutex
}

// Option configures a Provider
type Option func(*Provider)

// WithLogger sets the logger used for persistence warnings
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Provider) { p.logger = logger }
}

// WithGenerator replaces the id generator
func WithGenerator(gen func() string) Option {
	return func(p *Provider) { p.newID = gen }
}

// NewProvider creates a provider over store. store may be nil, in which case
// every call returns a fresh id.
func NewProvider(store Store, opts ...Option) *Provider {
	p := &Provider{
		store:  store,
		newID:  uuid.NewString,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// UserID returns the persisted id, creating and persisting one if absent.
// It never fails: a store that cannot be written only costs stability
// across restarts.
func (p *Provider) UserID() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.store == nil {
		return p.newID()
	}

	if id, ok := p.store.Get(UserIDKey); ok && id != "" {
		return id
	}

	id := p.newID()
	if err := p.store.Set(UserIDKey, id); err != nil {
		p.logger.Warn().Err(err).Msg("could not persist user id; it will change on restart")
	}
	return id
}
