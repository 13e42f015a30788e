// Package service holds the profile data hook, the page built on it, and
// the registry of mounted pages served over HTTP.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/okian/beatpage/internal/adapters/blob"
	repository "github.com/okian/beatpage/internal/adapters/repository"
	"github.com/okian/beatpage/pkg/logger"
	"github.com/okian/beatpage/pkg/metrics"
)

// ErrNotStarted is returned when pages are requested before Start.
var ErrNotStarted = errors.New("service not started")

// DefaultMaxPages bounds the registry when WithMaxPages is not given.
const DefaultMaxPages = 10000

// Service keeps one mounted Page per user.
type Service struct {
	mu sync.RWMutex

	// Core components
	store repository.Store
	blobs blob.Store

	// Configuration
	storeDriver string
	placeholder string
	policy      AddPolicy
	clock       func() time.Time
	maxPages    int

	// State
	pages   map[string]*Page
	recent  []string // least recently used first
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore sets the document store. The service owns it and closes it on
// Stop.
func WithStore(store repository.Store, driver string) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
			s.storeDriver = driver
		}
	}
}

// WithBlobs sets where uploaded audio is archived. Nil disables archiving.
func WithBlobs(b blob.Store) Option {
	return func(s *Service) {
		s.blobs = b
	}
}

// WithPlaceholder sets the image attached to uploaded tracks.
func WithPlaceholder(url string) Option {
	return func(s *Service) {
		if url != "" {
			s.placeholder = url
		}
	}
}

// WithPolicy sets the add-track policy for every page.
func WithPolicy(p AddPolicy) Option {
	return func(s *Service) {
		if p != nil {
			s.policy = p
		}
	}
}

// WithServiceClock overrides the clock handed to each hook.
func WithServiceClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.clock = now
		}
	}
}

// WithMaxPages caps how many pages stay mounted. Mounting past the cap
// drops the least recently used page.
func WithMaxPages(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxPages = n
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		policy:   OptimisticAdd{},
		clock:    time.Now,
		maxPages: DefaultMaxPages,
		pages:    make(map[string]*Page),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start prepares the service. Without an injected store it falls back to
// an in-memory one.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting profile service...")

	if s.store == nil {
		s.store = repository.NewInstrumented(repository.NewMemoryStore(), s.logger.Named("store"))
		s.storeDriver = repository.DriverMemory
		s.logger.Info(ctx, "using in-memory document store")
	}

	s.started = true
	s.logger.Info(ctx, "profile service started",
		logger.String("store", s.storeDriver),
		logger.Bool("archive", s.blobs != nil),
	)
	return nil
}

// Stop drops every mounted page and closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping profile service...")

	s.pages = make(map[string]*Page)
	s.recent = nil
	metrics.UpdatePagesMounted(0)

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn(context.Background(), "closing store failed", logger.Error(err))
		}
	}

	s.started = false
	s.logger.Info(context.Background(), "profile service stopped")
}

// Mount returns the page mounted for userID, mounting it on first use.
// A new page starts loading in the background and renders loading until
// that settles.
func (s *Service) Mount(ctx context.Context, userID string) (*Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil, ErrNotStarted
	}
	if p, ok := s.pages[userID]; ok {
		s.touchLocked(userID)
		return p, nil
	}
	return s.mountLocked(ctx, userID), nil
}

// Remount discards the page for userID and mounts a fresh one, which reads
// everything back from the store.
func (s *Service) Remount(ctx context.Context, userID string) (*Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil, ErrNotStarted
	}
	s.dropLocked(userID)
	return s.mountLocked(ctx, userID), nil
}

// Unmount drops the page for userID. An in-flight load still settles into
// the dropped page, which nobody reads any more.
func (s *Service) Unmount(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dropLocked(userID)
	metrics.UpdatePagesMounted(len(s.pages))
}

// Lookup returns the page mounted for userID, if any.
func (s *Service) Lookup(userID string) (*Page, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pages[userID]
	return p, ok
}

func (s *Service) mountLocked(ctx context.Context, userID string) *Page {
	hook := NewHook(s.store,
		WithHookLogger(s.logger.Named("hook")),
		WithAddPolicy(s.policy),
		WithClock(s.clock),
	)
	page := NewPage(hook,
		WithBlobStore(s.blobs),
		WithPlaceholderImage(s.placeholder),
		WithPageLogger(s.logger.Named("page")),
	)
	for len(s.pages) >= s.maxPages && len(s.recent) > 0 {
		oldest := s.recent[0]
		s.dropLocked(oldest)
		s.logger.Debug(ctx, "page evicted", logger.String("user", oldest))
	}
	s.pages[userID] = page
	s.recent = append(s.recent, userID)
	metrics.UpdatePagesMounted(len(s.pages))

	// The load outlives the request that triggered it.
	go page.Mount(context.WithoutCancel(ctx), userID)

	s.logger.Debug(ctx, "page mounted", logger.String("user", userID))
	return page
}

func (s *Service) touchLocked(userID string) {
	s.removeRecentLocked(userID)
	s.recent = append(s.recent, userID)
}

func (s *Service) dropLocked(userID string) {
	delete(s.pages, userID)
	s.removeRecentLocked(userID)
}

func (s *Service) removeRecentLocked(userID string) {
	for i, id := range s.recent {
		if id == userID {
			s.recent = append(s.recent[:i], s.recent[i+1:]...)
			return
		}
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":      s.started,
		"storeDriver":  s.storeDriver,
		"archive":      s.blobs != nil,
		"mountedPages": len(s.pages),
		"maxPages":     s.maxPages,
	}

	metrics.UpdatePagesMounted(len(s.pages))
	return stats
}
