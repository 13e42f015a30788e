package service

import (
	"context"
	"sync"
	"time"

	repository "github.com/okian/beatpage/internal/adapters/repository"
	"github.com/okian/beatpage/internal/domain/model"
	"github.com/okian/beatpage/internal/domain/types"
	"github.com/okian/beatpage/pkg/logger"
	"github.com/okian/beatpage/pkg/metrics"
)

// Fallback messages for faults that carry no text.
const (
	msgLoadFailed   = "An error occurred"
	msgUpdateFailed = "Failed to update profile"
	msgAddFailed    = "Failed to add track"
)

// State is a copy of what the hook currently mirrors from the store.
type State struct {
	Profile *model.Profile
	Tracks  []model.Track
	Loading bool
	// Error holds the most recent failure message; empty means none.
	Error string
}

// Hook mirrors one user's profile and tracks from the document store and
// funnels every write through it. Failures never escape: they land in
// State.Error and the return value.
type Hook struct {
	mu sync.RWMutex

	store  repository.Store
	policy AddPolicy
	logger logger.Logger
	now    func() time.Time

	userID     string
	generation uint64

	profile *model.Profile
	tracks  []model.Track
	loading bool
	err     string
}

// HookOption applies a configuration option to the Hook.
type HookOption func(*Hook)

// WithHookLogger sets the hook logger.
func WithHookLogger(l logger.Logger) HookOption {
	return func(h *Hook) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithClock overrides the time source used for createdAt stamps.
func WithClock(now func() time.Time) HookOption {
	return func(h *Hook) {
		if now != nil {
			h.now = now
		}
	}
}

// WithAddPolicy sets how AddTrack builds the appended Track.
func WithAddPolicy(p AddPolicy) HookOption {
	return func(h *Hook) {
		if p != nil {
			h.policy = p
		}
	}
}

// NewHook creates a hook over store. It starts in the loading state, as a
// freshly mounted view does.
func NewHook(store repository.Store, opts ...HookOption) *Hook {
	h := &Hook{
		store:   store,
		policy:  OptimisticAdd{},
		logger:  logger.Nop(),
		now:     time.Now,
		tracks:  []model.Track{},
		loading: true,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// State returns a deep copy of the mirrored state.
func (h *Hook) State() State {
	h.mu.RLock()
	defer h.mu.RUnlock()

	st := State{
		Tracks:  append([]model.Track(nil), h.tracks...),
		Loading: h.loading,
		Error:   h.err,
	}
	if st.Tracks == nil {
		st.Tracks = []model.Track{}
	}
	if h.profile != nil {
		p := h.profile.Clone()
		st.Profile = &p
	}
	return st
}

// UserID returns the user the hook was last asked to load.
func (h *Hook) UserID() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.userID
}

// Load fetches the profile and the user's tracks and replaces the mirror
// on success. A Load superseded by a later one is discarded when it
// settles, so a slow response can never overwrite newer state.
func (h *Hook) Load(ctx context.Context, userID string) {
	h.mu.Lock()
	h.generation++
	gen := h.generation
	h.userID = userID
	h.loading = true
	h.mu.Unlock()

	profile, tracks, err := h.fetch(ctx, userID)

	h.mu.Lock()
	defer h.mu.Unlock()

	if gen != h.generation {
		metrics.RecordStaleLoad()
		h.logger.Debug(ctx, "discarding superseded load", logger.String("user", userID))
		return
	}

	h.loading = false
	metrics.RecordProfileLoad(err == nil)
	if err != nil {
		h.err = messageOf(err, msgLoadFailed)
		h.logger.Warn(ctx, "profile load failed", logger.String("user", userID), logger.Error(err))
		return
	}

	h.profile = profile
	h.tracks = tracks
	h.logger.Debug(ctx, "profile loaded",
		logger.String("user", userID),
		logger.Bool("found", profile != nil),
		logger.Int("tracks", len(tracks)),
	)
}

func (h *Hook) fetch(ctx context.Context, userID string) (*model.Profile, []model.Track, error) {
	doc, found, err := h.store.ReadDocument(ctx, types.CollectionProfiles, userID)
	if err != nil {
		return nil, nil, err
	}
	var profile *model.Profile
	if found {
		p, err := model.DecodeProfile(doc)
		if err != nil {
			return nil, nil, err
		}
		profile = &p
	}

	snaps, err := h.store.QueryDocuments(ctx, types.CollectionTracks, repository.Filter{
		Field: types.FieldOwner,
		Value: userID,
	})
	if err != nil {
		return nil, nil, err
	}
	tracks := make([]model.Track, 0, len(snaps))
	for _, snap := range snaps {
		t, err := model.DecodeTrack(snap.ID, snap.Data)
		if err != nil {
			return nil, nil, err
		}
		tracks = append(tracks, t)
	}
	return profile, tracks, nil
}

// UpdateProfile writes only the patch's fields and, on success, merges them
// into the local profile. Nothing local changes on failure.
func (h *Hook) UpdateProfile(ctx context.Context, patch model.ProfilePatch) bool {
	userID := h.UserID()
	err := h.store.PartialUpdateDocument(ctx, types.CollectionProfiles, userID, patch.Document())

	h.mu.Lock()
	defer h.mu.Unlock()

	metrics.RecordProfileUpdate(err == nil)
	if err != nil {
		h.err = messageOf(err, msgUpdateFailed)
		h.logger.Warn(ctx, "profile update failed", logger.String("user", userID), logger.Error(err))
		return false
	}
	if h.profile != nil {
		merged := patch.Apply(*h.profile)
		h.profile = &merged
	}
	return true
}

// AddTrack writes a new track owned by the current user and appends the
// policy's view of it to the local list.
func (h *Hook) AddTrack(ctx context.Context, track model.NewTrack) (model.Track, bool) {
	userID := h.UserID()
	id := h.store.NewID(types.CollectionTracks)

	doc := track.Document()
	doc[types.FieldOwner] = userID
	doc[types.FieldCreatedAt] = h.now().UTC().Format(types.CreatedAtLayout)

	err := h.store.WriteDocument(ctx, types.CollectionTracks, id, doc)
	var added model.Track
	if err == nil {
		added, err = h.policy.Resolve(ctx, h.store, id, track)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err != nil {
		h.err = messageOf(err, msgAddFailed)
		h.logger.Warn(ctx, "add track failed",
			logger.String("user", userID),
			logger.String("title", track.Title),
			logger.Error(err),
		)
		return model.Track{}, false
	}
	h.tracks = append(h.tracks, added)
	return added, true
}

// messageOf turns a fault into display text, using fallback when the fault
// has none.
func messageOf(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallback
}
