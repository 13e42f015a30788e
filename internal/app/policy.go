package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	repository "github.com/okian/beatpage/internal/adapters/repository"
	"github.com/okian/beatpage/internal/domain/model"
	"github.com/okian/beatpage/internal/domain/types"
)

// Policy names accepted by PolicyByName.
const (
	PolicyOptimistic = "optimistic"
	PolicyConfirmed  = "confirmed"
)

// Sentinel kinds for service errors.
var (
	ErrUnknownPolicy = errors.New("unknown add policy")
	ErrTrackMissing  = errors.New("written track not found on re-read")
)

// AddPolicy decides what Track AddTrack appends once the write is acked.
type AddPolicy interface {
	Resolve(ctx context.Context, store repository.Store, id string, written model.NewTrack) (model.Track, error)
}

// OptimisticAdd echoes the caller's fields with the store-allocated id,
// without reading the record back.
type OptimisticAdd struct{}

// Resolve implements AddPolicy.
func (OptimisticAdd) Resolve(_ context.Context, _ repository.Store, id string, written model.NewTrack) (model.Track, error) {
	return written.WithID(id), nil
}

// ConfirmedAdd re-reads the written document so local state always
// matches what the store persisted.
type ConfirmedAdd struct{}

// Resolve implements AddPolicy.
func (ConfirmedAdd) Resolve(ctx context.Context, store repository.Store, id string, _ model.NewTrack) (model.Track, error) {
	doc, found, err := store.ReadDocument(ctx, types.CollectionTracks, id)
	if err != nil {
		return model.Track{}, err
	}
	if !found {
		return model.Track{}, fmt.Errorf("%w: %s", ErrTrackMissing, id)
	}
	return model.DecodeTrack(id, doc)
}

// PolicyByName maps a config value to an AddPolicy.
func PolicyByName(name string) (AddPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", PolicyOptimistic:
		return OptimisticAdd{}, nil
	case PolicyConfirmed:
		return ConfirmedAdd{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
}
