// Package types contains names shared across the store, service and HTTP layers.
package types

// Document store collections.
const (
	CollectionProfiles = "profiles"
	CollectionTracks   = "tracks"
)

// Store-side track fields that never appear on the in-memory Track.
const (
	FieldOwner     = "userId"
	FieldCreatedAt = "createdAt"
)

// CreatedAtLayout is the ISO-8601 UTC layout written into FieldCreatedAt.
const CreatedAtLayout = "2006-01-02T15:04:05.000Z07:00"

// ViewState names the mutually exclusive states a profile page renders.
type ViewState string

// Page states.
const (
	ViewLoading ViewState = "loading"
	ViewError   ViewState = "error"
	ViewContent ViewState = "content"
)

// TrackSource tags where a new track came from.
type TrackSource string

// Track sources.
const (
	SourceUpload TrackSource = "upload"
	SourceDrop   TrackSource = "drop"
)
