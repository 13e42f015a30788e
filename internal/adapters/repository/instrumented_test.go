package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/beatpage/pkg/logger"
)

type brokenStore struct{ *MemoryStore }

var errBroken = errors.New("connection refused")

func (b *brokenStore) ReadDocument(context.Context, string, string) (Document, bool, error) {
	return nil, false, errBroken
}

func TestInstrumented_PassThrough(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryStore(WithMemoryIDFunc(func() string { return "id-1" }))
	s := NewInstrumented(inner, logger.Nop())

	if id := s.NewID("tracks"); id != "id-1" {
		t.Errorf("expected id-1, got %s", id)
	}
	if err := s.WriteDocument(ctx, "tracks", "id-1", Document{"userId": "u"}); err != nil {
		t.Fatal(err)
	}
	snaps, err := s.QueryDocuments(ctx, "tracks", Filter{Field: "userId", Value: "u"})
	if err != nil || len(snaps) != 1 {
		t.Fatalf("expected one snapshot, got %v %v", snaps, err)
	}
	if err := s.PartialUpdateDocument(ctx, "tracks", "id-1", Document{"likes": 1}); err != nil {
		t.Fatal(err)
	}
	doc, found, err := s.ReadDocument(ctx, "tracks", "id-1")
	if err != nil || !found || doc["likes"] != 1 {
		t.Errorf("unexpected read result %v %v %v", doc, found, err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestInstrumented_PropagatesErrors(t *testing.T) {
	s := NewInstrumented(&brokenStore{MemoryStore: NewMemoryStore()}, nil)
	_, _, err := s.ReadDocument(context.Background(), "profiles", "u")
	if !errors.Is(err, errBroken) {
		t.Errorf("expected wrapped store error, got %v", err)
	}
}
