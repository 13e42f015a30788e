package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
)

func newOfflineRedisStore(opts ...RedisOption) *RedisStore {
	// No command is sent in these tests; the address is never dialled.
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	return NewRedisStore(client, opts...)
}

func TestRedisStore_KeyLayout(t *testing.T) {
	s := newOfflineRedisStore()
	defer func() { _ = s.Close() }()

	if got := s.docKey("tracks", "abc"); got != "beatpage:tracks:abc" {
		t.Errorf("unexpected doc key %q", got)
	}
	if got := s.orderKey("tracks"); got != "beatpage:tracks:__order" {
		t.Errorf("unexpected order key %q", got)
	}
	if got := s.seqKey(); got != "beatpage:__seq" {
		t.Errorf("unexpected seq key %q", got)
	}

	prefixed := newOfflineRedisStore(WithRedisPrefix("staging"), WithRedisIDFunc(func() string { return "fixed" }))
	defer func() { _ = prefixed.Close() }()
	if got := prefixed.docKey("profiles", "default"); got != "staging:profiles:default" {
		t.Errorf("unexpected prefixed key %q", got)
	}
	if got := prefixed.NewID("tracks"); got != "fixed" {
		t.Errorf("expected custom id func, got %q", got)
	}
}

func TestRedisStore_ValidatesBeforeNetwork(t *testing.T) {
	s := newOfflineRedisStore()
	defer func() { _ = s.Close() }()
	ctx := context.Background()

	if _, _, err := s.ReadDocument(ctx, "profiles", ""); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got %v", err)
	}
	if err := s.WriteDocument(ctx, "", "id", Document{}); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got %v", err)
	}
	if _, err := s.QueryDocuments(ctx, "", Filter{}); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestDecodeJSON(t *testing.T) {
	doc, err := decodeJSON([]byte(`{"title":"a","bpm":128}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc["bpm"] != float64(128) {
		t.Errorf("expected float64 bpm, got %T", doc["bpm"])
	}

	empty, err := decodeJSON([]byte(`null`))
	if err != nil || empty == nil {
		t.Errorf("null should decode to an empty document, got %v %v", empty, err)
	}

	if _, err := decodeJSON([]byte(`{broken`)); err == nil {
		t.Error("expected decode error")
	}
}
