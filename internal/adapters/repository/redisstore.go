package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisPrefix = "beatpage"
	redisPingTimeout   = 5 * time.Second
	redisMGetChunk     = 256
	orderSuffix        = "__order"
)

// RedisStore keeps each document as a JSON string under
// <prefix>:<collection>:<id>. Insertion order lives in a sorted set
// <prefix>:<collection>:__order scored by a global sequence.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	newID  IDFunc
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithRedisPrefix namespaces every key.
func WithRedisPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithRedisIDFunc overrides identifier allocation.
func WithRedisIDFunc(fn IDFunc) RedisOption {
	return func(s *RedisStore) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client redis.UniversalClient, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, prefix: defaultRedisPrefix, newID: NewUUID}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ConnectRedis dials Redis and verifies the connection with PING.
func ConnectRedis(ctx context.Context, addr, password string, db int, opts ...RedisOption) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return NewRedisStore(client, opts...), nil
}

func (s *RedisStore) docKey(collection, id string) string {
	return s.prefix + ":" + collection + ":" + id
}

func (s *RedisStore) orderKey(collection string) string {
	return s.prefix + ":" + collection + ":" + orderSuffix
}

func (s *RedisStore) seqKey() string {
	return s.prefix + ":__seq"
}

func decodeJSON(raw []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if doc == nil {
		doc = Document{}
	}
	return doc, nil
}

// ReadDocument implements Store.
func (s *RedisStore) ReadDocument(ctx context.Context, collection, id string) (Document, bool, error) {
	if err := validate(collection, id); err != nil {
		return nil, false, err
	}
	raw, err := s.client.Get(ctx, s.docKey(collection, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s/%s: %w", collection, id, err)
	}
	doc, err := decodeJSON(raw)
	if err != nil {
		return nil, false, fmt.Errorf("read %s/%s: %w", collection, id, err)
	}
	return doc, true, nil
}

// QueryDocuments implements Store. Filtering happens client-side over the
// collection in insertion order.
func (s *RedisStore) QueryDocuments(ctx context.Context, collection string, filter Filter) ([]Snapshot, error) {
	if collection == "" {
		return nil, fmt.Errorf("%w: empty collection", ErrInvalidRequest)
	}
	ids, err := s.client.ZRange(ctx, s.orderKey(collection), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}

	out := make([]Snapshot, 0, len(ids))
	for start := 0; start < len(ids); start += redisMGetChunk {
		end := min(start+redisMGetChunk, len(ids))
		keys := make([]string, 0, end-start)
		for _, id := range ids[start:end] {
			keys = append(keys, s.docKey(collection, id))
		}
		vals, err := s.client.MGet(ctx, keys...).Result()
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", collection, err)
		}
		for i, v := range vals {
			raw, ok := v.(string)
			if !ok {
				// Ordered id without a document; skip it.
				continue
			}
			doc, err := decodeJSON([]byte(raw))
			if err != nil {
				return nil, fmt.Errorf("query %s/%s: %w", collection, ids[start+i], err)
			}
			if filter.Matches(doc) {
				out = append(out, Snapshot{ID: ids[start+i], Data: doc})
			}
		}
	}
	return out, nil
}

// WriteDocument implements Store.
func (s *RedisStore) WriteDocument(ctx context.Context, collection, id string, fields Document) error {
	if err := validate(collection, id); err != nil {
		return err
	}
	if fields == nil {
		fields = Document{}
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}
	seq, err := s.client.Incr(ctx, s.seqKey()).Result()
	if err != nil {
		return fmt.Errorf("write %s/%s: %w", collection, id, err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.docKey(collection, id), raw, 0)
		pipe.ZAddNX(ctx, s.orderKey(collection), redis.Z{Score: float64(seq), Member: id})
		return nil
	})
	if err != nil {
		return fmt.Errorf("write %s/%s: %w", collection, id, err)
	}
	return nil
}

// PartialUpdateDocument implements Store using WATCH so a concurrent write
// to the same document aborts the merge instead of being lost.
func (s *RedisStore) PartialUpdateDocument(ctx context.Context, collection, id string, fields Document) error {
	if err := validate(collection, id); err != nil {
		return err
	}
	key := s.docKey(collection, id)
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
		}
		if err != nil {
			return err
		}
		doc, err := decodeJSON(raw)
		if err != nil {
			return err
		}
		merged, err := json.Marshal(mergeDocument(doc, fields))
		if err != nil {
			return fmt.Errorf("encode %s/%s: %w", collection, id, err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, merged, 0)
			return nil
		})
		return err
	}, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	return nil
}

// NewID implements Store.
func (s *RedisStore) NewID(string) string {
	return s.newID()
}

// Close implements Store.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
