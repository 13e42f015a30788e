package repository

import (
	"context"
	"time"

	"github.com/okian/beatpage/pkg/logger"
	"github.com/okian/beatpage/pkg/metrics"
)

// Instrumented decorates a Store with metrics and failure logging.
type Instrumented struct {
	next   Store
	logger logger.Logger
}

// NewInstrumented wraps next. A nil logger disables failure logging.
func NewInstrumented(next Store, log logger.Logger) *Instrumented {
	if log == nil {
		log = logger.Nop()
	}
	return &Instrumented{next: next, logger: log}
}

func (s *Instrumented) observe(ctx context.Context, collection, op string, start time.Time, err error) {
	metrics.RecordStoreOperation(collection, op, err == nil, float64(time.Since(start).Microseconds())/1000)
	if err != nil {
		s.logger.Warn(ctx, "store operation failed",
			logger.String("collection", collection),
			logger.String("operation", op),
			logger.Error(err),
		)
	}
}

// ReadDocument implements Store.
func (s *Instrumented) ReadDocument(ctx context.Context, collection, id string) (Document, bool, error) {
	start := time.Now()
	doc, found, err := s.next.ReadDocument(ctx, collection, id)
	s.observe(ctx, collection, "read", start, err)
	return doc, found, err
}

// QueryDocuments implements Store.
func (s *Instrumented) QueryDocuments(ctx context.Context, collection string, filter Filter) ([]Snapshot, error) {
	start := time.Now()
	snaps, err := s.next.QueryDocuments(ctx, collection, filter)
	s.observe(ctx, collection, "query", start, err)
	return snaps, err
}

// WriteDocument implements Store.
func (s *Instrumented) WriteDocument(ctx context.Context, collection, id string, fields Document) error {
	start := time.Now()
	err := s.next.WriteDocument(ctx, collection, id, fields)
	s.observe(ctx, collection, "write", start, err)
	return err
}

// PartialUpdateDocument implements Store.
func (s *Instrumented) PartialUpdateDocument(ctx context.Context, collection, id string, fields Document) error {
	start := time.Now()
	err := s.next.PartialUpdateDocument(ctx, collection, id, fields)
	s.observe(ctx, collection, "update", start, err)
	return err
}

// NewID implements Store.
func (s *Instrumented) NewID(collection string) string {
	return s.next.NewID(collection)
}

// Close implements Store.
func (s *Instrumented) Close() error {
	return s.next.Close()
}
