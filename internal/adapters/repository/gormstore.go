package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// Connection pool settings for the SQL-backed store.
const (
	sqlMaxIdleConns    = 10
	sqlMaxOpenConns    = 100
	sqlConnMaxLifetime = time.Hour
)

// documentRow is one document in the shared documents table. Seq gives
// insertion order across all collections.
type documentRow struct {
	Seq        uint64    `gorm:"primaryKey;autoIncrement"`
	Collection string    `gorm:"size:64;not null;uniqueIndex:idx_collection_doc"`
	DocID      string    `gorm:"column:doc_id;size:64;not null;uniqueIndex:idx_collection_doc"`
	Body       string    `gorm:"type:text;not null"`
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}

// TableName specifies the table name for documentRow.
func (documentRow) TableName() string {
	return "documents"
}

// GormStore keeps documents as JSON bodies in a relational table.
type GormStore struct {
	db    *gorm.DB
	newID IDFunc
}

// GormOption configures a GormStore.
type GormOption func(*GormStore)

// WithGormIDFunc overrides identifier allocation.
func WithGormIDFunc(fn IDFunc) GormOption {
	return func(s *GormStore) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// NewGormStore wraps an open gorm handle and migrates the documents table.
func NewGormStore(db *gorm.DB, opts ...GormOption) (*GormStore, error) {
	if err := db.AutoMigrate(&documentRow{}); err != nil {
		return nil, fmt.Errorf("failed to auto migrate documents: %w", err)
	}
	s := &GormStore{db: db, newID: NewUUID}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ConnectMySQL opens a MySQL-backed store from a DSN such as
// user:pass@tcp(host:3306)/beatpage?charset=utf8mb4&parseTime=True&loc=UTC.
func ConnectMySQL(dsn string, opts ...GormOption) (*GormStore, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Warn),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database with GORM: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(sqlMaxIdleConns)
	sqlDB.SetMaxOpenConns(sqlMaxOpenConns)
	sqlDB.SetConnMaxLifetime(sqlConnMaxLifetime)

	return NewGormStore(db, opts...)
}

func (s *GormStore) find(tx *gorm.DB, collection, id string) (*documentRow, error) {
	var row documentRow
	err := tx.Where("collection = ? AND doc_id = ?", collection, id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// ReadDocument implements Store.
func (s *GormStore) ReadDocument(ctx context.Context, collection, id string) (Document, bool, error) {
	if err := validate(collection, id); err != nil {
		return nil, false, err
	}
	row, err := s.find(s.db.WithContext(ctx), collection, id)
	if err != nil {
		return nil, false, fmt.Errorf("read %s/%s: %w", collection, id, err)
	}
	if row == nil {
		return nil, false, nil
	}
	doc, err := decodeJSON([]byte(row.Body))
	if err != nil {
		return nil, false, fmt.Errorf("read %s/%s: %w", collection, id, err)
	}
	return doc, true, nil
}

// QueryDocuments implements Store.
func (s *GormStore) QueryDocuments(ctx context.Context, collection string, filter Filter) ([]Snapshot, error) {
	if collection == "" {
		return nil, fmt.Errorf("%w: empty collection", ErrInvalidRequest)
	}
	var rows []documentRow
	err := s.db.WithContext(ctx).
		Where("collection = ?", collection).
		Order("seq ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	out := make([]Snapshot, 0, len(rows))
	for _, row := range rows {
		doc, err := decodeJSON([]byte(row.Body))
		if err != nil {
			return nil, fmt.Errorf("query %s/%s: %w", collection, row.DocID, err)
		}
		if filter.Matches(doc) {
			out = append(out, Snapshot{ID: row.DocID, Data: doc})
		}
	}
	return out, nil
}

// WriteDocument implements Store. An existing row keeps its Seq.
func (s *GormStore) WriteDocument(ctx context.Context, collection, id string, fields Document) error {
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
	row := documentRow{Collection: collection, DocID: id, Body: string(raw)}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "collection"}, {Name: "doc_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"body", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("write %s/%s: %w", collection, id, err)
	}
	return nil
}

// PartialUpdateDocument implements Store inside a row-locking transaction.
func (s *GormStore) PartialUpdateDocument(ctx context.Context, collection, id string, fields Document) error {
	if err := validate(collection, id); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := s.find(tx.Clauses(clause.Locking{Strength: "UPDATE"}), collection, id)
		if err != nil {
			return err
		}
		if row == nil {
			return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
		}
		doc, err := decodeJSON([]byte(row.Body))
		if err != nil {
			return err
		}
		merged, err := json.Marshal(mergeDocument(doc, fields))
		if err != nil {
			return err
		}
		return tx.Model(&documentRow{}).
			Where("seq = ?", row.Seq).
			Updates(map[string]any{"body": string(merged), "updated_at": time.Now()}).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	return nil
}

// NewID implements Store.
func (s *GormStore) NewID(string) string {
	return s.newID()
}

// Close implements Store.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
