package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"

	repository "github.com/okian/beatpage/internal/adapters/repository"
	"github.com/okian/beatpage/internal/domain/model"
	"github.com/okian/beatpage/internal/domain/types"
)

var errRejected = errors.New("permission denied")

// faultyStore wraps the memory store and fails selected operations.
type faultyStore struct {
	*repository.MemoryStore

	mu          sync.Mutex
	failRead    error
	failQuery   error
	failWrite   error
	failUpdate  error
	readGates   map[string]chan struct{}
	readEntered chan string
	writes      []string
}

func newFaultyStore() *faultyStore {
	seq := 0
	var mu sync.Mutex
	return &faultyStore{
		MemoryStore: repository.NewMemoryStore(repository.WithMemoryIDFunc(func() string {
			mu.Lock()
			defer mu.Unlock()
			seq++
			return fmt.Sprintf("trk-%03d", seq)
		})),
		readGates:   make(map[string]chan struct{}),
		readEntered: make(chan string, 8),
	}
}

func (f *faultyStore) fail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch op {
	case "read":
		f.failRead = err
	case "query":
		f.failQuery = err
	case "write":
		f.failWrite = err
	case "update":
		f.failUpdate = err
	}
}

// gate blocks profile reads of id until the returned func is called.
func (f *faultyStore) gate(id string) func() {
	ch := make(chan struct{})
	f.mu.Lock()
	f.readGates[id] = ch
	f.mu.Unlock()
	return func() { close(ch) }
}

func (f *faultyStore) ReadDocument(ctx context.Context, collection, id string) (repository.Document, bool, error) {
	f.mu.Lock()
	err := f.failRead
	gate := f.readGates[id]
	f.mu.Unlock()

	if collection == types.CollectionProfiles {
		select {
		case f.readEntered <- id:
		default:
		}
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, false, err
	}
	return f.MemoryStore.ReadDocument(ctx, collection, id)
}

func (f *faultyStore) QueryDocuments(ctx context.Context, collection string, filter repository.Filter) ([]repository.Snapshot, error) {
	f.mu.Lock()
	err := f.failQuery
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.MemoryStore.QueryDocuments(ctx, collection, filter)
}

func (f *faultyStore) WriteDocument(ctx context.Context, collection, id string, fields repository.Document) error {
	f.mu.Lock()
	err := f.failWrite
	if err == nil && collection == types.CollectionTracks {
		f.writes = append(f.writes, id)
	}
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.MemoryStore.WriteDocument(ctx, collection, id, fields)
}

func (f *faultyStore) PartialUpdateDocument(ctx context.Context, collection, id string, fields repository.Document) error {
	f.mu.Lock()
	err := f.failUpdate
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.MemoryStore.PartialUpdateDocument(ctx, collection, id, fields)
}

func (f *faultyStore) writeOrder() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.writes...)
}

func seedProfile(store repository.Store, userID string, p model.Profile) {
	if err := store.WriteDocument(context.Background(), types.CollectionProfiles, userID, p.Document()); err != nil {
		panic(err)
	}
}

func seedTrack(store repository.Store, userID, id string, t model.NewTrack) {
	doc := t.Document()
	doc[types.FieldOwner] = userID
	doc[types.FieldCreatedAt] = "2024-01-01T00:00:00.000Z"
	if err := store.WriteDocument(context.Background(), types.CollectionTracks, id, doc); err != nil {
		panic(err)
	}
}

func sampleProfile() model.Profile {
	return model.Profile{
		Name:     "DJ Nova",
		Genres:   []string{"house", "techno"},
		Location: "Berlin",
		Balance:  100,
		Currency: "EUR",
		About:    "Late night sets",
		Social:   model.Social{Instagram: "@nova"},
	}
}
