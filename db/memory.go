package db

import (
	"context"
	"sort"
	"sync"

	"github.com/evergreen-ci/speedtracker/model"
	"github.com/pkg/errors"
)

// InMemoryDatabase keeps results in process memory. Operations fail unless
// the database is connected. Inserting a result whose id is already stored
// replaces the stored result.
type InMemoryDatabase struct {
	conn        refCount
	mu          sync.RWMutex
	collections map[string][]model.ResultRecord
}

// NewInMemoryDatabase returns an empty, unconnected InMemoryDatabase.
func NewInMemoryDatabase() *InMemoryDatabase {
	return &InMemoryDatabase{collections: map[string][]model.ResultRecord{}}
}

func (m *InMemoryDatabase) Connect(_ context.Context) error {
	return m.conn.acquire(func() error { return nil })
}

func (m *InMemoryDatabase) Disconnect(_ context.Context) error {
	return m.conn.release(func() error { return nil })
}

// Connected reports whether any caller holds a connection.
func (m *InMemoryDatabase) Connected() bool { return m.conn.isOpen() }

func (m *InMemoryDatabase) Insert(ctx context.Context, opts model.InsertOptions) error {
	if err := ctx.Err(); err != nil {
		return errors.WithStack(err)
	}
	if !m.conn.isOpen() {
		return errors.New("in-memory database is not connected")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	coll := m.collections[opts.Collection]
	for _, result := range opts.Results {
		idx := -1
		for i := range coll {
			if coll[i].ID == result.ID {
				idx = i
				break
			}
		}
		if idx >= 0 {
			coll[idx] = result
			continue
		}
		coll = append(coll, result)
	}
	m.collections[opts.Collection] = coll

	return nil
}

func (m *InMemoryDatabase) Get(ctx context.Context, opts model.GetOptions) ([]model.ResultRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}
	if !m.conn.isOpen() {
		return nil, errors.New("in-memory database is not connected")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	tr := opts.Range()
	out := []model.ResultRecord{}
	for _, result := range m.collections[opts.Collection] {
		if tr.Check(result.Timestamp) {
			out = append(out, result)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })

	return out, nil
}
