package service

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"path"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	collectionModel "gallery-backend/internal/domains/collection/model"
	"gallery-backend/internal/domains/item/model"
	"gallery-backend/internal/domains/item/repository"
	"gallery-backend/internal/infrastructure/events"
	"gallery-backend/internal/shared"
)

// ========================================
// COLLECTIONS
// ========================================

type memoryCollections struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*collectionModel.Collection
}

func newMemoryCollections() *memoryCollections {
	return &memoryCollections{rows: make(map[int64]*collectionModel.Collection)}
}

func (m *memoryCollections) add(owner uuid.UUID, name string, public, favorites bool) *collectionModel.Collection {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	c := &collectionModel.Collection{
		ID:          m.nextID,
		Name:        name,
		IsPublic:    public,
		IsFavorites: favorites,
		CreatedBy:   owner,
	}
	m.rows[c.ID] = c
	cp := *c
	return &cp
}

func (m *memoryCollections) FindByID(_ context.Context, id int64) (*collectionModel.Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[id]
	if !ok {
		return nil, collectionModel.ErrCollectionNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memoryCollections) FindFavorites(_ context.Context, owner uuid.UUID) (*collectionModel.Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.rows {
		if c.IsFavorites && c.CreatedBy == owner {
			cp := *c
			return &cp, nil
		}
	}
	return nil, collectionModel.ErrCollectionNotFound
}

func (m *memoryCollections) FindByNameFold(_ context.Context, owner uuid.UUID, name string) ([]collectionModel.Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []collectionModel.Collection
	for _, c := range m.rows {
		if c.CreatedBy == owner && strings.EqualFold(c.Name, name) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryCollections) public(id int64) (bool, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[id]
	if !ok {
		return false, false
	}
	return c.IsPublic, true
}

// ========================================
// ITEMS
// ========================================

type memoryRepo struct {
	mu          sync.Mutex
	nextID      int64
	clock       time.Time
	rows        map[int64]*model.Item
	collections *memoryCollections

	createErr error
}

var _ repository.RepositoryInterface = (*memoryRepo)(nil)

func newMemoryRepo(collections *memoryCollections) *memoryRepo {
	return &memoryRepo{
		rows:        make(map[int64]*model.Item),
		collections: collections,
		clock:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (r *memoryRepo) Create(_ context.Context, it *model.Item) error {
	if r.createErr != nil {
		return r.createErr
	}
	public, ok := r.collections.public(it.CollectionID)
	if !ok {
		return model.ErrCollectionNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	r.clock = r.clock.Add(time.Second)
	it.ID = r.nextID
	it.UploadDate = r.clock
	it.UpdatedAt = r.clock
	it.CollectionPublic = public
	cp := *it
	r.rows[it.ID] = &cp
	return nil
}

func (r *memoryRepo) get(id int64) (*model.Item, error) {
	r.mu.Lock()
	it, ok := r.rows[id]
	r.mu.Unlock()
	if !ok {
		return nil, model.ErrItemNotFound
	}
	cp := *it
	cp.CollectionPublic, _ = r.collections.public(cp.CollectionID)
	return &cp, nil
}

func (r *memoryRepo) FindByID(_ context.Context, id int64) (*model.Item, error) {
	return r.get(id)
}

func (r *memoryRepo) List(_ context.Context, q model.ListQuery) ([]model.Item, int64, error) {
	r.mu.Lock()
	ids := make([]int64, 0, len(r.rows))
	for id := range r.rows {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	var out []model.Item
	for _, id := range ids {
		it, err := r.get(id)
		if err != nil {
			continue
		}
		if !q.ViewAll && it.OwnerID != q.ViewerID && !it.CollectionPublic {
			continue
		}
		if q.CollectionID != nil && it.CollectionID != *q.CollectionID {
			continue
		}
		if q.ExcludeID != 0 && it.ID == q.ExcludeID {
			continue
		}
		out = append(out, *it)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UploadDate.Equal(out[j].UploadDate) {
			return out[i].UploadDate.After(out[j].UploadDate)
		}
		return out[i].ID > out[j].ID
	})

	total := int64(len(out))
	if q.Skip >= len(out) {
		return []model.Item{}, total, nil
	}
	end := q.Skip + q.Limit
	if end > len(out) {
		end = len(out)
	}
	return out[q.Skip:end], total, nil
}

func (r *memoryRepo) Update(_ context.Context, id int64, fn repository.UpdateFunc) (*model.Item, error) {
	it, err := r.get(id)
	if err != nil {
		return nil, err
	}
	if err := fn(it); err != nil {
		return nil, err
	}
	public, ok := r.collections.public(it.CollectionID)
	if !ok {
		return nil, model.ErrCollectionNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.clock = r.clock.Add(time.Second)
	it.UpdatedAt = r.clock
	it.CollectionPublic = public
	cp := *it
	r.rows[id] = &cp
	return it, nil
}

func (r *memoryRepo) Delete(_ context.Context, id int64) (*model.Item, error) {
	it, err := r.get(id)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, id)
	return it, nil
}

func (r *memoryRepo) ReferencedKeys(_ context.Context, keys []string) (map[string]struct{}, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]struct{})
	for _, k := range keys {
		for _, it := range r.rows {
			if it.FileKey == k {
				out[k] = struct{}{}
			}
		}
	}
	return out, nil
}

func (r *memoryRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

// ========================================
// CACHE, QUEUE, EVENTS
// ========================================

// memoryCache stores JSON like the Redis cache does.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string][]byte)}
}

func (c *memoryCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, dest)
}

func (c *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = data
	return nil
}

func (c *memoryCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	return nil
}

func (c *memoryCache) DeletePattern(_ context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if ok, _ := path.Match(pattern, k); ok {
			delete(c.entries, k)
		}
	}
	return nil
}

func (c *memoryCache) Ping(context.Context) error { return nil }

func (c *memoryCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

type mockEnqueuer struct {
	mock.Mock
}

func (m *mockEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	args := m.Called(task.Type(), task.Payload())
	info, _ := args.Get(0).(*asynq.TaskInfo)
	return info, args.Error(1)
}

type recorder struct {
	mu      sync.Mutex
	changes []events.Change
}

func (r *recorder) OnChange(_ context.Context, c events.Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
}

func (r *recorder) last() events.Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.changes) == 0 {
		return events.Change{}
	}
	return r.changes[len(r.changes)-1]
}

func (r *recorder) kinds() []events.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Kind, 0, len(r.changes))
	for _, c := range r.changes {
		out = append(out, c.Kind)
	}
	return out
}

// ========================================
// HELPERS
// ========================================

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func userActor() shared.Actor {
	return shared.Actor{UserID: uuid.New(), Role: shared.RoleUser}
}

func adminActor() shared.Actor {
	return shared.Actor{UserID: uuid.New(), Role: shared.RoleAdmin}
}

func strPtr(s string) *string { return &s }

func loose(s string) *model.LooseString {
	v := model.LooseString(s)
	return &v
}
