package admin

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/pscheid92/hxzd-portal/internal/adapter/backend"
	"github.com/pscheid92/hxzd-portal/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storeCall struct {
	op   string
	id   uint
	body any
}

// fakeStore records calls and serves items from memory.
type fakeStore[T Item] struct {
	mu        sync.Mutex
	items     []T
	hasGet    bool
	listErr   error
	deleteErr error
	writeErr  error
	calls     []storeCall
}

func (f *fakeStore[T]) record(op string, id uint, body any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, storeCall{op: op, id: id, body: body})
}

func (f *fakeStore[T]) List(context.Context, backend.CredentialHolder) ([]T, error) {
	f.record("list", 0, nil)
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]T(nil), f.items...), nil
}

func (f *fakeStore[T]) Get(_ context.Context, _ backend.CredentialHolder, id uint) (*T, error) {
	if !f.hasGet {
		return nil, backend.ErrNoItemEndpoint
	}
	f.record("get", id, nil)
	for i := range f.items {
		if f.items[i].ItemID() == id {
			item := f.items[i]
			return &item, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeStore[T]) Create(_ context.Context, _ backend.CredentialHolder, body any) (*T, error) {
	f.record("create", 0, body)
	var zero T
	return &zero, f.writeErr
}

func (f *fakeStore[T]) Update(_ context.Context, _ backend.CredentialHolder, id uint, body any) (*T, error) {
	f.record("update", id, body)
	var zero T
	return &zero, f.writeErr
}

func (f *fakeStore[T]) Delete(_ context.Context, _ backend.CredentialHolder, id uint) error {
	f.record("delete", id, nil)
	return f.deleteErr
}

func (f *fakeStore[T]) ops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ops []string
	for _, c := range f.calls {
		ops = append(ops, c.op)
	}
	return ops
}

func announcements() []domain.Announcement {
	return []domain.Announcement{
		{ID: 1, Title: "maintenance"},
		{ID: 2, Title: "new season", IsPinned: true},
	}
}

func TestSection_LoadRendersItems(t *testing.T) {
	store := &fakeStore[domain.Announcement]{items: announcements()}
	sec := NewSection("announcements", store, backend.Anonymous{})
	assert.Equal(t, Idle, sec.State())

	require.NoError(t, sec.Load(context.Background()))

	assert.Equal(t, Rendered, sec.State())
	assert.Len(t, sec.Items, 2)
}

func TestSection_LoadFailure(t *testing.T) {
	boom := errors.New("connection refused")
	store := &fakeStore[domain.Announcement]{listErr: boom}
	sec := NewSection("announcements", store, backend.Anonymous{})

	err := sec.Load(context.Background())

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, LoadError, sec.State())
	assert.ErrorIs(t, sec.Err, boom)
}

func TestSection_SaveUsesUpdateForExistingItem(t *testing.T) {
	store := &fakeStore[domain.Announcement]{items: announcements()}
	sec := NewSection("announcements", store, backend.Anonymous{})
	body := map[string]any{"title": "edited"}

	require.NoError(t, sec.Save(context.Background(), 2, body))

	require.Len(t, store.calls, 1)
	assert.Equal(t, "update", store.calls[0].op)
	assert.Equal(t, uint(2), store.calls[0].id)
	assert.Equal(t, body, store.calls[0].body)
	assert.Equal(t, Loading, sec.State())
}

func TestSection_SaveUsesCreateForNewItem(t *testing.T) {
	store := &fakeStore[domain.Announcement]{}
	sec := NewSection("announcements", store, backend.Anonymous{})

	require.NoError(t, sec.Save(context.Background(), 0, map[string]any{"title": "hello"}))

	assert.Equal(t, []string{"create"}, store.ops())
}

func TestSection_SaveFailureKeepsFormOpen(t *testing.T) {
	rejected := &backend.APIError{Status: 400, Message: "名称和地址不能为空"}
	store := &fakeStore[domain.ServerEntry]{writeErr: rejected}
	sec := NewSection("servers", store, backend.Anonymous{})

	err := sec.Save(context.Background(), 0, domain.ServerEntry{})

	require.Error(t, err)
	assert.Equal(t, FormOpen, sec.State())
	assert.Equal(t, "名称和地址不能为空", backend.ErrorMessage(sec.Err, ""))
}

func TestSection_OpenFormUsesItemEndpoint(t *testing.T) {
	store := &fakeStore[domain.Announcement]{items: announcements(), hasGet: true}
	sec := NewSection("announcements", store, backend.Anonymous{})
	require.NoError(t, sec.Load(context.Background()))

	require.NoError(t, sec.OpenForm(context.Background(), 2))

	assert.Equal(t, FormOpen, sec.State())
	assert.Equal(t, "new season", sec.Editing.Title)
	assert.Equal(t, []string{"list", "get"}, store.ops())
}

func TestSection_OpenFormScansListWithoutItemEndpoint(t *testing.T) {
	store := &fakeStore[domain.WorldMap]{items: []domain.WorldMap{{ID: 4, Name: "overworld"}, {ID: 9, Name: "nether"}}}
	sec := NewSection("world maps", store, backend.Anonymous{})
	require.NoError(t, sec.Load(context.Background()))

	require.NoError(t, sec.OpenForm(context.Background(), 9))

	assert.Equal(t, "nether", sec.Editing.Name)
	assert.Equal(t, []string{"list"}, store.ops())
}

func TestSection_FindMissingItem(t *testing.T) {
	store := &fakeStore[domain.WorldMap]{items: []domain.WorldMap{{ID: 4}}}
	sec := NewSection("world maps", store, backend.Anonymous{})

	_, err := sec.Find(context.Background(), 5)

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSection_OpenEmptyFormAndCancel(t *testing.T) {
	store := &fakeStore[domain.ServerEntry]{}
	sec := NewSection("servers", store, backend.Anonymous{})
	require.NoError(t, sec.Load(context.Background()))

	require.NoError(t, sec.OpenForm(context.Background(), 0))
	assert.Equal(t, domain.ServerEntry{}, *sec.Editing)

	require.NoError(t, sec.Cancel())
	assert.Equal(t, Rendered, sec.State())
	assert.Nil(t, sec.Editing)
}

func TestSection_OpenFormRequiresRenderedList(t *testing.T) {
	sec := NewSection("servers", &fakeStore[domain.ServerEntry]{}, backend.Anonymous{})

	err := sec.OpenForm(context.Background(), 0)

	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSection_RejectedDeleteLeavesListUnchanged(t *testing.T) {
	rejected := &backend.APIError{Status: 400, Message: "不能删除自己"}
	store := &fakeStore[domain.Announcement]{items: announcements(), deleteErr: rejected}
	sec := NewSection("announcements", store, backend.Anonymous{})
	require.NoError(t, sec.Load(context.Background()))

	err := sec.Delete(context.Background(), 1)

	require.Error(t, err)
	assert.Equal(t, Rendered, sec.State())
	assert.Len(t, sec.Items, 2)
	assert.Equal(t, "不能删除自己", backend.ErrorMessage(sec.Err, ""))
}

func TestSection_DeleteThenReload(t *testing.T) {
	store := &fakeStore[domain.Announcement]{items: announcements()}
	sec := NewSection("announcements", store, backend.Anonymous{})
	require.NoError(t, sec.Load(context.Background()))

	require.NoError(t, sec.Delete(context.Background(), 1))
	assert.Equal(t, Loading, sec.State())
	require.NoError(t, sec.Load(context.Background()))

	assert.Equal(t, []string{"list", "delete", "list"}, store.ops())
	assert.Equal(t, Rendered, sec.State())
}

func TestSection_PatchSendsPartialBody(t *testing.T) {
	store := &fakeStore[domain.Announcement]{items: announcements()}
	sec := NewSection("announcements", store, backend.Anonymous{})

	require.NoError(t, sec.Patch(context.Background(), 1, map[string]any{"is_pinned": true}))

	require.Len(t, store.calls, 1)
	assert.Equal(t, map[string]any{"is_pinned": true}, store.calls[0].body)
}

func TestSection_CollectionSatisfiesStore(t *testing.T) {
	var _ Store[domain.Announcement] = backend.Collection[domain.Announcement]{}
	var _ Store[domain.ServerEntry] = backend.Collection[domain.ServerEntry]{}
	var _ Store[domain.WorldMap] = backend.Collection[domain.WorldMap]{}
}
