package main

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gallery-backend/internal/domains/collection/model"
	itemModel "gallery-backend/internal/domains/item/model"
	"gallery-backend/internal/domains/user"
	"gallery-backend/internal/shared"
)

type fakeUsers struct{ admin *user.User }

func (f *fakeUsers) EnsureAdmin(_ context.Context, email, _, fullName string) (*user.User, error) {
	if f.admin == nil {
		f.admin = &user.User{ID: uuid.New(), Email: email, FullName: fullName, Role: user.RoleAdmin}
	}
	return f.admin, nil
}

type fakeCollections struct {
	nextID    int64
	rows      []model.Collection
	favorites *model.Collection
}

func (f *fakeCollections) Create(_ context.Context, actor shared.Actor, req model.CreateCollectionRequest) (*model.Collection, error) {
	f.nextID++
	c := model.Collection{ID: f.nextID, Name: req.Name, IsPublic: *req.IsPublic, CreatedBy: actor.UserID}
	f.rows = append(f.rows, c)
	return &c, nil
}

func (f *fakeCollections) EnsureFavorites(_ context.Context, actor shared.Actor) (*model.Collection, bool, error) {
	if f.favorites != nil {
		return f.favorites, false, nil
	}
	f.nextID++
	f.favorites = &model.Collection{ID: f.nextID, Name: "Favorites", IsFavorites: true, CreatedBy: actor.UserID}
	return f.favorites, true, nil
}

func (f *fakeCollections) FindByNameFold(_ context.Context, owner uuid.UUID, name string) ([]model.Collection, error) {
	var out []model.Collection
	for _, c := range f.rows {
		if c.CreatedBy == owner && strings.EqualFold(c.Name, name) {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeItems struct {
	uploaded []itemModel.UploadRequest
	existing []itemModel.Item
}

func (f *fakeItems) Upload(_ context.Context, _ shared.Actor, req itemModel.UploadRequest) (*itemModel.Item, error) {
	f.uploaded = append(f.uploaded, req)
	return &itemModel.Item{ID: int64(len(f.uploaded)), Filename: req.File.Filename}, nil
}

func (f *fakeItems) List(_ context.Context, _ shared.Actor, req itemModel.ListItemsRequest) (*itemModel.ListItemsResult, error) {
	var page []itemModel.Item
	for _, it := range f.existing {
		if req.CollectionID == nil || it.CollectionID == *req.CollectionID {
			page = append(page, it)
		}
	}
	total := int64(len(page))
	if req.Skip >= len(page) {
		return &itemModel.ListItemsResult{Items: []itemModel.Item{}, Total: total}, nil
	}
	page = page[req.Skip:]
	if len(page) > req.Limit {
		page = page[:req.Limit]
	}
	return &itemModel.ListItemsResult{Items: page, Total: total}, nil
}

func newSeeder() (*Seeder, *fakeCollections, *fakeItems) {
	cols := &fakeCollections{}
	items := &fakeItems{}
	return &Seeder{
		users:       &fakeUsers{},
		collections: cols,
		lookup:      cols,
		items:       items,
		pageLimit:   2,
	}, cols, items
}

func TestSeeder_RunIsIdempotent(t *testing.T) {
	s, cols, _ := newSeeder()
	ctx := context.Background()

	report, err := s.Run(ctx, "admin@example.com", "secret-password", "Admin", "")
	require.NoError(t, err)
	assert.Equal(t, len(predefinedCollections), report.CollectionsCreated)
	assert.True(t, report.FavoritesCreated)

	var private []string
	for _, c := range cols.rows {
		if !c.IsPublic {
			private = append(private, c.Name)
		}
	}
	assert.Equal(t, []string{"Personal Treasures"}, private)

	again, err := s.Run(ctx, "admin@example.com", "secret-password", "Admin", "")
	require.NoError(t, err)
	assert.Zero(t, again.CollectionsCreated)
	assert.Equal(t, len(predefinedCollections), again.CollectionsSkipped)
	assert.False(t, again.FavoritesCreated)
	assert.Len(t, cols.rows, len(predefinedCollections))
}

func TestSeeder_RequiresPassword(t *testing.T) {
	s, _, _ := newSeeder()
	_, err := s.Run(context.Background(), "admin@example.com", "", "Admin", "")
	assert.ErrorContains(t, err, "ADMIN_PASSWORD")
}

func writePNG(t *testing.T, path string) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 3))))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestSeeder_ImportsImages(t *testing.T) {
	dir := t.TempDir()
	coins := filepath.Join(dir, "coins_&_currency")
	require.NoError(t, os.Mkdir(coins, 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "unknown_folder"), 0o755))

	writePNG(t, filepath.Join(coins, "old_silver-dollar.png"))
	writePNG(t, filepath.Join(coins, "already_there.png"))
	writePNG(t, filepath.Join(dir, "unknown_folder", "ignored.png"))
	require.NoError(t, os.WriteFile(filepath.Join(coins, "notes.txt"), []byte("x"), 0o644))

	s, cols, items := newSeeder()
	ctx := context.Background()

	// run once without images so the collection ids are known
	_, err := s.Run(ctx, "admin@example.com", "pw", "Admin", "")
	require.NoError(t, err)
	coinsCol, err := cols.FindByNameFold(ctx, cols.rows[0].CreatedBy, "Coins & Currency")
	require.NoError(t, err)
	require.Len(t, coinsCol, 1)

	items.existing = []itemModel.Item{
		{ID: 90, Filename: "a.png", CollectionID: coinsCol[0].ID},
		{ID: 91, Filename: "b.png", CollectionID: coinsCol[0].ID},
		{ID: 92, Filename: "already_there.png", CollectionID: coinsCol[0].ID},
	}

	report, err := s.Run(ctx, "admin@example.com", "pw", "Admin", dir)
	require.NoError(t, err)
	assert.Equal(t, 1, report.ItemsCreated)
	assert.Equal(t, 1, report.ItemsSkipped)
	assert.Zero(t, report.ItemsFailed)

	require.Len(t, items.uploaded, 1)
	up := items.uploaded[0]
	assert.Equal(t, "old_silver-dollar.png", up.File.Filename)
	assert.Equal(t, "Old Silver Dollar", *up.Metadata.Title)
	assert.Equal(t, "Item from Coins & Currency collection", *up.Metadata.Description)
	assert.Equal(t, "Old Silver Dollar from Coins & Currency", *up.Metadata.AltText)
	assert.Equal(t, itemModel.LooseString("2"), *up.Metadata.CollectionID)
}

func TestTitleFromFilename(t *testing.T) {
	assert.Equal(t, "Old Brass Key", titleFromFilename("old_brass-key.jpg"))
	assert.Equal(t, "Élan Vital", titleFromFilename("élan_vital.png"))
	assert.Equal(t, "Untitled", titleFromFilename("__.png"))
}
