package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"gallery-backend/internal/domains/collection/model"
	itemModel "gallery-backend/internal/domains/item/model"
	"gallery-backend/internal/domains/user"
	"gallery-backend/internal/shared"
	"gallery-backend/internal/shared/utils"
)

// predefinedCollections are created for the admin on a fresh install.
var predefinedCollections = []struct {
	Name        string
	Description string
	Public      bool
}{
	{"Models & Statues", "Collectible models, figurines, and statues from various genres and periods", true},
	{"Coins & Currency", "Rare coins, paper money, and currency from around the world", true},
	{"Stamps", "Vintage and rare postage stamps from different countries and eras", true},
	{"Sketches & Illustrations", "Original sketches, drawings, and illustrations by various artists", true},
	{"Sports Keepsakes", "Sports memorabilia, trading cards, and athletic collectibles", true},
	{"Vintage Electronics", "Classic electronic devices, gadgets, and technological artifacts", true},
	{"Postcards & Ephemera", "Vintage postcards, tickets, programs, and other paper collectibles", true},
	{"Antiques & Collectibles", "General antiques and miscellaneous collectible items", true},
	{"Personal Treasures", "Personal items with sentimental value and family heirlooms", false},
}

var seedImageExtensions = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".bmp": {}, ".webp": {}, ".tiff": {}, ".tif": {},
}

// ========================================
// DEPENDENCIES
// ========================================

type adminEnsurer interface {
	EnsureAdmin(ctx context.Context, email, password, fullName string) (*user.User, error)
}

type collectionCreator interface {
	Create(ctx context.Context, actor shared.Actor, req model.CreateCollectionRequest) (*model.Collection, error)
	EnsureFavorites(ctx context.Context, actor shared.Actor) (*model.Collection, bool, error)
}

type collectionLookup interface {
	FindByNameFold(ctx context.Context, owner uuid.UUID, name string) ([]model.Collection, error)
}

type itemUploader interface {
	Upload(ctx context.Context, actor shared.Actor, req itemModel.UploadRequest) (*itemModel.Item, error)
	List(ctx context.Context, actor shared.Actor, req itemModel.ListItemsRequest) (*itemModel.ListItemsResult, error)
}

// Seeder is idempotent: existing collections and items are skipped.
type Seeder struct {
	users       adminEnsurer
	collections collectionCreator
	lookup      collectionLookup
	items       itemUploader
	pageLimit   int
}

// Report counts what a run did.
type Report struct {
	CollectionsCreated int
	CollectionsSkipped int
	FavoritesCreated   bool
	ItemsCreated       int
	ItemsSkipped       int
	ItemsFailed        int
}

// ========================================
// STEPS
// ========================================

// Run ensures the admin, the predefined collections and the admin's Favorites.
// When imagesDir is set, every sub-folder is imported into the collection of the same name.
func (s *Seeder) Run(ctx context.Context, email, password, fullName, imagesDir string) (*Report, error) {
	if password == "" {
		return nil, fmt.Errorf("ADMIN_PASSWORD must be set to seed the admin account")
	}

	admin, err := s.users.EnsureAdmin(ctx, email, password, fullName)
	if err != nil {
		return nil, fmt.Errorf("ensure admin: %w", err)
	}
	actor := admin.Actor()
	log.Info().Str("email", admin.Email).Msg("admin account ready")

	report := &Report{}
	for _, pc := range predefinedCollections {
		existing, err := s.lookup.FindByNameFold(ctx, admin.ID, pc.Name)
		if err != nil {
			return nil, fmt.Errorf("look up collection %q: %w", pc.Name, err)
		}
		if len(existing) > 0 {
			report.CollectionsSkipped++
			continue
		}

		desc, public := pc.Description, pc.Public
		if _, err := s.collections.Create(ctx, actor, model.CreateCollectionRequest{
			Name:        pc.Name,
			Description: &desc,
			IsPublic:    &public,
		}); err != nil {
			return nil, fmt.Errorf("create collection %q: %w", pc.Name, err)
		}
		report.CollectionsCreated++
		log.Info().Str("collection", pc.Name).Msg("collection created")
	}

	_, created, err := s.collections.EnsureFavorites(ctx, actor)
	if err != nil {
		return nil, fmt.Errorf("ensure favorites: %w", err)
	}
	report.FavoritesCreated = created

	if imagesDir != "" {
		if err := s.importImages(ctx, actor, imagesDir, report); err != nil {
			return nil, err
		}
	}

	return report, nil
}

func (s *Seeder) importImages(ctx context.Context, actor shared.Actor, dir string, report *Report) error {
	folders, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read images dir: %w", err)
	}

	for _, folder := range folders {
		if !folder.IsDir() {
			continue
		}
		name := folderCollectionName(folder.Name())

		matches, err := s.lookup.FindByNameFold(ctx, actor.UserID, name)
		if err != nil {
			return fmt.Errorf("look up collection %q: %w", name, err)
		}
		if len(matches) == 0 {
			log.Warn().Str("folder", folder.Name()).Msg("no collection for folder, skipped")
			continue
		}
		col := matches[0]

		existing, err := s.existingFilenames(ctx, actor, col.ID)
		if err != nil {
			return err
		}

		files, err := os.ReadDir(filepath.Join(dir, folder.Name()))
		if err != nil {
			return fmt.Errorf("read folder %q: %w", folder.Name(), err)
		}
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			if _, ok := seedImageExtensions[strings.ToLower(filepath.Ext(f.Name()))]; !ok {
				continue
			}
			if _, ok := existing[utils.SanitizeFilename(f.Name())]; ok {
				report.ItemsSkipped++
				continue
			}

			if err := s.uploadFile(ctx, actor, col, filepath.Join(dir, folder.Name(), f.Name())); err != nil {
				report.ItemsFailed++
				log.Error().Err(err).Str("file", f.Name()).Msg("seed upload failed")
				continue
			}
			report.ItemsCreated++
		}
	}
	return nil
}

func (s *Seeder) uploadFile(ctx context.Context, actor shared.Actor, col model.Collection, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	base := filepath.Base(path)
	title := titleFromFilename(base)
	description := fmt.Sprintf("Item from %s collection", col.Name)
	alt := fmt.Sprintf("%s from %s", title, col.Name)
	collectionID := itemModel.LooseString(fmt.Sprint(col.ID))

	_, err = s.items.Upload(ctx, actor, itemModel.UploadRequest{
		Metadata: itemModel.MetadataInput{
			Title:        &title,
			Description:  &description,
			AltText:      &alt,
			CollectionID: &collectionID,
		},
		File: &itemModel.FileInput{Filename: base, Data: data},
	})
	return err
}

func (s *Seeder) existingFilenames(ctx context.Context, actor shared.Actor, collectionID int64) (map[string]struct{}, error) {
	out := make(map[string]struct{})
	for skip := 0; ; skip += s.pageLimit {
		page, err := s.items.List(ctx, actor, itemModel.ListItemsRequest{
			Skip:         skip,
			Limit:        s.pageLimit,
			CollectionID: &collectionID,
		})
		if err != nil {
			return nil, fmt.Errorf("list items of collection %d: %w", collectionID, err)
		}
		for _, it := range page.Items {
			out[it.Filename] = struct{}{}
		}
		if len(page.Items) == 0 || int64(skip+len(page.Items)) >= page.Total {
			return out, nil
		}
	}
}

// folderCollectionName maps "coins_&_currency" to "coins & currency"; lookups are case-insensitive.
func folderCollectionName(folder string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(folder, "_", " ")), " ")
}

// titleFromFilename turns "old_brass-key.jpg" into "Old Brass Key".
func titleFromFilename(name string) string {
	name = strings.TrimSuffix(name, filepath.Ext(name))
	words := strings.Fields(strings.NewReplacer("_", " ", "-", " ").Replace(name))
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	if len(words) == 0 {
		return "Untitled"
	}
	return strings.Join(words, " ")
}
