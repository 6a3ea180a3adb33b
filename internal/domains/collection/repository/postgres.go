package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gallery-backend/internal/domains/collection/model"
	"gallery-backend/internal/shared"
	"gallery-backend/internal/shared/utils"
	"gallery-backend/pkg/database"
)

const favoritesIndex = "uq_collections_favorites_owner"

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) RepositoryInterface {
	return &postgresRepository{pool: pool}
}

const collectionColumns = `
	id, name, description, is_public, is_favorites,
	created_by, created_at, updated_at
`

func scanCollection(row pgx.Row) (*model.Collection, error) {
	var c model.Collection
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Description,
		&c.IsPublic,
		&c.IsFavorites,
		&c.CreatedBy,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *postgresRepository) Create(ctx context.Context, c *model.Collection) error {
	query := `
		INSERT INTO collections (name, description, is_public, is_favorites, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, query,
		c.Name, c.Description, c.IsPublic, c.IsFavorites, c.CreatedBy,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err, favoritesIndex) {
			return model.ErrFavoritesExists
		}
		return fmt.Errorf("insert collection: %w", err)
	}
	return nil
}

func (r *postgresRepository) FindByID(ctx context.Context, id int64) (*model.Collection, error) {
	query := `SELECT ` + collectionColumns + ` FROM collections WHERE id = $1`
	c, err := scanCollection(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrCollectionNotFound
		}
		return nil, fmt.Errorf("query collection: %w", err)
	}
	return c, nil
}

func (r *postgresRepository) List(ctx context.Context, actor shared.Actor, skip, limit int) ([]model.Collection, int64, error) {
	var (
		args    utils.Args
		clauses []string
	)
	if !actor.IsAdmin() {
		clauses = append(clauses, "(created_by = "+args.Add(actor.UserID)+" OR is_public)")
	}
	where := utils.Where(clauses)

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM collections`+where, args.Values()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count collections: %w", err)
	}

	query := `SELECT ` + collectionColumns + ` FROM collections` + where +
		` ORDER BY created_at DESC, id DESC OFFSET ` + args.Add(skip) + ` LIMIT ` + args.Add(limit)

	rows, err := r.pool.Query(ctx, query, args.Values()...)
	if err != nil {
		return nil, 0, fmt.Errorf("list collections: %w", err)
	}
	defer rows.Close()

	collections := make([]model.Collection, 0, limit)
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan collection: %w", err)
		}
		collections = append(collections, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate collections: %w", err)
	}
	return collections, total, nil
}

func (r *postgresRepository) Update(ctx context.Context, c *model.Collection) error {
	query := `
		UPDATE collections
		SET name = $2, description = $3, is_public = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.pool.QueryRow(ctx, query, c.ID, c.Name, c.Description, c.IsPublic).Scan(&c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ErrCollectionNotFound
		}
		return fmt.Errorf("update collection: %w", err)
	}
	return nil
}

func (r *postgresRepository) DeleteCascade(ctx context.Context, id int64) ([]string, error) {
	return database.WithTransactionResult(ctx, r.pool, func(tx pgx.Tx) ([]string, error) {
		// Lock the collection row; item moves into it take a key-share lock through the FK and wait.
		var favorites bool
		err := tx.QueryRow(ctx, `SELECT is_favorites FROM collections WHERE id = $1 FOR UPDATE`, id).Scan(&favorites)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, model.ErrCollectionNotFound
			}
			return nil, fmt.Errorf("lock collection: %w", err)
		}

		if favorites {
			var held bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM items WHERE collection_id = $1)`, id).Scan(&held); err != nil {
				return nil, fmt.Errorf("count items: %w", err)
			}
			if held {
				return nil, model.ErrFavoritesNotEmpty
			}
		}

		rows, err := tx.Query(ctx, `DELETE FROM items WHERE collection_id = $1 RETURNING file_key`, id)
		if err != nil {
			return nil, fmt.Errorf("delete items: %w", err)
		}
		keys, err := pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return nil, fmt.Errorf("collect file keys: %w", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM collections WHERE id = $1`, id); err != nil {
			return nil, fmt.Errorf("delete collection: %w", err)
		}
		return keys, nil
	})
}

func (r *postgresRepository) FindFavorites(ctx context.Context, owner uuid.UUID) (*model.Collection, error) {
	query := `SELECT ` + collectionColumns + ` FROM collections WHERE created_by = $1 AND is_favorites`
	c, err := scanCollection(r.pool.QueryRow(ctx, query, owner))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrCollectionNotFound
		}
		return nil, fmt.Errorf("query favorites: %w", err)
	}
	return c, nil
}

func (r *postgresRepository) FindByNameFold(ctx context.Context, owner uuid.UUID, name string) ([]model.Collection, error) {
	query := `SELECT ` + collectionColumns + `
		FROM collections
		WHERE created_by = $1 AND lower(name) = lower($2)
		ORDER BY id`
	rows, err := r.pool.Query(ctx, query, owner, name)
	if err != nil {
		return nil, fmt.Errorf("query collections by name: %w", err)
	}
	defer rows.Close()

	var out []model.Collection
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, fmt.Errorf("scan collection: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *postgresRepository) MarkFavorites(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE collections SET is_favorites = TRUE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		if database.IsUniqueViolation(err, favoritesIndex) {
			return model.ErrFavoritesExists
		}
		return fmt.Errorf("mark favorites: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrCollectionNotFound
	}
	return nil
}

func (r *postgresRepository) CatalogRows(ctx context.Context, id int64) ([]model.CatalogRow, error) {
	query := `
		SELECT id, title, description, alt_text, veneration,
		       commission_date, owned_since, monitory_value::text,
		       filename, mime_type, file_size, width, height, upload_date
		FROM items
		WHERE collection_id = $1
		ORDER BY upload_date DESC, id DESC
	`
	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("query catalog: %w", err)
	}
	defer rows.Close()

	var out []model.CatalogRow
	for rows.Next() {
		var row model.CatalogRow
		if err := rows.Scan(
			&row.ItemID, &row.Title, &row.Description, &row.AltText, &row.Veneration,
			&row.CommissionDate, &row.OwnedSince, &row.MonitoryValue,
			&row.Filename, &row.MimeType, &row.FileSize, &row.Width, &row.Height, &row.UploadDate,
		); err != nil {
			return nil, fmt.Errorf("scan catalog row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
