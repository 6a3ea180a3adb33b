package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"

	"gallery-backend/internal/domains/item/model"
	"gallery-backend/internal/shared/utils"
	"gallery-backend/pkg/database"
)

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) RepositoryInterface {
	return &postgresRepository{pool: pool}
}

const itemColumns = `
	i.id, i.title, i.description, i.alt_text, i.veneration,
	i.commission_date, i.owned_since, i.monitory_value,
	i.filename, i.file_key, i.file_size, i.mime_type, i.width, i.height,
	i.owner_id, i.collection_id, i.previous_collection_id,
	i.upload_date, i.updated_at, c.is_public
`

const itemFrom = ` FROM items i JOIN collections c ON c.id = i.collection_id`

func scanItem(row pgx.Row) (*model.Item, error) {
	var it model.Item
	err := row.Scan(
		&it.ID, &it.Title, &it.Description, &it.AltText, &it.Veneration,
		&it.CommissionDate, &it.OwnedSince, &it.MonitoryValue,
		&it.Filename, &it.FileKey, &it.FileSize, &it.MimeType, &it.Width, &it.Height,
		&it.OwnerID, &it.CollectionID, &it.PreviousCollectionID,
		&it.UploadDate, &it.UpdatedAt, &it.CollectionPublic,
	)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *postgresRepository) Create(ctx context.Context, it *model.Item) error {
	query := `
		INSERT INTO items (
			title, description, alt_text, veneration,
			commission_date, owned_since, monitory_value,
			filename, file_key, file_size, mime_type, width, height,
			owner_id, collection_id, previous_collection_id
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7,
			$8, $9, $10, $11, $12, $13,
			$14, $15, $16
		)
		RETURNING id, upload_date, updated_at,
			(SELECT is_public FROM collections WHERE id = $15)
	`
	err := r.pool.QueryRow(ctx, query,
		it.Title, it.Description, it.AltText, it.Veneration,
		it.CommissionDate, it.OwnedSince, it.MonitoryValue,
		it.Filename, it.FileKey, it.FileSize, it.MimeType, it.Width, it.Height,
		it.OwnerID, it.CollectionID, it.PreviousCollectionID,
	).Scan(&it.ID, &it.UploadDate, &it.UpdatedAt, &it.CollectionPublic)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return model.ErrCollectionNotFound
		}
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

func (r *postgresRepository) FindByID(ctx context.Context, id int64) (*model.Item, error) {
	query := `SELECT ` + itemColumns + itemFrom + ` WHERE i.id = $1`
	it, err := scanItem(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrItemNotFound
		}
		return nil, fmt.Errorf("query item: %w", err)
	}
	return it, nil
}

func (r *postgresRepository) List(ctx context.Context, q model.ListQuery) ([]model.Item, int64, error) {
	var (
		args    utils.Args
		clauses []string
	)
	if !q.ViewAll {
		clauses = append(clauses, "(i.owner_id = "+args.Add(q.ViewerID)+" OR c.is_public)")
	}
	if q.CollectionID != nil {
		clauses = append(clauses, "i.collection_id = "+args.Add(*q.CollectionID))
	}
	if q.ExcludeID != 0 {
		clauses = append(clauses, "i.id <> "+args.Add(q.ExcludeID))
	}
	where := utils.Where(clauses)

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+itemFrom+where, args.Values()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count items: %w", err)
	}

	// id breaks upload_date ties so pages never overlap.
	query := `SELECT ` + itemColumns + itemFrom + where +
		` ORDER BY i.upload_date DESC, i.id DESC OFFSET ` + args.Add(q.Skip) + ` LIMIT ` + args.Add(q.Limit)

	rows, err := r.pool.Query(ctx, query, args.Values()...)
	if err != nil {
		return nil, 0, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	items := make([]model.Item, 0, q.Limit)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate items: %w", err)
	}
	return items, total, nil
}

func (r *postgresRepository) Update(ctx context.Context, id int64, fn UpdateFunc) (*model.Item, error) {
	return database.WithTransactionResult(ctx, r.pool, func(tx pgx.Tx) (*model.Item, error) {
		query := `SELECT ` + itemColumns + itemFrom + ` WHERE i.id = $1 FOR UPDATE OF i`
		it, err := scanItem(tx.QueryRow(ctx, query, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, model.ErrItemNotFound
			}
			return nil, fmt.Errorf("lock item: %w", err)
		}

		if err := fn(it); err != nil {
			return nil, err
		}

		update := `
			UPDATE items SET
				title = $2, description = $3, alt_text = $4, veneration = $5,
				commission_date = $6, owned_since = $7, monitory_value = $8,
				filename = $9, file_key = $10, file_size = $11, mime_type = $12,
				width = $13, height = $14,
				collection_id = $15, previous_collection_id = $16,
				updated_at = NOW()
			WHERE id = $1
			RETURNING updated_at, (SELECT is_public FROM collections WHERE id = $15)
		`
		err = tx.QueryRow(ctx, update, id,
			it.Title, it.Description, it.AltText, it.Veneration,
			it.CommissionDate, it.OwnedSince, it.MonitoryValue,
			it.Filename, it.FileKey, it.FileSize, it.MimeType,
			it.Width, it.Height,
			it.CollectionID, it.PreviousCollectionID,
		).Scan(&it.UpdatedAt, &it.CollectionPublic)
		if err != nil {
			if database.IsForeignKeyViolation(err) {
				return nil, model.ErrCollectionNotFound
			}
			return nil, fmt.Errorf("update item: %w", err)
		}
		return it, nil
	})
}

func (r *postgresRepository) Delete(ctx context.Context, id int64) (*model.Item, error) {
	return database.WithTransactionResult(ctx, r.pool, func(tx pgx.Tx) (*model.Item, error) {
		query := `SELECT ` + itemColumns + itemFrom + ` WHERE i.id = $1 FOR UPDATE OF i`
		it, err := scanItem(tx.QueryRow(ctx, query, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, model.ErrItemNotFound
			}
			return nil, fmt.Errorf("lock item: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM items WHERE id = $1`, id); err != nil {
			return nil, fmt.Errorf("delete item: %w", err)
		}
		return it, nil
	})
}

func (r *postgresRepository) ReferencedKeys(ctx context.Context, keys []string) (map[string]struct{}, error) {
	out := make(map[string]struct{})
	if len(keys) == 0 {
		return out, nil
	}

	rows, err := r.pool.Query(ctx, `SELECT file_key FROM items WHERE file_key = ANY($1)`, pq.Array(keys))
	if err != nil {
		return nil, fmt.Errorf("query referenced keys: %w", err)
	}
	keysFound, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collect referenced keys: %w", err)
	}
	for _, k := range keysFound {
		out[k] = struct{}{}
	}
	return out, nil
}
