package record

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/clim-up/wikaya/internal/platform/apperr"
	"github.com/clim-up/wikaya/internal/platform/db"
)

// Queryable is satisfied by *pgxpool.Pool, *pgxpool.Conn and pgx.Tx.
type Queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type PGRepository[T any] struct {
	db    Queryable
	table Table[T]
	now   func() time.Time
}

func NewPGRepository[T any](q Queryable, table Table[T]) *PGRepository[T] {
	return &PGRepository[T]{db: q, table: table, now: time.Now}
}

func (r *PGRepository[T]) scan(row pgx.Row) (*T, error) {
	v := new(T)
	if err := row.Scan(r.table.scanDest(v)...); err != nil {
		return nil, err
	}
	return v, nil
}

func (r *PGRepository[T]) Create(ctx context.Context, v *T) error {
	b := r.table.Base(v)
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	now := r.now().UTC()
	b.CreatedAt, b.UpdatedAt = now, now

	if _, err := r.db.Exec(ctx, r.table.InsertSQL(), r.table.insertArgs(v)...); err != nil {
		return fmt.Errorf("insert %s: %w", r.table.Name, db.Classify(err))
	}
	return nil
}

func (r *PGRepository[T]) Get(ctx context.Context, owner, id uuid.UUID) (*T, error) {
	v, err := r.scan(r.db.QueryRow(ctx, r.table.GetSQL(), id, owner))
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", r.table.Name, db.Classify(err))
	}
	return v, nil
}

func (r *PGRepository[T]) Update(ctx context.Context, v *T) error {
	r.table.Base(v).UpdatedAt = r.now().UTC()
	tag, err := r.db.Exec(ctx, r.table.UpdateSQL(), r.table.updateArgs(v)...)
	if err != nil {
		return fmt.Errorf("update %s: %w", r.table.Name, db.Classify(err))
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(fmt.Errorf("update %s: no row", r.table.Name))
	}
	return nil
}

func (r *PGRepository[T]) Delete(ctx context.Context, owner, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, r.table.DeleteSQL(), id, owner)
	if err != nil {
		return fmt.Errorf("delete %s: %w", r.table.Name, db.Classify(err))
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(fmt.Errorf("delete %s: no row", r.table.Name))
	}
	return nil
}

func (r *PGRepository[T]) List(ctx context.Context, owner uuid.UUID, limit, offset int) ([]*T, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, r.table.CountSQL(), owner).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", r.table.Name, db.Classify(err))
	}
	items, err := r.query(ctx, r.table.ListSQL(), owner, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *PGRepository[T]) ListBy(ctx context.Context, owner uuid.UUID, column string, value any) ([]*T, error) {
	sql, err := r.table.ListBySQL(column)
	if err != nil {
		return nil, err
	}
	return r.query(ctx, sql, owner, value)
}

func (r *PGRepository[T]) query(ctx context.Context, sql string, args ...any) ([]*T, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", r.table.Name, db.Classify(err))
	}
	defer rows.Close()

	items := []*T{}
	for rows.Next() {
		v, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", r.table.Name, err)
		}
		items = append(items, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", r.table.Name, db.Classify(err))
	}
	return items, nil
}
