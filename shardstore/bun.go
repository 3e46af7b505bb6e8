package shardstore

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-repository-shards/shardset"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

// BunDAO queries one shard database directly. T must be a bun model struct
// (not a pointer).
type BunDAO[T any] struct {
	db       bun.IDB
	idColumn string
}

// NewBunDAO returns a DAO over db. idColumn defaults to "id".
func NewBunDAO[T any](db bun.IDB, idColumn string) *BunDAO[T] {
	if idColumn == "" {
		idColumn = "id"
	}
	return &BunDAO[T]{db: db, idColumn: idColumn}
}

// Get selects the row whose id column equals id.
func (d *BunDAO[T]) Get(ctx context.Context, id string) (T, bool, error) {
	return d.selectOne(ctx, []shardset.FieldValue{{Name: d.idColumn, Value: id}})
}

// FindByUniqueFields selects the row matching every field.
func (d *BunDAO[T]) FindByUniqueFields(ctx context.Context, fields ...shardset.FieldValue) (T, bool, error) {
	if len(fields) == 0 {
		var zero T
		return zero, false, fmt.Errorf("unique lookup needs at least one field")
	}
	return d.selectOne(ctx, fields)
}

func (d *BunDAO[T]) selectOne(ctx context.Context, fields []shardset.FieldValue) (T, bool, error) {
	var record T
	q := d.db.NewSelect().Model(&record)
	for _, f := range fields {
		q = q.Where("?TableAlias.? = ?", bun.Ident(f.Name), f.Value)
	}

	if err := q.Limit(1).Scan(ctx); err != nil {
		var zero T
		if stderrors.Is(err, sql.ErrNoRows) {
			return zero, false, nil
		}
		return zero, false, err
	}
	return record, true, nil
}

// Open connects to a shard URL. Supported schemes are sqlite:// (the rest of
// the URL is the go-sqlite3 DSN) and postgres:// (passed to lib/pq as is).
func Open(shardURL string) (*bun.DB, error) {
	scheme, rest, ok := strings.Cut(shardURL, "://")
	if !ok {
		return nil, fmt.Errorf("shard url %q has no scheme", shardURL)
	}

	switch scheme {
	case "sqlite", "sqlite3":
		sqldb, err := sql.Open("sqlite3", rest)
		if err != nil {
			return nil, err
		}
		return bun.NewDB(sqldb, sqlitedialect.New()), nil

	case "postgres", "postgresql":
		sqldb, err := sql.Open("postgres", shardURL)
		if err != nil {
			return nil, err
		}
		return bun.NewDB(sqldb, pgdialect.New()), nil
	}

	return nil, fmt.Errorf("unsupported shard url scheme %q", scheme)
}
