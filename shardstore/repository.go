package shardstore

import (
	"context"
	"database/sql"
	stderrors "errors"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-repository-shards/shardset"
	"github.com/uptrace/bun"
)

// RecordReader is the read surface of a go-repository-bun repository that a
// shard needs.
type RecordReader[T any] interface {
	Get(ctx context.Context, criteria ...repository.SelectCriteria) (T, error)
	GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (T, error)
}

// Interface assertion to ensure every repository.Repository[T] can back a shard
var _ RecordReader[any] = (repository.Repository[any])(nil)

// RepositoryDAO adapts one shard's repository to shardset.DAO.
type RepositoryDAO[T any] struct {
	reader     RecordReader[T]
	isNotFound func(error) bool
}

// RepositoryOption customises a RepositoryDAO.
type RepositoryOption[T any] func(*RepositoryDAO[T])

// WithNotFound replaces the predicate that maps repository errors to a
// clean miss.
func WithNotFound[T any](fn func(error) bool) RepositoryOption[T] {
	return func(d *RepositoryDAO[T]) {
		if fn != nil {
			d.isNotFound = fn
		}
	}
}

// NewRepositoryDAO wraps reader.
func NewRepositoryDAO[T any](reader RecordReader[T], opts ...RepositoryOption[T]) *RepositoryDAO[T] {
	d := &RepositoryDAO[T]{reader: reader, isNotFound: IsNotFound}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Get loads the record by primary key.
func (d *RepositoryDAO[T]) Get(ctx context.Context, id string) (T, bool, error) {
	return d.result(d.reader.GetByID(ctx, id))
}

// FindByUniqueFields loads the record matching every field.
func (d *RepositoryDAO[T]) FindByUniqueFields(ctx context.Context, fields ...shardset.FieldValue) (T, bool, error) {
	criteria := make([]repository.SelectCriteria, 0, len(fields))
	for _, f := range fields {
		criteria = append(criteria, WhereField(f))
	}
	return d.result(d.reader.Get(ctx, criteria...))
}

func (d *RepositoryDAO[T]) result(record T, err error) (T, bool, error) {
	if err != nil {
		var zero T
		if d.isNotFound(err) {
			return zero, false, nil
		}
		return zero, false, err
	}
	return record, true, nil
}

// WhereField builds an equality criteria on the model's table.
func WhereField(f shardset.FieldValue) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.? = ?", bun.Ident(f.Name), f.Value)
	}
}

// IsNotFound reports sql.ErrNoRows or a go-errors not-found category.
func IsNotFound(err error) bool {
	if stderrors.Is(err, sql.ErrNoRows) {
		return true
	}
	var e *goerrors.Error
	if stderrors.As(err, &e) {
		return e.Category == goerrors.CategoryNotFound
	}
	return false
}
