package data

import (
	"context"
	"errors"
	"log/slog"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // registers the postgres dialect
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jmoiron/sqlx"
)

const (
	opCreate          = "CREATE"
	opCreateWithBooks = "CREATE_WITH_BOOKS"
	opRead            = "READ"
	opReadMulti       = "READ_MULTI"
	opReadWithBooks   = "READ_WITH_BOOKS"
	opUpdate          = "UPDATE"
	opDelete          = "DELETE"
	opCount           = "COUNT"

	logMsgOperationSucceeded = "repository operation succeeded"
	logMsgOperationMissed    = "repository operation found no record"
	logMsgOperationFailed    = "repository operation failed"
	logAttrOperation         = "operation"
	logAttrEntity            = "entity"
	logAttrID                = "id"
	logAttrSuccess           = "success"
	logAttrError             = "error"
	logAttrCount             = "count"

	colID           = "id"
	dialectPostgres = "postgres"
)

var dialect = goqu.Dialect(dialectPostgres)

// Entity is a persisted row with a database-assigned identifier.
type Entity interface {
	Identity() int64
}

// Builder turns a creation payload into the row to insert.
type Builder[T any] interface {
	Build() T
}

// Patch applies the fields present in a partial payload onto an existing row.
type Patch[T any] interface {
	Apply(*T)
}

// Repository provides create/get/list/update/remove/count for one table.
// T is the row type, C its creation payload and U its partial update payload.
// Column mapping comes from the `db` struct tags; columns tagged
// `goqu:"skipinsert"` or `goqu:"skipupdate"` are filled in by the database.
type Repository[T Entity, C Builder[T], U Patch[T]] struct {
	db     *sqlx.DB
	logger *slog.Logger
	table  string
	entity string
}

func newRepository[T Entity, C Builder[T], U Patch[T]](db *sqlx.DB, logger *slog.Logger, table, entity string) Repository[T, C, U] {
	return Repository[T, C, U]{
		db:     db,
		logger: logger,
		table:  table,
		entity: entity,
	}
}

// Create inserts the row built from input and returns it with its generated
// identifier and timestamps. Failures roll the transaction back.
func (r Repository[T, C, U]) Create(ctx context.Context, input C) (*T, error) {
	query, args, err := dialect.Insert(r.table).Prepared(true).
		Rows(input.Build()).
		Returning(goqu.Star()).
		ToSQL()
	if err != nil {
		r.logOperation(ctx, opCreate, 0, err)
		return nil, err
	}

	var created T
	err = withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		return tx.GetContext(ctx, &created, query, args...)
	})
	if err != nil {
		err = classify(err)
		r.logOperation(ctx, opCreate, 0, err)
		return nil, err
	}

	r.logOperation(ctx, opCreate, created.Identity(), nil)
	return &created, nil
}

// Get retrieves a single row by its primary key.
// Returns ErrRecordNotFound if no row with the given id exists.
func (r Repository[T, C, U]) Get(ctx context.Context, id int64) (*T, error) {
	if id < 1 {
		return nil, ErrRecordNotFound
	}

	query, args, err := r.selectQuery().Where(goqu.C(colID).Eq(id)).ToSQL()
	if err != nil {
		r.logOperation(ctx, opRead, id, err)
		return nil, err
	}

	var row T
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		err = classify(err)
		r.logOperation(ctx, opRead, id, err)
		return nil, err
	}

	r.logOperation(ctx, opRead, id, nil)
	return &row, nil
}

// List returns one page of rows ordered by id.
func (r Repository[T, C, U]) List(ctx context.Context, filters Filters) ([]*T, error) {
	ds := r.selectQuery().
		Order(goqu.C(colID).Asc()).
		Offset(uint(filters.Skip)).
		Limit(uint(filters.Limit))

	return r.selectMany(ctx, opReadMulti, ds)
}

// Update applies input onto a copy of existing, persists every mutable column
// and returns the stored row. existing is left untouched and failures roll the
// transaction back.
func (r Repository[T, C, U]) Update(ctx context.Context, existing *T, input U) (*T, error) {
	merged := *existing
	input.Apply(&merged)
	id := merged.Identity()

	query, args, err := dialect.Update(r.table).Prepared(true).
		Set(merged).
		Where(goqu.C(colID).Eq(id)).
		Returning(goqu.Star()).
		ToSQL()
	if err != nil {
		r.logOperation(ctx, opUpdate, id, err)
		return nil, err
	}

	var updated T
	err = withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		return tx.GetContext(ctx, &updated, query, args...)
	})
	if err != nil {
		err = classify(err)
		r.logOperation(ctx, opUpdate, id, err)
		return nil, err
	}

	r.logOperation(ctx, opUpdate, id, nil)
	return &updated, nil
}

// Remove deletes the row with the given id and returns it.
// Returns ErrRecordNotFound if no matching row exists.
func (r Repository[T, C, U]) Remove(ctx context.Context, id int64) (*T, error) {
	if id < 1 {
		return nil, ErrRecordNotFound
	}

	query, args, err := dialect.Delete(r.table).Prepared(true).
		Where(goqu.C(colID).Eq(id)).
		Returning(goqu.Star()).
		ToSQL()
	if err != nil {
		r.logOperation(ctx, opDelete, id, err)
		return nil, err
	}

	var deleted T
	err = withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		return tx.GetContext(ctx, &deleted, query, args...)
	})
	if err != nil {
		err = classify(err)
		r.logOperation(ctx, opDelete, id, err)
		return nil, err
	}

	r.logOperation(ctx, opDelete, id, nil)
	return &deleted, nil
}

// Count returns the number of rows in the table.
func (r Repository[T, C, U]) Count(ctx context.Context) (int, error) {
	query, args, err := dialect.From(r.table).Prepared(true).
		Select(goqu.COUNT(goqu.Star())).
		ToSQL()
	if err != nil {
		r.logOperation(ctx, opCount, 0, err)
		return 0, err
	}

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		r.logOperation(ctx, opCount, 0, err)
		return 0, err
	}

	r.logOperation(ctx, opCount, 0, nil, slog.Int(logAttrCount, count))
	return count, nil
}

func (r Repository[T, C, U]) selectQuery() *goqu.SelectDataset {
	return dialect.From(r.table).Prepared(true)
}

// selectWhere returns every row matching all expressions, ordered by id.
// An empty result is an empty slice, never an error.
func (r Repository[T, C, U]) selectWhere(ctx context.Context, operation string, expressions ...exp.Expression) ([]*T, error) {
	ds := r.selectQuery().Where(expressions...).Order(goqu.C(colID).Asc())
	return r.selectMany(ctx, operation, ds)
}

// selectOne returns the first row matching all expressions.
func (r Repository[T, C, U]) selectOne(ctx context.Context, operation string, expressions ...exp.Expression) (*T, error) {
	query, args, err := r.selectQuery().Where(expressions...).Order(goqu.C(colID).Asc()).Limit(1).ToSQL()
	if err != nil {
		r.logOperation(ctx, operation, 0, err)
		return nil, err
	}

	var row T
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		err = classify(err)
		r.logOperation(ctx, operation, 0, err)
		return nil, err
	}

	r.logOperation(ctx, operation, row.Identity(), nil)
	return &row, nil
}

func (r Repository[T, C, U]) selectMany(ctx context.Context, operation string, ds *goqu.SelectDataset) ([]*T, error) {
	query, args, err := ds.ToSQL()
	if err != nil {
		r.logOperation(ctx, operation, 0, err)
		return nil, err
	}

	rows := []*T{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logOperation(ctx, operation, 0, err)
		return nil, err
	}

	r.logOperation(ctx, operation, 0, nil, slog.Int(logAttrCount, len(rows)))
	return rows, nil
}

// logOperation writes one structured record per repository operation.
// A miss is logged at info level; store failures at error level.
func (r Repository[T, C, U]) logOperation(ctx context.Context, operation string, id int64, err error, extra ...slog.Attr) {
	if r.logger == nil {
		return
	}

	attrs := []slog.Attr{
		slog.String(logAttrOperation, operation),
		slog.String(logAttrEntity, r.entity),
	}
	if id > 0 {
		attrs = append(attrs, slog.Int64(logAttrID, id))
	}
	attrs = append(attrs, slog.Bool(logAttrSuccess, err == nil))
	attrs = append(attrs, extra...)

	switch {
	case err == nil:
		r.logger.LogAttrs(ctx, slog.LevelInfo, logMsgOperationSucceeded, attrs...)
	case errors.Is(err, ErrRecordNotFound):
		r.logger.LogAttrs(ctx, slog.LevelInfo, logMsgOperationMissed, attrs...)
	default:
		attrs = append(attrs, slog.String(logAttrError, err.Error()))
		r.logger.LogAttrs(ctx, slog.LevelError, logMsgOperationFailed, attrs...)
	}
}
