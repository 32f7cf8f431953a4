package repositorymemo

import (
	"context"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-memoizer/memoize"
)

// Interface assertion to ensure MemoizedRepository implements Repository[T]
var _ repository.Repository[any] = (*MemoizedRepository[any])(nil)

// Names of the memoized read operations on the repository table.
const (
	OpGet             = "Get"
	OpGetByID         = "GetByID"
	OpGetByIdentifier = "GetByIdentifier"
	OpList            = "List"
	OpCount           = "Count"
)

var memoizedOperations = []string{OpGet, OpGetByID, OpGetByIdentifier, OpList, OpCount}

// listResult keeps records and total together so a List hit never mixes
// values from different calls.
type listResult[T any] struct {
	Records []T
	Total   int
}

// scopeToken carries the table name so explicit scopes of different
// repositories never share entries.
type scopeToken struct {
	Table string
	Token any
}

type config struct {
	tableName string
	scoped    bool
	token     any
}

// Option configures a MemoizedRepository.
type Option func(*config)

// WithScope shares results between every repository of the same table
// memoized with an equal token.
func WithScope(token any) Option {
	return func(c *config) {
		c.scoped = true
		c.token = token
	}
}

// WithGlobalScope shares results between every repository of the same table.
func WithGlobalScope() Option {
	return func(c *config) {
		c.scoped = true
		c.token = nil
	}
}

// WithTableName overrides the table name derived from the record type.
func WithTableName(name string) Option {
	return func(c *config) {
		if name != "" {
			c.tableName = name
		}
	}
}

// MemoizedRepository decorates a base repository so that reads are served
// from the active query cache. Without options, results are cached per
// decorator. Writes, transactional reads and raw queries go straight to the
// base repository.
type MemoizedRepository[T any] struct {
	repository.Repository[T]

	table *memoize.Table
}

// New wraps base and memoizes its reads through memoizer.
func New[T any](base repository.Repository[T], memoizer *memoize.Memoizer, opts ...Option) (*MemoizedRepository[T], error) {
	cfg := config{tableName: tableNameFor[T]()}
	for _, opt := range opts {
		opt(&cfg)
	}

	r := &MemoizedRepository[T]{Repository: base}

	r.table = memoizer.NewTable(cfg.tableName).
		Define(OpGet, r.get).
		Define(OpGetByID, r.getByID).
		Define(OpGetByIdentifier, r.getByIdentifier).
		Define(OpList, r.list).
		Define(OpCount, r.count)

	var registerOpts []memoize.RegisterOption
	if cfg.scoped {
		registerOpts = append(registerOpts, memoize.WithScope(scopeToken{Table: cfg.tableName, Token: cfg.token}))
	}

	for _, name := range memoizedOperations {
		if err := r.table.Memoize(name, registerOpts...); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Base returns the decorated repository.
func (r *MemoizedRepository[T]) Base() repository.Repository[T] {
	return r.Repository
}

// Table returns the method table the reads are registered on.
func (r *MemoizedRepository[T]) Table() *memoize.Table {
	return r.table
}

// Get retrieves a single record using the provided criteria.
func (r *MemoizedRepository[T]) Get(ctx context.Context, criteria ...repository.SelectCriteria) (T, error) {
	keys, ok := criteriaKey(ctx, criteria)
	if !ok {
		return r.Repository.Get(ctx, criteria...)
	}
	return memoize.Call[T](withCriteria(ctx, criteria), r.table, r, OpGet, keys)
}

// GetByID retrieves a record by ID with optional criteria.
func (r *MemoizedRepository[T]) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (T, error) {
	keys, ok := criteriaKey(ctx, criteria)
	if !ok {
		return r.Repository.GetByID(ctx, id, criteria...)
	}
	return memoize.Call[T](withCriteria(ctx, criteria), r.table, r, OpGetByID, id, keys)
}

// GetByIdentifier retrieves a record by identifier with optional criteria.
func (r *MemoizedRepository[T]) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (T, error) {
	keys, ok := criteriaKey(ctx, criteria)
	if !ok {
		return r.Repository.GetByIdentifier(ctx, identifier, criteria...)
	}
	return memoize.Call[T](withCriteria(ctx, criteria), r.table, r, OpGetByIdentifier, identifier, keys)
}

// List retrieves multiple records and the total count.
func (r *MemoizedRepository[T]) List(ctx context.Context, criteria ...repository.SelectCriteria) ([]T, int, error) {
	keys, ok := criteriaKey(ctx, criteria)
	if !ok {
		return r.Repository.List(ctx, criteria...)
	}

	res, err := memoize.Call[listResult[T]](withCriteria(ctx, criteria), r.table, r, OpList, keys)
	if err != nil {
		return nil, 0, err
	}
	return res.Records, res.Total, nil
}

// Count returns the number of records matching the criteria.
func (r *MemoizedRepository[T]) Count(ctx context.Context, criteria ...repository.SelectCriteria) (int, error) {
	keys, ok := criteriaKey(ctx, criteria)
	if !ok {
		return r.Repository.Count(ctx, criteria...)
	}
	return memoize.Call[int](withCriteria(ctx, criteria), r.table, r, OpCount, keys)
}

func (r *MemoizedRepository[T]) get(ctx context.Context, _ any, _ ...any) (any, error) {
	record, err := r.Repository.Get(ctx, criteriaFromContext(ctx)...)
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (r *MemoizedRepository[T]) getByID(ctx context.Context, _ any, args ...any) (any, error) {
	record, err := r.Repository.GetByID(ctx, args[0].(string), criteriaFromContext(ctx)...)
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (r *MemoizedRepository[T]) getByIdentifier(ctx context.Context, _ any, args ...any) (any, error) {
	record, err := r.Repository.GetByIdentifier(ctx, args[0].(string), criteriaFromContext(ctx)...)
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (r *MemoizedRepository[T]) list(ctx context.Context, _ any, _ ...any) (any, error) {
	records, total, err := r.Repository.List(ctx, criteriaFromContext(ctx)...)
	if err != nil {
		return nil, err
	}
	return listResult[T]{Records: records, Total: total}, nil
}

func (r *MemoizedRepository[T]) count(ctx context.Context, _ any, _ ...any) (any, error) {
	total, err := r.Repository.Count(ctx, criteriaFromContext(ctx)...)
	if err != nil {
		return nil, err
	}
	return total, nil
}
