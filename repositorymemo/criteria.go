package repositorymemo

import (
	"context"
	"slices"

	repository "github.com/goliatone/go-repository-bun"
)

type criteriaKeyContextKey struct{}

type criteriaContextKey struct{}

// WithCriteriaKey labels the select criteria of reads made with the returned
// context. Criteria are functions and cannot be compared, so reads that pass
// criteria are only memoized when labeled: equal labels must mean equal
// criteria. Keys accumulate across nested calls.
func WithCriteriaKey(ctx context.Context, keys ...string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(keys) == 0 {
		return ctx
	}

	combined := append(criteriaKeysFromContext(ctx), keys...)
	slices.Sort(combined)
	combined = slices.Compact(combined)

	return context.WithValue(ctx, criteriaKeyContextKey{}, combined)
}

func criteriaKeysFromContext(ctx context.Context) []string {
	if ctx == nil {
		return nil
	}
	if keys, ok := ctx.Value(criteriaKeyContextKey{}).([]string); ok {
		return slices.Clone(keys)
	}
	return nil
}

// criteriaKey returns the key segment standing in for criteria. ok is false
// when criteria were passed without a label.
func criteriaKey(ctx context.Context, criteria []repository.SelectCriteria) (keys []string, ok bool) {
	if len(criteria) == 0 {
		return nil, true
	}

	keys = criteriaKeysFromContext(ctx)
	return keys, len(keys) > 0
}

// withCriteria hands criteria to the operation body. They travel in the
// context so they never become part of the cache key. Empty criteria are
// stored too, so a nested read never sees an outer call's criteria.
func withCriteria(ctx context.Context, criteria []repository.SelectCriteria) context.Context {
	return context.WithValue(ctx, criteriaContextKey{}, criteria)
}

func criteriaFromContext(ctx context.Context) []repository.SelectCriteria {
	criteria, _ := ctx.Value(criteriaContextKey{}).([]repository.SelectCriteria)
	return criteria
}
