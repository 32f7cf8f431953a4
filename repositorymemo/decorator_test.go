package repositorymemo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-memoizer/memoize"
	"github.com/goliatone/go-memoizer/pkg/testsupport"
	"github.com/uptrace/bun"
)

// TestUser represents a test entity
type TestUser struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type TestPost struct {
	ID    string
	Title string
}

// mockRepository tracks method calls. Methods it does not implement fall
// through to the nil embedded interface and panic.
type mockRepository[T any] struct {
	repository.Repository[T]

	mu            sync.Mutex
	calls         []string
	criteriaSeen  []int
	getResult     T
	getError      error
	getByIDResult T
	getByIDError  error
	identResult   T
	listRecords   []T
	listTotal     int
	countResult   int
	createResult  T
	byID          map[string]T
}

func (m *mockRepository[T]) recordCall(method string, criteria int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, method)
	m.criteriaSeen = append(m.criteriaSeen, criteria)
}

func (m *mockRepository[T]) getCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *mockRepository[T]) getCriteriaSeen() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.criteriaSeen...)
}

func (m *mockRepository[T]) Get(ctx context.Context, criteria ...repository.SelectCriteria) (T, error) {
	m.recordCall("Get", len(criteria))
	return m.getResult, m.getError
}

func (m *mockRepository[T]) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (T, error) {
	m.recordCall("GetByID", len(criteria))
	if record, ok := m.byID[id]; ok {
		return record, nil
	}
	return m.getByIDResult, m.getByIDError
}

func (m *mockRepository[T]) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (T, error) {
	m.recordCall("GetByIdentifier", len(criteria))
	return m.identResult, nil
}

func (m *mockRepository[T]) List(ctx context.Context, criteria ...repository.SelectCriteria) ([]T, int, error) {
	m.recordCall("List", len(criteria))
	return m.listRecords, m.listTotal, nil
}

func (m *mockRepository[T]) Count(ctx context.Context, criteria ...repository.SelectCriteria) (int, error) {
	m.recordCall("Count", len(criteria))
	return m.countResult, nil
}

func (m *mockRepository[T]) Create(ctx context.Context, record T, criteria ...repository.InsertCriteria) (T, error) {
	m.recordCall("Create", len(criteria))
	return m.createResult, nil
}

func (m *mockRepository[T]) GetTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) (T, error) {
	m.recordCall("GetTx", len(criteria))
	return m.getResult, nil
}

func (m *mockRepository[T]) Raw(ctx context.Context, sql string, args ...any) ([]T, error) {
	m.recordCall("Raw", 0)
	return m.listRecords, nil
}

func activeOnly(q *bun.SelectQuery) *bun.SelectQuery {
	return q.Where("active = ?", true)
}

// newEnabledMemoizer returns a memoizer whose default host always caches
// into store.
func newEnabledMemoizer(store memoize.Store) *memoize.Memoizer {
	return memoize.New(memoize.WithDefaultHost(memoize.HostFunc{
		Enabled: func() bool { return true },
		Store:   func(string) memoize.Store { return store },
	}))
}

func mustNew[T any](t *testing.T, base repository.Repository[T], m *memoize.Memoizer, opts ...Option) *MemoizedRepository[T] {
	t.Helper()
	repo, err := New[T](base, m, opts...)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return repo
}

func TestNew(t *testing.T) {
	base := &mockRepository[TestUser]{}
	m := newEnabledMemoizer(memoize.NewMapStore())

	repo := mustNew[TestUser](t, base, m)

	if repo.Base() != base {
		t.Error("base repository not stored correctly")
	}

	if got := repo.Table().Name(); got != "test_user" {
		t.Errorf("expected table name test_user, got %s", got)
	}

	regs := repo.Table().Registrations()
	if len(regs) != len(memoizedOperations) {
		t.Fatalf("expected %d registrations, got %d", len(memoizedOperations), len(regs))
	}
	for _, reg := range regs {
		if reg.Level != memoize.LevelInstance {
			t.Errorf("expected instance level for %s, got %s", reg.Operation, reg.Level)
		}
		if reg.Scope.Kind() != memoize.ScopeSelf {
			t.Errorf("expected self scope for %s, got %s", reg.Operation, reg.Scope)
		}
	}

	named := mustNew[*TestUser](t, &mockRepository[*TestUser]{}, m, WithTableName("accounts"))
	if got := named.Table().Name(); got != "accounts" {
		t.Errorf("expected table name accounts, got %s", got)
	}
}

func TestMemoizedReads_Hit(t *testing.T) {
	tests := []struct {
		name      string
		operation func(*MemoizedRepository[TestUser]) (any, error)
		want      any
		wantCall  string
	}{
		{
			name: "Get",
			operation: func(r *MemoizedRepository[TestUser]) (any, error) {
				return r.Get(context.Background())
			},
			want:     TestUser{ID: "get-1", Name: "Get User"},
			wantCall: "Get",
		},
		{
			name: "GetByID",
			operation: func(r *MemoizedRepository[TestUser]) (any, error) {
				return r.GetByID(context.Background(), "user-1")
			},
			want:     TestUser{ID: "user-1", Name: "By ID"},
			wantCall: "GetByID",
		},
		{
			name: "GetByIdentifier",
			operation: func(r *MemoizedRepository[TestUser]) (any, error) {
				return r.GetByIdentifier(context.Background(), "ada")
			},
			want:     TestUser{ID: "user-2", Name: "By Identifier"},
			wantCall: "GetByIdentifier",
		},
		{
			name: "List",
			operation: func(r *MemoizedRepository[TestUser]) (any, error) {
				records, total, err := r.List(context.Background())
				return fmt.Sprintf("%d/%d", len(records), total), err
			},
			want:     "2/7",
			wantCall: "List",
		},
		{
			name: "Count",
			operation: func(r *MemoizedRepository[TestUser]) (any, error) {
				return r.Count(context.Background())
			},
			want:     42,
			wantCall: "Count",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := &mockRepository[TestUser]{
				getResult:     TestUser{ID: "get-1", Name: "Get User"},
				getByIDResult: TestUser{ID: "user-1", Name: "By ID"},
				identResult:   TestUser{ID: "user-2", Name: "By Identifier"},
				listRecords:   []TestUser{{ID: "1"}, {ID: "2"}},
				listTotal:     7,
				countResult:   42,
			}
			repo := mustNew[TestUser](t, base, newEnabledMemoizer(memoize.NewMapStore()))

			for i := 0; i < 3; i++ {
				got, err := tt.operation(repo)
				if err != nil {
					t.Fatalf("call %d failed: %v", i, err)
				}
				if got != tt.want {
					t.Errorf("call %d: expected %v, got %v", i, tt.want, got)
				}
			}

			calls := base.getCalls()
			if len(calls) != 1 || calls[0] != tt.wantCall {
				t.Errorf("expected a single %s call, got %v", tt.wantCall, calls)
			}
		})
	}
}

func TestMemoizedReads_NoHost(t *testing.T) {
	base := &mockRepository[TestUser]{countResult: 1}
	repo := mustNew[TestUser](t, base, memoize.New())

	for i := 0; i < 3; i++ {
		if _, err := repo.Count(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if got := len(base.getCalls()); got != 3 {
		t.Errorf("expected every call to reach the base repository, got %d calls", got)
	}
}

func TestMemoizedReads_ErrorsAreNotCached(t *testing.T) {
	notFound := errors.New("record not found")
	base := &mockRepository[TestUser]{getByIDError: notFound}
	repo := mustNew[TestUser](t, base, newEnabledMemoizer(memoize.NewMapStore()))

	for i := 0; i < 2; i++ {
		_, err := repo.GetByID(context.Background(), "missing")
		if !errors.Is(err, notFound) {
			t.Fatalf("expected base error to propagate unchanged, got %v", err)
		}
	}

	if got := len(base.getCalls()); got != 2 {
		t.Errorf("expected failed reads to be retried, got %d calls", got)
	}
}

func TestMemoizedReads_ArgumentsArePartOfTheKey(t *testing.T) {
	var users []TestUser
	testsupport.LoadFixtureJSON(t, testsupport.FixturePath("users.json"), &users)

	base := &mockRepository[TestUser]{byID: map[string]TestUser{}}
	for _, u := range users {
		base.byID[u.ID] = u
	}
	repo := mustNew[TestUser](t, base, newEnabledMemoizer(memoize.NewMapStore()))

	for round := 0; round < 2; round++ {
		for _, want := range users {
			got, err := repo.GetByID(context.Background(), want.ID)
			if err != nil {
				t.Fatalf("GetByID(%s) failed: %v", want.ID, err)
			}
			if got != want {
				t.Errorf("GetByID(%s) = %v, want %v", want.ID, got, want)
			}
		}
	}

	if got := len(base.getCalls()); got != len(users) {
		t.Errorf("expected one base call per id, got %d", got)
	}
}

func TestMemoizedReads_Criteria(t *testing.T) {
	t.Run("unlabeled criteria pass through", func(t *testing.T) {
		base := &mockRepository[TestUser]{listTotal: 1}
		repo := mustNew[TestUser](t, base, newEnabledMemoizer(memoize.NewMapStore()))

		for i := 0; i < 2; i++ {
			if _, _, err := repo.List(context.Background(), activeOnly); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}

		if got := len(base.getCalls()); got != 2 {
			t.Errorf("expected 2 base calls, got %d", got)
		}
	})

	t.Run("labeled criteria are memoized and forwarded", func(t *testing.T) {
		base := &mockRepository[TestUser]{listTotal: 1}
		repo := mustNew[TestUser](t, base, newEnabledMemoizer(memoize.NewMapStore()))
		ctx := WithCriteriaKey(context.Background(), "active")

		for i := 0; i < 2; i++ {
			if _, _, err := repo.List(ctx, activeOnly); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}

		seen := base.getCriteriaSeen()
		if len(seen) != 1 {
			t.Fatalf("expected 1 base call, got %d", len(seen))
		}
		if seen[0] != 1 {
			t.Errorf("expected criteria to reach the base repository, got %d", seen[0])
		}

		// different label, different entry
		other := WithCriteriaKey(context.Background(), "inactive")
		if _, _, err := repo.List(other, activeOnly); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := len(base.getCalls()); got != 2 {
			t.Errorf("expected a new base call for a new label, got %d calls", got)
		}
	})

	t.Run("reads without criteria ignore labels", func(t *testing.T) {
		base := &mockRepository[TestUser]{countResult: 3}
		repo := mustNew[TestUser](t, base, newEnabledMemoizer(memoize.NewMapStore()))

		if _, err := repo.Count(WithCriteriaKey(context.Background(), "a")); err != nil {
			t.Fatal(err)
		}
		if _, err := repo.Count(context.Background()); err != nil {
			t.Fatal(err)
		}

		if got := len(base.getCalls()); got != 1 {
			t.Errorf("expected 1 base call, got %d", got)
		}
	})
}

func TestMemoizedReads_Scopes(t *testing.T) {
	countCalls := func(t *testing.T, first, second []Option) int {
		t.Helper()
		base := &mockRepository[TestUser]{countResult: 5}
		m := newEnabledMemoizer(memoize.NewMapStore())
		a := mustNew[TestUser](t, base, m, first...)
		b := mustNew[TestUser](t, base, m, second...)

		for _, repo := range []*MemoizedRepository[TestUser]{a, b, a, b} {
			if _, err := repo.Count(context.Background()); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		return len(base.getCalls())
	}

	tests := []struct {
		name   string
		first  []Option
		second []Option
		want   int
	}{
		{"per decorator by default", nil, nil, 2},
		{"global scope shares", []Option{WithGlobalScope()}, []Option{WithGlobalScope()}, 1},
		{"equal tokens share", []Option{WithScope("tenant-1")}, []Option{WithScope("tenant-1")}, 1},
		{"different tokens do not share", []Option{WithScope("tenant-1")}, []Option{WithScope("tenant-2")}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := countCalls(t, tt.first, tt.second); got != tt.want {
				t.Errorf("expected %d base calls, got %d", tt.want, got)
			}
		})
	}
}

func TestMemoizedReads_GlobalScopeIsPerTable(t *testing.T) {
	store := memoize.NewMapStore()
	m := newEnabledMemoizer(store)

	users := mustNew[TestUser](t, &mockRepository[TestUser]{
		getByIDResult: TestUser{ID: "1", Name: "user"},
	}, m, WithGlobalScope())
	posts := mustNew[TestPost](t, &mockRepository[TestPost]{
		getByIDResult: TestPost{ID: "1", Title: "post"},
	}, m, WithGlobalScope())

	u, err := users.GetByID(context.Background(), "1")
	if err != nil || u.Name != "user" {
		t.Fatalf("unexpected user %v (err=%v)", u, err)
	}

	p, err := posts.GetByID(context.Background(), "1")
	if err != nil || p.Title != "post" {
		t.Fatalf("unexpected post %v (err=%v)", p, err)
	}

	if store.Len() != 2 {
		t.Errorf("expected separate entries per table, got %d", store.Len())
	}
}

func TestMemoizedReads_NilPointerResult(t *testing.T) {
	base := &mockRepository[*TestUser]{}
	repo := mustNew[*TestUser](t, base, newEnabledMemoizer(memoize.NewMapStore()))

	for i := 0; i < 2; i++ {
		u, err := repo.Get(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if u != nil {
			t.Errorf("expected nil record, got %v", u)
		}
	}

	if got := len(base.getCalls()); got != 1 {
		t.Errorf("expected nil results to be cached, got %d calls", got)
	}
}

func TestPassThroughOperations(t *testing.T) {
	base := &mockRepository[TestUser]{
		createResult: TestUser{ID: "new"},
		getResult:    TestUser{ID: "tx"},
	}
	repo := mustNew[TestUser](t, base, newEnabledMemoizer(memoize.NewMapStore()))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if created, err := repo.Create(ctx, TestUser{Name: "x"}); err != nil || created.ID != "new" {
			t.Fatalf("Create() = %v, %v", created, err)
		}
		if got, err := repo.GetTx(ctx, nil); err != nil || got.ID != "tx" {
			t.Fatalf("GetTx() = %v, %v", got, err)
		}
		if _, err := repo.Raw(ctx, "SELECT 1"); err != nil {
			t.Fatalf("Raw() failed: %v", err)
		}
	}

	want := []string{"Create", "GetTx", "Raw", "Create", "GetTx", "Raw"}
	calls := base.getCalls()
	if len(calls) != len(want) {
		t.Fatalf("expected calls %v, got %v", want, calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("call %d: expected %s, got %s", i, want[i], calls[i])
		}
	}
}
