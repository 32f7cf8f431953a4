package memoize

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
)

// Level tells whether an operation is called on instances or on the table
// itself.
type Level int

const (
	LevelInstance Level = iota
	LevelType
)

func (l Level) String() string {
	switch l {
	case LevelInstance:
		return "instance"
	case LevelType:
		return "type"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// Registration records one memoized operation. It is created by Memoize and
// never changes afterwards.
type Registration struct {
	Table     string
	Operation string
	Level     Level
	Scope     Scope

	original Operation
}

// RegisterOption configures a single registration.
type RegisterOption func(*registerConfig)

type registerConfig struct {
	scope Scope
}

// WithScope shares cached results between every receiver registered with an
// equal token.
func WithScope(token any) RegisterOption {
	return func(c *registerConfig) {
		c.scope = ExplicitScope(token)
	}
}

type entry struct {
	body     Operation
	original Operation
	reg      *Registration
}

// Table is the explicit method table of a type. Operations are defined on it
// once at setup time, memoized by name, and invoked through Call and
// CallStatic. A table created with Extends sees its parent's operations
// unless it defines its own under the same name.
type Table struct {
	name   string
	parent *Table
	memo   *Memoizer
	host   Host

	mu       sync.Mutex
	instance *xsync.MapOf[string, *entry]
	static   *xsync.MapOf[string, *entry]
}

// TableOption configures a Table.
type TableOption func(*Table)

// Extends makes the table inherit every operation visible on parent.
func Extends(parent *Table) TableOption {
	return func(t *Table) {
		t.parent = parent
	}
}

// WithTableHost sets the host used for calls whose receiver is the table,
// i.e. type-level calls.
func WithTableHost(host Host) TableOption {
	return func(t *Table) {
		t.host = host
	}
}

// NewTable creates an empty method table bound to the memoizer.
func (m *Memoizer) NewTable(name string, opts ...TableOption) *Table {
	t := &Table{
		name:     name,
		memo:     m,
		instance: xsync.NewMapOf[string, *entry](),
		static:   xsync.NewMapOf[string, *entry](),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Name returns the table name.
func (t *Table) Name() string {
	return t.name
}

// Parent returns the table this one extends, or nil.
func (t *Table) Parent() *Table {
	return t.parent
}

// Connection implements Connector for type-level calls. The host is
// inherited from the parent when the table has none.
func (t *Table) Connection() Host {
	for cur := t; cur != nil; cur = cur.parent {
		if cur.host != nil {
			return cur.host
		}
	}
	return nil
}

// Define adds or replaces an instance-level operation on this table.
// Replacing a memoized operation drops its registration.
func (t *Table) Define(name string, op Operation) *Table {
	t.define(LevelInstance, name, op)
	return t
}

// DefineStatic adds or replaces a type-level operation on this table.
func (t *Table) DefineStatic(name string, op Operation) *Table {
	t.define(LevelType, name, op)
	return t
}

func (t *Table) define(level Level, name string, op Operation) {
	if name == "" {
		panic("memoize: empty operation name")
	}
	if op == nil {
		panic("memoize: nil operation " + name)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if prev, ok := t.ops(level).Load(name); ok && prev.reg != nil {
		t.memo.unregister(t, *prev.reg)
	}
	t.ops(level).Store(name, &entry{body: op, original: op})
}

// Defines reports whether name resolves to an operation at level, either on
// this table or on an ancestor.
func (t *Table) Defines(name string, level Level) bool {
	_, ok := t.lookup(level, name)
	return ok
}

// Memoize routes calls of name through the memoizer. The instance level is
// used when an instance operation named name is visible, the type level
// otherwise. It fails with ErrOperationNotFound when neither exists and with
// ErrAlreadyMemoized when this table already memoized name at that level.
func (t *Table) Memoize(name string, opts ...RegisterOption) error {
	cfg := registerConfig{scope: SelfScope()}
	for _, opt := range opts {
		opt(&cfg)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.Defines(name, LevelInstance) {
		return t.memoizeAt(LevelInstance, name, cfg.scope)
	}
	if t.Defines(name, LevelType) {
		return t.memoizeAt(LevelType, name, cfg.scope)
	}

	return notFoundError(t.name, name)
}

// MemoizeGlobally memoizes name with GlobalScope at every level where it is
// visible.
func (t *Table) MemoizeGlobally(name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var errs []error
	found := false

	for _, level := range []Level{LevelInstance, LevelType} {
		if !t.Defines(name, level) {
			continue
		}
		found = true
		if err := t.memoizeAt(level, name, GlobalScope); err != nil {
			errs = append(errs, err)
		}
	}

	if !found {
		return notFoundError(t.name, name)
	}

	return errors.Join(errs...)
}

// memoizeAt wraps the body visible at level. An ancestor wrapper is never
// wrapped again: the new entry starts from the ancestor's original body.
// Callers hold t.mu.
func (t *Table) memoizeAt(level Level, name string, scope Scope) error {
	ops := t.ops(level)
	if own, ok := ops.Load(name); ok && own.reg != nil {
		return alreadyMemoizedError(t.name, name, level)
	}

	visible, _ := t.lookup(level, name)

	reg := &Registration{
		Table:     t.name,
		Operation: name,
		Level:     level,
		Scope:     scope,
		original:  visible.original,
	}

	ops.Store(name, &entry{
		original: visible.original,
		reg:      reg,
		body: func(ctx context.Context, recv any, args ...any) (any, error) {
			return t.memo.invoke(ctx, reg, recv, args)
		},
	})
	t.memo.register(t, *reg)

	return nil
}

// Call invokes the instance-level operation name on recv.
func (t *Table) Call(ctx context.Context, recv any, name string, args ...any) (any, error) {
	e, ok := t.lookup(LevelInstance, name)
	if !ok {
		return nil, notFoundError(t.name, name)
	}
	return e.body(ctx, recv, args...)
}

// CallStatic invokes the type-level operation name with the table as
// receiver.
func (t *Table) CallStatic(ctx context.Context, name string, args ...any) (any, error) {
	e, ok := t.lookup(LevelType, name)
	if !ok {
		return nil, notFoundError(t.name, name)
	}
	return e.body(ctx, t, args...)
}

// Registration returns the registration this table made for name at level.
// Registrations inherited from ancestors are not reported.
func (t *Table) Registration(name string, level Level) (Registration, bool) {
	e, ok := t.ops(level).Load(name)
	if !ok || e.reg == nil {
		return Registration{}, false
	}
	return *e.reg, true
}

// Registrations lists the registrations made on this table.
func (t *Table) Registrations() []Registration {
	var regs []Registration
	for _, level := range []Level{LevelInstance, LevelType} {
		t.ops(level).Range(func(_ string, e *entry) bool {
			if e.reg != nil {
				regs = append(regs, *e.reg)
			}
			return true
		})
	}
	sortRegistrations(regs)
	return regs
}

func (t *Table) lookup(level Level, name string) (*entry, bool) {
	for cur := t; cur != nil; cur = cur.parent {
		if e, ok := cur.ops(level).Load(name); ok {
			return e, true
		}
	}
	return nil, false
}

func (t *Table) ops(level Level) *xsync.MapOf[string, *entry] {
	if level == LevelType {
		return t.static
	}
	return t.instance
}
