// Package registry implements the Symbol Registry (C3): a concurrent,
// ordered store per top-level kind, with per-name wakers so consumers can
// await a symbol that hasn't arrived yet instead of polling.
package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Table is one kind's store: a by-name map, a sorted name index, and
// per-name wakers. It is
// generic so the registry can stand up independent tables for raw
// identities, published signatures, and finalised bodies without
// duplicating the locking/waking logic.
type Table[T any] struct {
	mu       sync.Mutex
	byName   map[string]T
	sorted   []string
	wakers   map[string][]chan struct{}
	finished bool
}

func NewTable[T any]() *Table[T] {
	return &Table[T]{
		byName: make(map[string]T),
		wakers: make(map[string][]chan struct{}),
	}
}

// DuplicateFunc decides what to do about a name collision. It returns an
// error to poison both the existing and incoming entries; a
// nil error means the insert is allowed to replace the existing entry
// (used when a later phase republishes the same name with a richer form,
// e.g. Codeless -> Finalized).
type DuplicateFunc[T any] func(existing, incoming T) error

// Add inserts item under name. On collision, dup is consulted; if it
// returns an error the collision itself becomes a poison error. Firing
// wakers and updating the sorted index happen inside the same critical
// section as the insert, so registration is atomic.
func (t *Table[T]) Add(name string, item T, dup DuplicateFunc[T]) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, ok := t.byName[name]; ok {
		if dup == nil {
			return fmt.Errorf("duplicate definition of %q", name)
		}
		if err := dup(existing, item); err != nil {
			return err
		}
	} else {
		t.sorted = append(t.sorted, name)
		sort.Strings(t.sorted)
	}
	t.byName[name] = item
	t.fireWakersLocked(name)
	return nil
}

func (t *Table[T]) fireWakersLocked(name string) {
	for _, ch := range t.wakers[name] {
		close(ch)
	}
	delete(t.wakers, name)
}

// Get returns the current value for name without suspending.
func (t *Table[T]) Get(name string) (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.byName[name]
	return v, ok
}

// Wait resolves as soon as name is present, suspending the caller's
// goroutine on a channel otherwise. After Finish, every Wait for a name
// that never arrived resolves instead of hanging.
func (t *Table[T]) Wait(ctx context.Context, name string) (T, error) {
	t.mu.Lock()
	if v, ok := t.byName[name]; ok {
		t.mu.Unlock()
		return v, nil
	}
	if t.finished {
		t.mu.Unlock()
		var zero T
		return zero, fmt.Errorf("symbol not found: %s", name)
	}
	ch := make(chan struct{})
	t.wakers[name] = append(t.wakers[name], ch)
	t.mu.Unlock()

	select {
	case <-ch:
		t.mu.Lock()
		v, ok := t.byName[name]
		t.mu.Unlock()
		if !ok {
			return v, fmt.Errorf("symbol not found: %s", name)
		}
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Finish marks the table closed: every still-pending waker fires exactly
// once so missing-symbol errors surface instead of deadlocking, and every
// subsequent Wait for a missing name returns immediately.
func (t *Table[T]) Finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.finished = true
	for name := range t.wakers {
		t.fireWakersLocked(name)
	}
}

// Sorted returns names in deterministic order, for error reporting.
func (t *Table[T]) Sorted() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.sorted))
	copy(out, t.sorted)
	return out
}

// Len reports how many entries are currently published.
func (t *Table[T]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byName)
}
