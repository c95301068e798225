// Package resource implements a trimmed resource manager for sample and
// instrument payloads, a lock-free single-drainer command queue, and the
// sequence driver that glues ZSEQ playback to a bank of voices.
//
// Manager is not a cache: Get takes a reference that the returned Handle's
// Release drops, and Unload with outstanding references waits a bounded time
// for them to drain, then returns a FailedPrecondition status rather than
// aborting.
package resource

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/pinebranch/brrengine/status"
)

// MapID identifies a resource, independent of how it was loaded.
type MapID uint64

// PoolID groups resources for byte-budget accounting. DefaultPool is used
// for any resource registered without an explicit pool membership.
type PoolID uint64

const DefaultPool PoolID = 0

// ByteSized is implemented by anything a Manager can track pool usage for.
type ByteSized interface {
	ByteUsage() uint64
}

type entry struct {
	resource  any
	byteUsage uint64
	pool      PoolID
	refs      atomic.Int32
}

type poolInfo struct {
	capacityBytes int64
	usedBytes     int64
}

// Manager holds loaded resources behind a shared-reader/exclusive-writer
// lock: Get takes the read side and never blocks other readers; Register,
// RegisterPool, and Unload take the write side.
type Manager struct {
	mu        sync.RWMutex
	resources map[MapID]*entry
	pools     map[PoolID]*poolInfo
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{
		resources: make(map[MapID]*entry),
		pools:     make(map[PoolID]*poolInfo),
	}
}

// Handle is a ref-counted reference to a resource of type T. Release must be
// called exactly once when the caller is done with the value.
type Handle[T any] struct {
	entry *entry
	value T
}

// Value returns the held resource.
func (h Handle[T]) Value() T { return h.value }

// Release drops this handle's reference. A resource with zero references
// becomes eligible for Unload.
func (h Handle[T]) Release() {
	h.entry.refs.Add(-1)
}

// Register stores a resource under id, sized for pool accounting by
// usageBytes, optionally counted against pool instead of DefaultPool.
func (m *Manager) Register(id MapID, res any, usageBytes uint64, pool PoolID) status.Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.resources[id]; exists {
		return status.FailedPreconditionf("resource %d already registered", id)
	}
	if st := m.addToPoolLocked(pool, int64(usageBytes)); !st.IsOK() {
		return st
	}
	m.resources[id] = &entry{resource: res, byteUsage: usageBytes, pool: pool}
	log.Debug("resource registered", "id", id, "pool", pool, "bytes", usageBytes)
	return status.Ok()
}

// Get returns a live handle to the resource stored under id, incrementing
// its reference count. The type parameter must match the type Register
// stored, or this is a precondition violation (the original's
// static_type_assert has no safe Go runtime analogue beyond a type assertion
// failure).
func Get[T any](m *Manager, id MapID) status.Result[Handle[T]] {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.resources[id]
	if !ok {
		return status.Err[Handle[T]](status.ResourceUnobtainablef("resource %d not loaded", id))
	}
	value, ok := e.resource.(T)
	if !ok {
		return status.Err[Handle[T]](status.InvalidArgumentf("resource %d does not match requested type", id))
	}
	e.refs.Add(1)
	return status.From(Handle[T]{entry: e, value: value})
}

// unloadSpinInterval and unloadSpinAttempts bound Unload's wait for
// outstanding references to drain; this is not a true spin lock (Go
// goroutines don't promise progress the way OS threads scheduled on real
// cores do), just a short backoff before giving up.
const (
	unloadSpinInterval = time.Millisecond
	unloadSpinAttempts = 200
)

// Unload removes the resource stored under id, waiting (bounded) for
// outstanding handles to release first. Returns a Status rather than the
// original's abort, since unloading a resource with live references is a
// caller bug this package chooses to surface instead of crash on.
func (m *Manager) Unload(id MapID) status.Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.resources[id]
	if !ok {
		return status.ResourceUnobtainablef("resource %d not loaded", id)
	}

	for attempt := 0; e.refs.Load() > 0; attempt++ {
		if attempt >= unloadSpinAttempts {
			return status.FailedPreconditionf("resource %d unloaded with %d outstanding references", id, e.refs.Load())
		}
		time.Sleep(unloadSpinInterval)
	}

	m.addToPoolLocked(e.pool, -int64(e.byteUsage))
	delete(m.resources, id)
	log.Debug("resource unloaded", "id", id, "pool", e.pool)
	return status.Ok()
}

// RegisterPool registers pool with a byte budget of sizeBytes. Re-registering
// an existing pool with a smaller budget than its current usage is an error.
func (m *Manager) RegisterPool(pool PoolID, sizeBytes int64) status.Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.pools[pool]; ok && existing.usedBytes > sizeBytes {
		return status.FailedPreconditionf("pool %d already uses %d bytes, cannot shrink to %d", pool, existing.usedBytes, sizeBytes)
	}
	if existing, ok := m.pools[pool]; ok {
		existing.capacityBytes = sizeBytes
		return status.Ok()
	}
	m.pools[pool] = &poolInfo{capacityBytes: sizeBytes}
	return status.Ok()
}

// GetPoolUsageBytes reports the bytes currently charged to pool.
func (m *Manager) GetPoolUsageBytes(pool PoolID) status.Result[int64] {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.pools[pool]
	if !ok {
		return status.Err[int64](status.ResourceUnobtainablef("pool %d not registered", pool))
	}
	return status.From(p.usedBytes)
}

// addToPoolLocked adjusts pool's usage by delta (may be negative), failing
// if the pool has a registered budget and the new usage would exceed it.
// Callers must already hold m.mu for writing. Resources registered against
// an unregistered pool are tracked without a budget check.
func (m *Manager) addToPoolLocked(pool PoolID, delta int64) status.Status {
	p, ok := m.pools[pool]
	if !ok {
		return status.Ok()
	}
	if p.usedBytes+delta > p.capacityBytes && delta > 0 {
		return status.OutOfMemoryf("pool %d budget %d exceeded by %d bytes", pool, p.capacityBytes, p.usedBytes+delta-p.capacityBytes)
	}
	p.usedBytes += delta
	return status.Ok()
}
