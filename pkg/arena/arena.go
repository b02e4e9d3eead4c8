// Package arena stores values in generation-checked slots. A Handle stays
// comparable and copyable after its slot is freed; dereferencing a stale
// handle fails instead of reaching a recycled value.
package arena

// Handle identifies a slot. The zero Handle never refers to anything.
type Handle struct {
	Index      uint32
	Generation uint32
}

// IsZero reports whether h is the empty handle.
func (h Handle) IsZero() bool {
	return h.Generation == 0
}

type slot[T any] struct {
	value      T
	generation uint32
	live       bool
}

// Arena owns values of type T.
type Arena[T any] struct {
	slots []slot[T]
	free  []uint32
	count int
}

// Insert stores v and returns its handle.
func (a *Arena[T]) Insert(v T) Handle {
	if n := len(a.free); n > 0 {
		idx := a.free[n-1]
		a.free = a.free[:n-1]
		s := &a.slots[idx]
		s.generation++
		s.value = v
		s.live = true
		a.count++
		return Handle{Index: idx, Generation: s.generation}
	}
	a.slots = append(a.slots, slot[T]{value: v, generation: 1, live: true})
	a.count++
	return Handle{Index: uint32(len(a.slots) - 1), Generation: 1}
}

// Get returns the value behind h, or false when h is stale or empty.
func (a *Arena[T]) Get(h Handle) (T, bool) {
	var zero T
	if h.IsZero() || int(h.Index) >= len(a.slots) {
		return zero, false
	}
	s := &a.slots[h.Index]
	if !s.live || s.generation != h.Generation {
		return zero, false
	}
	return s.value, true
}

// Set replaces the value behind a live handle.
func (a *Arena[T]) Set(h Handle, v T) bool {
	if _, ok := a.Get(h); !ok {
		return false
	}
	a.slots[h.Index].value = v
	return true
}

// Remove frees the slot behind h. Later lookups through h fail.
func (a *Arena[T]) Remove(h Handle) bool {
	if _, ok := a.Get(h); !ok {
		return false
	}
	var zero T
	s := &a.slots[h.Index]
	s.value = zero
	s.live = false
	a.free = append(a.free, h.Index)
	a.count--
	return true
}

// Revive puts v back into the freed slot h names, under h's generation, so
// that h resolves again. It fails when the slot is live or has been reused
// since h was removed.
func (a *Arena[T]) Revive(h Handle, v T) bool {
	if h.IsZero() || int(h.Index) >= len(a.slots) {
		return false
	}
	s := &a.slots[h.Index]
	if s.live || s.generation != h.Generation {
		return false
	}
	for i, idx := range a.free {
		if idx == h.Index {
			a.free = append(a.free[:i], a.free[i+1:]...)
			break
		}
	}
	s.value = v
	s.live = true
	a.count++
	return true
}

// Len returns the number of live values.
func (a *Arena[T]) Len() int {
	return a.count
}

// Each calls fn for every live value in slot order, stopping early when
// fn returns false.
func (a *Arena[T]) Each(fn func(Handle, T) bool) {
	for i := range a.slots {
		s := &a.slots[i]
		if !s.live {
			continue
		}
		if !fn(Handle{Index: uint32(i), Generation: s.generation}, s.value) {
			return
		}
	}
}

// Handles returns the live handles in slot order.
func (a *Arena[T]) Handles() []Handle {
	out := make([]Handle, 0, a.count)
	a.Each(func(h Handle, _ T) bool {
		out = append(out, h)
		return true
	})
	return out
}
