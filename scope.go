package zuice

import (
	"maps"
	"reflect"
	"sync"
)

// Scope is a persistent caching context.
//
// A Scope is a view over a shared backing cache, pinned to a signature: the
// set of (key, value) pairs that are in effect. A value cached under the
// signature S is visible from any view whose signature contains S, so values
// cached under the empty signature (the singleton scope) are visible
// everywhere, while values cached under {Name: "Bob"} are only visible while
// Name is "Bob".
//
// Scopes are never mutated in place: Enter and InScope return new views.
type Scope struct {
	signature Values
	cache     *scopeCache
}

// NewScope returns an empty singleton scope with its own backing cache.
func NewScope() *Scope {
	return &Scope{
		signature: Values{},
		cache:     newScopeCache(),
	}
}

// Enter returns a view whose signature is the union of this signature and
// values, with values overriding existing pairs for the same key. Each of the
// supplied values is cached under the new signature, so resolving one of
// the keys returns the supplied value directly.
func (s *Scope) Enter(values Values) *Scope {
	signature := maps.Clone(s.signature)
	for k, v := range values {
		signature[k] = v
	}

	entered := &Scope{signature: signature, cache: s.cache}
	for k, v := range values {
		entered.Set(k, v)
	}

	return entered
}

// InScope returns a view over the same backing cache pinned to signature.
func (s *Scope) InScope(signature Values) *Scope {
	return &Scope{signature: maps.Clone(signature), cache: s.cache}
}

// Signature returns a copy of the pairs in effect for this view.
func (s *Scope) Signature() Values {
	return maps.Clone(s.signature)
}

// Get returns the value cached for key that is visible from this view.
func (s *Scope) Get(key Key) (any, bool) {
	return s.cache.lookup(key, s.signature)
}

// Contains reports whether a value for key is visible from this view.
func (s *Scope) Contains(key Key) bool {
	_, ok := s.Get(key)
	return ok
}

// Set caches value for key under this view's signature and returns the cached
// value. If a value is already cached under exactly this signature it is kept
// and returned instead, so concurrent resolutions agree on one instance.
func (s *Scope) Set(key Key, value any) any {
	return s.cache.store(key, s.signature, value)
}

// scopeCache is the backing store shared by every view of a Scope.
type scopeCache struct {
	mu      sync.RWMutex
	entries map[Key][]scopeEntry
}

type scopeEntry struct {
	signature Values
	value     any
}

func newScopeCache() *scopeCache {
	return &scopeCache{entries: make(map[Key][]scopeEntry)}
}

// lookup returns the most specific entry for key whose signature is
// contained in signature.
func (c *scopeCache) lookup(key Key, signature Values) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var (
		found bool
		best  scopeEntry
	)
	for _, entry := range c.entries[key] {
		if !containsSignature(signature, entry.signature) {
			continue
		}
		if !found || len(entry.signature) > len(best.signature) {
			best = entry
			found = true
		}
	}

	return best.value, found
}

func (c *scopeCache) store(key Key, signature Values, value any) any {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, entry := range c.entries[key] {
		if len(entry.signature) == len(signature) && containsSignature(signature, entry.signature) {
			return entry.value
		}
	}

	c.entries[key] = append(c.entries[key], scopeEntry{
		signature: maps.Clone(signature),
		value:     value,
	})
	return value
}

// containsSignature reports whether every pair of sub is present in super.
func containsSignature(super, sub Values) bool {
	if len(sub) > len(super) {
		return false
	}
	for k, v := range sub {
		other, ok := super[k]
		if !ok || !sameValue(v, other) {
			return false
		}
	}
	return true
}

// sameValue compares scope values. Comparable values use ==; maps, slices
// and funcs are compared by identity; other values, such as structs holding
// slices, are compared with reflect.DeepEqual.
func sameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Comparable() {
		return safeEqual(a, b)
	}

	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	switch va.Kind() {
	case reflect.Map, reflect.Func:
		return va.Pointer() == vb.Pointer()
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	default:
		return reflect.DeepEqual(a, b)
	}
}

// safeEqual compares two values of the same comparable type. Structs and
// arrays holding interface fields may still panic on ==; those fall back to
// reflect.DeepEqual.
func safeEqual(a, b any) (equal bool) {
	defer func() {
		if recover() != nil {
			equal = reflect.DeepEqual(a, b)
		}
	}()
	return a == b
}
