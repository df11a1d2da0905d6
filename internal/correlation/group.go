package correlation

// Groups partitions items by key and remembers the order in which keys were
// first seen, so callers emit results deterministically.
type Groups[K comparable, T any] struct {
	keys  []K
	items map[K][]T
}

// GroupBy buckets items using key. Items for which key reports false are
// skipped. Within a bucket, items keep their input order.
func GroupBy[K comparable, T any](items []T, key func(T) (K, bool)) *Groups[K, T] {
	g := &Groups[K, T]{items: make(map[K][]T)}
	for _, item := range items {
		k, ok := key(item)
		if !ok {
			continue
		}
		if _, seen := g.items[k]; !seen {
			g.keys = append(g.keys, k)
		}
		g.items[k] = append(g.items[k], item)
	}
	return g
}

// Keys returns keys in first-seen order.
func (g *Groups[K, T]) Keys() []K {
	return g.keys
}

// Get returns the bucket for k.
func (g *Groups[K, T]) Get(k K) []T {
	return g.items[k]
}

// Len returns the number of distinct keys.
func (g *Groups[K, T]) Len() int {
	return len(g.keys)
}

// Each calls fn for every bucket in first-seen key order.
func (g *Groups[K, T]) Each(fn func(key K, items []T)) {
	for _, k := range g.keys {
		fn(k, g.items[k])
	}
}
