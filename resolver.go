package blobpack

// Resolve returns the dependency closure of the requested keys: every key
// reachable from them over the dependency edges recorded in the index,
// including the requested keys themselves.
//
// Traversal is breadth-first and the result is returned in resolution
// order. That order is a deduplicated frontier order, not a topological
// one: callers that need install ordering must sort the result themselves.
// Keys absent from the index — whether requested directly or referenced
// as a dependency — are skipped with a warning, never an error.
func (r *Reader[R]) Resolve(keys ...string) []string {
	seen := make(map[string]bool, len(keys))
	resolved := make([]string, 0, len(keys))
	queue := make([]string, len(keys))
	copy(queue, keys)

	for len(queue) > 0 {
		key := queue[0]
		queue = queue[1:]

		if seen[key] {
			continue
		}
		seen[key] = true

		rec, ok := r.idx.get(key)
		if !ok {
			r.cfg.log().Warn("dependency not found in container", "key", key)
			continue
		}
		resolved = append(resolved, key)

		for _, dep := range rec.base().Dependencies {
			if !seen[dep] {
				queue = append(queue, dep)
			}
		}
	}
	return resolved
}
