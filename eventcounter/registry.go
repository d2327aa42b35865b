package eventcounter

// registry maps source names to the filters that claimed them. It is built
// during discovery and read-only once published.
type registry struct {
	bySource map[string][]*guardedFilter
}

func newRegistry() *registry {
	return &registry{bySource: make(map[string][]*guardedFilter)}
}

// AddInterest appends f to the source's filter list. A filter appears at
// most once per source name.
func (r *registry) AddInterest(sourceName string, f *guardedFilter) {
	for _, existing := range r.bySource[sourceName] {
		if existing == f {
			return
		}
	}
	r.bySource[sourceName] = append(r.bySource[sourceName], f)
}

// TryGetFilters returns the filters registered for the source, in
// registration order.
func (r *registry) TryGetFilters(sourceName string) ([]*guardedFilter, bool) {
	fs, ok := r.bySource[sourceName]
	return fs, ok
}

// Len returns the number of monitored source names.
func (r *registry) Len() int {
	return len(r.bySource)
}
