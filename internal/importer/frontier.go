package importer

// Frontier is the per-job queue of discovered-but-unfetched URLs plus the
// visited set. Priority is binary: high-value paths go to the front, everything
// else appends. Within a tier, discovery order is preserved. It is private,
// in-memory, single-goroutine state; nothing here is safe for concurrent use
// and nothing survives a restart.
type Frontier struct {
	entries []string
	queued  map[string]struct{}
	visited map[string]struct{}
}

// NewFrontier creates an empty frontier.
func NewFrontier() *Frontier {
	return &Frontier{
		queued:  make(map[string]struct{}),
		visited: make(map[string]struct{}),
	}
}

// PushBack appends a normalized URL unless it is already queued or visited.
func (f *Frontier) PushBack(normalized string) bool {
	if !f.admit(normalized) {
		return false
	}
	f.entries = append(f.entries, normalized)
	return true
}

// PushFront inserts a normalized URL at the head of the queue unless it is
// already queued or visited.
func (f *Frontier) PushFront(normalized string) bool {
	if !f.admit(normalized) {
		return false
	}
	f.entries = append([]string{normalized}, f.entries...)
	return true
}

func (f *Frontier) admit(normalized string) bool {
	if normalized == "" {
		return false
	}
	if _, ok := f.queued[normalized]; ok {
		return false
	}
	if _, ok := f.visited[normalized]; ok {
		return false
	}
	f.queued[normalized] = struct{}{}
	return true
}

// Pop removes and returns the head of the queue, marking it visited.
func (f *Frontier) Pop() (string, bool) {
	if len(f.entries) == 0 {
		return "", false
	}
	head := f.entries[0]
	f.entries = f.entries[1:]
	delete(f.queued, head)
	f.visited[head] = struct{}{}
	return head, true
}

// MarkVisited records a URL as already processed without queuing it. The feed
// fast path uses this so a later traditional crawl skips imported products.
func (f *Frontier) MarkVisited(normalized string) {
	if normalized == "" {
		return
	}
	f.visited[normalized] = struct{}{}
}

// Visited reports whether the URL was popped or pre-marked.
func (f *Frontier) Visited(normalized string) bool {
	_, ok := f.visited[normalized]
	return ok
}

// Len returns the number of queued entries.
func (f *Frontier) Len() int {
	return len(f.entries)
}
