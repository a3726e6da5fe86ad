package figures

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

var slugRe = regexp.MustCompile(`[^a-z0-9]`)

type refKey struct {
	chapter  string
	filename string
}

// Registry assigns stable figure identifiers for one run. IDs are scoped by
// (chapter, filename): the same image cited from two chapters gets two
// distinct IDs, while repeat references within a chapter reuse the first
// assignment. Check-then-insert runs under one lock so concurrent chapter
// workers cannot race a duplicate ID into existence.
type Registry struct {
	mu  sync.Mutex
	ids map[refKey]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{ids: make(map[refKey]string)}
}

// ID returns the identifier for a chapter+filename pair, minting one on
// first use. New IDs are the chapter's 3-character prefix plus the filename
// slug; a value collision with an ID already minted for another chapter gets
// an incrementing numeric suffix.
func (r *Registry) ID(chapter, filename string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := refKey{chapter: chapter, filename: filename}
	if id, ok := r.ids[key]; ok {
		return id
	}

	prefix := chapter
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}
	base := strings.ToLower(prefix) + "-" + slugRe.ReplaceAllString(strings.ToLower(filename), "-")

	id := base
	for n := 1; r.valueTaken(id); n++ {
		id = fmt.Sprintf("%s-%d", base, n)
	}
	r.ids[key] = id
	return id
}

func (r *Registry) valueTaken(id string) bool {
	for _, v := range r.ids {
		if v == id {
			return true
		}
	}
	return false
}
