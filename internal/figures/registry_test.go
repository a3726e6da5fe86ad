package figures

import (
	"sync"
	"testing"
)

func TestRegistryIDs(t *testing.T) {
	reg := NewRegistry()

	t.Run("chapter-prefixed slug", func(t *testing.T) {
		if got := reg.ID("methods", "page_5.jpg"); got != "met-page-5-jpg" {
			t.Errorf("ID() = %q, want met-page-5-jpg", got)
		}
	})

	t.Run("same pair reuses id", func(t *testing.T) {
		first := reg.ID("methods", "page_6.jpg")
		second := reg.ID("methods", "page_6.jpg")
		if first != second {
			t.Errorf("repeat lookup minted new ID: %q vs %q", first, second)
		}
	})

	t.Run("distinct chapters distinct ids", func(t *testing.T) {
		a := reg.ID("methods", "page_7.jpg")
		b := reg.ID("results", "page_7.jpg")
		if a == b {
			t.Errorf("cross-chapter IDs should differ, both %q", a)
		}
	})

	t.Run("value collision gets suffix", func(t *testing.T) {
		// "metrics" and "methods" share the "met" prefix.
		a := reg.ID("methods", "page_8.jpg")
		b := reg.ID("metrics", "page_8.jpg")
		if a != "met-page-8-jpg" {
			t.Errorf("first ID = %q", a)
		}
		if b != "met-page-8-jpg-1" {
			t.Errorf("colliding ID = %q, want met-page-8-jpg-1", b)
		}
	})
}

func TestRegistryConcurrentMint(t *testing.T) {
	reg := NewRegistry()
	const workers = 16

	ids := make([]string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i] = reg.ID("results", "page_1.jpg")
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		if id != ids[0] {
			t.Fatalf("concurrent mints disagree: %q vs %q", id, ids[0])
		}
	}
}
