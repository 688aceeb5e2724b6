package crawler_test

import (
	"fmt"
	"testing"

	"github.com/lukemcguire/linkwalker/crawler"
)

func TestVisitedSets(t *testing.T) {
	kinds := []crawler.VisitedKind{crawler.VisitedMemory, crawler.VisitedBloom}

	for _, kind := range kinds {
		t.Run(string(kind), func(t *testing.T) {
			set, err := crawler.NewVisitedSet(kind)
			if err != nil {
				t.Fatalf("NewVisitedSet(%q) error: %v", kind, err)
			}
			defer func() {
				if closeErr := set.Close(); closeErr != nil {
					t.Errorf("Close() error: %v", closeErr)
				}
			}()

			if !set.VisitIfNew("https://example.com/a") {
				t.Error("first visit should be new")
			}
			if set.VisitIfNew("https://example.com/a") {
				t.Error("second visit should not be new")
			}
			if !set.VisitIfNew("https://example.com/b") {
				t.Error("different key should be new")
			}
		})
	}
}

func TestNewVisitedSet_Unknown(t *testing.T) {
	if _, err := crawler.NewVisitedSet("redis"); err == nil {
		t.Error("expected error for unknown visited set kind")
	}
}

// TestBloomSetManyKeys crosses the periodic sync threshold and checks that
// no key is ever reported new twice.
func TestBloomSetManyKeys(t *testing.T) {
	set, err := crawler.NewBloomSet(10_000, 0.001)
	if err != nil {
		t.Fatalf("NewBloomSet() error: %v", err)
	}
	defer func() { _ = set.Close() }()

	for i := range 2500 {
		set.VisitIfNew(fmt.Sprintf("https://example.com/page/%d", i))
	}
	for i := range 2500 {
		if set.VisitIfNew(fmt.Sprintf("https://example.com/page/%d", i)) {
			t.Fatalf("key %d reported new after being visited", i)
		}
	}
}
