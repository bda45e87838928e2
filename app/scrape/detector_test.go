package scrape

import (
	"testing"
)

func TestDetectAgainstEmptyStore(t *testing.T) {
	fresh := []Item{
		{Title: "T1", Link: "https://example.edu/1"},
		{Title: "T2", Link: "https://example.edu/2"},
	}

	delta := Detect(fresh, map[string]struct{}{})

	if len(delta) != 2 {
		t.Fatalf("Expected full delta against empty store, got %d items", len(delta))
	}
}

func TestDetectOnlyNewLinks(t *testing.T) {
	fresh := []Item{
		{Title: "T1", Link: "https://example.edu/1"},
		{Title: "T2", Link: "https://example.edu/2"},
		{Title: "T3", Link: "https://example.edu/3"},
	}
	known := map[string]struct{}{
		"https://example.edu/1": {},
		"https://example.edu/2": {},
	}

	delta := Detect(fresh, known)

	if len(delta) != 1 {
		t.Fatalf("Expected 1 new item, got %d", len(delta))
	}
	if delta[0].Link != "https://example.edu/3" {
		t.Errorf("Expected delta to contain the new link, got: %s", delta[0].Link)
	}
}

func TestDetectTitleChangeIsNotNew(t *testing.T) {
	fresh := []Item{
		{Title: "Updated Title", Link: "https://example.edu/1"},
	}
	known := map[string]struct{}{
		"https://example.edu/1": {},
	}

	delta := Detect(fresh, known)

	if len(delta) != 0 {
		t.Errorf("Expected title change on known link to produce no delta, got %d items", len(delta))
	}
}

func TestDetectUnchangedContentIsIdempotent(t *testing.T) {
	fresh := []Item{
		{Title: "T1", Link: "https://example.edu/1"},
		{Title: "T2", Link: "https://example.edu/2"},
	}
	known := map[string]struct{}{
		"https://example.edu/1": {},
		"https://example.edu/2": {},
	}

	if delta := Detect(fresh, known); len(delta) != 0 {
		t.Errorf("Expected empty delta for unchanged content, got %d items", len(delta))
	}
	// Second pass over the same inputs must also be empty
	if delta := Detect(fresh, known); len(delta) != 0 {
		t.Errorf("Expected repeated detection to stay empty, got %d items", len(delta))
	}
}
