package testutil

import (
	"testing"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/coursework/pkg/model"
)

// AssertVideoCount verifies the expected number of videos.
func AssertVideoCount(t *testing.T, c model.Course, expected int) {
	t.Helper()
	if got := c.TotalVideos(); got != expected {
		t.Errorf("expected %d videos, got %d", expected, got)
	}
}

// AssertNoDuplicateIDs verifies module and video IDs are unique.
func AssertNoDuplicateIDs(t *testing.T, c model.Course) {
	t.Helper()
	seen := make(map[string]bool)
	for _, m := range c.Modules {
		if seen[m.ID] {
			t.Errorf("duplicate module ID: %s", m.ID)
		}
		seen[m.ID] = true
		for _, v := range m.Videos {
			if seen[v.ID] {
				t.Errorf("duplicate video ID: %s", v.ID)
			}
			seen[v.ID] = true
		}
	}
}

// AssertUnlockedPrefix verifies that unlocked videos form a prefix of the
// playback order.
func AssertUnlockedPrefix(t *testing.T, c model.Course) {
	t.Helper()
	locked := ""
	for _, m := range c.Modules {
		for _, v := range m.Videos {
			switch {
			case !v.Unlocked && locked == "":
				locked = v.ID
			case v.Unlocked && locked != "":
				t.Errorf("video %s is unlocked after locked video %s", v.ID, locked)
				return
			}
		}
	}
}

// AssertUnlockedCount verifies the number of unlocked videos.
func AssertUnlockedCount(t *testing.T, c model.Course, expected int) {
	t.Helper()
	if got := len(UnlockedIDs(c)); got != expected {
		t.Errorf("expected %d unlocked videos, got %d", expected, got)
	}
}

// AssertJSONEqual compares two values after JSON round-tripping.
func AssertJSONEqual(t *testing.T, expected, actual interface{}) {
	t.Helper()

	expectedJSON, err := json.Marshal(expected)
	if err != nil {
		t.Fatalf("failed to marshal expected: %v", err)
	}
	actualJSON, err := json.Marshal(actual)
	if err != nil {
		t.Fatalf("failed to marshal actual: %v", err)
	}
	if string(expectedJSON) != string(actualJSON) {
		t.Errorf("JSON mismatch:\nexpected: %s\nactual:   %s", expectedJSON, actualJSON)
	}
}

// UnlockedIDs returns the unlocked video IDs in playback order.
func UnlockedIDs(c model.Course) []string {
	var ids []string
	for _, m := range c.Modules {
		for _, v := range m.Videos {
			if v.Unlocked {
				ids = append(ids, v.ID)
			}
		}
	}
	return ids
}

// VideoIDs returns every video ID in playback order.
func VideoIDs(c model.Course) []string {
	var ids []string
	for _, m := range c.Modules {
		for _, v := range m.Videos {
			ids = append(ids, v.ID)
		}
	}
	return ids
}

// UnlockThrough returns a copy of c with every video up to and including
// videoID unlocked, mimicking the server after a completion report.
func UnlockThrough(c model.Course, videoID string) model.Course {
	out := c
	out.Modules = make([]model.Module, len(c.Modules))
	unlock := true
	for mi, m := range c.Modules {
		out.Modules[mi] = m
		out.Modules[mi].Videos = append([]model.Video(nil), m.Videos...)
		for vi := range out.Modules[mi].Videos {
			v := &out.Modules[mi].Videos[vi]
			if unlock {
				v.Unlocked = true
			}
			if v.ID == videoID {
				unlock = false
			}
		}
	}
	return out
}
