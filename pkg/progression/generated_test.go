package progression

import (
	"context"
	"testing"

	"github.com/vanderheijden86/coursework/pkg/testutil"
)

// TestGeneratedCourseWalk completes every video of a generated course the
// way the learning screen does: report, commit, refetch, replace, advance.
func TestGeneratedCourseWalk(t *testing.T) {
	server := testutil.NewDefault().Sequential([]int{3, 0, 2, 4}, 1)
	ids := testutil.VideoIDs(server)
	n := New(server)

	reporter := ReporterFunc(func(_ context.Context, courseID, videoID string) error {
		if courseID != server.ID {
			t.Fatalf("unexpected course %s", courseID)
		}
		for i, id := range ids {
			if id == videoID && i+1 < len(ids) {
				server = testutil.UnlockThrough(server, ids[i+1])
			}
		}
		return nil
	})

	var visited []string
	for step := 0; step < len(ids)+1; step++ {
		v, ok := n.Current()
		if !ok {
			t.Fatal("lost selection")
		}
		visited = append(visited, v.ID)
		if err := n.MarkCompleted(context.Background(), reporter); err != nil {
			t.Fatalf("mark completed: %v", err)
		}
		n.Replace(server)
		if res := n.Advance(); res.Outcome == Complete {
			break
		} else if res.Outcome != Moved {
			t.Fatalf("step %d: unexpected outcome %s", step, res.Outcome)
		}
	}

	if len(visited) != len(ids) {
		t.Fatalf("visited %v, want %v", visited, ids)
	}
	for i := range ids {
		if visited[i] != ids[i] {
			t.Errorf("step %d visited %s, want %s", i, visited[i], ids[i])
		}
	}
	if got := n.Course().CompletedVideos(); got != len(ids) {
		t.Errorf("expected all %d videos completed, got %d", len(ids), got)
	}
	testutil.AssertVideoCount(t, n.Course(), len(ids))
	testutil.AssertUnlockedCount(t, n.Course(), len(ids))
}

func TestGeneratedRandomCoursesStartOnFirstUnlocked(t *testing.T) {
	g := testutil.NewDefault()
	for i := 0; i < 30; i++ {
		c := g.Random(4)
		unlocked := testutil.UnlockedIDs(c)
		v, ok := New(c).Current()
		if len(unlocked) == 0 {
			if ok {
				t.Errorf("course %s: expected no selection, got %s", c.ID, v.ID)
			}
			continue
		}
		if !ok || v.ID != unlocked[0] {
			t.Errorf("course %s: expected %s selected", c.ID, unlocked[0])
		}
	}
}

func TestGeneratedAdvanceStopsAtFirstLock(t *testing.T) {
	c := testutil.QuickRandom(6)
	testutil.AssertUnlockedPrefix(t, c)
	unlocked := testutil.UnlockedIDs(c)
	n := New(c)

	moves := 0
	var res Result
	for range c.TotalVideos() + 1 {
		if res = n.Advance(); res.Outcome != Moved {
			break
		}
		moves++
	}

	switch {
	case len(unlocked) == 0:
		if res.Outcome != NoSelection {
			t.Fatalf("expected no selection, got %s", res.Outcome)
		}
		return
	case len(unlocked) == c.TotalVideos():
		if res.Outcome != Complete {
			t.Errorf("expected complete, got %s", res.Outcome)
		}
	default:
		if res.Outcome != Locked {
			t.Errorf("expected locked, got %s", res.Outcome)
		}
	}
	if moves != len(unlocked)-1 {
		t.Errorf("moved %d times over %d unlocked videos", moves, len(unlocked))
	}
	if v, _ := n.Current(); v.ID != unlocked[len(unlocked)-1] {
		t.Errorf("stopped on %s, want %s", v.ID, unlocked[len(unlocked)-1])
	}
}

func TestGeneratedScatteredNeverEntersLocked(t *testing.T) {
	g := testutil.NewDefault()
	for i := 0; i < 20; i++ {
		c := g.Scattered(6, 0.5)
		testutil.AssertNoDuplicateIDs(t, c)
		n := New(c)
		for range c.TotalVideos() + 1 {
			if n.Advance().Outcome != Moved {
				break
			}
			if v, _ := n.Current(); !v.Unlocked {
				t.Fatalf("course %s: advanced onto locked video %s", c.ID, v.ID)
			}
		}
	}
}

func TestEmptyCourseHasNoSelection(t *testing.T) {
	n := New(testutil.Empty())
	if _, ok := n.Current(); ok {
		t.Error("empty course should have no selection")
	}
	if res := n.Advance(); res.Outcome != NoSelection {
		t.Errorf("advance: got %s", res.Outcome)
	}
	if res := n.Retreat(); res.Outcome != NoSelection {
		t.Errorf("retreat: got %s", res.Outcome)
	}
}
