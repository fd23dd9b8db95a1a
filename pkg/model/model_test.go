package model

import (
	"testing"

	json "github.com/goccy/go-json"
)

func TestDayNumberAcceptsNumberAndString(t *testing.T) {
	tests := []struct {
		in   string
		want DayNumber
	}{
		{`{"day":3}`, 3},
		{`{"day":"4"}`, 4},
		{`{"day":" 5 "}`, 5},
		{`{"day":""}`, 0},
		{`{"day":null}`, 0},
		{`{}`, 0},
	}
	for _, tt := range tests {
		var m Module
		if err := json.Unmarshal([]byte(tt.in), &m); err != nil {
			t.Fatalf("unmarshal %s: %v", tt.in, err)
		}
		if m.Day != tt.want {
			t.Errorf("%s: got day %d, want %d", tt.in, m.Day, tt.want)
		}
	}
}

func TestDayNumberRejectsGarbage(t *testing.T) {
	var m Module
	if err := json.Unmarshal([]byte(`{"day":"first"}`), &m); err == nil {
		t.Fatal("expected error for non-numeric day")
	}
}

func TestPaidCoursesBothShapes(t *testing.T) {
	var s Student
	data := `{"_id":"s1","name":"Ann","paidCourses":["c1","c2"]}`
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		t.Fatalf("unmarshal ids: %v", err)
	}
	if got := s.PaidCourses.IDs(); len(got) != 2 || got[0] != "c1" || got[1] != "c2" {
		t.Errorf("unexpected ids %v", got)
	}

	data = `{"_id":"s2","paidCourses":[{"_id":"c9","title":"Go Basics","modules":[]}]}`
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		t.Fatalf("unmarshal objects: %v", err)
	}
	if len(s.PaidCourses) != 1 || s.PaidCourses[0].ID != "c9" || s.PaidCourses[0].Title != "Go Basics" {
		t.Errorf("unexpected paid courses %+v", s.PaidCourses)
	}
}

func TestVideoCompletedNotSerialized(t *testing.T) {
	v := Video{ID: "v1", Title: "Intro", Unlocked: true, Completed: true}
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back map[string]any
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := back["Completed"]; ok {
		t.Error("completed flag must stay client-side")
	}
}

func TestCourseProgressAndDurations(t *testing.T) {
	c := Course{Modules: []Module{
		{ID: "a", Videos: []Video{{ID: "a1", Completed: true}, {ID: "a2"}}},
		{ID: "b", Videos: []Video{{ID: "b1", Completed: true}, {ID: "b2", Completed: true}}},
		{ID: "empty"},
	}}
	if c.TotalVideos() != 4 {
		t.Errorf("expected 4 videos, got %d", c.TotalVideos())
	}
	if c.TotalMinutes() != 60 {
		t.Errorf("expected 60 minutes, got %d", c.TotalMinutes())
	}
	if c.Progress() != 75 {
		t.Errorf("expected 75%% progress, got %f", c.Progress())
	}
	if c.Modules[0].Completed() || !c.Modules[1].Completed() || c.Modules[2].Completed() {
		t.Error("unexpected module completion flags")
	}
	if (Course{}).Progress() != 0 {
		t.Error("empty course should have zero progress")
	}
}

func TestFindVideo(t *testing.T) {
	c := Course{Modules: []Module{
		{Videos: []Video{{ID: "a1"}}},
		{Videos: []Video{{ID: "b1"}, {ID: "b2"}}},
	}}
	mi, vi, ok := c.FindVideo("b2")
	if !ok || mi != 1 || vi != 1 {
		t.Errorf("got (%d,%d,%v), want (1,1,true)", mi, vi, ok)
	}
	if _, _, ok := c.FindVideo("zz"); ok {
		t.Error("expected miss for unknown id")
	}
}

func TestParseStartDate(t *testing.T) {
	if _, err := ParseStartDate("2025-03-01"); err != nil {
		t.Errorf("plain date: %v", err)
	}
	if _, err := ParseStartDate("2025-03-01T00:00:00.000Z"); err != nil {
		t.Errorf("timestamp: %v", err)
	}
	if _, err := ParseStartDate("soon"); err == nil {
		t.Error("expected error for invalid date")
	}
	if _, err := ParseStartDate(""); err == nil {
		t.Error("expected error for empty date")
	}
}
