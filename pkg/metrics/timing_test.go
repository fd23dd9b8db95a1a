package metrics

import (
	"testing"
	"time"
)

func TestRecordAndStats(t *testing.T) {
	m := newTimingMetric("test_op")
	m.Record(10 * time.Millisecond)
	m.Record(30 * time.Millisecond)

	s := m.Stats()
	if s.Count != 2 {
		t.Fatalf("expected count 2, got %d", s.Count)
	}
	if s.AvgMs != 20 {
		t.Errorf("expected avg 20ms, got %f", s.AvgMs)
	}
	if s.MaxMs != 30 || s.MinMs != 10 {
		t.Errorf("unexpected min/max %f/%f", s.MinMs, s.MaxMs)
	}

	m.Reset()
	if m.Count() != 0 || m.AvgNs() != 0 {
		t.Error("expected reset metric")
	}
}

func TestDisabledSkipsRecording(t *testing.T) {
	SetEnabled(false)
	t.Cleanup(func() { SetEnabled(true) })

	m := newTimingMetric("off")
	m.Record(time.Second)
	Timer(m)()
	if m.Count() != 0 {
		t.Fatalf("expected nothing recorded, got %d", m.Count())
	}
}

func TestLookupAndAllStats(t *testing.T) {
	ResetAll()
	t.Cleanup(ResetAll)

	if Lookup("course_detail") != CourseDetail {
		t.Fatal("expected course_detail metric")
	}
	if Lookup("nope") != nil {
		t.Fatal("unknown name should return nil")
	}

	CourseDetail.Record(5 * time.Millisecond)
	stats := AllTimingStats()
	if len(stats) != 1 || stats[0].Name != "course_detail" {
		t.Fatalf("expected only course_detail in stats, got %+v", stats)
	}
}

func TestFailuresCounted(t *testing.T) {
	m := newTimingMetric("flaky")
	m.RecordFailure()
	m.Record(time.Millisecond)
	m.RecordFailure()

	s := m.Stats()
	if s.Count != 1 || s.Failures != 2 {
		t.Fatalf("expected 1 timing and 2 failures, got %+v", s)
	}
	m.Reset()
	if m.Failures() != 0 {
		t.Error("reset should clear failures")
	}
}
