// Package calendar exports course schedules as iCalendar files.
//
// Each module becomes one all-day event on the day it is scheduled:
// the course start date plus (day - 1) days.
package calendar

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"github.com/vanderheijden86/coursework/pkg/logger"
	"github.com/vanderheijden86/coursework/pkg/model"
)

// ProductID identifies cw as the calendar producer.
const ProductID = "-//coursework//cw//EN"

// Skipped records a course left out of the export.
type Skipped struct {
	CourseID string
	Title    string
	Reason   string
}

// Result summarises an export.
type Result struct {
	Events  int
	Skipped []Skipped
}

// ModuleDate returns the calendar day of a module. Modules without a day
// number fall back to their position in the course.
func ModuleDate(start time.Time, m model.Module, position int) time.Time {
	day := int(m.Day)
	if day <= 0 {
		day = position + 1
	}
	return start.AddDate(0, 0, day-1)
}

// Summary is the event title for a module.
func Summary(course model.Course, m model.Module, position int) string {
	day := int(m.Day)
	if day <= 0 {
		day = position + 1
	}
	return fmt.Sprintf("%s: Day %d - %s", course.Title, day, m.Title)
}

// Build assembles a calendar for the given courses. stamp is written as the
// DTSTAMP of every event.
func Build(courses []model.Course, stamp time.Time) (*ics.Calendar, Result) {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(ProductID)
	cal.SetName("Course schedule")

	var res Result
	for _, course := range courses {
		start, err := course.Start()
		if err != nil {
			res.Skipped = append(res.Skipped, Skipped{CourseID: course.ID, Title: course.Title, Reason: err.Error()})
			logger.Logger.Warn("calendar: skipping course",
				zap.String("course_id", course.ID),
				zap.String("title", course.Title),
				zap.Error(err),
			)
			continue
		}
		for i, m := range course.Modules {
			date := ModuleDate(start, m, i)
			uid := eventUID(course, m, i)

			ev := cal.AddEvent(uid)
			ev.SetDtStampTime(stamp.UTC())
			ev.SetAllDayStartAt(date)
			ev.SetAllDayEndAt(date.AddDate(0, 0, 1))
			ev.SetSummary(Summary(course, m, i))
			ev.SetDescription(moduleDescription(m))
			res.Events++
		}
	}
	return cal, res
}

// Write serialises the calendar for courses to w.
func Write(w io.Writer, courses []model.Course, stamp time.Time) (Result, error) {
	cal, res := Build(courses, stamp)
	if _, err := io.WriteString(w, cal.Serialize()); err != nil {
		return res, fmt.Errorf("writing calendar: %w", err)
	}
	return res, nil
}

// WriteFile exports courses to an .ics file at path.
func WriteFile(path string, courses []model.Course, stamp time.Time) (Result, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Result{}, fmt.Errorf("creating calendar directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return Result{}, fmt.Errorf("creating calendar file: %w", err)
	}
	res, werr := Write(f, courses, stamp)
	if cerr := f.Close(); werr == nil && cerr != nil {
		werr = fmt.Errorf("closing calendar file: %w", cerr)
	}
	return res, werr
}

func eventUID(course model.Course, m model.Module, position int) string {
	id := m.ID
	if id == "" {
		id = fmt.Sprintf("module-%d", position)
	}
	return fmt.Sprintf("%s-%s@coursework", course.ID, id)
}

func moduleDescription(m model.Module) string {
	if len(m.Videos) == 0 {
		return "No videos yet"
	}
	titles := make([]string, 0, len(m.Videos))
	for _, v := range m.Videos {
		titles = append(titles, v.Title)
	}
	return fmt.Sprintf("%d videos (~%d min): %s", len(m.Videos), m.Minutes(), strings.Join(titles, ", "))
}
