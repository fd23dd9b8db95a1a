// Package progression implements sequential, unlock-gated navigation
// through a course's modules and videos.
//
// A Navigator owns a cursor (module index, video index) over a fetched
// course. Forward moves respect each video's server-declared Unlocked flag;
// backward moves never check it, because anything behind the cursor was
// reachable when it was passed. Modules without videos are skipped in both
// directions.
//
// A Navigator is not safe for concurrent use. It is driven from a single
// bubbletea Update loop.
package progression

import (
	"context"
	"errors"
	"fmt"

	"github.com/vanderheijden86/coursework/pkg/model"
)

// ErrNoSelection is returned by operations that need a selected video.
var ErrNoSelection = errors.New("no video selected")

// Outcome classifies the result of a navigation step.
type Outcome int

const (
	Moved       Outcome = iota // cursor changed
	Locked                     // target is locked, cursor unchanged
	Complete                   // already on the last video of the course
	AtStart                    // already on the first video of the course
	NoSelection                // cursor is unset
)

// String returns a short label for logs.
func (o Outcome) String() string {
	switch o {
	case Moved:
		return "moved"
	case Locked:
		return "locked"
	case Complete:
		return "complete"
	case AtStart:
		return "at-start"
	case NoSelection:
		return "no-selection"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result is returned by Advance and Retreat.
type Result struct {
	Outcome Outcome
	// Boundary is true when the step crossed (or tried to cross) into
	// another module.
	Boundary bool
}

// Cursor is a position in the course's (module, video) sequence.
type Cursor struct {
	ModuleIndex int
	VideoIndex  int
}

// unset marks a cursor with no selected video.
var unset = Cursor{ModuleIndex: -1, VideoIndex: -1}

// Reporter submits a video completion to the API.
type Reporter interface {
	ReportVideoCompleted(ctx context.Context, courseID, videoID string) error
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(ctx context.Context, courseID, videoID string) error

// ReportVideoCompleted calls f.
func (f ReporterFunc) ReportVideoCompleted(ctx context.Context, courseID, videoID string) error {
	return f(ctx, courseID, videoID)
}

// Navigator tracks the current video of one course view.
type Navigator struct {
	course   model.Course
	cursor   Cursor
	expanded *ExpandedSet
}

// New builds a Navigator positioned on the first unlocked video in document
// order. The module holding it is expanded. When nothing is unlocked the
// cursor stays unset.
func New(course model.Course) *Navigator {
	n := &Navigator{
		course:   cloneCourse(course),
		cursor:   unset,
		expanded: NewExpandedSet(),
	}
	n.selectFirstUnlocked()
	return n
}

func (n *Navigator) selectFirstUnlocked() {
	for mi, m := range n.course.Modules {
		for vi, v := range m.Videos {
			if v.Unlocked {
				n.cursor = Cursor{ModuleIndex: mi, VideoIndex: vi}
				n.expanded.Add(m.ID)
				return
			}
		}
	}
	n.cursor = unset
}

// Course returns the navigator's course, including local completion flags.
func (n *Navigator) Course() *model.Course {
	return &n.course
}

// Expanded returns the sidebar expansion set.
func (n *Navigator) Expanded() *ExpandedSet {
	return n.expanded
}

// Cursor returns the current position and whether one is set.
func (n *Navigator) Cursor() (Cursor, bool) {
	return n.cursor, n.cursor != unset
}

// Current returns the selected video.
func (n *Navigator) Current() (*model.Video, bool) {
	if n.cursor == unset {
		return nil, false
	}
	return &n.course.Modules[n.cursor.ModuleIndex].Videos[n.cursor.VideoIndex], true
}

// CurrentModule returns the module holding the selected video.
func (n *Navigator) CurrentModule() (*model.Module, bool) {
	if n.cursor == unset {
		return nil, false
	}
	return &n.course.Modules[n.cursor.ModuleIndex], true
}

func (n *Navigator) video(mi, vi int) (*model.Video, bool) {
	if mi < 0 || mi >= len(n.course.Modules) {
		return nil, false
	}
	videos := n.course.Modules[mi].Videos
	if vi < 0 || vi >= len(videos) {
		return nil, false
	}
	return &videos[vi], true
}

// Select moves the cursor to an explicit position. Locked or out-of-range
// targets are refused and leave the cursor unchanged.
func (n *Navigator) Select(moduleIndex, videoIndex int) bool {
	v, ok := n.video(moduleIndex, videoIndex)
	if !ok || !v.Unlocked {
		return false
	}
	n.cursor = Cursor{ModuleIndex: moduleIndex, VideoIndex: videoIndex}
	return true
}

// SelectID selects the video with the given id, subject to Select's rules.
func (n *Navigator) SelectID(videoID string) bool {
	mi, vi, ok := n.course.FindVideo(videoID)
	if !ok {
		return false
	}
	return n.Select(mi, vi)
}

// Advance moves to the next video if it is unlocked.
func (n *Navigator) Advance() Result {
	if n.cursor == unset {
		return Result{Outcome: NoSelection}
	}
	mi, vi := n.cursor.ModuleIndex, n.cursor.VideoIndex

	if next, ok := n.video(mi, vi+1); ok {
		if !next.Unlocked {
			return Result{Outcome: Locked}
		}
		n.cursor.VideoIndex = vi + 1
		return Result{Outcome: Moved}
	}

	nm := n.nextNonEmptyModule(mi + 1)
	if nm < 0 {
		return Result{Outcome: Complete}
	}
	if !n.course.Modules[nm].Videos[0].Unlocked {
		return Result{Outcome: Locked, Boundary: true}
	}
	n.cursor = Cursor{ModuleIndex: nm, VideoIndex: 0}
	n.expanded.Add(n.course.Modules[nm].ID)
	return Result{Outcome: Moved, Boundary: true}
}

// Retreat moves to the previous video without checking the unlock gate.
func (n *Navigator) Retreat() Result {
	if n.cursor == unset {
		return Result{Outcome: NoSelection}
	}
	mi, vi := n.cursor.ModuleIndex, n.cursor.VideoIndex

	if vi > 0 {
		n.cursor.VideoIndex = vi - 1
		return Result{Outcome: Moved}
	}

	pm := n.prevNonEmptyModule(mi - 1)
	if pm < 0 {
		return Result{Outcome: AtStart}
	}
	n.cursor = Cursor{ModuleIndex: pm, VideoIndex: len(n.course.Modules[pm].Videos) - 1}
	n.expanded.Add(n.course.Modules[pm].ID)
	return Result{Outcome: Moved, Boundary: true}
}

func (n *Navigator) nextNonEmptyModule(from int) int {
	for i := from; i < len(n.course.Modules); i++ {
		if len(n.course.Modules[i].Videos) > 0 {
			return i
		}
	}
	return -1
}

func (n *Navigator) prevNonEmptyModule(from int) int {
	for i := from; i >= 0; i-- {
		if len(n.course.Modules[i].Videos) > 0 {
			return i
		}
	}
	return -1
}

// MarkCompleted reports the selected video as completed and only then sets
// its local Completed flag. On error nothing changes. A video that is
// already completed is not reported again.
func (n *Navigator) MarkCompleted(ctx context.Context, r Reporter) error {
	v, ok := n.Current()
	if !ok {
		return ErrNoSelection
	}
	if v.Completed {
		return nil
	}
	if err := r.ReportVideoCompleted(ctx, n.course.ID, v.ID); err != nil {
		return fmt.Errorf("reporting video %s completed: %w", v.ID, err)
	}
	v.Completed = true
	return nil
}

// CommitCompleted sets the local Completed flag of videoID once its report
// has succeeded. Used when the report runs outside the navigator, e.g. in a
// tea.Cmd. Returns false for unknown ids.
func (n *Navigator) CommitCompleted(videoID string) bool {
	mi, vi, ok := n.course.FindVideo(videoID)
	if !ok {
		return false
	}
	n.course.Modules[mi].Videos[vi].Completed = true
	return true
}

// Replace swaps in a freshly fetched copy of the course. Local completion
// flags are carried over by video id, and the cursor stays on the same video
// when it still exists and is unlocked; otherwise it is re-initialised.
// Expansion state is kept.
func (n *Navigator) Replace(course model.Course) {
	completed := make(map[string]bool)
	for _, m := range n.course.Modules {
		for _, v := range m.Videos {
			if v.Completed {
				completed[v.ID] = true
			}
		}
	}
	var currentID string
	if v, ok := n.Current(); ok {
		currentID = v.ID
	}

	n.course = cloneCourse(course)
	for mi := range n.course.Modules {
		for vi := range n.course.Modules[mi].Videos {
			v := &n.course.Modules[mi].Videos[vi]
			if completed[v.ID] {
				v.Completed = true
			}
		}
	}

	if currentID != "" && n.SelectID(currentID) {
		return
	}
	n.selectFirstUnlocked()
}

// cloneCourse copies the module and video slices so local completion flags
// never leak into the caller's data.
func cloneCourse(c model.Course) model.Course {
	if c.Modules == nil {
		return c
	}
	modules := make([]model.Module, len(c.Modules))
	for i, m := range c.Modules {
		m.Videos = append([]model.Video(nil), m.Videos...)
		modules[i] = m
	}
	c.Modules = modules
	return c
}
