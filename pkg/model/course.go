package model

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// VideoMinutes is the estimated length of every video. The API does not
// report media durations, so the UI budgets a fixed slot per video.
const VideoMinutes = 15

// DateLayout is the layout used by course start dates on the wire.
const DateLayout = "2006-01-02"

// Video is a single playable item inside a module.
type Video struct {
	ID       string `json:"_id"`
	Title    string `json:"title"`
	VideoURL string `json:"videoUrl"`
	PublicID string `json:"publicId,omitempty"`
	Unlocked bool   `json:"unlocked"`

	// Completed is tracked locally only and is never sent back.
	Completed bool `json:"-"`
}

// Duration returns the estimated play time label, e.g. "15:00".
func (v Video) Duration() string {
	return fmt.Sprintf("%d:00", VideoMinutes)
}

// DayNumber is a module's day within the course schedule. The API sends it
// either as a JSON number or as a numeric string.
type DayNumber int

// UnmarshalJSON accepts 3, "3" and "" (zero).
func (d *DayNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*d = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("day: %w", err)
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*d = 0
			return nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("day %q is not a number: %w", s, err)
		}
		*d = DayNumber(n)
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("day: %w", err)
	}
	*d = DayNumber(n)
	return nil
}

// Module is an ordered group of videos, usually one per course day.
type Module struct {
	ID     string    `json:"_id"`
	Title  string    `json:"title"`
	Day    DayNumber `json:"day"`
	Videos []Video   `json:"videos"`
}

// Minutes returns the estimated module length in minutes.
func (m Module) Minutes() int {
	return len(m.Videos) * VideoMinutes
}

// Completed reports whether every video of a non-empty module is completed.
func (m Module) Completed() bool {
	if len(m.Videos) == 0 {
		return false
	}
	for _, v := range m.Videos {
		if !v.Completed {
			return false
		}
	}
	return true
}

// Material is a downloadable file attached to a course.
type Material struct {
	ID      string `json:"_id"`
	Title   string `json:"title"`
	FileURL string `json:"fileUrl"`
}

// Course is the catalog root: an ordered list of modules plus metadata.
type Course struct {
	ID           string     `json:"_id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	StartDate    string     `json:"startDate"`
	ThumbnailURL string     `json:"thumbnailUrl,omitempty"`
	Materials    []Material `json:"materials,omitempty"`
	Duration     string     `json:"duration,omitempty"`
	Modules      []Module   `json:"modules"`
	CreatedAt    time.Time  `json:"createdAt,omitempty"`
	UpdatedAt    time.Time  `json:"updatedAt,omitempty"`
}

// Start parses StartDate. Both plain dates and RFC 3339 timestamps are
// accepted since the API echoes whatever the admin form submitted.
func (c Course) Start() (time.Time, error) {
	return ParseStartDate(c.StartDate)
}

// ParseStartDate parses a course start date in either wire form.
func ParseStartDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty start date")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid start date %q: %w", s, err)
	}
	return t, nil
}

// TotalVideos counts the videos across all modules.
func (c Course) TotalVideos() int {
	n := 0
	for _, m := range c.Modules {
		n += len(m.Videos)
	}
	return n
}

// CompletedVideos counts the videos marked completed.
func (c Course) CompletedVideos() int {
	n := 0
	for _, m := range c.Modules {
		for _, v := range m.Videos {
			if v.Completed {
				n++
			}
		}
	}
	return n
}

// TotalMinutes is the estimated course length in minutes.
func (c Course) TotalMinutes() int {
	return c.TotalVideos() * VideoMinutes
}

// Progress returns the completed share of videos as a percentage (0-100).
func (c Course) Progress() float64 {
	total := c.TotalVideos()
	if total == 0 {
		return 0
	}
	return float64(c.CompletedVideos()) / float64(total) * 100
}

// FindVideo returns the coordinates of the video with the given id.
func (c Course) FindVideo(id string) (moduleIndex, videoIndex int, ok bool) {
	for mi, m := range c.Modules {
		for vi, v := range m.Videos {
			if v.ID == id {
				return mi, vi, true
			}
		}
	}
	return -1, -1, false
}

// StudentCourse is the compact course shape returned to students for the
// dashboard listing.
type StudentCourse struct {
	ID          string `json:"_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	StartDate   string `json:"startDate"`
	Duration    string `json:"duration"`
	Thumbnail   string `json:"thumbnail"`
}
