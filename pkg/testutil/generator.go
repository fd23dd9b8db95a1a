// Package testutil provides deterministic course fixtures for tests.
package testutil

import (
	"fmt"
	"math/rand"
	"time"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/coursework/pkg/model"
)

// GeneratorConfig controls fixture generation.
type GeneratorConfig struct {
	Seed          int64     // Random seed (0 = time-based)
	IDPrefix      string    // Prefix for course IDs (default: "course")
	StartDate     time.Time // First course start date (default: fixed date)
	WithMaterials bool      // Attach one material per module
	MaxVideos     int       // Upper bound for Random modules (default: 4)
}

// DefaultConfig returns a config suitable for most tests.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:      42, // Deterministic
		IDPrefix:  "course",
		StartDate: time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC),
		MaxVideos: 4,
	}
}

// Generator creates course fixtures with various unlock layouts.
type Generator struct {
	cfg GeneratorConfig
	rng *rand.Rand
	seq int
}

// New creates a Generator with the given config.
func New(cfg GeneratorConfig) *Generator {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if cfg.StartDate.IsZero() {
		cfg.StartDate = time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)
	}
	if cfg.IDPrefix == "" {
		cfg.IDPrefix = "course"
	}
	if cfg.MaxVideos <= 0 {
		cfg.MaxVideos = 4
	}
	return &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(seed)),
	}
}

// NewDefault creates a Generator with default config.
func NewDefault() *Generator {
	return New(DefaultConfig())
}

// Sequential builds a course with the given module sizes where the first
// unlocked videos (in playback order) are unlocked and the rest locked,
// matching how the server gates progress. Modules are numbered from day 1.
func (g *Generator) Sequential(sizes []int, unlocked int) model.Course {
	c := g.newCourse()
	for mi, size := range sizes {
		m := model.Module{
			ID:    fmt.Sprintf("%s-m%d", c.ID, mi),
			Title: fmt.Sprintf("Module %d", mi+1),
			Day:   model.DayNumber(mi + 1),
		}
		for vi := 0; vi < size; vi++ {
			m.Videos = append(m.Videos, model.Video{
				ID:       fmt.Sprintf("%s-v%d", m.ID, vi),
				Title:    fmt.Sprintf("Video %d.%d", mi+1, vi+1),
				VideoURL: fmt.Sprintf("https://cdn.example.com/%s/%d.mp4", m.ID, vi),
				Unlocked: unlocked > 0,
			})
			unlocked--
		}
		c.Modules = append(c.Modules, m)
		g.addMaterial(&c, m)
	}
	return c
}

// Uniform builds a sequential course of modules*videos videos.
func (g *Generator) Uniform(modules, videos, unlocked int) model.Course {
	sizes := make([]int, modules)
	for i := range sizes {
		sizes[i] = videos
	}
	return g.Sequential(sizes, unlocked)
}

// Random builds a course with random module sizes (including empty modules)
// and an unlocked prefix of random length.
func (g *Generator) Random(modules int) model.Course {
	sizes := make([]int, modules)
	total := 0
	for i := range sizes {
		sizes[i] = g.rng.Intn(g.cfg.MaxVideos + 1)
		total += sizes[i]
	}
	return g.Sequential(sizes, g.rng.Intn(total+1))
}

// Scattered builds a course whose unlocked videos are chosen independently,
// the shape a misbehaving server could send.
func (g *Generator) Scattered(modules int, ratio float64) model.Course {
	c := g.Random(modules)
	for mi := range c.Modules {
		for vi := range c.Modules[mi].Videos {
			c.Modules[mi].Videos[vi].Unlocked = g.rng.Float64() < ratio
		}
	}
	return c
}

// Catalog builds n courses starting a week apart.
func (g *Generator) Catalog(n, modules, videos int) []model.Course {
	out := make([]model.Course, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, g.Uniform(modules, videos, 1))
	}
	return out
}

// Listing converts courses to the compact dashboard shape.
func Listing(courses []model.Course) []model.StudentCourse {
	out := make([]model.StudentCourse, 0, len(courses))
	for _, c := range courses {
		out = append(out, model.StudentCourse{
			ID:          c.ID,
			Title:       c.Title,
			Description: c.Description,
			StartDate:   c.StartDate,
			Duration:    c.Duration,
		})
	}
	return out
}

// ToJSON renders a course in the API's detail envelope.
func ToJSON(c model.Course) string {
	data, err := json.Marshal(struct {
		Course model.Course `json:"course"`
	}{c})
	if err != nil {
		panic(fmt.Sprintf("marshal course %s: %v", c.ID, err))
	}
	return string(data)
}

func (g *Generator) newCourse() model.Course {
	n := g.seq
	g.seq++
	return model.Course{
		ID:          fmt.Sprintf("%s-%d", g.cfg.IDPrefix, n),
		Title:       fmt.Sprintf("Course %d", n+1),
		Description: fmt.Sprintf("Generated course %d", n+1),
		StartDate:   g.cfg.StartDate.AddDate(0, 0, 7*n).Format(model.DateLayout),
		Duration:    "4 weeks",
	}
}

func (g *Generator) addMaterial(c *model.Course, m model.Module) {
	if !g.cfg.WithMaterials {
		return
	}
	c.Materials = append(c.Materials, model.Material{
		ID:      m.ID + "-doc",
		Title:   m.Title + " notes",
		FileURL: fmt.Sprintf("/files/%s.pdf", m.ID),
	})
}

// ============================================================================
// Quick helpers (use default config)
// ============================================================================

// QuickUniform creates a sequential course with default config.
func QuickUniform(modules, videos, unlocked int) model.Course {
	return NewDefault().Uniform(modules, videos, unlocked)
}

// QuickRandom creates a random sequential course with default config.
func QuickRandom(modules int) model.Course {
	return NewDefault().Random(modules)
}

// Empty returns a course with no modules.
func Empty() model.Course {
	return NewDefault().Sequential(nil, 0)
}
