// Package export renders courses into shareable documents.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/vanderheijden86/coursework/pkg/calendar"
	"github.com/vanderheijden86/coursework/pkg/model"
)

// Package-level compiled regex for slug creation (avoids recompilation per call)
var slugNonAlphanumericRegex = regexp.MustCompile(`[^a-z0-9]+`)

// GenerateSyllabus renders a course as a Markdown syllabus: a summary table,
// a table of contents and one section per module with its schedule date.
func GenerateSyllabus(c model.Course, generated time.Time) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# %s\n\n", escapeInline(c.Title)))
	sb.WriteString(fmt.Sprintf("*Generated: %s*\n\n", generated.Format(time.RFC1123)))
	if c.Description != "" {
		sb.WriteString(c.Description + "\n\n")
	}

	start, startErr := c.Start()

	// Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Property | Value |\n|----------|-------|\n")
	if startErr == nil {
		sb.WriteString(fmt.Sprintf("| **Starts** | %s |\n", start.Format("Mon, 02 Jan 2006")))
	}
	if c.Duration != "" {
		sb.WriteString(fmt.Sprintf("| **Duration** | %s |\n", escapeCell(c.Duration)))
	}
	sb.WriteString(fmt.Sprintf("| **Modules** | %d |\n", len(c.Modules)))
	sb.WriteString(fmt.Sprintf("| **Videos** | %d |\n", c.TotalVideos()))
	sb.WriteString(fmt.Sprintf("| **Watch time** | %s |\n", formatMinutes(c.TotalMinutes())))
	if done := c.CompletedVideos(); done > 0 {
		sb.WriteString(fmt.Sprintf("| **Progress** | %d/%d (%.0f%%) |\n", done, c.TotalVideos(), c.Progress()))
	}
	sb.WriteString("\n")

	slugCounts := make(map[string]int, len(c.Modules))
	slugs := make([]string, len(c.Modules))
	for i, m := range c.Modules {
		slugs[i] = uniqueSlug(createSlug(moduleHeading(m, i)), slugCounts)
	}

	// Table of Contents
	if len(c.Modules) > 0 {
		sb.WriteString("## Table of Contents\n\n")
		for i, m := range c.Modules {
			sb.WriteString(fmt.Sprintf("- [%s %s](#%s)\n", moduleEmoji(m), moduleHeading(m, i), slugs[i]))
		}
		sb.WriteString("\n---\n\n")
	}

	for i, m := range c.Modules {
		sb.WriteString(fmt.Sprintf("<a id=\"%s\"></a>\n\n", slugs[i]))
		sb.WriteString(fmt.Sprintf("## %s\n\n", moduleHeading(m, i)))
		if startErr == nil {
			date := calendar.ModuleDate(start, m, i)
			sb.WriteString(fmt.Sprintf("*%s · %s*\n\n", date.Format("Mon, 02 Jan 2006"), formatMinutes(m.Minutes())))
		}
		if len(m.Videos) == 0 {
			sb.WriteString("_No videos yet._\n\n---\n\n")
			continue
		}
		sb.WriteString("| # | Video | Length | Status |\n|---|-------|--------|--------|\n")
		for vi, v := range m.Videos {
			sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s |\n", vi+1, escapeCell(v.Title), v.Duration(), videoStatus(v)))
		}
		sb.WriteString("\n---\n\n")
	}

	if len(c.Materials) > 0 {
		sb.WriteString("## Materials\n\n")
		for _, mat := range c.Materials {
			title := mat.Title
			if title == "" {
				title = filepath.Base(mat.FileURL)
			}
			sb.WriteString(fmt.Sprintf("- [%s](%s)\n", escapeInline(title), mat.FileURL))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// SaveSyllabusToFile writes the generated syllabus to a file.
func SaveSyllabusToFile(c model.Course, filename string, generated time.Time) error {
	if dir := filepath.Dir(filename); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating syllabus directory: %w", err)
		}
	}
	return os.WriteFile(filename, []byte(GenerateSyllabus(c, generated)), 0o644)
}

func moduleHeading(m model.Module, position int) string {
	day := int(m.Day)
	if day <= 0 {
		day = position + 1
	}
	return fmt.Sprintf("Day %d: %s", day, m.Title)
}

func moduleEmoji(m model.Module) string {
	switch {
	case m.Completed():
		return "✅"
	case len(m.Videos) > 0 && m.Videos[0].Unlocked:
		return "▶️"
	case len(m.Videos) == 0:
		return "⚪"
	default:
		return "🔒"
	}
}

func videoStatus(v model.Video) string {
	switch {
	case v.Completed:
		return "✓ Completed"
	case v.Unlocked:
		return "○ Available"
	default:
		return "🔒 Locked"
	}
}

func formatMinutes(total int) string {
	if total < 60 {
		return fmt.Sprintf("%d min", total)
	}
	if total%60 == 0 {
		return fmt.Sprintf("%dh", total/60)
	}
	return fmt.Sprintf("%dh %dm", total/60, total%60)
}

func uniqueSlug(base string, counts map[string]int) string {
	if base == "" {
		base = "section"
	}
	if count, ok := counts[base]; ok {
		count++
		counts[base] = count
		return fmt.Sprintf("%s-%d", base, count)
	}
	counts[base] = 0
	return base
}

// createSlug creates a URL-friendly slug from heading text.
func createSlug(text string) string {
	slug := strings.ToLower(text)
	slug = slugNonAlphanumericRegex.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", "\\|")
}

func escapeInline(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	return strings.ReplaceAll(s, "\n", " ")
}
