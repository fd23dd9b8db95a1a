package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/coursework/pkg/model"
)

// courseItem adapts a paid course to list.Item.
type courseItem struct {
	course model.StudentCourse
}

func (i courseItem) Title() string { return i.course.Title }

func (i courseItem) Description() string {
	parts := []string{"Starts " + FormatStartDate(i.course.StartDate)}
	if i.course.Duration != "" {
		parts = append(parts, i.course.Duration)
	}
	return strings.Join(parts, " • ")
}

func (i courseItem) FilterValue() string { return i.course.Title }

type dashboardState struct {
	list    list.Model
	courses []model.StudentCourse
	loading bool
	loaded  bool

	// glamour output keyed by course id and width
	mdCache map[string]string
}

func newCourseList(title string) list.Model {
	d := list.NewDefaultDelegate()
	d.Styles.SelectedTitle = d.Styles.SelectedTitle.Foreground(ColorPrimary).BorderForeground(ColorPrimary)
	d.Styles.SelectedDesc = d.Styles.SelectedDesc.Foreground(ColorSubtext).BorderForeground(ColorPrimary)
	l := list.New(nil, d, defaultWidth/2, defaultHeight)
	l.Title = title
	l.SetShowHelp(false)
	l.DisableQuitKeybindings()
	l.Styles.Title = lipgloss.NewStyle().Background(ColorPrimary).Foreground(lipgloss.Color("#282A36")).Bold(true).Padding(0, 1)
	return l
}

func newDashboardState(_ Theme) dashboardState {
	return dashboardState{
		list:    newCourseList("My Courses"),
		mdCache: make(map[string]string),
	}
}

func (d *dashboardState) reset() {
	d.list.SetItems(nil)
	d.list.ResetFilter()
	d.courses = nil
	d.loading = false
	d.loaded = false
}

func (d dashboardState) selected() (model.StudentCourse, bool) {
	item, ok := d.list.SelectedItem().(courseItem)
	if !ok {
		return model.StudentCourse{}, false
	}
	return item.course, true
}

func (m Model) handlePaidCourses(msg paidCoursesMsg) (tea.Model, tea.Cmd) {
	if msg.Gen != m.gen || m.screen != screenDashboard {
		return m, nil
	}
	m.dash.loading = false
	if msg.Err != nil {
		return m.failed(msg.Err, "Failed to fetch courses")
	}
	m.dash.loaded = true
	m.dash.courses = msg.Courses
	items := make([]list.Item, len(msg.Courses))
	for i, c := range msg.Courses {
		items[i] = courseItem{course: c}
	}
	cmd := m.dash.list.SetItems(items)
	return m, cmd
}

func (m Model) handleDashboardKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "right", "l":
		c, ok := m.dash.selected()
		if !ok {
			return m, nil
		}
		m.statusMsg = ""
		return m.openCourse(c.ID, c.Title)
	case "r":
		if m.dash.loading {
			return m, nil
		}
		return m, m.loadScreenCmd()
	}
	var cmd tea.Cmd
	m.dash.list, cmd = m.dash.list.Update(msg)
	return m, cmd
}

func (m Model) renderDashboard() string {
	d := m.dash
	h := m.bodyHeight()
	if d.loading && !d.loaded {
		return m.theme.MutedText.Render("Loading your courses…")
	}
	if d.loaded && len(d.courses) == 0 {
		return lipgloss.Place(m.width, h, lipgloss.Center, lipgloss.Center,
			m.theme.MutedText.Render("You are not enrolled in any course yet."))
	}

	left := d.list.View()
	detailW := m.width - lipgloss.Width(left) - 2
	if detailW < 20 {
		return left
	}
	c, ok := d.selected()
	if !ok {
		return left
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", m.renderCourseDetail(c, detailW, h))
}

func (m Model) renderCourseDetail(c model.StudentCourse, width, height int) string {
	t := m.theme
	var b strings.Builder
	b.WriteString(t.Title.Render(truncate(c.Title, width-4)) + "\n")
	meta := fmt.Sprintf("Starts %s", FormatStartDate(c.StartDate))
	if c.Duration != "" {
		meta += " • " + c.Duration
	}
	b.WriteString(t.MutedText.Render(meta) + "\n")
	b.WriteString(m.renderMarkdown(c.ID, c.Description, width-4))
	b.WriteString("\n" + t.KeyHint.Render("enter") + " start learning")
	return PanelStyle.Width(width - 2).MaxHeight(height).Render(b.String())
}

// renderMarkdown renders a course description with glamour, falling back
// to the raw text.
func (m Model) renderMarkdown(id, md string, width int) string {
	if strings.TrimSpace(md) == "" {
		return m.theme.MutedText.Render("No description.") + "\n"
	}
	if width < 20 {
		width = 20
	}
	key := fmt.Sprintf("%s:%d", id, width)
	if out, ok := m.dash.mdCache[key]; ok {
		return out
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return md + "\n"
	}
	out, err := r.Render(md)
	if err != nil {
		return md + "\n"
	}
	// Strip the blank margin glamour adds around the document.
	out = strings.Trim(out, "\n") + "\n"
	if m.dash.mdCache != nil {
		m.dash.mdCache[key] = out
	}
	return out
}
