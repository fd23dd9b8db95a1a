package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/coursework/pkg/model"
)

type adminTab int

const (
	tabStudents adminTab = iota
	tabCourses
)

func (t adminTab) String() string {
	if t == tabCourses {
		return "Courses"
	}
	return "Students"
}

type studentItem struct {
	student model.Student
}

func (i studentItem) Title() string { return i.student.Name }

func (i studentItem) Description() string {
	n := len(i.student.PaidCourses)
	return fmt.Sprintf("%s • %d course(s)", i.student.Email, n)
}

func (i studentItem) FilterValue() string { return i.student.Name + " " + i.student.Email }

type adminCourseItem struct {
	course model.Course
}

func (i adminCourseItem) Title() string { return i.course.Title }

func (i adminCourseItem) Description() string {
	return fmt.Sprintf("Starts %s • %d module(s) • %d video(s)",
		FormatStartDate(i.course.StartDate), len(i.course.Modules), i.course.TotalVideos())
}

func (i adminCourseItem) FilterValue() string { return i.course.Title }

type adminState struct {
	tab        adminTab
	students   list.Model
	courses    list.Model
	courseData []model.Course
	loading    bool
	loaded     bool
}

func newAdminState(_ Theme) adminState {
	return adminState{
		students: newCourseList("Students"),
		courses:  newCourseList("Courses"),
	}
}

func (a *adminState) reset() {
	a.tab = tabStudents
	a.students.SetItems(nil)
	a.courses.SetItems(nil)
	a.students.ResetFilter()
	a.courses.ResetFilter()
	a.courseData = nil
	a.loading = false
	a.loaded = false
}

func (a *adminState) activeList() *list.Model {
	if a.tab == tabCourses {
		return &a.courses
	}
	return &a.students
}

func (a adminState) selectedStudent() (model.Student, bool) {
	item, ok := a.students.SelectedItem().(studentItem)
	return item.student, ok
}

func (a adminState) selectedCourse() (model.Course, bool) {
	item, ok := a.courses.SelectedItem().(adminCourseItem)
	return item.course, ok
}

func (m Model) handleAdminData(msg adminDataMsg) (tea.Model, tea.Cmd) {
	if msg.Gen != m.gen || m.screen != screenAdmin {
		return m, nil
	}
	m.admin.loading = false
	if msg.Err != nil {
		return m.failed(msg.Err, "Failed to load admin data")
	}
	m.admin.loaded = true
	m.admin.courseData = msg.Courses

	students := make([]list.Item, len(msg.Students))
	for i, s := range msg.Students {
		students[i] = studentItem{student: s}
	}
	courses := make([]list.Item, len(msg.Courses))
	for i, c := range msg.Courses {
		courses[i] = adminCourseItem{course: c}
	}
	return m, tea.Batch(m.admin.students.SetItems(students), m.admin.courses.SetItems(courses))
}

func (m Model) handleAdminAction(msg adminActionMsg) (tea.Model, tea.Cmd) {
	if m.screen != screenAdmin {
		return m, nil
	}
	if msg.Err != nil {
		return m.failed(msg.Err, "Request failed")
	}
	m.setStatus(msg.Done)
	return m, m.loadScreenCmd()
}

func (m Model) handleAdminKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a := &m.admin
	switch msg.String() {
	case "tab", "shift+tab":
		if a.tab == tabStudents {
			a.tab = tabCourses
		} else {
			a.tab = tabStudents
		}
		return m, nil
	case "1":
		a.tab = tabStudents
		return m, nil
	case "2":
		a.tab = tabCourses
		return m, nil
	case "r":
		if a.loading {
			return m, nil
		}
		return m, m.loadScreenCmd()
	case "a":
		if a.tab == tabStudents {
			return m, m.openRegisterForm()
		}
		return m, m.openCourseForm()
	case "m":
		if a.tab != tabCourses {
			return m, nil
		}
		c, ok := a.selectedCourse()
		if !ok {
			return m, nil
		}
		return m, m.openModuleForm(c)
	case "x", "delete":
		m.confirmDelete()
		return m, nil
	}

	var cmd tea.Cmd
	if a.tab == tabStudents {
		a.students, cmd = a.students.Update(msg)
	} else {
		a.courses, cmd = a.courses.Update(msg)
	}
	return m, cmd
}

// confirmDelete asks before deleting the selected student or course.
func (m *Model) confirmDelete() {
	b, cred := m.backend, m.cred
	if m.admin.tab == tabStudents {
		s, ok := m.admin.selectedStudent()
		if !ok {
			return
		}
		m.confirm = &confirmState{
			prompt: fmt.Sprintf("Delete student %s <%s>?", s.Name, s.Email),
			onYes: func() tea.Cmd {
				return adminActionCmd("🗑 Deleted "+s.Name, func(ctx context.Context) error {
					return b.DeleteStudent(ctx, cred, s.ID)
				})
			},
		}
		return
	}
	c, ok := m.admin.selectedCourse()
	if !ok {
		return
	}
	m.confirm = &confirmState{
		prompt: fmt.Sprintf("Delete course %q and all its modules?", c.Title),
		onYes: func() tea.Cmd {
			return adminActionCmd("🗑 Deleted "+c.Title, func(ctx context.Context) error {
				return b.DeleteCourse(ctx, cred, c.ID)
			})
		},
	}
}

func (m Model) renderAdmin() string {
	a := m.admin
	t := m.theme
	h := m.bodyHeight()

	var tabs []string
	for _, tab := range []adminTab{tabStudents, tabCourses} {
		label := fmt.Sprintf(" %s ", tab)
		if tab == a.tab {
			tabs = append(tabs, t.Header.Render(label))
		} else {
			tabs = append(tabs, t.MutedText.Render(label))
		}
	}
	header := strings.Join(tabs, " ")
	if a.loading {
		header += "  " + t.MutedText.Render("loading…")
	}

	lst := a.activeList()
	left := lst.View()
	if a.loaded && len(lst.Items()) == 0 {
		left = t.MutedText.Render(fmt.Sprintf("No %s yet. Press a to add one.", strings.ToLower(a.tab.String())))
	}

	detailW := m.width - lipgloss.Width(left) - 2
	var detail string
	if detailW >= 20 {
		if a.tab == tabStudents {
			if s, ok := a.selectedStudent(); ok {
				detail = m.renderStudentDetail(s, detailW, h-2)
			}
		} else if c, ok := a.selectedCourse(); ok {
			detail = m.renderAdminCourseDetail(c, detailW, h-2)
		}
	}
	body := left
	if detail != "" {
		body = lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", detail)
	}
	return header + "\n\n" + body
}

func (m Model) renderStudentDetail(s model.Student, width, height int) string {
	t := m.theme
	titles := m.courseTitleByID()
	var b strings.Builder
	b.WriteString(t.Title.Render(truncate(s.Name, width-4)) + "\n")
	b.WriteString(t.MutedText.Render(s.Email) + "\n")
	if s.Status != "" {
		b.WriteString("Status   " + s.Status + "\n")
	}
	if !s.CreatedAt.IsZero() {
		b.WriteString("Joined   " + FormatTimeRel(s.CreatedAt) + "\n")
	}
	b.WriteString("\n" + t.PrimaryBold.Render("Paid courses") + "\n")
	if len(s.PaidCourses) == 0 {
		b.WriteString(t.MutedText.Render("  none") + "\n")
	}
	for _, pc := range s.PaidCourses {
		b.WriteString("  • " + truncate(paidCourseLabel(pc, titles), width-8) + "\n")
	}
	return PanelStyle.Width(width - 2).MaxHeight(height).Render(b.String())
}

func (m Model) renderAdminCourseDetail(c model.Course, width, height int) string {
	t := m.theme
	var b strings.Builder
	b.WriteString(t.Title.Render(truncate(c.Title, width-4)) + "\n")
	meta := "Starts " + FormatStartDate(c.StartDate)
	if c.Duration != "" {
		meta += " • " + c.Duration
	}
	b.WriteString(t.MutedText.Render(meta) + "\n\n")
	b.WriteString(t.PrimaryBold.Render(fmt.Sprintf("Modules (%d)", len(c.Modules))) + "\n")
	if len(c.Modules) == 0 {
		b.WriteString(t.MutedText.Render("  none, press m to add one") + "\n")
	}
	for _, mod := range c.Modules {
		line := fmt.Sprintf("  Day %d  %s", mod.Day, mod.Title)
		meta := fmt.Sprintf("%d video(s)", len(mod.Videos))
		b.WriteString(padRight(truncate(line, width-len(meta)-6), width-len(meta)-5) + t.MutedText.Render(meta) + "\n")
	}
	if len(c.Materials) > 0 {
		b.WriteString("\n" + t.PrimaryBold.Render(fmt.Sprintf("Materials (%d)", len(c.Materials))) + "\n")
		for _, mat := range c.Materials {
			b.WriteString("  • " + truncate(materialLabel(mat), width-8) + "\n")
		}
	}
	return PanelStyle.Width(width - 2).MaxHeight(height).Render(b.String())
}
