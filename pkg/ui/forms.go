package ui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/coursework/pkg/api"
	"github.com/vanderheijden86/coursework/pkg/model"
)

// formKind identifies what a submitted form does.
type formKind int

const (
	formLogin formKind = iota
	formRegisterStudent
	formCreateCourse
	formAddModule
)

// formValues is bound to the huh fields. It lives behind a pointer so the
// bindings survive Model copies.
type formValues struct {
	Email       string
	Password    string
	Name        string
	PaidCourses []string

	Title       string
	Description string
	StartDate   string
	Duration    string
	Thumbnail   string
	Materials   string // comma separated paths

	Video string
}

type formState struct {
	kind     formKind
	form     *huh.Form
	values   *formValues
	courseID string // formAddModule
	title    string
}

// newForm creates an embedded form in the app's theme. Esc cancels.
func newForm(groups ...*huh.Group) *huh.Form {
	km := huh.NewDefaultKeyMap()
	km.Quit = key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "cancel"))
	return huh.NewForm(groups...).
		WithTheme(huh.ThemeDracula()).
		WithKeyMap(km).
		WithShowHelp(false)
}

func required(label string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", label)
		}
		return nil
	}
}

// validEmail checks the address with the rule the API client applies, so a
// value the form accepts is never rejected at submit time.
func validEmail(s string) error {
	return api.ValidateEmail(strings.TrimSpace(s))
}

func existingFile(label string, optional bool) func(string) error {
	return func(s string) error {
		s = strings.TrimSpace(s)
		if s == "" {
			if optional {
				return nil
			}
			return fmt.Errorf("%s is required", label)
		}
		for _, p := range splitPaths(s) {
			if st, err := os.Stat(p); err != nil || st.IsDir() {
				return fmt.Errorf("file not found: %s", p)
			}
		}
		return nil
	}
}

// splitPaths splits a comma separated path list and expands ~.
func splitPaths(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if p == "~" || strings.HasPrefix(p, "~/") {
			if home, err := os.UserHomeDir(); err == nil {
				p = filepath.Join(home, strings.TrimPrefix(p, "~"))
			}
		}
		out = append(out, p)
	}
	return out
}

func (m *Model) openLoginForm(email string) {
	v := &formValues{Email: email}
	f := newForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email").
				Placeholder("you@example.com").
				Value(&v.Email).
				Validate(validEmail),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&v.Password).
				Validate(required("password")),
		).Title("Sign in").Description("Use the account your course administrator created."),
	)
	m.form = &formState{kind: formLogin, form: f, values: v, title: "Sign in"}
}

func (m *Model) openRegisterForm() tea.Cmd {
	v := &formValues{}
	var opts []huh.Option[string]
	for _, c := range m.admin.courseData {
		opts = append(opts, huh.NewOption(c.Title, c.ID))
	}
	fields := []huh.Field{
		huh.NewInput().Title("Name").Value(&v.Name).Validate(required("name")),
		huh.NewInput().Title("Email").Value(&v.Email).Validate(validEmail),
		huh.NewInput().
			Title("Password").
			Description("At least 6 characters").
			EchoMode(huh.EchoModePassword).
			Value(&v.Password).
			Validate(api.ValidatePassword),
	}
	if len(opts) > 0 {
		fields = append(fields, huh.NewMultiSelect[string]().
			Title("Paid courses").
			Options(opts...).
			Value(&v.PaidCourses))
	}
	m.form = &formState{
		kind:   formRegisterStudent,
		form:   newForm(huh.NewGroup(fields...)),
		values: v,
		title:  "Register student",
	}
	m.resize()
	return m.form.form.Init()
}

func (m *Model) openCourseForm() tea.Cmd {
	v := &formValues{}
	f := newForm(
		huh.NewGroup(
			huh.NewInput().Title("Title").Value(&v.Title).Validate(required("title")),
			huh.NewText().Title("Description").Description("Markdown is rendered for students").Value(&v.Description).Validate(required("description")),
			huh.NewInput().Title("Start date").Placeholder(model.DateLayout).Value(&v.StartDate).Validate(func(s string) error {
				if _, err := model.ParseStartDate(s); err != nil {
					return fmt.Errorf("use %s", model.DateLayout)
				}
				return nil
			}),
			huh.NewInput().Title("Duration").Placeholder("4 weeks").Value(&v.Duration).Validate(required("duration")),
		),
		huh.NewGroup(
			huh.NewInput().Title("Thumbnail image").Placeholder("~/images/cover.png").Value(&v.Thumbnail).Validate(existingFile("thumbnail", false)),
			huh.NewInput().Title("Materials").Description("Comma separated file paths (optional)").Value(&v.Materials).Validate(existingFile("materials", true)),
		),
	)
	m.form = &formState{kind: formCreateCourse, form: f, values: v, title: "Create course"}
	m.resize()
	return m.form.form.Init()
}

func (m *Model) openModuleForm(course model.Course) tea.Cmd {
	v := &formValues{Title: fmt.Sprintf("Day %d", len(course.Modules)+1)}
	f := newForm(
		huh.NewGroup(
			huh.NewInput().Title("Module title").Value(&v.Title).Validate(required("title")),
			huh.NewText().Title("Description").Value(&v.Description),
			huh.NewInput().Title("Video file").Placeholder("~/videos/day1.mp4").Value(&v.Video).Validate(existingFile("video", false)),
			huh.NewInput().Title("Materials").Description("Comma separated file paths (optional)").Value(&v.Materials).Validate(existingFile("materials", true)),
		).Title("Add module to " + course.Title),
	)
	m.form = &formState{kind: formAddModule, form: f, values: v, courseID: course.ID, title: "Add module"}
	m.resize()
	return m.form.form.Init()
}

func (m Model) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	fs := m.form
	updated, cmd := fs.form.Update(msg)
	if f, ok := updated.(*huh.Form); ok {
		fs.form = f
	}

	switch fs.form.State {
	case huh.StateAborted:
		if fs.kind == formLogin {
			return m, tea.Quit
		}
		m.form = nil
		m.setStatus("Cancelled")
		return m, nil
	case huh.StateCompleted:
		return m.submitForm()
	}
	return m, cmd
}

// submitForm turns a completed form into its backend request.
func (m Model) submitForm() (Model, tea.Cmd) {
	fs := m.form
	v := fs.values
	b, cred := m.backend, m.cred

	switch fs.kind {
	case formLogin:
		m.form = nil
		m.loginEmail = strings.TrimSpace(v.Email)
		m.setStatus("Signing in…")
		return m, loginCmd(b, api.LoginRequest{Email: m.loginEmail, Password: v.Password})

	case formRegisterStudent:
		req := api.RegisterStudentRequest{
			Name:        strings.TrimSpace(v.Name),
			Email:       strings.TrimSpace(v.Email),
			Password:    v.Password,
			PaidCourses: v.PaidCourses,
		}
		m.form = nil
		m.setStatus("Registering " + req.Name + "…")
		return m, adminActionCmd("✅ Registered "+req.Name, func(ctx context.Context) error {
			_, err := b.RegisterStudent(ctx, cred, req)
			return err
		})

	case formCreateCourse:
		req := api.CreateCourseRequest{
			Title:       strings.TrimSpace(v.Title),
			Description: strings.TrimSpace(v.Description),
			StartDate:   strings.TrimSpace(v.StartDate),
			Duration:    strings.TrimSpace(v.Duration),
			Thumbnail:   firstOrEmpty(splitPaths(v.Thumbnail)),
			Materials:   splitPaths(v.Materials),
		}
		m.form = nil
		m.setStatus("Uploading " + req.Title + "…")
		return m, adminActionCmd("✅ Created course "+req.Title, func(ctx context.Context) error {
			_, err := b.CreateCourse(ctx, cred, req)
			return err
		})

	case formAddModule:
		req := api.AddModuleRequest{
			Title:       strings.TrimSpace(v.Title),
			Description: strings.TrimSpace(v.Description),
			Video:       firstOrEmpty(splitPaths(v.Video)),
			Materials:   splitPaths(v.Materials),
		}
		courseID := fs.courseID
		m.form = nil
		m.setStatus("Uploading " + req.Title + "…")
		return m, adminActionCmd("✅ Added module "+req.Title, func(ctx context.Context) error {
			_, err := b.AddModule(ctx, cred, courseID, req)
			return err
		})
	}
	m.form = nil
	return m, nil
}

func firstOrEmpty(s []string) string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}

func (m Model) renderForm() string {
	title := m.theme.Title.Render(m.form.title)
	box := ModalStyle.Render(title + "\n\n" + m.form.form.View())
	return lipgloss.Place(m.width, m.bodyHeight(), lipgloss.Center, lipgloss.Center, box)
}
