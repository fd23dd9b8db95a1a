package ui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/vanderheijden86/coursework/pkg/api"
	"github.com/vanderheijden86/coursework/pkg/config"
	"github.com/vanderheijden86/coursework/pkg/debug"
	"github.com/vanderheijden86/coursework/pkg/logger"
	"github.com/vanderheijden86/coursework/pkg/metrics"
	"github.com/vanderheijden86/coursework/pkg/model"
	"github.com/vanderheijden86/coursework/pkg/session"
	"github.com/vanderheijden86/coursework/pkg/watcher"
)

// screen is the top-level page being shown.
type screen int

const (
	screenLogin screen = iota
	screenDashboard
	screenLearning
	screenAdmin
)

func (s screen) String() string {
	switch s {
	case screenLogin:
		return "login"
	case screenDashboard:
		return "dashboard"
	case screenLearning:
		return "learning"
	case screenAdmin:
		return "admin"
	default:
		return fmt.Sprintf("screen(%d)", int(s))
	}
}

// Default dimensions until the first WindowSizeMsg arrives.
const (
	defaultWidth  = 100
	defaultHeight = 30
)

// Options wires the Model to its collaborators.
type Options struct {
	Backend     Backend
	Store       *session.Store
	Watcher     *watcher.Watcher // optional; notices logout from other terminals
	Config      config.Config
	DownloadDir string           // where course materials are saved
	Now         func() time.Time // defaults to time.Now
}

// confirmState is a pending yes/no question.
type confirmState struct {
	prompt string
	onYes  func() tea.Cmd
}

// Model is the main Bubble Tea model for cw
type Model struct {
	backend     Backend
	store       *session.Store
	watcher     *watcher.Watcher
	cfg         config.Config
	theme       Theme
	now         func() time.Time
	downloadDir string

	cred   session.Credential
	screen screen
	width  int
	height int
	// gen bumps whenever a screen is entered or left. Async results carry
	// the gen they started under and are ignored once it has moved on.
	gen int

	statusMsg     string
	statusIsError bool

	form       *formState
	confirm    *confirmState
	loginEmail string // prefills the form after a failed attempt

	dash  dashboardState
	learn learningState
	admin adminState
}

// NewModel builds the root model and applies the route guard: a valid saved
// session lands on the user's home screen, anything else on login.
func NewModel(opts Options) Model {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	store := opts.Store
	if store == nil {
		store = session.NewStore("")
	}

	theme := DefaultTheme(lipgloss.DefaultRenderer())
	m := Model{
		backend:     opts.Backend,
		store:       store,
		watcher:     opts.Watcher,
		cfg:         opts.Config,
		theme:       theme,
		now:         now,
		downloadDir: opts.DownloadDir,
		width:       defaultWidth,
		height:      defaultHeight,
		dash:        newDashboardState(theme),
		admin:       newAdminState(theme),
	}
	m.learn.hideSidebar = opts.Config.UI.HideSidebar

	cred, err := store.Load()
	switch {
	case err == nil && cred.Valid(now()):
		m.cred = cred
		m.screen = homeScreen(cred)
	case err == nil:
		_ = store.Clear()
		m.setError("Your session has expired. Please log in again.")
		m.openLoginForm("")
	default:
		if !errors.Is(err, session.ErrNoSession) {
			logger.Logger.Warn("ignoring unreadable session", zap.Error(err))
		}
		m.openLoginForm("")
	}
	m.resize()
	return m
}

// homeScreen is where a signed-in user lands.
func homeScreen(cred session.Credential) screen {
	if cred.User.IsAdmin() {
		return screenAdmin
	}
	return screenDashboard
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{WatchSessionCmd(m.watcher)}
	if m.form != nil {
		cmds = append(cmds, m.form.form.Init())
	}
	cmds = append(cmds, m.loadScreenCmd())
	return tea.Batch(cmds...)
}

// loadScreenCmd fetches whatever the current screen displays.
func (m *Model) loadScreenCmd() tea.Cmd {
	switch m.screen {
	case screenDashboard:
		m.dash.loading = true
		return paidCoursesCmd(m.backend, m.cred, m.gen)
	case screenAdmin:
		m.admin.loading = true
		return adminLoadCmd(m.backend, m.cred, m.gen)
	case screenLearning:
		m.learn.loading = true
		return fetchCourseCmd(m.backend, m.cred, m.learn.courseID, m.gen, false)
	}
	return nil
}

// enter switches screens and starts loading the new one.
func (m Model) enter(s screen) (Model, tea.Cmd) {
	debug.Log("screen %s -> %s", m.screen, s)
	m.gen++
	m.screen = s
	m.confirm = nil
	return m, m.loadScreenCmd()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		if m.form != nil {
			return m.updateForm(msg)
		}
		return m, nil

	case loginDoneMsg:
		return m.handleLoginDone(msg)

	case paidCoursesMsg:
		return m.handlePaidCourses(msg)

	case courseLoadedMsg:
		return m.handleCourseLoaded(msg)

	case completionMsg:
		return m.handleCompletion(msg)

	case materialsMsg:
		return m.handleMaterials(msg)

	case adminDataMsg:
		return m.handleAdminData(msg)

	case adminActionMsg:
		return m.handleAdminAction(msg)

	case playerLaunchedMsg:
		if msg.Err != nil {
			m.setError(fmt.Sprintf("❌ Could not open player: %v", msg.Err))
		} else {
			m.setStatus(fmt.Sprintf("▶ Opened in %s", msg.Player))
		}
		return m, nil

	case sessionEventMsg:
		return m.handleSessionEvent(msg)

	case tea.KeyMsg:
		if m.form != nil {
			return m.updateForm(msg)
		}
		if m.confirm != nil {
			return m.handleConfirmKeys(msg)
		}
		return m.handleKeys(msg)
	}

	if m.form != nil {
		return m.updateForm(msg)
	}
	return m.forwardToLists(msg)
}

// forwardToLists lets list components process their own internal messages
// (filter matches, status timeouts).
func (m Model) forwardToLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.screen {
	case screenDashboard:
		m.dash.list, cmd = m.dash.list.Update(msg)
	case screenAdmin:
		if m.admin.tab == tabStudents {
			m.admin.students, cmd = m.admin.students.Update(msg)
		} else {
			m.admin.courses, cmd = m.admin.courses.Update(msg)
		}
	}
	return m, cmd
}

func (m Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	// Lists in filter mode own the keyboard.
	if m.listFiltering() {
		return m.forwardToLists(msg)
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "L":
		return m.logout("👋 Logged out")
	}

	switch m.screen {
	case screenDashboard:
		return m.handleDashboardKeys(msg)
	case screenLearning:
		return m.handleLearningKeys(msg)
	case screenAdmin:
		return m.handleAdminKeys(msg)
	}
	return m, nil
}

func (m Model) listFiltering() bool {
	switch m.screen {
	case screenDashboard:
		return m.dash.list.SettingFilter()
	case screenAdmin:
		return m.admin.activeList().SettingFilter()
	}
	return false
}

func (m Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y", "enter":
		c := m.confirm
		m.confirm = nil
		return m, c.onYes()
	case "n", "N", "esc", "q":
		m.confirm = nil
		m.setStatus("Cancelled")
	case "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) handleLoginDone(msg loginDoneMsg) (tea.Model, tea.Cmd) {
	if m.screen != screenLogin {
		return m, nil
	}
	if msg.Err != nil {
		logger.Logger.Info("login failed", zap.Error(msg.Err))
		m.setError("❌ " + errorText(msg.Err, "Login failed"))
		m.openLoginForm(m.loginEmail)
		return m, m.form.form.Init()
	}

	if err := m.store.Save(msg.Cred); err != nil {
		logger.Logger.Warn("saving session", zap.Error(err))
		m.setError(fmt.Sprintf("⚠️ Logged in, but the session could not be saved: %v", err))
	} else {
		m.setStatus(fmt.Sprintf("Welcome back, %s!", msg.Cred.User.Name))
	}
	logger.Logger.Info("logged in",
		zap.String("user_id", msg.Cred.User.ID),
		zap.String("role", string(msg.Cred.User.Role)),
	)
	m.form = nil
	m.cred = msg.Cred
	return m.enter(homeScreen(msg.Cred))
}

// logout forgets the credential and returns to the login form.
func (m Model) logout(notice string) (Model, tea.Cmd) {
	if err := m.store.Clear(); err != nil {
		logger.Logger.Warn("clearing session", zap.Error(err))
	}
	m.cred = session.Credential{}
	m.gen++
	m.screen = screenLogin
	m.confirm = nil
	m.learn = learningState{hideSidebar: m.learn.hideSidebar}
	m.dash.reset()
	m.admin.reset()
	m.setStatus(notice)
	m.openLoginForm("")
	return m, m.form.form.Init()
}

// failed reports a backend error. Rejected credentials end the session.
func (m Model) failed(err error, fallback string) (Model, tea.Cmd) {
	if api.IsUnauthorized(err) {
		mm, cmd := m.logout("")
		mm.setError("🔑 Your session has expired. Please log in again.")
		return mm, cmd
	}
	m.setError("❌ " + errorText(err, fallback))
	return m, nil
}

func (m Model) handleSessionEvent(msg sessionEventMsg) (tea.Model, tea.Cmd) {
	next := WatchSessionCmd(m.watcher)
	switch msg.Kind {
	case watcher.Removed:
		if m.screen == screenLogin {
			return m, next
		}
		mm, cmd := m.logout("👋 Signed out from another terminal")
		return mm, tea.Batch(cmd, next)
	case watcher.Changed:
		cred, err := m.store.Load()
		if err != nil || cred.Token == m.cred.Token || !cred.Valid(m.now()) {
			return m, next
		}
		m.form = nil
		m.cred = cred
		m.setStatus(fmt.Sprintf("Signed in as %s from another terminal", cred.User.Name))
		mm, cmd := m.enter(homeScreen(cred))
		return mm, tea.Batch(cmd, next)
	}
	return m, next
}

func (m *Model) setStatus(s string) {
	m.statusMsg = s
	m.statusIsError = false
}

func (m *Model) setError(s string) {
	m.statusMsg = s
	m.statusIsError = true
}

// errorText picks the most useful message for the status bar.
func errorText(err error, fallback string) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	var verr *api.ValidationError
	if errors.As(err, &verr) {
		return verr.Error()
	}
	if err == nil {
		return fallback
	}
	return fmt.Sprintf("%s: %v", fallback, err)
}

// bodyHeight is the space between header and footer.
func (m Model) bodyHeight() int {
	h := m.height - 3
	if h < 5 {
		h = 5
	}
	return h
}

func (m *Model) resize() {
	h := m.bodyHeight()
	listW := m.width * 45 / 100
	if listW < 30 {
		listW = m.width
	}
	m.dash.list.SetSize(listW, h)
	m.admin.students.SetSize(listW, h-2)
	m.admin.courses.SetSize(listW, h-2)
	if m.form != nil {
		m.form.form = m.form.form.WithWidth(min(m.width-6, 72))
	}
}

// CurrentScreen exposes the active screen name (for tests and debugging).
func (m Model) CurrentScreen() string {
	return m.screen.String()
}

// Credential returns the signed-in credential.
func (m Model) Credential() session.Credential {
	return m.cred
}

// StatusMessage returns the current status line and whether it is an error.
func (m Model) StatusMessage() (string, bool) {
	return m.statusMsg, m.statusIsError
}

func (m Model) View() string {
	start := time.Now()
	defer func() {
		d := time.Since(start)
		metrics.UIRender.Record(d)
		debug.LogTiming("view "+m.screen.String(), d)
	}()

	var body string
	switch {
	case m.confirm != nil:
		body = m.renderConfirm()
	case m.form != nil:
		body = m.renderForm()
	default:
		switch m.screen {
		case screenDashboard:
			body = m.renderDashboard()
		case screenLearning:
			body = m.renderLearning()
		case screenAdmin:
			body = m.renderAdmin()
		default:
			body = m.theme.MutedText.Render("Signing in…")
		}
	}

	body = lipgloss.NewStyle().Height(m.bodyHeight()).MaxHeight(m.bodyHeight()).Render(body)
	return lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(), body, m.renderFooter())
}

func (m Model) renderHeader() string {
	title := m.theme.Header.Render("cw")
	crumb := ""
	switch m.screen {
	case screenDashboard:
		crumb = "My Courses"
	case screenLearning:
		crumb = "My Courses › " + m.learn.title
	case screenAdmin:
		crumb = "Admin › " + m.admin.tab.String()
	case screenLogin:
		crumb = "Sign in"
	}
	left := title + " " + m.theme.PrimaryBold.Render(truncate(crumb, m.width/2))

	right := ""
	if !m.cred.Empty() {
		right = m.theme.SecondaryText.Render(m.cred.User.Name) + " " + RenderRoleBadge(string(m.cred.User.Role))
	}
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

func (m Model) renderFooter() string {
	status := m.statusMsg
	style := m.theme.SecondaryText
	if m.statusIsError {
		style = m.theme.ErrorText
	}

	var hints string
	switch {
	case m.confirm != nil:
		hints = "y confirm • n cancel"
	case m.form != nil:
		hints = "tab next • enter submit • esc cancel"
	case m.screen == screenDashboard:
		hints = "enter open • / filter • r reload • L logout • q quit"
	case m.screen == screenLearning:
		hints = "n/→ next • p/← prev • enter select • space expand • o play • c complete • y copy • d materials • s sidebar • esc back"
	case m.screen == screenAdmin:
		hints = "tab switch • a add • m module • x delete • r reload • L logout • q quit"
	}

	line := RenderDivider(m.width)
	text := style.Render(truncate(status, m.width/2))
	hintText := m.theme.MutedText.Render(truncate(hints, m.width-lipgloss.Width(text)-2))
	gap := m.width - lipgloss.Width(text) - lipgloss.Width(hintText)
	if gap < 1 {
		gap = 1
	}
	return line + "\n" + text + strings.Repeat(" ", gap) + hintText
}

func (m Model) renderConfirm() string {
	box := ModalStyle.Render(m.confirm.prompt + "\n\n" + m.theme.KeyHint.Render("y") + " yes   " + m.theme.KeyHint.Render("n") + " no")
	return lipgloss.Place(m.width, m.bodyHeight(), lipgloss.Center, lipgloss.Center, box)
}

// courseTitleByID maps course ids to titles from whatever lists are loaded.
func (m Model) courseTitleByID() map[string]string {
	titles := make(map[string]string)
	for _, c := range m.admin.courseData {
		titles[c.ID] = c.Title
	}
	return titles
}

// Stop releases the session watcher.
func (m *Model) Stop() {
	if m.watcher != nil {
		m.watcher.Stop()
	}
}

// sameCourse reports whether an async course result still applies.
func (m Model) sameCourse(gen int, courseID string) bool {
	return m.screen == screenLearning && gen == m.gen && courseID == m.learn.courseID
}

var _ tea.Model = Model{}

// paidCourseLabel renders a student's paid course for lists.
func paidCourseLabel(pc model.PaidCourse, titles map[string]string) string {
	if pc.Title != "" {
		return pc.Title
	}
	if t, ok := titles[pc.ID]; ok {
		return t
	}
	return pc.ID
}
