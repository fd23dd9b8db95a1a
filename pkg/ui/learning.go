package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/vanderheijden86/coursework/pkg/debug"
	"github.com/vanderheijden86/coursework/pkg/logger"
	"github.com/vanderheijden86/coursework/pkg/model"
	"github.com/vanderheijden86/coursework/pkg/progression"
)

// Learning area notices.
const (
	noticeVideoLocked  = "🔒 This video is locked. Complete previous videos first."
	noticeModuleLocked = "🔒 Next module is locked. Complete this module first."
	noticeAllComplete  = "🎉 Congratulations! You've completed all available videos."
	noticeAtStart      = "Already at the first video"
	noticeNoSelection  = "No unlocked videos yet"
)

type learningState struct {
	courseID string
	title    string
	nav      *progression.Navigator
	loading  bool
	err      error

	// row is the highlighted sidebar row, independent of the playing video.
	row         int
	reporting   bool
	downloading bool
	hideSidebar bool
}

// sidebarRow is a module header or, when the module is expanded, a video.
type sidebarRow struct {
	module int
	video  int // -1 for the module header
}

func (l learningState) rows() []sidebarRow {
	if l.nav == nil {
		return nil
	}
	var rows []sidebarRow
	exp := l.nav.Expanded()
	for mi, mod := range l.nav.Course().Modules {
		rows = append(rows, sidebarRow{module: mi, video: -1})
		if !exp.Has(mod.ID) {
			continue
		}
		for vi := range mod.Videos {
			rows = append(rows, sidebarRow{module: mi, video: vi})
		}
	}
	return rows
}

// syncRow moves the sidebar highlight to the current video, or its module
// header when that module is collapsed.
func (l *learningState) syncRow() {
	if l.nav == nil {
		return
	}
	cur, ok := l.nav.Cursor()
	if !ok {
		return
	}
	for i, r := range l.rows() {
		if r.module != cur.ModuleIndex {
			continue
		}
		if r.video == cur.VideoIndex {
			l.row = i
			return
		}
		if r.video == -1 {
			l.row = i
		}
	}
}

func (l *learningState) clampRow() {
	n := len(l.rows())
	if l.row >= n {
		l.row = n - 1
	}
	if l.row < 0 {
		l.row = 0
	}
}

// openCourse enters the learning area for a course.
func (m Model) openCourse(courseID, title string) (Model, tea.Cmd) {
	m.learn = learningState{courseID: courseID, title: title, hideSidebar: m.learn.hideSidebar}
	return m.enter(screenLearning)
}

func (m Model) handleCourseLoaded(msg courseLoadedMsg) (tea.Model, tea.Cmd) {
	if !m.sameCourse(msg.Gen, msg.CourseID) {
		return m, nil
	}
	m.learn.loading = false
	if msg.Err != nil {
		if msg.Refresh {
			// The local completion flag already stands; only server-side
			// unlocks are missing.
			logger.Logger.Warn("refreshing course after completion", zap.Error(msg.Err))
			return m.failed(msg.Err, "Failed to refresh course")
		}
		m.learn.err = msg.Err
		return m.failed(msg.Err, "Failed to fetch course")
	}

	if msg.Course.Title != "" {
		m.learn.title = msg.Course.Title
	}
	if msg.Refresh && m.learn.nav != nil {
		m.learn.nav.Replace(msg.Course)
	} else {
		m.learn.nav = progression.New(msg.Course)
		if _, ok := m.learn.nav.Cursor(); !ok {
			m.setStatus(noticeNoSelection)
		}
	}
	m.learn.err = nil
	m.learn.syncRow()
	if cur, ok := m.learn.nav.Cursor(); ok {
		debug.Dump("cursor", cur)
	}
	return m, nil
}

func (m Model) handleCompletion(msg completionMsg) (tea.Model, tea.Cmd) {
	if !m.sameCourse(msg.Gen, msg.CourseID) {
		return m, nil
	}
	m.learn.reporting = false
	if msg.Err != nil {
		logger.Logger.Warn("video completion failed",
			zap.String("course_id", msg.CourseID),
			zap.String("video_id", msg.VideoID),
			zap.Error(msg.Err),
		)
		return m.failed(msg.Err, "Failed to mark video as completed")
	}
	m.learn.nav.CommitCompleted(msg.VideoID)
	m.setStatus(fmt.Sprintf("✓ Completed %q", msg.Title))
	return m, fetchCourseCmd(m.backend, m.cred, msg.CourseID, m.gen, true)
}

func (m Model) handleMaterials(msg materialsMsg) (tea.Model, tea.Cmd) {
	if !m.sameCourse(msg.Gen, msg.CourseID) {
		return m, nil
	}
	m.learn.downloading = false
	if msg.Err != nil {
		mm, cmd := m.failed(msg.Err, "Failed to download materials")
		if len(msg.Paths) > 0 && mm.screen == screenLearning {
			mm.statusMsg += fmt.Sprintf(" (%d saved)", len(msg.Paths))
		}
		return mm, cmd
	}
	m.setStatus(fmt.Sprintf("📥 Saved %d file(s) to %s", len(msg.Paths), m.downloadDir))
	return m, nil
}

func (m Model) handleLearningKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	l := &m.learn
	if msg.String() == "esc" || msg.String() == "backspace" {
		return m.enter(screenDashboard)
	}
	if l.nav == nil {
		if msg.String() == "r" && !l.loading {
			return m, m.loadScreenCmd()
		}
		return m, nil
	}

	switch msg.String() {
	case "j", "down":
		l.row++
		l.clampRow()
	case "k", "up":
		l.row--
		l.clampRow()
	case "enter":
		return m.activateRow()
	case " ":
		rows := l.rows()
		if l.row < len(rows) {
			mod := l.nav.Course().Modules[rows[l.row].module]
			l.nav.Expanded().Toggle(mod.ID)
			l.syncRowToModule(rows[l.row].module)
		}
	case "n", "right", "l":
		m.applyStep(l.nav.Advance())
	case "p", "left", "h":
		m.applyStep(l.nav.Retreat())
	case "s":
		l.hideSidebar = !l.hideSidebar
	case "o":
		if v, ok := l.nav.Current(); ok {
			return m, OpenInPlayerCmd(m.cfg.Player, v.VideoURL)
		}
		m.setStatus(noticeNoSelection)
	case "y":
		v, ok := l.nav.Current()
		if !ok {
			m.setStatus(noticeNoSelection)
			break
		}
		if err := writeClipboard(v.VideoURL); err != nil {
			m.setError(fmt.Sprintf("❌ Clipboard error: %v", err))
		} else {
			m.setStatus("📋 Copied video URL to clipboard")
		}
	case "c":
		v, ok := l.nav.Current()
		switch {
		case !ok:
			m.setStatus(noticeNoSelection)
		case v.Completed:
			m.setStatus("Already completed")
		case l.reporting:
		default:
			l.reporting = true
			m.setStatus("Marking as completed…")
			return m, reportCompletedCmd(m.backend, m.cred, l.courseID, *v, m.gen)
		}
	case "d":
		mats := l.nav.Course().Materials
		switch {
		case len(mats) == 0:
			m.setStatus("This course has no materials")
		case l.downloading:
		default:
			l.downloading = true
			m.setStatus(fmt.Sprintf("Downloading %d file(s)…", len(mats)))
			return m, downloadMaterialsCmd(m.backend, l.courseID, mats, m.downloadDir, m.gen)
		}
	case "r":
		l.loading = true
		return m, fetchCourseCmd(m.backend, m.cred, l.courseID, m.gen, true)
	}
	return m, nil
}

// activateRow selects the highlighted video or toggles a module header.
func (m Model) activateRow() (tea.Model, tea.Cmd) {
	l := &m.learn
	rows := l.rows()
	if l.row >= len(rows) {
		return m, nil
	}
	r := rows[l.row]
	if r.video < 0 {
		l.nav.Expanded().Toggle(l.nav.Course().Modules[r.module].ID)
		return m, nil
	}
	if !l.nav.Select(r.module, r.video) {
		m.setStatus(noticeVideoLocked)
		return m, nil
	}
	m.statusMsg = ""
	return m, nil
}

func (l *learningState) syncRowToModule(module int) {
	for i, r := range l.rows() {
		if r.module == module && r.video == -1 {
			l.row = i
			return
		}
	}
}

// applyStep turns a navigation result into status feedback.
func (m *Model) applyStep(res progression.Result) {
	debug.LogIf(res.Outcome != progression.Moved, "navigation refused: %s (boundary=%t)", res.Outcome, res.Boundary)
	switch res.Outcome {
	case progression.Moved:
		m.statusMsg = ""
		m.statusIsError = false
		m.learn.syncRow()
	case progression.Locked:
		if res.Boundary {
			m.setStatus(noticeModuleLocked)
		} else {
			m.setStatus(noticeVideoLocked)
		}
	case progression.Complete:
		m.setStatus(noticeAllComplete)
	case progression.AtStart:
		m.setStatus(noticeAtStart)
	case progression.NoSelection:
		m.setStatus(noticeNoSelection)
	}
}

func (m Model) renderLearning() string {
	l := m.learn
	h := m.bodyHeight()
	switch {
	case l.nav == nil && l.loading:
		return m.theme.MutedText.Render("Loading course…")
	case l.nav == nil && l.err != nil:
		return m.theme.ErrorText.Render("Could not load this course.") + "\n" +
			m.theme.MutedText.Render("Press r to retry or esc to go back.")
	case l.nav == nil:
		return ""
	}

	if l.hideSidebar {
		return m.renderVideoPane(m.width, h)
	}
	sideW := m.cfg.UI.SidebarWidth
	if sideW <= 0 {
		sideW = 36
	}
	if sideW > m.width/2 {
		sideW = m.width / 2
	}
	side := m.renderSidebar(sideW, h)
	main := m.renderVideoPane(m.width-sideW-1, h)
	return lipgloss.JoinHorizontal(lipgloss.Top, side, " ", main)
}

func (m Model) renderSidebar(width, height int) string {
	l := m.learn
	course := l.nav.Course()
	t := m.theme
	cur, hasCur := l.nav.Cursor()

	var b strings.Builder
	done, total := course.CompletedVideos(), course.TotalVideos()
	b.WriteString(t.Title.Render(truncate(course.Title, width)) + "\n")
	b.WriteString(t.MutedText.Render(fmt.Sprintf("%d/%d videos • %s", done, total, FormatMinutes(course.TotalMinutes()))) + "\n")
	b.WriteString(RenderProgressBar(course.Progress(), width-6, t) + "\n\n")

	rows := l.rows()
	// Keep the highlighted row visible.
	avail := height - 4
	start := 0
	if avail > 0 && l.row >= avail {
		start = l.row - avail + 1
	}
	for i := start; i < len(rows) && (avail <= 0 || i < start+avail); i++ {
		r := rows[i]
		mod := course.Modules[r.module]
		var line string
		if r.video < 0 {
			arrow := "▸"
			if l.nav.Expanded().Has(mod.ID) {
				arrow = "▾"
			}
			label := mod.Title
			if mod.Day > 0 {
				label = fmt.Sprintf("Day %d · %s", mod.Day, mod.Title)
			}
			meta := FormatMinutes(mod.Minutes())
			if mod.Completed() {
				meta = "✓ " + meta
			}
			metaW := lipgloss.Width(meta)
			line = arrow + " " + padRight(truncate(label, width-metaW-4), width-metaW-3) + t.MutedText.Render(meta)
			line = t.PrimaryBold.Render(line)
		} else {
			v := mod.Videos[r.video]
			isCur := hasCur && cur.ModuleIndex == r.module && cur.VideoIndex == r.video
			glyph, color := t.VideoGlyph(v, isCur)
			dur := v.Duration()
			durW := lipgloss.Width(dur)
			title := padRight(truncate(v.Title, width-durW-7), width-durW-6)
			style := t.Base
			if !v.Unlocked {
				style = t.MutedText
			}
			line = "  " + t.Renderer.NewStyle().Foreground(color).Render(glyph) + " " + style.Render(title) + t.MutedText.Render(dur)
		}
		if i == l.row {
			line = t.Selected.Render(line)
		}
		b.WriteString(line + "\n")
	}
	return lipgloss.NewStyle().Width(width).MaxHeight(height).Render(b.String())
}

func (m Model) renderVideoPane(width, height int) string {
	l := m.learn
	t := m.theme
	v, ok := l.nav.Current()
	if !ok {
		return PanelStyle.Width(width - 2).Render(t.MutedText.Render("No unlocked videos yet. Check back once your course has started."))
	}
	mod, _ := l.nav.CurrentModule()

	var b strings.Builder
	b.WriteString(t.MutedText.Render(mod.Title) + "\n")
	b.WriteString(t.Title.Render(truncate(v.Title, width-4)) + "\n\n")

	state := t.SecondaryText.Render("Not completed")
	if v.Completed {
		state = t.SuccessText.Render("✓ Completed")
	}
	if l.reporting {
		state = t.WarningText.Render("Saving…")
	}
	b.WriteString(fmt.Sprintf("Duration  %s\n", v.Duration()))
	b.WriteString(fmt.Sprintf("Status    %s\n", state))
	b.WriteString(fmt.Sprintf("URL       %s\n\n", t.MutedText.Render(truncate(v.VideoURL, width-14))))

	b.WriteString(t.KeyHint.Render("o") + " play   " +
		t.KeyHint.Render("c") + " mark completed   " +
		t.KeyHint.Render("y") + " copy link   " +
		t.KeyHint.Render("n") + "/" + t.KeyHint.Render("p") + " next/prev\n")

	if mats := l.nav.Course().Materials; len(mats) > 0 {
		b.WriteString("\n" + t.PrimaryBold.Render(fmt.Sprintf("Materials (%d)", len(mats))) + "  " + t.MutedText.Render("press d to download") + "\n")
		for _, mat := range mats {
			b.WriteString("  • " + truncate(materialLabel(mat), width-8) + "\n")
		}
	}
	return FocusedPanelStyle.Width(width - 2).MaxHeight(height).Render(b.String())
}

func materialLabel(mat model.Material) string {
	if mat.Title != "" {
		return mat.Title
	}
	return mat.FileURL
}
