package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/pprof"
	"strconv"
	"strings"
	"syscall"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/vanderheijden86/coursework/pkg/api"
	"github.com/vanderheijden86/coursework/pkg/calendar"
	"github.com/vanderheijden86/coursework/pkg/config"
	"github.com/vanderheijden86/coursework/pkg/export"
	"github.com/vanderheijden86/coursework/pkg/logger"
	"github.com/vanderheijden86/coursework/pkg/metrics"
	"github.com/vanderheijden86/coursework/pkg/model"
	"github.com/vanderheijden86/coursework/pkg/session"
	"github.com/vanderheijden86/coursework/pkg/ui"
	"github.com/vanderheijden86/coursework/pkg/version"
	"github.com/vanderheijden86/coursework/pkg/watcher"

	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// errNotLoggedIn is returned by commands that need a saved session.
var errNotLoggedIn = errors.New("not logged in; run 'cw --login EMAIL' first")

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("cw", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cpuProfile := fs.String("cpu-profile", "", "Write CPU profile to file")
	help := fs.Bool("help", false, "Show help")
	versionFlag := fs.Bool("version", false, "Show version")
	apiURL := fs.String("api-url", "", "API base URL (overrides CW_API_URL and the config file)")
	logoutFlag := fs.Bool("logout", false, "Forget the saved session")
	loginEmail := fs.String("login", "", "Sign in as EMAIL; the password is read from the terminal")
	robotCourses := fs.Bool("robot-courses", false, "Print your courses as JSON")
	robotCourse := fs.String("robot-course", "", "Print one course with its modules as JSON")
	exportCalendar := fs.String("export-calendar", "", "Write an iCalendar file with one event per module")
	exportSyllabus := fs.String("export-syllabus", "", "Render a course syllabus as Markdown")
	output := fs.String("output", "", "File for --export-syllabus (default: stdout)")
	metricsFlag := fs.Bool("metrics", false, "Print request timings as JSON to stderr on exit")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	// CPU profiling support
	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(stderr, "Could not create CPU profile: %v\n", err)
			return 1
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(stderr, "Could not start CPU profile: %v\n", err)
			return 1
		}
		defer pprof.StopCPUProfile()
	}

	if *help {
		fmt.Fprintln(stdout, "Usage: cw [options]")
		fmt.Fprintln(stdout, "\nA terminal client for your online courses.")
		fs.SetOutput(stdout)
		fs.PrintDefaults()
		return 0
	}

	if *versionFlag {
		fmt.Fprintf(stdout, "cw %s\n", version.Version)
		return 0
	}

	cfg, err := config.Load()
	if err != nil {
		// Non-fatal: continue with defaults and the environment
		fmt.Fprintf(stderr, "Warning: %v\n", err)
	}
	if *apiURL != "" {
		cfg.APIURL = strings.TrimRight(strings.TrimSpace(*apiURL), "/")
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if err := logger.Init(cfg.Log.Level, cfg.LogPath()); err != nil {
		fmt.Fprintf(stderr, "Warning: logging disabled: %v\n", err)
	}
	defer logger.Sync()
	logger.Logger.Info("starting", zap.String("version", version.Version), zap.String("api_url", cfg.APIURL))

	if *metricsFlag {
		defer printMetrics(stderr)
	}

	store := session.NewStore("")
	client := api.New(api.Options{BaseURL: cfg.APIURL, Timeout: cfg.HTTP.Timeout})
	ctx := context.Background()

	switch {
	case *logoutFlag:
		if err := store.Clear(); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Fprintln(stdout, "Logged out")
		return 0

	case *loginEmail != "":
		password, err := readPassword(stdin, stderr)
		if err != nil {
			fmt.Fprintf(stderr, "Error reading password: %v\n", err)
			return 1
		}
		cred, err := client.Login(ctx, api.LoginRequest{Email: *loginEmail, Password: password})
		if err != nil {
			fmt.Fprintf(stderr, "Login failed: %v\n", err)
			return 1
		}
		if err := store.Save(cred); err != nil {
			fmt.Fprintf(stderr, "Error saving session: %v\n", err)
			return 1
		}
		fmt.Fprintf(stdout, "Welcome back, %s!\n", cred.User.Name)
		return 0

	case *robotCourses, *robotCourse != "", *exportCalendar != "", *exportSyllabus != "":
		cred, err := loadCredential(store)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		switch {
		case *robotCourses:
			err = printCourses(ctx, client, cred, stdout)
		case *robotCourse != "":
			err = printCourse(ctx, client, cred, *robotCourse, stdout)
		case *exportSyllabus != "":
			err = writeSyllabus(ctx, client, cred, *exportSyllabus, *output, stdout)
		default:
			err = writeCalendar(ctx, client, cred, *exportCalendar, stdout, stderr)
		}
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			if api.IsUnauthorized(err) {
				fmt.Fprintln(stderr, "Your session has expired. Run 'cw --login EMAIL' again.")
			}
			return 1
		}
		return 0
	}

	// Launch TUI
	var w *watcher.Watcher
	if sw, err := watcher.NewWatcher(store.Path(), watcher.WithOnError(func(err error) {
		logger.Logger.Warn("session watcher", zap.Error(err))
	})); err == nil {
		if err := sw.Start(); err != nil {
			logger.Logger.Warn("session watcher disabled", zap.Error(err))
		} else {
			w = sw
		}
	}

	m := ui.NewModel(ui.Options{
		Backend:     client,
		Store:       store,
		Watcher:     w,
		Config:      cfg,
		DownloadDir: downloadDir(),
	})
	defer m.Stop()

	if err := runTUIProgram(m); err != nil {
		fmt.Fprintf(stderr, "Error running cw: %v\n", err)
		return 1
	}
	return 0
}

// loadCredential returns the saved session if it is still usable.
func loadCredential(store *session.Store) (session.Credential, error) {
	cred, err := store.Load()
	if errors.Is(err, session.ErrNoSession) {
		return session.Credential{}, errNotLoggedIn
	}
	if err != nil {
		return session.Credential{}, err
	}
	if !cred.Valid(time.Now()) {
		_ = store.Clear()
		return session.Credential{}, errNotLoggedIn
	}
	return cred, nil
}

// readPassword reads without echo from a terminal, or one line otherwise.
func readPassword(stdin io.Reader, stderr io.Writer) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(stderr, "Password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(stderr)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printCourses lists paid courses for students and the catalog for admins.
func printCourses(ctx context.Context, client *api.Client, cred session.Credential, stdout io.Writer) error {
	if cred.User.IsAdmin() {
		courses, err := client.ListCourses(ctx, cred)
		if err != nil {
			return err
		}
		return writeJSON(stdout, courses)
	}
	courses, err := client.PaidCourses(ctx, cred)
	if err != nil {
		return err
	}
	return writeJSON(stdout, courses)
}

// videoOutline is the scripting view of a video, including its estimated
// duration.
type videoOutline struct {
	model.Video
	Duration string `json:"duration"`
}

type moduleOutline struct {
	ID      string          `json:"_id"`
	Title   string          `json:"title"`
	Day     model.DayNumber `json:"day"`
	Minutes int             `json:"minutes"`
	Videos  []videoOutline  `json:"videos"`
}

type courseOutline struct {
	ID           string           `json:"_id"`
	Title        string           `json:"title"`
	StartDate    string           `json:"startDate,omitempty"`
	Materials    []model.Material `json:"materials,omitempty"`
	TotalVideos  int              `json:"totalVideos"`
	TotalMinutes int              `json:"totalMinutes"`
	Modules      []moduleOutline  `json:"modules"`
}

func printCourse(ctx context.Context, client *api.Client, cred session.Credential, courseID string, stdout io.Writer) error {
	c, err := client.FetchCourseDetail(ctx, cred, courseID)
	if err != nil {
		return err
	}
	out := courseOutline{
		ID:           c.ID,
		Title:        c.Title,
		StartDate:    c.StartDate,
		Materials:    c.Materials,
		TotalVideos:  c.TotalVideos(),
		TotalMinutes: c.TotalMinutes(),
		Modules:      make([]moduleOutline, 0, len(c.Modules)),
	}
	for _, m := range c.Modules {
		rm := moduleOutline{ID: m.ID, Title: m.Title, Day: m.Day, Minutes: m.Minutes(), Videos: make([]videoOutline, 0, len(m.Videos))}
		for _, v := range m.Videos {
			rm.Videos = append(rm.Videos, videoOutline{Video: v, Duration: v.Duration()})
		}
		out.Modules = append(out.Modules, rm)
	}
	return writeJSON(stdout, out)
}

// maxParallelFetches caps concurrent course detail requests.
const maxParallelFetches = 4

// calendarCourses collects full courses: the catalog for admins, each paid
// course's detail for students.
func calendarCourses(ctx context.Context, client *api.Client, cred session.Credential) ([]model.Course, error) {
	if cred.User.IsAdmin() {
		return client.ListCourses(ctx, cred)
	}
	paid, err := client.PaidCourses(ctx, cred)
	if err != nil {
		return nil, err
	}
	courses := make([]model.Course, len(paid))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelFetches)
	for i, pc := range paid {
		g.Go(func() error {
			c, err := client.FetchCourseDetail(gctx, cred, pc.ID)
			if err != nil {
				return err
			}
			if c.StartDate == "" {
				c.StartDate = pc.StartDate
			}
			courses[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return courses, nil
}

func writeCalendar(ctx context.Context, client *api.Client, cred session.Credential, path string, stdout, stderr io.Writer) error {
	courses, err := calendarCourses(ctx, client, cred)
	if err != nil {
		return err
	}
	res, err := calendar.WriteFile(path, courses, time.Now())
	if err != nil {
		return err
	}
	for _, s := range res.Skipped {
		fmt.Fprintf(stderr, "Skipped %q: %s\n", s.Title, s.Reason)
	}
	fmt.Fprintf(stdout, "Wrote %d event(s) to %s\n", res.Events, path)
	return nil
}

func writeSyllabus(ctx context.Context, client *api.Client, cred session.Credential, courseID, path string, stdout io.Writer) error {
	c, err := client.FetchCourseDetail(ctx, cred, courseID)
	if err != nil {
		return err
	}
	if path == "" {
		_, err = io.WriteString(stdout, export.GenerateSyllabus(c, time.Now()))
		return err
	}
	if err := export.SaveSyllabusToFile(c, path, time.Now()); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Wrote syllabus for %q to %s\n", c.Title, path)
	return nil
}

func printMetrics(stderr io.Writer) {
	var used []metrics.TimingStats
	for _, s := range metrics.AllTimingStats() {
		if s.Count > 0 {
			used = append(used, s)
		}
	}
	_ = writeJSON(stderr, used)
}

// downloadDir is where course materials are saved.
func downloadDir() string {
	if v := strings.TrimSpace(os.Getenv("CW_DOWNLOAD_DIR")); v != "" {
		return v
	}
	if home, err := os.UserHomeDir(); err == nil {
		dir := filepath.Join(home, "Downloads")
		if st, err := os.Stat(dir); err == nil && st.IsDir() {
			return filepath.Join(dir, "coursework")
		}
	}
	return "coursework-materials"
}

func runTUIProgram(m ui.Model) error {
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithoutSignalHandler(),
	)

	runDone := make(chan struct{})
	defer close(runDone)

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-runDone:
			return
		case <-sigCh:
		}

		p.Quit()

		select {
		case <-runDone:
			return
		case <-sigCh:
		case <-time.After(5 * time.Second):
		}

		p.Kill()
	}()

	// Optional auto-quit for automated tests: set CW_TUI_AUTOCLOSE_MS.
	if v := os.Getenv("CW_TUI_AUTOCLOSE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			go func() {
				timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
				defer timer.Stop()

				select {
				case <-runDone:
					return
				case <-timer.C:
				}

				p.Quit()

				select {
				case <-runDone:
					return
				case <-time.After(2 * time.Second):
				}

				p.Kill()
			}()
		}
	}

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted) {
		return nil
	}
	return err
}
