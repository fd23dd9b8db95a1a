package ui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/coursework/pkg/api"
	"github.com/vanderheijden86/coursework/pkg/debug"
	"github.com/vanderheijden86/coursework/pkg/model"
	"github.com/vanderheijden86/coursework/pkg/session"
	"github.com/vanderheijden86/coursework/pkg/watcher"
)

// Backend is the remote API as seen by the UI. *api.Client implements it.
type Backend interface {
	Login(ctx context.Context, req api.LoginRequest) (session.Credential, error)

	PaidCourses(ctx context.Context, cred session.Credential) ([]model.StudentCourse, error)
	FetchCourseDetail(ctx context.Context, cred session.Credential, courseID string) (model.Course, error)
	ReportVideoCompleted(ctx context.Context, cred session.Credential, courseID, videoID string) error
	DownloadMaterial(ctx context.Context, m model.Material, dir string) (string, error)

	ListStudents(ctx context.Context, cred session.Credential) ([]model.Student, error)
	ListCourses(ctx context.Context, cred session.Credential) ([]model.Course, error)
	RegisterStudent(ctx context.Context, cred session.Credential, req api.RegisterStudentRequest) (model.Student, error)
	CreateCourse(ctx context.Context, cred session.Credential, req api.CreateCourseRequest) (model.Course, error)
	AddModule(ctx context.Context, cred session.Credential, courseID string, req api.AddModuleRequest) (model.Course, error)
	DeleteCourse(ctx context.Context, cred session.Credential, courseID string) error
	DeleteStudent(ctx context.Context, cred session.Credential, studentID string) error
}

var _ Backend = (*api.Client)(nil)

// requestTimeout bounds every call made from a tea.Cmd.
const requestTimeout = 60 * time.Second

// Messages produced by backend commands. Messages tied to a view carry the
// generation that was current when the request started, so results for a
// view the user already left are dropped.

type loginDoneMsg struct {
	Cred session.Credential
	Err  error
}

type paidCoursesMsg struct {
	Gen     int
	Courses []model.StudentCourse
	Err     error
}

type courseLoadedMsg struct {
	Gen      int
	CourseID string
	Course   model.Course
	Refresh  bool // re-fetch after completion; keep the cursor
	Err      error
}

type completionMsg struct {
	Gen      int
	CourseID string
	VideoID  string
	Title    string
	Err      error
}

type materialsMsg struct {
	Gen      int
	CourseID string
	Paths    []string
	Err      error
}

type adminDataMsg struct {
	Gen      int
	Students []model.Student
	Courses  []model.Course
	Err      error
}

type adminActionMsg struct {
	Done string // success notice
	Err  error
}

type sessionEventMsg struct {
	Kind watcher.Kind
}

func loginCmd(b Backend, req api.LoginRequest) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		cred, err := b.Login(ctx, req)
		return loginDoneMsg{Cred: cred, Err: err}
	}
}

func paidCoursesCmd(b Backend, cred session.Credential, gen int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		courses, err := b.PaidCourses(ctx, cred)
		return paidCoursesMsg{Gen: gen, Courses: courses, Err: err}
	}
}

func fetchCourseCmd(b Backend, cred session.Credential, courseID string, gen int, refresh bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		course, err := b.FetchCourseDetail(ctx, cred, courseID)
		return courseLoadedMsg{Gen: gen, CourseID: courseID, Course: course, Refresh: refresh, Err: err}
	}
}

func reportCompletedCmd(b Backend, cred session.Credential, courseID string, v model.Video, gen int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		err := b.ReportVideoCompleted(ctx, cred, courseID, v.ID)
		return completionMsg{Gen: gen, CourseID: courseID, VideoID: v.ID, Title: v.Title, Err: err}
	}
}

// maxParallelDownloads caps concurrent material downloads.
const maxParallelDownloads = 3

func downloadMaterialsCmd(b Backend, courseID string, materials []model.Material, dir string, gen int) tea.Cmd {
	return func() tea.Msg {
		defer debug.LogEnterExit("downloadMaterials")()
		ctx, cancel := context.WithTimeout(context.Background(), 5*requestTimeout)
		defer cancel()

		paths := make([]string, len(materials))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(maxParallelDownloads)
		for i, mat := range materials {
			g.Go(func() error {
				p, err := b.DownloadMaterial(gctx, mat, dir)
				if err != nil {
					return fmt.Errorf("%s: %w", mat.Title, err)
				}
				paths[i] = p
				return nil
			})
		}
		err := g.Wait()
		return materialsMsg{Gen: gen, CourseID: courseID, Paths: compact(paths), Err: err}
	}
}

// adminLoadCmd fetches students and courses concurrently.
func adminLoadCmd(b Backend, cred session.Credential, gen int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		var (
			students []model.Student
			courses  []model.Course
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			students, err = b.ListStudents(gctx, cred)
			return err
		})
		g.Go(func() error {
			var err error
			courses, err = b.ListCourses(gctx, cred)
			return err
		})
		err := g.Wait()
		return adminDataMsg{Gen: gen, Students: students, Courses: courses, Err: err}
	}
}

func adminActionCmd(done string, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*requestTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			return adminActionMsg{Err: err}
		}
		return adminActionMsg{Done: done}
	}
}

// WatchSessionCmd waits for the next change to the session file.
func WatchSessionCmd(w *watcher.Watcher) tea.Cmd {
	if w == nil {
		return nil
	}
	return func() tea.Msg {
		return sessionEventMsg{Kind: <-w.Events()}
	}
}

func compact(paths []string) []string {
	out := paths[:0]
	for _, p := range paths {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
