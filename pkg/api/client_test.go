package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanderheijden86/coursework/pkg/metrics"
	"github.com/vanderheijden86/coursework/pkg/model"
	"github.com/vanderheijden86/coursework/pkg/session"
	"github.com/vanderheijden86/coursework/pkg/testutil"
)

var cred = session.Credential{Token: "tok-123", User: model.User{ID: "u1", Role: model.RoleAdmin}}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Options{BaseURL: srv.URL + "/"})
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func tempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLogin(t *testing.T) {
	var gotBody LoginRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/auth/login", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		_, err := uuid.Parse(r.Header.Get(RequestIDHeader))
		assert.NoError(t, err, "request id should be a uuid")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		writeJSON(w, http.StatusOK, `{"token":"jwt-abc","user":{"_id":"u1","name":"Ada","email":"ada@example.com","role":"student"}}`)
	})

	got, err := c.Login(context.Background(), LoginRequest{Email: " ada@example.com ", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "jwt-abc", got.Token)
	assert.Equal(t, "Ada", got.User.Name)
	assert.Equal(t, model.RoleStudent, got.User.Role)
	assert.Equal(t, "ada@example.com", gotBody.Email)
}

func TestLoginValidationSkipsNetwork(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	_, err := c.Login(context.Background(), LoginRequest{Email: "not-an-email"})
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Contains(t, err.Error(), "email must be a valid email address")
	assert.Contains(t, err.Error(), "password is required")
}

func TestValidateEmailMatchesLogin(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	for _, addr := range []string{"Bob <bob@example.com>", "bob@", ""} {
		formErr := ValidateEmail(addr)
		require.Error(t, formErr, addr)
		assert.True(t, IsValidation(formErr), addr)

		_, loginErr := c.Login(context.Background(), LoginRequest{Email: addr, Password: "secret1"})
		require.Error(t, loginErr, addr)
		assert.Equal(t, formErr.Error(), loginErr.Error(), addr)
	}

	assert.NoError(t, ValidateEmail("bob@example.com"))
	assert.EqualError(t, ValidateEmail(""), "email is required")
	assert.EqualError(t, ValidatePassword("12345"), "password must be at least 6 characters")
	assert.NoError(t, ValidatePassword("123456"))
}

func TestLoginServerMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"message":"Invalid credentials"}`)
	})

	_, err := c.Login(context.Background(), LoginRequest{Email: "a@b.co", Password: "x"})
	require.Error(t, err)
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Invalid credentials", apiErr.Message)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.NotEmpty(t, apiErr.RequestID)
	assert.True(t, IsUnauthorized(err))
}

func TestFallbackMessageOnNonJSONError(t *testing.T) {
	metrics.ResetAll()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, "<html>oops</html>")
	})

	_, err := c.FetchCourseDetail(context.Background(), cred, "c1")
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Failed to fetch course", apiErr.Message)
	assert.False(t, IsUnauthorized(err))
	if metrics.Enabled() {
		assert.Equal(t, int64(1), metrics.CourseDetail.Failures())
	}
}

func TestTransportErrorIsWrapped(t *testing.T) {
	metrics.ResetAll()
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := New(Options{BaseURL: srv.URL})

	_, err := c.PaidCourses(context.Background(), cred)
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "Failed to fetch courses: "))
	var apiErr *Error
	assert.False(t, errors.As(err, &apiErr), "transport failures are not API errors")
	if metrics.Enabled() {
		assert.Equal(t, int64(1), metrics.PaidCourses.Failures())
		assert.Zero(t, metrics.PaidCourses.Count())
	}
}

func TestFetchCourseDetail(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/student/courses/c42", r.URL.Path)
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, `{"course":{"title":"Go","modules":[
			{"_id":"m1","title":"Intro","day":"1","videos":[{"_id":"v1","title":"Hello","videoUrl":"https://cdn/v1.mp4","unlocked":true}]},
			{"_id":"m2","title":"Next","day":2,"videos":[]}
		]}}`)
	})

	course, err := c.FetchCourseDetail(context.Background(), cred, "c42")
	require.NoError(t, err)
	assert.Equal(t, "c42", course.ID, "missing id filled from request")
	require.Len(t, course.Modules, 2)
	assert.Equal(t, model.DayNumber(1), course.Modules[0].Day)
	assert.Equal(t, model.DayNumber(2), course.Modules[1].Day)
	assert.True(t, course.Modules[0].Videos[0].Unlocked)
}

func TestFetchCourseDetailGenerated(t *testing.T) {
	cfg := testutil.DefaultConfig()
	cfg.WithMaterials = true
	want := testutil.New(cfg).Sequential([]int{3, 0, 2}, 4)

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/student/courses/"+want.ID, r.URL.Path)
		writeJSON(w, http.StatusOK, testutil.ToJSON(want))
	})

	got, err := c.FetchCourseDetail(context.Background(), cred, want.ID)
	require.NoError(t, err)
	testutil.AssertJSONEqual(t, want, got)
	assert.Equal(t, testutil.UnlockedIDs(want), testutil.UnlockedIDs(got))
}

func TestReportVideoCompleted(t *testing.T) {
	metrics.ResetAll()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/student/courses/c1/videos/v9/complete", r.URL.Path)
		writeJSON(w, http.StatusOK, `{"message":"ok"}`)
	})

	require.NoError(t, c.ReportVideoCompleted(context.Background(), cred, "c1", "v9"))
	if metrics.Enabled() {
		assert.Equal(t, int64(1), metrics.ReportCompleted.Count())
	}
}

func TestAdminListsAndDeletes(t *testing.T) {
	var deleted []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/admin/students":
			writeJSON(w, http.StatusOK, `{"message":"ok","students":[
				{"_id":"s1","name":"A","email":"a@x.io","role":"student","status":"active","paidCourses":["c1"]},
				{"_id":"s2","name":"B","email":"b@x.io","role":"student","status":"active","paidCourses":[{"_id":"c2","title":"Rust"}]}
			]}`)
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/admin/courses":
			writeJSON(w, http.StatusOK, `{"message":"ok","courses":[{"_id":"c1","title":"Go","startDate":"2026-01-05","modules":[]}]}`)
		case r.Method == http.MethodDelete:
			deleted = append(deleted, r.URL.Path)
			writeJSON(w, http.StatusOK, `{"message":"deleted"}`)
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	students, err := c.ListStudents(ctx, cred)
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, []string{"c1"}, students[0].PaidCourses.IDs())
	assert.Equal(t, "Rust", students[1].PaidCourses[0].Title)

	courses, err := c.ListCourses(ctx, cred)
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, "Go", courses[0].Title)

	require.NoError(t, c.DeleteCourse(ctx, cred, "c1"))
	require.NoError(t, c.DeleteStudent(ctx, cred, "s1"))
	assert.Equal(t, []string{"/api/v1/admin/courses/c1", "/api/v1/admin/students/s1"}, deleted)
}

func TestRegisterStudent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []any{}, body["paidCourses"], "nil paid courses sent as empty array")
		writeJSON(w, http.StatusCreated, `{"message":"created","user":{"_id":"s9","name":"New","email":"n@x.io","role":"student","paidCourses":[]}}`)
	})

	st, err := c.RegisterStudent(context.Background(), cred, RegisterStudentRequest{Name: "New", Email: "n@x.io", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "s9", st.ID)

	_, err = c.RegisterStudent(context.Background(), cred, RegisterStudentRequest{Name: "New", Email: "n@x.io", Password: "123"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "password must be at least 6 characters")
}

func TestCreateCourseMultipart(t *testing.T) {
	thumb := tempFile(t, "thumb.png", "PNG")
	m1 := tempFile(t, "notes.pdf", "PDF1")
	m2 := tempFile(t, "slides.pdf", "PDF2")

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/admin/courses/create", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "Go 101", r.FormValue("title"))
		assert.Equal(t, "2026-02-01", r.FormValue("startDate"))
		require.Len(t, r.MultipartForm.File["thumbnail"], 1)
		mats := r.MultipartForm.File["materials"]
		require.Len(t, mats, 2, "each material is its own part")
		assert.Equal(t, "notes.pdf", mats[0].Filename)
		assert.Equal(t, "slides.pdf", mats[1].Filename)
		writeJSON(w, http.StatusCreated, `{"message":"ok","course":{"_id":"c7","title":"Go 101","modules":[]}}`)
	})

	course, err := c.CreateCourse(context.Background(), cred, CreateCourseRequest{
		Title:       "Go 101",
		Description: "Basics",
		StartDate:   "2026-02-01",
		Duration:    "4 weeks",
		Thumbnail:   thumb,
		Materials:   []string{m1, m2},
	})
	require.NoError(t, err)
	assert.Equal(t, "c7", course.ID)
}

func TestCreateCourseValidation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	_, err := c.CreateCourse(context.Background(), cred, CreateCourseRequest{
		Title:       "Go",
		Description: "d",
		StartDate:   "01/02/2026",
		Materials:   []string{"/does/not/exist.pdf"},
	})
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Problems, "Please upload a thumbnail image")
	assert.Contains(t, verr.Problems, "startDate must be a date (YYYY-MM-DD)")
	assert.Contains(t, err.Error(), "not found")
}

func TestAddModule(t *testing.T) {
	video := tempFile(t, "lesson.mp4", "MP4")

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/admin/courses/c3/modules", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "Week 1", r.FormValue("title"))
		require.Len(t, r.MultipartForm.File["video"], 1)
		assert.Empty(t, r.MultipartForm.File["materials"])
		writeJSON(w, http.StatusOK, `{"message":"ok","module":{"title":"Week 1"},"course":{"_id":"c3","modules":[{"_id":"m1","title":"Week 1","day":1,"videos":[]}]}}`)
	})

	course, err := c.AddModule(context.Background(), cred, "c3", AddModuleRequest{Title: "Week 1", Video: video})
	require.NoError(t, err)
	require.Len(t, course.Modules, 1)

	_, err = c.AddModule(context.Background(), cred, "c3", AddModuleRequest{Title: "Week 2"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Please upload a video")
}

func TestDownloadMaterial(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/files/notes.pdf":
			assert.Empty(t, r.Header.Get("Authorization"), "material hosts never see the token")
			_, _ = io.WriteString(w, "%PDF-1.7")
		default:
			http.NotFound(w, r)
		}
	})
	dir := t.TempDir()

	path, err := c.DownloadMaterial(context.Background(), model.Material{Title: "Week 1 notes", FileURL: c.BaseURL() + "/files/notes.pdf?x=1"}, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Week 1 notes.pdf"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7", string(data))

	_, err = c.DownloadMaterial(context.Background(), model.Material{Title: "gone", FileURL: "/files/missing.pdf"}, dir)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.NoFileExists(t, filepath.Join(dir, "gone.pdf"))
}

func TestMaterialFileName(t *testing.T) {
	cases := []struct {
		m    model.Material
		want string
	}{
		{model.Material{Title: "Slides", FileURL: "https://cdn/x/abc.pdf"}, "Slides.pdf"},
		{model.Material{Title: "a/b:c", FileURL: "https://cdn/x/abc.zip"}, "a_b_c.zip"},
		{model.Material{Title: "", FileURL: "https://cdn/x/abc.txt?sig=1"}, "abc.txt"},
		{model.Material{Title: "already.pdf", FileURL: "https://cdn/x/abc.pdf"}, "already.pdf"},
		{model.Material{Title: "", FileURL: ""}, "material"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, MaterialFileName(tc.m))
	}
}
