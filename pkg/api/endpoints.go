package api

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/vanderheijden86/coursework/pkg/metrics"
	"github.com/vanderheijden86/coursework/pkg/model"
	"github.com/vanderheijden86/coursework/pkg/session"
)

var (
	opLogin            = operation{"login", "Login failed", metrics.Login}
	opRegisterStudent  = operation{"register_student", "Failed to register student", metrics.RegisterStudent}
	opListStudents     = operation{"list_students", "Failed to fetch students", metrics.ListStudents}
	opListCourses      = operation{"list_courses", "Failed to fetch courses", metrics.ListCourses}
	opCreateCourse     = operation{"create_course", "Failed to create course", metrics.CreateCourse}
	opAddModule        = operation{"add_module", "Failed to add module", metrics.AddModule}
	opDeleteCourse     = operation{"delete_course", "Failed to delete course", metrics.DeleteCourse}
	opDeleteStudent    = operation{"delete_student", "Failed to delete student", metrics.DeleteStudent}
	opPaidCourses      = operation{"paid_courses", "Failed to fetch courses", metrics.PaidCourses}
	opCourseDetail     = operation{"course_detail", "Failed to fetch course", metrics.CourseDetail}
	opReportCompleted  = operation{"report_completed", "Failed to mark video as completed", metrics.ReportCompleted}
	opDownloadMaterial = operation{"download_material", "Failed to download material", metrics.MaterialDownload}
)

// LoginRequest is the body of the login call.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterStudentRequest creates a student account (admin only).
type RegisterStudentRequest struct {
	Name        string   `json:"name" validate:"required"`
	Email       string   `json:"email" validate:"required,email"`
	Password    string   `json:"password" validate:"required,min=6"`
	PaidCourses []string `json:"paidCourses"`
}

// CreateCourseRequest describes a new course. Thumbnail and Materials are
// local file paths uploaded as multipart parts.
type CreateCourseRequest struct {
	Title       string   `form:"title" validate:"required"`
	Description string   `form:"description" validate:"required"`
	StartDate   string   `form:"startDate" validate:"required,datetime=2006-01-02"`
	Duration    string   `form:"duration"`
	Thumbnail   string   `form:"thumbnail" validate:"required,file"`
	Materials   []string `form:"materials" validate:"dive,file"`
}

// AddModuleRequest appends a module with one video to a course.
type AddModuleRequest struct {
	Title       string   `form:"title" validate:"required"`
	Description string   `form:"description"`
	Video       string   `form:"video" validate:"required,file"`
	Materials   []string `form:"materials" validate:"dive,file"`
}

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Login exchanges email and password for a credential.
func (c *Client) Login(ctx context.Context, req LoginRequest) (session.Credential, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := c.check(req); err != nil {
		return session.Credential{}, err
	}
	var out LoginResponse
	resp, err := c.request(ctx, nil, opLogin).SetBody(req).Post("/api/v1/auth/login")
	if err := finish(opLogin, resp, err, &out); err != nil {
		return session.Credential{}, err
	}
	if out.Token == "" {
		return session.Credential{}, fmt.Errorf("%s: response carried no token", opLogin.fallback)
	}
	return session.Credential{Token: out.Token, User: out.User}, nil
}

// RegisterStudent creates a student account and returns it.
func (c *Client) RegisterStudent(ctx context.Context, cred session.Credential, req RegisterStudentRequest) (model.Student, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := c.check(req); err != nil {
		return model.Student{}, err
	}
	if req.PaidCourses == nil {
		req.PaidCourses = []string{}
	}
	var out struct {
		Message string        `json:"message"`
		User    model.Student `json:"user"`
	}
	resp, err := c.request(ctx, &cred, opRegisterStudent).SetBody(req).Post("/api/v1/auth/register")
	if err := finish(opRegisterStudent, resp, err, &out); err != nil {
		return model.Student{}, err
	}
	return out.User, nil
}

// ListStudents returns every student account.
func (c *Client) ListStudents(ctx context.Context, cred session.Credential) ([]model.Student, error) {
	var out struct {
		Message  string          `json:"message"`
		Students []model.Student `json:"students"`
	}
	resp, err := c.request(ctx, &cred, opListStudents).Get("/api/v1/admin/students")
	if err := finish(opListStudents, resp, err, &out); err != nil {
		return nil, err
	}
	return out.Students, nil
}

// ListCourses returns the full admin course catalog.
func (c *Client) ListCourses(ctx context.Context, cred session.Credential) ([]model.Course, error) {
	var out struct {
		Message string         `json:"message"`
		Courses []model.Course `json:"courses"`
	}
	resp, err := c.request(ctx, &cred, opListCourses).Get("/api/v1/admin/courses")
	if err := finish(opListCourses, resp, err, &out); err != nil {
		return nil, err
	}
	return out.Courses, nil
}

// CreateCourse uploads a new course with its thumbnail and materials.
func (c *Client) CreateCourse(ctx context.Context, cred session.Credential, req CreateCourseRequest) (model.Course, error) {
	if err := c.check(req); err != nil {
		return model.Course{}, err
	}

	r := c.request(ctx, &cred, opCreateCourse).SetFormData(map[string]string{
		"title":       req.Title,
		"description": req.Description,
		"startDate":   req.StartDate,
		"duration":    req.Duration,
	})
	closeFiles, err := attachFiles(r, filePart{"thumbnail", []string{req.Thumbnail}}, filePart{"materials", req.Materials})
	if err != nil {
		return model.Course{}, fmt.Errorf("%s: %w", opCreateCourse.fallback, err)
	}
	defer closeFiles()

	var out struct {
		Message string       `json:"message"`
		Course  model.Course `json:"course"`
	}
	resp, err := r.Post("/api/v1/admin/courses/create")
	if err := finish(opCreateCourse, resp, err, &out); err != nil {
		return model.Course{}, err
	}
	return out.Course, nil
}

// AddModule uploads a module video (and optional materials) to a course and
// returns the updated course.
func (c *Client) AddModule(ctx context.Context, cred session.Credential, courseID string, req AddModuleRequest) (model.Course, error) {
	if courseID == "" {
		return model.Course{}, &ValidationError{Problems: []string{"course id is required"}}
	}
	if err := c.check(req); err != nil {
		return model.Course{}, err
	}

	r := c.request(ctx, &cred, opAddModule).
		SetPathParam("courseId", courseID).
		SetFormData(map[string]string{
			"title":       req.Title,
			"description": req.Description,
		})
	closeFiles, err := attachFiles(r, filePart{"video", []string{req.Video}}, filePart{"materials", req.Materials})
	if err != nil {
		return model.Course{}, fmt.Errorf("%s: %w", opAddModule.fallback, err)
	}
	defer closeFiles()

	var out struct {
		Message string       `json:"message"`
		Course  model.Course `json:"course"`
	}
	resp, err := r.Post("/api/v1/admin/courses/{courseId}/modules")
	if err := finish(opAddModule, resp, err, &out); err != nil {
		return model.Course{}, err
	}
	return out.Course, nil
}

// DeleteCourse removes a course.
func (c *Client) DeleteCourse(ctx context.Context, cred session.Credential, courseID string) error {
	resp, err := c.request(ctx, &cred, opDeleteCourse).
		SetPathParam("courseId", courseID).
		Delete("/api/v1/admin/courses/{courseId}")
	return finish(opDeleteCourse, resp, err, &messageResponse{})
}

// DeleteStudent removes a student account.
func (c *Client) DeleteStudent(ctx context.Context, cred session.Credential, studentID string) error {
	resp, err := c.request(ctx, &cred, opDeleteStudent).
		SetPathParam("studentId", studentID).
		Delete("/api/v1/admin/students/{studentId}")
	return finish(opDeleteStudent, resp, err, &messageResponse{})
}

// PaidCourses lists the courses the signed-in student has access to.
func (c *Client) PaidCourses(ctx context.Context, cred session.Credential) ([]model.StudentCourse, error) {
	var out struct {
		Message string                `json:"message"`
		Courses []model.StudentCourse `json:"courses"`
	}
	resp, err := c.request(ctx, &cred, opPaidCourses).Get("/api/v1/student/paid-courses")
	if err := finish(opPaidCourses, resp, err, &out); err != nil {
		return nil, err
	}
	return out.Courses, nil
}

// FetchCourseDetail loads one course with its modules and unlock flags.
func (c *Client) FetchCourseDetail(ctx context.Context, cred session.Credential, courseID string) (model.Course, error) {
	var out struct {
		Course model.Course `json:"course"`
	}
	resp, err := c.request(ctx, &cred, opCourseDetail).
		SetPathParam("courseId", courseID).
		Get("/api/v1/student/courses/{courseId}")
	if err := finish(opCourseDetail, resp, err, &out); err != nil {
		return model.Course{}, err
	}
	if out.Course.ID == "" {
		out.Course.ID = courseID
	}
	return out.Course, nil
}

// ReportVideoCompleted tells the server a video was watched to the end.
func (c *Client) ReportVideoCompleted(ctx context.Context, cred session.Credential, courseID, videoID string) error {
	resp, err := c.request(ctx, &cred, opReportCompleted).
		SetPathParams(map[string]string{"courseId": courseID, "videoId": videoID}).
		Post("/api/v1/student/courses/{courseId}/videos/{videoId}/complete")
	return finish(opReportCompleted, resp, err, &messageResponse{})
}

// DownloadMaterial saves a course material into dir and returns the written
// path. Relative file URLs resolve against the API base URL.
func (c *Client) DownloadMaterial(ctx context.Context, m model.Material, dir string) (string, error) {
	if m.FileURL == "" {
		return "", fmt.Errorf("%s: material %q has no file url", opDownloadMaterial.fallback, m.Title)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%s: %w", opDownloadMaterial.fallback, err)
	}
	dest := filepath.Join(dir, MaterialFileName(m))

	resp, err := c.request(ctx, nil, opDownloadMaterial).
		SetHeader("Accept", "*/*").
		SetOutput(dest).
		Get(m.FileURL)
	if err == nil && resp.IsError() {
		os.Remove(dest)
		return "", apiError(opDownloadMaterial, resp)
	}
	if err != nil {
		os.Remove(dest)
		return "", fmt.Errorf("%s: %w", opDownloadMaterial.fallback, err)
	}
	return dest, nil
}

// MaterialFileName derives a safe local file name for a material, keeping
// the extension of its URL.
func MaterialFileName(m model.Material) string {
	u := m.FileURL
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	ext := filepath.Ext(u)
	base := strings.TrimSpace(m.Title)
	if base == "" {
		base = strings.TrimSuffix(filepath.Base(u), ext)
	}
	base = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, base)
	if base == "" || base == "." {
		base = "material"
	}
	if ext != "" && !strings.EqualFold(filepath.Ext(base), ext) {
		return base + ext
	}
	return base
}

type filePart struct {
	param string
	paths []string
}

// attachFiles opens the given files as multipart parts. Repeated params are
// kept as separate parts. The returned func closes every opened file.
func attachFiles(r *resty.Request, parts ...filePart) (func(), error) {
	var opened []*os.File
	closeAll := func() {
		for _, f := range opened {
			f.Close()
		}
	}
	for _, p := range parts {
		for _, path := range p.paths {
			if path == "" {
				continue
			}
			f, err := os.Open(path)
			if err != nil {
				closeAll()
				return func() {}, err
			}
			opened = append(opened, f)
			r.SetFileReader(p.param, filepath.Base(path), f)
		}
	}
	return closeAll, nil
}
