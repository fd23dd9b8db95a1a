package model

import (
	"bytes"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
)

// Role is the account type returned by the auth endpoints.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleStudent Role = "student"
)

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleStudent
}

// User is the authenticated account.
type User struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// IsAdmin reports whether the user may open the admin console.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// PaidCourse is one entry of a student's paid course list. Title is only
// known when the server embedded the course object.
type PaidCourse struct {
	ID    string `json:"_id"`
	Title string `json:"title,omitempty"`
}

// PaidCourses decodes both wire forms of a student's paid courses: a list
// of course ids or a list of populated course objects.
type PaidCourses []PaidCourse

// UnmarshalJSON implements json.Unmarshaler.
func (p *PaidCourses) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = nil
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("paidCourses: %w", err)
	}
	out := make(PaidCourses, 0, len(raw))
	for i, item := range raw {
		item = bytes.TrimSpace(item)
		if len(item) > 0 && item[0] == '"' {
			var id string
			if err := json.Unmarshal(item, &id); err != nil {
				return fmt.Errorf("paidCourses[%d]: %w", i, err)
			}
			out = append(out, PaidCourse{ID: id})
			continue
		}
		var pc PaidCourse
		if err := json.Unmarshal(item, &pc); err != nil {
			return fmt.Errorf("paidCourses[%d]: %w", i, err)
		}
		out = append(out, pc)
	}
	*p = out
	return nil
}

// IDs returns the course ids in order.
func (p PaidCourses) IDs() []string {
	ids := make([]string, 0, len(p))
	for _, c := range p {
		ids = append(ids, c.ID)
	}
	return ids
}

// Student is a student account as listed by the admin endpoints.
type Student struct {
	ID          string      `json:"_id"`
	Name        string      `json:"name"`
	Email       string      `json:"email"`
	Role        Role        `json:"role"`
	Status      string      `json:"status"`
	PaidCourses PaidCourses `json:"paidCourses"`
	CreatedAt   time.Time   `json:"createdAt,omitempty"`
	UpdatedAt   time.Time   `json:"updatedAt,omitempty"`
}
