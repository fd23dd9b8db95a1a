// Package session persists the signed-in credential between cw runs.
//
// The credential is a bearer token plus the user record the login endpoint
// returned. It lives in a single JSON file under the XDG state directory,
// readable only by the owner. Token expiry is read from the JWT "exp" claim
// without verifying the signature; the server remains the authority.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"

	"github.com/vanderheijden86/coursework/pkg/config"
	"github.com/vanderheijden86/coursework/pkg/model"
)

// ErrNoSession is returned by Load when nobody is signed in.
var ErrNoSession = errors.New("no saved session")

// FileName is the session file inside the state directory.
const FileName = "session.json"

// Credential is the explicit auth context passed to every API call.
type Credential struct {
	Token   string     `json:"token"`
	User    model.User `json:"user"`
	SavedAt time.Time  `json:"savedAt,omitempty"`
}

// Empty reports whether no token is held.
func (c Credential) Empty() bool {
	return c.Token == ""
}

// ExpiresAt returns the token's exp claim. ok is false when the token is not
// a JWT or carries no exp claim.
func (c Credential) ExpiresAt() (exp time.Time, ok bool) {
	if c.Token == "" {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(c.Token, claims); err != nil {
		return time.Time{}, false
	}
	nd, err := claims.GetExpirationTime()
	if err != nil || nd == nil {
		return time.Time{}, false
	}
	return nd.Time, true
}

// Valid reports whether the credential can be used at now. Opaque (non-JWT)
// tokens and tokens without exp are trusted until the server rejects them.
func (c Credential) Valid(now time.Time) bool {
	if c.Empty() {
		return false
	}
	exp, ok := c.ExpiresAt()
	if !ok {
		return true
	}
	return now.Before(exp)
}

// DefaultPath returns the session file location.
func DefaultPath() string {
	dir := config.StateDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, FileName)
}

// Store reads and writes one session file.
type Store struct {
	path string
}

// NewStore returns a Store for path; an empty path uses DefaultPath.
func NewStore(path string) *Store {
	if path == "" {
		path = DefaultPath()
	}
	return &Store{path: path}
}

// Path returns the session file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the saved credential. It returns ErrNoSession when the file is
// missing or holds no token.
func (s *Store) Load() (Credential, error) {
	var cred Credential
	if s.path == "" {
		return cred, ErrNoSession
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return cred, ErrNoSession
		}
		return cred, fmt.Errorf("reading session: %w", err)
	}
	if len(data) == 0 {
		return cred, ErrNoSession
	}
	if err := json.Unmarshal(data, &cred); err != nil {
		return Credential{}, fmt.Errorf("parsing session %s: %w", s.path, err)
	}
	if cred.Empty() {
		return Credential{}, ErrNoSession
	}
	return cred, nil
}

// Save writes cred atomically with owner-only permissions.
func (s *Store) Save(cred Credential) error {
	if s.path == "" {
		return fmt.Errorf("cannot determine state directory")
	}
	if cred.Empty() {
		return fmt.Errorf("refusing to save empty credential")
	}
	if cred.SavedAt.IsZero() {
		cred.SavedAt = time.Now().UTC()
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".session-*.json")
	if err != nil {
		return fmt.Errorf("creating temp session file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod session: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing session: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replacing session: %w", err)
	}
	return nil
}

// Clear removes the session file (logout). Clearing a missing session is not
// an error.
func (s *Store) Clear() error {
	if s.path == "" {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing session: %w", err)
	}
	return nil
}
