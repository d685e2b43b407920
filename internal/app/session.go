// internal/app/session.go
package app

import (
	"context"
	"errors"
	"fmt"
)

// ErrCourseNotFound is returned by Session.SelectCourse when the subject
// listing has no course with the requested number and title.
var ErrCourseNotFound = errors.New("course not found in subject listing")

// Session is one logged-in visit to the registration site. A session is owned
// by a single poll cycle and must be closed on every exit path.
type Session interface {
	Login(ctx context.Context, username, password string) error
	OpenCourseSearch(ctx context.Context) error
	SelectTerm(ctx context.Context, term string) error
	SelectSubject(ctx context.Context, subject string) error
	SelectCourse(ctx context.Context, title, number string) error
	// Rows returns the text of every table row on the current page in document order.
	Rows(ctx context.Context) ([]string, error)
	Close() error
}

// SessionFactory opens a fresh session for a cycle.
type SessionFactory func(ctx context.Context) (Session, error)

// NavigationError wraps any failure talking to the registration site.
// It aborts the current cycle only.
type NavigationError struct {
	Step string
	Err  error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigation failed at %s: %v", e.Step, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }
