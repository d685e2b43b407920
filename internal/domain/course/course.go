package course

import (
	"fmt"
	"regexp"
	"strings"
)

// ConfigError reports a tracked course or configuration block that is missing
// a required value. It is fatal at startup.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s %s", e.Field, e.Reason)
}

var sectionIDPattern = regexp.MustCompile(`^\d{5}$`)

// TrackedCourse is one course in one term that a client wants watched.
// Values are only produced by NewTrackedCourse and Merge, and are not mutated afterwards.
type TrackedCourse struct {
	ClientEmail     string
	Subject         string
	Number          string
	Title           string
	Term            string
	DesiredSections []string
}

// NewTrackedCourse validates every field before handing out a course.
func NewTrackedCourse(clientEmail, subject, number, title, term string, sections []string) (*TrackedCourse, error) {
	required := []struct {
		field string
		value string
	}{
		{"client_email", clientEmail},
		{"subject", subject},
		{"number", number},
		{"name", title},
		{"term", term},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return nil, &ConfigError{Field: r.field, Reason: "must not be empty"}
		}
	}

	if len(sections) == 0 {
		return nil, &ConfigError{Field: "section", Reason: fmt.Sprintf("no sections configured for %s %s (%s)", subject, number, term)}
	}
	desired := make([]string, 0, len(sections))
	seen := make(map[string]bool, len(sections))
	for _, s := range sections {
		s = strings.TrimSpace(s)
		if !sectionIDPattern.MatchString(s) {
			return nil, &ConfigError{Field: "section", Reason: fmt.Sprintf("%q is not a 5-digit section number", s)}
		}
		if seen[s] {
			continue
		}
		seen[s] = true
		desired = append(desired, s)
	}

	return &TrackedCourse{
		ClientEmail:     strings.TrimSpace(clientEmail),
		Subject:         strings.TrimSpace(subject),
		Number:          strings.TrimSpace(number),
		Title:           strings.TrimSpace(title),
		Term:            strings.TrimSpace(term),
		DesiredSections: desired,
	}, nil
}

// Key identifies the course/term pair that entries are merged on.
func (c *TrackedCourse) Key() string {
	return c.Number + "-" + c.Term
}

// Label is the short form used in notifications, e.g. "FNCE.3228".
func (c *TrackedCourse) Label() string {
	return c.Subject + "." + c.Number
}

func (c *TrackedCourse) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-13s: %s\n", "client_email", c.ClientEmail)
	fmt.Fprintf(&b, "%-13s: %s\n", "name", c.Title)
	fmt.Fprintf(&b, "%-13s: %s\n", "number", c.Number)
	fmt.Fprintf(&b, "%-13s: %s\n", "term", c.Term)
	fmt.Fprintf(&b, "%-13s: %s\n", "subject", c.Subject)
	fmt.Fprintf(&b, "%-13s: %s", "sections", strings.Join(c.DesiredSections, ", "))
	return b.String()
}
