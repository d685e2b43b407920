package course

import (
	"errors"
	"fmt"
)

// Entry is one raw [Class...] block: a single desired section plus the
// identity of the course it belongs to.
type Entry struct {
	Name        string // config block name, used in error messages
	ClientEmail string
	Subject     string
	Number      string
	Title       string
	Term        string
	Section     string
}

// Merge folds entries sharing a course number and term into one TrackedCourse,
// keeping the order in which courses and sections first appear. The first entry
// of a group supplies the client and course identity; a later entry that
// disagrees on it is rejected.
func Merge(entries []Entry) ([]*TrackedCourse, error) {
	type group struct {
		first    Entry
		sections []string
	}

	var order []string
	groups := make(map[string]*group)
	for _, e := range entries {
		key := e.Number + "-" + e.Term
		g, ok := groups[key]
		if !ok {
			g = &group{first: e}
			groups[key] = g
			order = append(order, key)
		} else if err := conflict(g.first, e); err != nil {
			return nil, err
		}
		g.sections = append(g.sections, e.Section)
	}

	courses := make([]*TrackedCourse, 0, len(order))
	for _, key := range order {
		g := groups[key]
		c, err := NewTrackedCourse(g.first.ClientEmail, g.first.Subject, g.first.Number, g.first.Title, g.first.Term, g.sections)
		if err != nil {
			var ce *ConfigError
			if errors.As(err, &ce) && g.first.Name != "" {
				ce.Field = g.first.Name + "." + ce.Field
			}
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, nil
}

func conflict(first, e Entry) error {
	identity := []struct {
		field string
		want  string
		got   string
	}{
		{"client_email", first.ClientEmail, e.ClientEmail},
		{"subject", first.Subject, e.Subject},
		{"name", first.Title, e.Title},
	}
	for _, id := range identity {
		if id.want == id.got {
			continue
		}
		field := id.field
		if e.Name != "" {
			field = e.Name + "." + field
		}
		where := "an earlier entry"
		if first.Name != "" {
			where = first.Name
		}
		return &ConfigError{
			Field:  field,
			Reason: fmt.Sprintf("%q conflicts with %q in %s for course %s term %s", id.got, id.want, where, e.Number, e.Term),
		}
	}
	return nil
}
