package section

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	continuationMarker = "Note:"
	lineDelimiter      = "|"
)

// Listing identifies which course's rows to pick out of a results page.
type Listing struct {
	Subject string // e.g. "FNCE"
	Number  string // e.g. "3228"
	Title   string // e.g. "Advanced Corporate Finance"
}

// Parser extracts section records for one course. It holds only compiled
// patterns, so a Parser can be reused across scrapes.
type Parser struct {
	header *regexp.Regexp
	fields *regexp.Regexp
}

// NewParser compiles the header and field patterns for the given course.
func NewParser(l Listing) (*Parser, error) {
	if l.Subject == "" || l.Number == "" || l.Title == "" {
		return nil, fmt.Errorf("listing requires subject, number and title (got %q %q %q)", l.Subject, l.Number, l.Title)
	}
	title := regexp.QuoteMeta(l.Title)

	header, err := regexp.Compile(fmt.Sprintf(`^.*\d{5}.*%s %s.*%s.*$`,
		regexp.QuoteMeta(l.Subject), regexp.QuoteMeta(l.Number), title))
	if err != nil {
		return nil, fmt.Errorf("compile header pattern: %w", err)
	}

	// Select CRN Subj Crse Sec Cred Title ... Time Cap Act Rem WL-Cap WL-Act WL-Rem ...
	// The counts must directly follow the time column so an oversized field
	// cannot shift the match onto later columns.
	fields, err := regexp.Compile(`^(.*?)(\d{5}) \w{4} \d{4} \d{3} .*?` + title +
		`.*?\b(?:am|pm|TBA) +(\d{1,2}) +(\d{1,2}) +(-?\d{1,2}) +(\d{1,2})(?:[ |]|$)`)
	if err != nil {
		return nil, fmt.Errorf("compile field pattern: %w", err)
	}
	return &Parser{header: header, fields: fields}, nil
}

// Parse turns the ordered row texts of a results page into records keyed by
// section id. A block that does not fit the layout fails the whole pass.
func (p *Parser) Parse(rows []string) (map[string]Record, error) {
	blocks := p.group(rows)

	sections := make(map[string]Record, len(blocks))
	for _, block := range blocks {
		rec, err := p.extract(block)
		if err != nil {
			return nil, err
		}
		sections[rec.SectionID] = rec
	}
	return sections, nil
}

// group keeps the section rows and glues "Note:" continuation rows onto the
// section row they follow.
func (p *Parser) group(rows []string) []string {
	var blocks []string
	attached := false
	for _, row := range rows {
		first, _, _ := strings.Cut(row, "\n")
		switch {
		case p.header.MatchString(first):
			blocks = append(blocks, row)
			attached = true
		case attached && strings.HasSuffix(strings.TrimRight(first, " \t"), continuationMarker):
			blocks[len(blocks)-1] += "\n" + row
		default:
			attached = false
		}
	}
	return blocks
}

func (p *Parser) extract(block string) (Record, error) {
	line := strings.ReplaceAll(block, "\n", lineDelimiter)

	m := p.fields.FindStringSubmatch(line)
	if m == nil {
		return Record{}, &ParseError{Text: line}
	}

	nums := make([]int, 4)
	for i, s := range m[3:7] {
		n, err := strconv.Atoi(s)
		if err != nil {
			return Record{}, &ParseError{Text: line, Err: err}
		}
		nums[i] = n
	}

	return Record{
		SectionID:     m[2],
		StatusPrefix:  strings.TrimSpace(m[1]),
		Capacity:      nums[0],
		Enrolled:      nums[1],
		Remaining:     nums[2],
		WaitlistCount: nums[3],
		RawText:       line,
	}, nil
}
