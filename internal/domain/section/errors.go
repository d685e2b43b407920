package section

import "fmt"

// ParseError is returned when a section block does not fit the listing layout.
// The whole scrape pass is rejected; Text holds the offending block.
type ParseError struct {
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("section block did not match listing layout: %v\n%s", e.Err, e.Text)
	}
	return fmt.Sprintf("section block did not match listing layout\n%s", e.Text)
}

func (e *ParseError) Unwrap() error { return e.Err }
