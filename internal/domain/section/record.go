// internal/domain/section/record.go
package section

import "fmt"

// Record is one section's enrollment snapshot as scraped from the results page.
type Record struct {
	SectionID     string // 5-digit registration number (CRN)
	StatusPrefix  string // e.g. "C" for closed, may be empty
	Capacity      int
	Enrolled      int
	Remaining     int // negative when the section is over-enrolled
	WaitlistCount int
	RawText       string // matched block with newlines collapsed to '|'
}

func (r Record) String() string {
	return fmt.Sprintf("%s cap=%d act=%d rem=%d wl=%d", r.SectionID, r.Capacity, r.Enrolled, r.Remaining, r.WaitlistCount)
}

// Status is the availability classification of a tracked section.
type Status string

const (
	StatusAvailable                 Status = "Available"
	StatusAvailableWaitlistReserved Status = "Available: Reserved for waitlist"
	StatusAvailableWithRestriction  Status = "Available: Restrictions in place"
	StatusNotAvailable              Status = "Not available"
	StatusUnmatched                 Status = "Unmatched" // desired section missing from the listing
)
