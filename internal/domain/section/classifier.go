package section

import "strings"

const restrictionMarker = "RESTRICTION"

// Classify derives the availability of a single record. Waitlist reservation
// wins over the restriction marker, both win over plain availability.
func Classify(r Record) Status {
	switch {
	case r.Remaining <= 0:
		return StatusNotAvailable
	case r.WaitlistCount > 0:
		return StatusAvailableWaitlistReserved
	case strings.Contains(r.RawText, restrictionMarker):
		return StatusAvailableWithRestriction
	default:
		return StatusAvailable
	}
}

// Availability is the classification of one desired section.
type Availability struct {
	SectionID string
	Status    Status
	Record    *Record // nil when Unmatched
}

// ClassifyDesired classifies each desired section in order. Sections missing
// from the listing are reported as StatusUnmatched.
func ClassifyDesired(sections map[string]Record, desired []string) []Availability {
	out := make([]Availability, 0, len(desired))
	for _, id := range desired {
		rec, ok := sections[id]
		if !ok {
			out = append(out, Availability{SectionID: id, Status: StatusUnmatched})
			continue
		}
		out = append(out, Availability{SectionID: id, Status: Classify(rec), Record: &rec})
	}
	return out
}
