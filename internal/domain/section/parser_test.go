package section

import (
	"errors"
	"regexp"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

var fnce = Listing{Subject: "FNCE", Number: "3228", Title: "Advanced Corporate Finance"}

// rows as they come off the results page: one string per <tr>, document order
var fnceRows = []string{
	"Select CRN Subj Crse Sec Cred Title Typ Days Time Cap Act Rem WL Cap WL Act WL Rem Instructor Date (MM/DD) Location Attribute",
	"C 50849 FNCE 3228 001 3.000 Advanced Corporate Finance\nLEC\nTR 11:30 am-12:50 pm      35   35   0    35      5       30 Amina A. Beecroft (P) 09/09-12/22 EB EB2122 .",
	"            Note:\nPrerequisite checking is in effect for this course. Refer to the current MRU Calendar for details.",
	"50850 FNCE 3228 002 3.000 Advanced Corporate Finance\nLEC\nMW 10:00 am-11:20 am 40 38 2 0 0 0 Staff 09/09-12/22 EB EB1010",
	"50851 FNCE 3228 003 3.000 Advanced Corporate Finance\nLEC\nF 1:00 pm-3:50 pm 30 33 -3 10 0 10 Staff 09/09-12/22 EB EB1011",
	"Note:\nRESTRICTION: Open to BBA students only.",
	"50852 FNCE 3228 004 3.000 Advanced Corporate Finance\nLEC\nF 9:00 am-11:50 am 30 20 10 0 0 0 Staff 09/09-12/22 EB EB1012",
	"Note:\nRESTRICTION: Open to BBA students only.",
	"50860 FNCE 3229 001 3.000 Investments\nLEC\nTR 8:30 am-9:50 am 35 10 25 0 0 0 Staff 09/09-12/22 EB EB2020",
	"Note:\nThis note belongs to another course.",
}

func TestParseSpecExampleRow(t *testing.T) {
	p, err := NewParser(fnce)
	require.NoError(t, err)

	got, err := p.Parse([]string{
		"C 50849 FNCE 3228 001 3.000 Advanced Corporate Finance|LEC|TR 11:30 am-12:50 pm 35 35 0 35 5 30 ...",
	})
	require.NoError(t, err)
	require.Len(t, got, 1)

	rec := got["50849"]
	require.Equal(t, "50849", rec.SectionID)
	require.Equal(t, "C", rec.StatusPrefix)
	require.Equal(t, 35, rec.Capacity)
	require.Equal(t, 35, rec.Enrolled)
	require.Equal(t, 0, rec.Remaining)
	require.Equal(t, 35, rec.WaitlistCount)
	require.Equal(t, StatusNotAvailable, Classify(rec))
}

func TestParseResultsPage(t *testing.T) {
	p, err := NewParser(fnce)
	require.NoError(t, err)

	got, err := p.Parse(fnceRows)
	require.NoError(t, err)
	require.Len(t, got, 4)

	idPattern := regexp.MustCompile(`^\d{5}$`)
	for id, rec := range got {
		require.Regexp(t, idPattern, id)
		require.Equal(t, id, rec.SectionID)
	}
	require.NotContains(t, got, "50860")

	testCases := []struct {
		id        string
		capacity  int
		enrolled  int
		remaining int
		waitlist  int
		status    Status
	}{
		{"50849", 35, 35, 0, 35, StatusNotAvailable},
		{"50850", 40, 38, 2, 0, StatusAvailable},
		{"50851", 30, 33, -3, 10, StatusNotAvailable},
		{"50852", 30, 20, 10, 0, StatusAvailableWithRestriction},
	}
	for _, test := range testCases {
		rec, ok := got[test.id]
		require.True(t, ok, test.id)
		require.Equal(t, test.capacity, rec.Capacity, test.id)
		require.Equal(t, test.enrolled, rec.Enrolled, test.id)
		require.Equal(t, test.remaining, rec.Remaining, test.id)
		require.Equal(t, test.waitlist, rec.WaitlistCount, test.id)
		require.Equal(t, test.status, Classify(rec), test.id)
	}
}

func TestParseAttachesContinuationRows(t *testing.T) {
	p, err := NewParser(fnce)
	require.NoError(t, err)

	got, err := p.Parse(fnceRows)
	require.NoError(t, err)

	require.Contains(t, got["50849"].RawText, "|            Note:|Prerequisite checking")
	require.Contains(t, got["50852"].RawText, "RESTRICTION")
	require.NotContains(t, got["50850"].RawText, "Note:")
}

func TestParseDropsContinuationAfterUnrelatedRow(t *testing.T) {
	p, err := NewParser(fnce)
	require.NoError(t, err)

	got, err := p.Parse([]string{
		"50850 FNCE 3228 002 3.000 Advanced Corporate Finance\nLEC\nMW 10:00 am-11:20 am 40 38 2 0 0 0 Staff",
		"Lab component scheduled separately",
		"Note:\nRESTRICTION: Open to BBA students only.",
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.NotContains(t, got["50850"].RawText, "RESTRICTION")
	require.Equal(t, StatusAvailable, Classify(got["50850"]))
}

func TestParseLeadingContinuationIgnored(t *testing.T) {
	p, err := NewParser(fnce)
	require.NoError(t, err)

	got, err := p.Parse([]string{"Note:\nstray footnote"})
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestParseMalformedSectionFails(t *testing.T) {
	p, err := NewParser(fnce)
	require.NoError(t, err)

	row := "50853 FNCE 3228 005 3.000 Advanced Corporate Finance\nLEC\nTBA TBA Staff"
	got, err := p.Parse([]string{fnceRows[3], row})
	require.Nil(t, got)

	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	require.Equal(t, "50853 FNCE 3228 005 3.000 Advanced Corporate Finance|LEC|TBA TBA Staff", perr.Text)
}

func TestParseRejectsOversizedCountInsteadOfShifting(t *testing.T) {
	p, err := NewParser(fnce)
	require.NoError(t, err)

	// a three digit capacity must not let the pattern slide onto the WL columns
	got, err := p.Parse([]string{
		"50849 FNCE 3228 001 3.000 Advanced Corporate Finance\nLEC\nTR 11:30 am-12:50 pm 120 100 20 0 0 0 Staff",
	})
	require.Nil(t, got)

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	require.Contains(t, perr.Text, "120 100 20")
}

func TestParseCountsAfterTBATime(t *testing.T) {
	p, err := NewParser(fnce)
	require.NoError(t, err)

	got, err := p.Parse([]string{
		"50855 FNCE 3228 007 3.000 Advanced Corporate Finance\nONL\nTBA 40 38 2 0 0 0 Staff",
	})
	require.NoError(t, err)
	require.Equal(t, Record{
		SectionID: "50855", Capacity: 40, Enrolled: 38, Remaining: 2,
		RawText: "50855 FNCE 3228 007 3.000 Advanced Corporate Finance|ONL|TBA 40 38 2 0 0 0 Staff",
	}, got["50855"])
}

func TestParseQuotesTitle(t *testing.T) {
	p, err := NewParser(Listing{Subject: "COMP", Number: "1701", Title: "Intro (C++) Programming"})
	require.NoError(t, err)

	got, err := p.Parse([]string{
		"40001 COMP 1701 001 3.000 Intro (C++) Programming\nLEC\nMW 8:00 am-9:20 am 30 29 1 0 0 0 Staff",
	})
	require.NoError(t, err)
	require.Equal(t, 1, got["40001"].Remaining)
}

func TestParseIsIdempotent(t *testing.T) {
	p, err := NewParser(fnce)
	require.NoError(t, err)

	first, err := p.Parse(fnceRows)
	require.NoError(t, err)
	second, err := p.Parse(fnceRows)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("second parse differs (-first +second):\n%s", diff)
	}
}

func TestNewParserRequiresListing(t *testing.T) {
	_, err := NewParser(Listing{Subject: "FNCE", Number: "3228"})
	require.Error(t, err)
}
