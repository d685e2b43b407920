package section

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	testCases := []struct {
		name   string
		record Record
		want   Status
	}{
		{
			name:   "open",
			record: Record{Remaining: 3},
			want:   StatusAvailable,
		},
		{
			name:   "waitlist beats restriction",
			record: Record{Remaining: 5, WaitlistCount: 3, RawText: "... RESTRICTION: majors only"},
			want:   StatusAvailableWaitlistReserved,
		},
		{
			name:   "restriction",
			record: Record{Remaining: 5, RawText: "Note:|RESTRICTION: majors only"},
			want:   StatusAvailableWithRestriction,
		},
		{
			name:   "full ignores waitlist and restriction",
			record: Record{Remaining: 0, WaitlistCount: 4, RawText: "RESTRICTION"},
			want:   StatusNotAvailable,
		},
		{
			name:   "over-enrolled",
			record: Record{Remaining: -2},
			want:   StatusNotAvailable,
		},
		{
			name:   "marker is case sensitive",
			record: Record{Remaining: 1, RawText: "restriction lifted"},
			want:   StatusAvailable,
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.want, Classify(test.record))
		})
	}
}

func TestClassifyDesired(t *testing.T) {
	sections := map[string]Record{
		"50849": {SectionID: "50849", Remaining: 0},
		"50850": {SectionID: "50850", Remaining: 2},
		"50899": {SectionID: "50899", Remaining: 9},
	}

	got := ClassifyDesired(sections, []string{"50850", "12345", "50849"})
	require.Len(t, got, 3)

	require.Equal(t, "50850", got[0].SectionID)
	require.Equal(t, StatusAvailable, got[0].Status)
	require.NotNil(t, got[0].Record)

	require.Equal(t, "12345", got[1].SectionID)
	require.Equal(t, StatusUnmatched, got[1].Status)
	require.Nil(t, got[1].Record)

	require.Equal(t, StatusNotAvailable, got[2].Status)
}
