package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func berlin(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	return loc
}

func TestBuildDateDST(t *testing.T) {
	loc := berlin(t)

	tests := []struct {
		name      string
		spec      DateSpec
		wantDate  string
		wantBegin string
		wantEnd   string
	}{
		{
			name:      "summer time",
			spec:      DateSpec{Day: "2024-07-15", Begin: "19:00", End: "21:30"},
			wantDate:  "2024-07-14T22:00:00Z",
			wantBegin: "2024-07-15T17:00:00Z",
			wantEnd:   "2024-07-15T19:30:00Z",
		},
		{
			name:      "standard time",
			spec:      DateSpec{Day: "2024-01-15", Begin: "19:00", End: "21:30"},
			wantDate:  "2024-01-14T23:00:00Z",
			wantBegin: "2024-01-15T18:00:00Z",
			wantEnd:   "2024-01-15T20:30:00Z",
		},
		{
			name:      "missing end uses begin",
			spec:      DateSpec{Day: "2024-07-15", Begin: "10:00"},
			wantDate:  "2024-07-14T22:00:00Z",
			wantBegin: "2024-07-15T08:00:00Z",
			wantEnd:   "2024-07-15T08:00:00Z",
		},
		{
			name:      "end after midnight rolls over",
			spec:      DateSpec{Day: "2024-01-15", Begin: "22:00", End: "02:00"},
			wantDate:  "2024-01-14T23:00:00Z",
			wantBegin: "2024-01-15T21:00:00Z",
			wantEnd:   "2024-01-16T01:00:00Z",
		},
		{
			name:      "all day",
			spec:      DateSpec{Day: "15.07.2024"},
			wantDate:  "2024-07-14T22:00:00Z",
			wantBegin: "2024-07-14T22:00:00Z",
			wantEnd:   "2024-07-14T22:00:00Z",
		},
		{
			name:      "spring forward day",
			spec:      DateSpec{Day: "2024-03-31", Begin: "01:00", End: "04:00:00"},
			wantDate:  "2024-03-30T23:00:00Z",
			wantBegin: "2024-03-31T00:00:00Z",
			wantEnd:   "2024-03-31T02:00:00Z",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := BuildDate(tt.spec, loc)
			require.NoError(t, err)
			assert.Equal(t, tt.wantDate, d.Date.UTC().Format(time.RFC3339))
			assert.Equal(t, tt.wantBegin, d.Begin.UTC().Format(time.RFC3339))
			assert.Equal(t, tt.wantEnd, d.End.UTC().Format(time.RFC3339))
		})
	}
}

func TestBuildDateInvalid(t *testing.T) {
	loc := berlin(t)
	_, err := BuildDate(DateSpec{Day: "morgen"}, loc)
	assert.Error(t, err)
	_, err = BuildDate(DateSpec{Day: "2024-07-15", Begin: "abends"}, loc)
	assert.Error(t, err)
}

func TestFutureDates(t *testing.T) {
	loc := berlin(t)
	now := time.Date(2024, 7, 15, 23, 30, 0, 0, loc)

	dates, problems := futureDates(map[string]DateSpec{
		"a": {Day: "2024-07-14", Begin: "20:00"},
		"b": {Day: "2024-07-15", Begin: "10:00"},
		"c": {Day: "2024-08-01"},
		"d": {Day: "kaputt"},
	}, loc, now)

	require.Len(t, dates, 2)
	assert.Equal(t, 15, dates[0].Date.Day(), "today counts as upcoming")
	assert.Equal(t, time.August, dates[1].Date.Month())
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0], "date d")
}
