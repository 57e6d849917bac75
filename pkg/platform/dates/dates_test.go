package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Time
		ok    bool
	}{
		{"iso date", "2017-03-17", Date(2017, time.March, 17), true},
		{"iso timestamp", "2017-03-17T18:45:00", Date(2017, time.March, 17), true},
		{"rfc3339 with zone", "2017-03-17T23:45:00-06:00", Date(2017, time.March, 17), true},
		{"day first with slashes", "03/04/2022", Date(2022, time.April, 3), true},
		{"day first with dashes", "30-03-2022", Date(2022, time.March, 30), true},
		{"spanish long form", "17 de Marzo de 2017", Date(2017, time.March, 17), true},
		{"spanish abbreviation", "05/DIC/2019", Date(2019, time.December, 5), true},
		{"spanish abbreviation with dashes", "1-sept-2020", Date(2020, time.September, 1), true},
		{"spanish impossible day", "31 de febrero de 2020", time.Time{}, false},
		{"blank", "  ", time.Time{}, false},
		{"garbage", "marzo del 22", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Parse(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.True(t, tt.want.Equal(got), "got %v", got)
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	ts, ok := ParseTimestamp("2017-03-17T10:15:00")
	require.True(t, ok)
	assert.Equal(t, 10, ts.Hour())
	assert.Equal(t, 15, ts.Minute())

	dateOnly, ok := ParseTimestamp("17/03/2017")
	require.True(t, ok)
	assert.True(t, Date(2017, time.March, 17).Equal(dateOnly))
}

func TestDaysBetween(t *testing.T) {
	a := Date(2022, time.June, 1)
	assert.Equal(t, 0, DaysBetween(a, a))
	assert.Equal(t, 730, DaysBetween(Date(2020, time.January, 1), Date(2021, time.December, 31)))
	assert.Equal(t, -31, DaysBetween(Date(2022, time.July, 2), a))
	assert.Equal(t, 1, DaysBetween(time.Date(2022, 6, 1, 23, 59, 0, 0, time.UTC), time.Date(2022, 6, 2, 0, 1, 0, 0, time.UTC)))
}

func TestEndOfYear(t *testing.T) {
	assert.True(t, Date(2022, time.December, 31).Equal(EndOfYear(Date(2022, time.June, 1))))
}
