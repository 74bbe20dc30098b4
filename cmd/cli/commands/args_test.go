package commands

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseID(t *testing.T) {
	id, err := parseID("training_id", "42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, bad := range []string{"0", "-3", "abc", ""} {
		_, err := parseID("training_id", bad)
		assert.Error(t, err, bad)
	}
}

func TestParseIDs(t *testing.T) {
	ids, err := parseIDs("role_id", []string{"3", "1"})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1}, ids)

	_, err = parseIDs("role_id", []string{"3", "x"})
	assert.Error(t, err)
}

func TestParseDate(t *testing.T) {
	want := time.Date(2025, 3, 4, 19, 0, 0, 0, time.UTC)

	tests := []struct {
		input string
		want  time.Time
	}{
		{"2025-03-04 19:00", want},
		{"2025-03-04T19:00", want},
		{"2025-03-04T20:00:00+01:00", want},
		{"2025-03-04", time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseDate(tt.input)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}

	_, err := parseDate("next tuesday")
	assert.Error(t, err)
}
