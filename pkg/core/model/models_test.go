package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTrainingState(t *testing.T) {
	tests := []struct {
		input   string
		want    TrainingState
		wantErr bool
	}{
		{"created", StateCreated, false},
		{"Published", StatePublished, false},
		{"open", StatePublished, false},
		{" closed ", StateClosed, false},
		{"started", StateStarted, false},
		{"finished", StateFinished, false},
		{"archived", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseTrainingState(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAssignmentRoleOf(t *testing.T) {
	a := &Assignment{Placements: []Placement{{SignupID: 3, RoleID: 7}}}

	role, ok := a.RoleOf(3)
	assert.True(t, ok)
	assert.Equal(t, int64(7), role)

	_, ok = a.RoleOf(4)
	assert.False(t, ok)
}
