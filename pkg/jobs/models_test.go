package jobs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJobTableName(t *testing.T) {
	assert.Equal(t, "jobs", Job{}.TableName())
}

func TestJobIsTerminal(t *testing.T) {
	tests := []struct {
		state    JobState
		terminal bool
	}{
		{JobStateQueued, false},
		{JobStateRunning, false},
		{JobStateSucceeded, true},
		{JobStateFailed, true},
		{JobStateCanceled, true},
	}

	for _, tc := range tests {
		t.Run(string(tc.state), func(t *testing.T) {
			j := &Job{State: tc.state}
			assert.Equal(t, tc.terminal, j.IsTerminal())
		})
	}
}
