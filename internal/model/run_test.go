package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunStatusValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status RunStatus
		want   string
	}{
		{RunStatusRunning, "running"},
		{RunStatusComplete, "complete"},
		{RunStatusFailed, "failed"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, string(tt.status))
		})
	}
}

func TestRunKind_Valid(t *testing.T) {
	t.Parallel()

	assert.True(t, RunKindSearch.Valid())
	assert.True(t, RunKindResolve.Valid())
	assert.False(t, RunKind("enrich").Valid())
	assert.False(t, RunKind("").Valid())
}

func TestRun_Done(t *testing.T) {
	t.Parallel()

	assert.False(t, (&Run{Status: RunStatusRunning}).Done())
	assert.True(t, (&Run{Status: RunStatusComplete}).Done())
	assert.True(t, (&Run{Status: RunStatusFailed}).Done())
}
