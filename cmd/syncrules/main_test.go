package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Jercik/sync-rules-sub001/internal/sync"
)

func TestSummaryExitCode(t *testing.T) {
	assert.Equal(t, 0, summaryExitCode(&sync.Summary{Updates: 3, Skips: 1}))
	assert.Equal(t, 1, summaryExitCode(&sync.Summary{Conflicts: 1}))
	assert.Equal(t, 1, summaryExitCode(&sync.Summary{Updates: 5, Conflicts: 2}))
}

func TestMergeCmd_RequiresTwoArgs(t *testing.T) {
	cmd := newMergeCmd()
	cmd.SetArgs([]string{"only-one"})
	assert.Error(t, cmd.Execute())
}
