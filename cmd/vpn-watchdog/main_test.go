package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/vpn-watchdog/internal/core"
)

func TestCheckVerdict(t *testing.T) {
	assert.NoError(t, checkVerdict(core.AggregateState{Overall: core.OverallSafe}))

	for _, overall := range []core.OverallStatus{
		core.OverallUnsafe,
		core.OverallInitializing,
		core.OverallPaused,
	} {
		err := checkVerdict(core.AggregateState{Overall: overall})
		require.Error(t, err, "overall %s must not exit cleanly", overall)

		var code exitCodeError
		require.True(t, errors.As(err, &code))
		assert.Equal(t, 2, int(code))
	}
}

func TestExitCodeErrorSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("check: %w", exitCodeError(2))

	var code exitCodeError
	require.True(t, errors.As(err, &code))
	assert.Equal(t, 2, int(code))
}
