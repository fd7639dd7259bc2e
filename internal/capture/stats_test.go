package capture

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPollStatsReturnsNonNegativeReadings(t *testing.T) {
	stats, err := PollStats(context.Background())
	require.NoError(t, err)
	require.GreaterOrEqual(t, stats.ProcessCPUPercent, 0.0)
	require.GreaterOrEqual(t, stats.HostCPUPercent, 0.0)
	require.Greater(t, stats.MemoryRSSBytes, uint64(0))
	require.Greater(t, stats.NumGoroutine, 0)
}
