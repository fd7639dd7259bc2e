package capture

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/process"
)

// Stats is the poll_stats snapshot (spec §4.2's capability set {start, stop,
// poll_stats}): how much CPU and memory the capture process itself is
// consuming, plus a host-wide CPU reading for context, reported up through
// the Coordinator's status surface.
type Stats struct {
	ProcessCPUPercent float64 `json:"process_cpu_percent"`
	HostCPUPercent    float64 `json:"host_cpu_percent"`
	MemoryRSSBytes    uint64  `json:"memory_rss_bytes"`
	NumGoroutine      int     `json:"num_goroutine"`
}

// PollStats samples the current process's CPU/memory usage and a short
// host-wide CPU reading. Grounded on hostinfo.GetHostInfo's style of
// wrapping a gopsutil call behind a single error path, adapted to the
// process-scoped v3/process+cpu pair this component calls for rather than
// the teacher's host-wide mem.VirtualMemory.
func PollStats(ctx context.Context) (Stats, error) {
	proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err != nil {
		return Stats{}, fmt.Errorf("capture: open process handle: %w", err)
	}

	procCPU, err := proc.CPUPercentWithContext(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("capture: read process cpu percent: %w", err)
	}

	memInfo, err := proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("capture: read process memory info: %w", err)
	}

	hostCPU, err := cpu.PercentWithContext(ctx, 100*time.Millisecond, false)
	if err != nil {
		return Stats{}, fmt.Errorf("capture: read host cpu percent: %w", err)
	}
	var hostCPUPercent float64
	if len(hostCPU) > 0 {
		hostCPUPercent = hostCPU[0]
	}

	return Stats{
		ProcessCPUPercent: procCPU,
		HostCPUPercent:    hostCPUPercent,
		MemoryRSSBytes:    memInfo.RSS,
		NumGoroutine:      runtime.NumGoroutine(),
	}, nil
}
