package metrics

import (
	"fmt"
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v3/process"
)

// MemoryUsage reports resident memory of this process and Go heap usage.
// OpenCV allocates outside the Go heap, so RSS is the figure that matters
// for Mat leaks.
type MemoryUsage struct {
	RSS       uint64
	HeapAlloc uint64
	NumGC     uint32
}

func ReadMemoryUsage() (MemoryUsage, error) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	usage := MemoryUsage{
		HeapAlloc: m.HeapAlloc,
		NumGC:     m.NumGC,
	}

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return usage, fmt.Errorf("inspect process: %w", err)
	}
	info, err := proc.MemoryInfo()
	if err != nil {
		return usage, fmt.Errorf("read process memory: %w", err)
	}
	usage.RSS = info.RSS

	return usage, nil
}
