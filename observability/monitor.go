package observability

import (
	"context"
	"log/slog"
	"os"
	"roomchat/contract"
	goruntime "runtime"
	"time"

	"github.com/shirou/gopsutil/process"
)

type StatsSource interface {
	Stats() contract.RegistryStats
}

type Snapshot struct {
	contract.RegistryStats
	CPUPercent  float64
	RSSMb       uint64
	HeapAllocMb uint64
	Goroutines  int
}

// Monitor periodically logs the chat load and the resource usage of the process.
type Monitor struct {
	log      *slog.Logger
	source   StatsSource
	interval time.Duration
	pid      int32
}

func NewMonitor(log *slog.Logger, source StatsSource, interval time.Duration) *Monitor {
	return &Monitor{log: log, source: source, interval: interval, pid: int32(os.Getpid())}
}

func (m *Monitor) Run(ctx context.Context) error {
	proc, err := process.NewProcess(m.pid)
	if err != nil {
		return err
	}
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.log.Debug("Context done, stopping monitor")
			return nil
		case <-ticker.C:
			s := m.Collect(proc)
			m.log.Info("Chat stats",
				"connections", s.Connections,
				"active_rooms", s.ActiveRooms,
				"cpu_percent", s.CPUPercent,
				"rss_mb", s.RSSMb,
				"heap_mb", s.HeapAllocMb,
				"goroutines", s.Goroutines,
			)
		}
	}
}

// Collect never fails: a metric the OS refuses to give stays at zero.
func (m *Monitor) Collect(proc *process.Process) Snapshot {
	s := Snapshot{RegistryStats: m.source.Stats(), Goroutines: goruntime.NumGoroutine()}

	var mem goruntime.MemStats
	goruntime.ReadMemStats(&mem)
	s.HeapAllocMb = mem.HeapAlloc / 1024 / 1024

	if cpu, err := proc.CPUPercent(); err == nil {
		s.CPUPercent = cpu
	} else {
		m.log.Debug("Error while finding process cpu usage", "err", err)
	}
	if info, err := proc.MemoryInfo(); err == nil {
		s.RSSMb = info.RSS / 1024 / 1024
	} else {
		m.log.Debug("Error while finding process ram usage", "err", err)
	}
	return s
}
