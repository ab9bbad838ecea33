package supervisor

import (
	"syscall"
	"time"

	linuxproc "github.com/c9s/goprocinfo/linux"
)

// DangerSignal is the shared substrate's low-memory signal (§5 "Signal
// discipline"): components receiving it respond by shrinking caches. It
// is a real-time signal distinct from the update/re-exec signal and from
// SIGUSR1/SIGUSR2, which the VT module's TTY-switch protocol claims.
const DangerSignal = syscall.Signal(35) // SIGRTMIN+1 on Linux

// MemoryMonitor polls /proc/meminfo and invokes onDanger whenever
// available memory drops below thresholdPercent of total, implementing
// the supervisor side of §5's low-memory signal without waiting on an
// external watchdog.
type MemoryMonitor struct {
	ThresholdPercent float64
	Interval         time.Duration
	OnDanger         func(availPercent float64)

	// readMemInfo is swapped out in tests; defaults to reading the real
	// /proc/meminfo via goprocinfo.
	readMemInfo func() (*linuxproc.MemInfo, error)

	stop chan struct{}
}

func NewMemoryMonitor(thresholdPercent float64, interval time.Duration, onDanger func(float64)) *MemoryMonitor {
	return &MemoryMonitor{
		ThresholdPercent: thresholdPercent,
		Interval:         interval,
		OnDanger:         onDanger,
		readMemInfo:      func() (*linuxproc.MemInfo, error) { return linuxproc.ReadMemInfo("/proc/meminfo") },
		stop:             make(chan struct{}),
	}
}

// Run polls until Stop is called. It is meant to be launched with "go".
func (m *MemoryMonitor) Run() {
	ticker := time.NewTicker(m.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.checkOnce()
		case <-m.stop:
			return
		}
	}
}

func (m *MemoryMonitor) checkOnce() {
	info, err := m.readMemInfo()
	if err != nil {
		log.Debug("reading /proc/meminfo: %v", err)
		return
	}
	if info.MemTotal == 0 {
		return
	}
	availPercent := float64(info.MemAvailable) / float64(info.MemTotal) * 100
	if availPercent < m.ThresholdPercent {
		log.Warn("available memory %.1f%% below threshold %.1f%%, raising danger signal", availPercent, m.ThresholdPercent)
		if m.OnDanger != nil {
			m.OnDanger(availPercent)
		}
	}
}

func (m *MemoryMonitor) Stop() {
	close(m.stop)
}
