package metrics

import (
	"errors"
	"path"
	"sync"
	"time"

	"github.com/nakabonne/tstorage"
)

// Metric names written by the portal.
const (
	RegisterTotal    = "portal_register_total"
	RegisterFailed   = "portal_register_failed"
	ContactWarnings  = "portal_contact_warnings"
	ActivateWarnings = "portal_activate_warnings"
	SystemCPUUse     = "system_cpuuse"
	SystemMemUse     = "system_memuse"
	ProcessCPUUse    = "toughportal_cpuuse"
	ProcessMemUse    = "toughportal_memuse"
)

var (
	mu       sync.Mutex
	storage  tstorage.Storage
	counters = map[string]int64{}
)

// InitMetrics opens the time-series storage under <workdir>/data/metrics.
func InitMetrics(workdir string) error {
	mu.Lock()
	defer mu.Unlock()
	if storage != nil {
		return nil
	}
	s, err := tstorage.NewStorage(
		tstorage.WithDataPath(path.Join(workdir, "data", "metrics")),
		tstorage.WithTimestampPrecision(tstorage.Seconds),
		tstorage.WithPartitionDuration(time.Hour),
		tstorage.WithRetention(7*24*time.Hour),
	)
	if err != nil {
		return err
	}
	storage = s
	return nil
}

// SetGauge records the current value of a gauge.
func SetGauge(name string, value int64) {
	insert(name, value)
}

// Incr bumps a counter and records its cumulative value.
func Incr(name string) {
	mu.Lock()
	counters[name]++
	value := counters[name]
	mu.Unlock()
	insert(name, value)
}

// Counter returns the in-process cumulative value of a counter.
func Counter(name string) int64 {
	mu.Lock()
	defer mu.Unlock()
	return counters[name]
}

// Query returns the points recorded for name within [start, end).
func Query(name string, start, end time.Time) ([]*tstorage.DataPoint, error) {
	mu.Lock()
	s := storage
	mu.Unlock()
	if s == nil {
		return nil, nil
	}
	points, err := s.Select(name, nil, start.Unix(), end.Unix())
	if errors.Is(err, tstorage.ErrNoDataPoints) {
		return nil, nil
	}
	return points, err
}

// Close flushes and closes the storage; counters are reset.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	counters = map[string]int64{}
	if storage == nil {
		return nil
	}
	err := storage.Close()
	storage = nil
	return err
}

func insert(name string, value int64) {
	mu.Lock()
	s := storage
	mu.Unlock()
	if s == nil {
		return
	}
	_ = s.InsertRows([]tstorage.Row{{
		Metric:    name,
		DataPoint: tstorage.DataPoint{Timestamp: time.Now().Unix(), Value: float64(value)},
	}})
}
