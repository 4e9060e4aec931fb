package resilience

import (
	"runtime"
	"sync"
	"time"
)

// LoadShedderConfig holds the fixed thresholds a LoadShedder compares its
// live signals against. Grounded in the teacher's health.Checker/health.Result
// shape for reporting process resource posture, generalized here into
// continuously updated signals instead of a point-in-time check.
type LoadShedderConfig struct {
	// CPULimit is the CPU EWMA fraction (0-1) above which load is shed.
	// Default 0.90.
	CPULimit float64

	// MemLimit is the heap-utilization fraction (0-1) above which load is
	// shed. Default 0.90. Non-heap utilization beyond 0.95 always sheds.
	MemLimit float64

	// ThreadLimit is the goroutine-utilization fraction (goroutines /
	// (cores*threadsPerCore)) above which load is shed. Default 0.90.
	ThreadLimit float64

	// ServiceRPSLimit is the per-service requests-per-second ceiling.
	// Default 0 (disabled) — set per service to enable.
	ServiceRPSLimit float64

	// ServiceLatencyLimit is the per-service mean-latency ceiling.
	// Default 0 (disabled) — set per service to enable.
	ServiceLatencyLimit time.Duration
}

func (c *LoadShedderConfig) applyDefaults() {
	if c.CPULimit <= 0 {
		c.CPULimit = 0.90
	}
	if c.MemLimit <= 0 {
		c.MemLimit = 0.90
	}
	if c.ThreadLimit <= 0 {
		c.ThreadLimit = 0.90
	}
}

const (
	nonHeapUtilizationShedLimit = 0.95
	threadsPerCoreBudget        = 10
	gcTimeRatioShedLimit        = 0.10
	gcCountShedLimit            = 1000
	serviceErrorRateShedLimit   = 0.5
	serviceWindowRollover       = 60 * time.Second
	serviceWindowFloor          = time.Second
	cpuEWMAAlpha                = 0.3
)

// serviceWindow tracks the rolling per-service signals that feed the
// fifth shed condition: observed rps, mean latency, and error rate over a
// window that rolls over every 60s, with a 1s floor to avoid divide-by-
// near-zero inflation immediately after rollover.
type serviceWindow struct {
	windowStart  time.Time
	count        int64
	errorCount   int64
	latencySum   time.Duration
}

// LoadShedder implements multi-signal admission control: CPU EWMA, memory/GC
// pressure, and per-service rolling rps/latency/error-rate windows. New code;
// grounded in the teacher's health.Checker for process-posture reporting and
// generalized into a continuously sampled gate.
type LoadShedder struct {
	config LoadShedderConfig

	mu       sync.Mutex
	cpuEWMA  float64
	services map[string]*serviceWindow

	lastNumGC     uint32
	lastPauseNs   uint64
	lastGCSample  time.Time
	processStart  time.Time
}

// NewLoadShedder creates a load shedder with the given thresholds.
func NewLoadShedder(config LoadShedderConfig) *LoadShedder {
	config.applyDefaults()
	now := time.Now()
	return &LoadShedder{
		config:       config,
		services:     make(map[string]*serviceWindow),
		lastGCSample: now,
		processStart: now,
	}
}

// SampleCPU folds a periodic CPU utilization observation (0-1) into the EWMA.
// Callers are expected to sample on a fixed tick (e.g. every second) using
// whatever OS-level CPU accounting is available; this type has no opinion on
// how the sample is produced.
func (ls *LoadShedder) SampleCPU(utilization float64) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	if ls.cpuEWMA == 0 {
		ls.cpuEWMA = utilization
		return
	}
	ls.cpuEWMA = cpuEWMAAlpha*utilization + (1-cpuEWMAAlpha)*ls.cpuEWMA
}

// RecordArrival increments the in-window request count for a service.
func (ls *LoadShedder) RecordArrival(service string) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	w := ls.windowLocked(service)
	w.count++
}

// RecordOutcome folds a completed call's latency and success/failure into a
// service's rolling window.
func (ls *LoadShedder) RecordOutcome(service string, latency time.Duration, failed bool) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	w := ls.windowLocked(service)
	w.latencySum += latency
	if failed {
		w.errorCount++
	}
}

func (ls *LoadShedder) windowLocked(service string) *serviceWindow {
	w, ok := ls.services[service]
	now := time.Now()
	if !ok {
		w = &serviceWindow{windowStart: now}
		ls.services[service] = w
		return w
	}
	if now.Sub(w.windowStart) >= serviceWindowRollover {
		*w = serviceWindow{windowStart: now}
	}
	return w
}

// ShouldShed reports whether the current signals cross any configured
// threshold for service. Evaluated fresh on every call; there is no hidden
// latching — a caller that stops seeing load shed as soon as the underlying
// signal subsides.
func (ls *LoadShedder) ShouldShed(service string) bool {
	if ls.cpuOverLimit() {
		return true
	}
	if ls.memoryOverLimit() {
		return true
	}
	if ls.threadsOverLimit() {
		return true
	}
	if ls.gcOverLimit() {
		return true
	}
	return ls.serviceOverLimit(service)
}

func (ls *LoadShedder) cpuOverLimit() bool {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return ls.cpuEWMA > ls.config.CPULimit
}

func (ls *LoadShedder) memoryOverLimit() bool {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	heapUtilization := 0.0
	if m.HeapSys > 0 {
		heapUtilization = float64(m.HeapInuse) / float64(m.HeapSys)
	}
	nonHeapUtilization := 0.0
	if m.Sys > 0 {
		nonHeapUtilization = float64(m.Sys-m.HeapSys) / float64(m.Sys)
	}

	return heapUtilization > ls.config.MemLimit || nonHeapUtilization > nonHeapUtilizationShedLimit
}

func (ls *LoadShedder) threadsOverLimit() bool {
	goroutines := runtime.NumGoroutine()
	cores := runtime.NumCPU()

	budget := cores * threadsPerCoreBudget
	if budget <= 0 {
		return false
	}
	utilization := float64(goroutines) / float64(budget)
	return utilization > ls.config.ThreadLimit || utilization > 1
}

func (ls *LoadShedder) gcOverLimit() bool {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	if m.NumGC > gcCountShedLimit {
		return true
	}

	uptime := time.Since(ls.processStart)
	if uptime <= 0 {
		return false
	}
	gcRatio := float64(m.PauseTotalNs) / float64(uptime.Nanoseconds())
	return gcRatio > gcTimeRatioShedLimit
}

func (ls *LoadShedder) serviceOverLimit(service string) bool {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	w, ok := ls.services[service]
	if !ok {
		return false
	}

	elapsed := time.Since(w.windowStart)
	if elapsed < serviceWindowFloor {
		elapsed = serviceWindowFloor
	}

	if ls.config.ServiceRPSLimit > 0 {
		rps := float64(w.count) / elapsed.Seconds()
		if rps > ls.config.ServiceRPSLimit {
			return true
		}
	}

	if w.count > 0 {
		meanLatency := w.latencySum / time.Duration(w.count)
		if ls.config.ServiceLatencyLimit > 0 && meanLatency > ls.config.ServiceLatencyLimit {
			return true
		}

		errorRate := float64(w.errorCount) / float64(w.count)
		if errorRate > serviceErrorRateShedLimit {
			return true
		}
	}

	return false
}

// Snapshot returns an immutable view of the shedder's configured thresholds
// and current CPU EWMA.
func (ls *LoadShedder) Snapshot() LoadShedderSnapshot {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return LoadShedderSnapshot{
		CPULimit:            ls.config.CPULimit,
		MemLimit:            ls.config.MemLimit,
		ThreadLimit:         ls.config.ThreadLimit,
		ServiceRPSLimit:     ls.config.ServiceRPSLimit,
		ServiceLatencyLimit: ls.config.ServiceLatencyLimit,
		CPUEWMA:             ls.cpuEWMA,
	}
}

// LoadShedderSnapshot is an immutable view of a LoadShedder's thresholds and
// live CPU signal.
type LoadShedderSnapshot struct {
	CPULimit            float64
	MemLimit            float64
	ThreadLimit         float64
	ServiceRPSLimit     float64
	ServiceLatencyLimit time.Duration
	CPUEWMA             float64
}
