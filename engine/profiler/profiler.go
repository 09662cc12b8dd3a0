// Package profiler tracks frame rate, per-stage CPU timings, and memory
// statistics, logging a summary at a configurable interval.
package profiler

import (
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Profiler accumulates frame and stage timings. Safe for use from a
// single render goroutine; Scope may also be called from workers.
type Profiler struct {
	mu *sync.Mutex

	logger *zap.Logger

	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	stageTotals map[string]time.Duration
	stageOrder  []string
}

// NewProfiler creates a Profiler logging through the given logger. The
// update interval defaults to 1 second.
//
// Parameters:
//   - logger: the logger summaries are written to
//
// Returns:
//   - *Profiler: the profiler
func NewProfiler(logger *zap.Logger) *Profiler {
	return &Profiler{
		mu:             &sync.Mutex{},
		logger:         logger,
		lastTime:       time.Now(),
		updateInterval: time.Second,
		stageTotals:    make(map[string]time.Duration),
	}
}

// Scope times a named stage. Call at the top of the stage and invoke the
// returned function when the stage completes.
//
// Parameters:
//   - name: the stage name, e.g. "culling" or "shadow-passes"
//
// Returns:
//   - func(): the closer that records the elapsed time
func (p *Profiler) Scope(name string) func() {
	if p == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		elapsed := time.Since(start)
		p.mu.Lock()
		defer p.mu.Unlock()
		if _, ok := p.stageTotals[name]; !ok {
			p.stageOrder = append(p.stageOrder, name)
		}
		p.stageTotals[name] += elapsed
	}
}

// Tick marks the end of a frame. When the update interval has elapsed the
// accumulated statistics are logged and reset.
//
// Returns:
//   - bool: true if stats were logged this tick
func (p *Profiler) Tick() bool {
	if p == nil {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.frameCount++
	currentTime := time.Now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	fps := float64(p.frameCount) / elapsed.Seconds()

	runtime.ReadMemStats(&p.memStats)
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	sysMB := float64(p.memStats.Sys) / 1024 / 1024
	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	allocRateMB := float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	gcCount := p.memStats.NumGC
	var lastPauseUs, maxPauseUs uint64
	if gcCount > 0 {
		// PauseNs is a circular buffer of the last 256 GC pauses.
		lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000
		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			pause := p.memStats.PauseNs[i%256] / 1000
			if pause > maxPauseUs {
				maxPauseUs = pause
			}
		}
	}

	fields := []zap.Field{
		zap.Float64("fps", fps),
		zap.Float64("heapMB", allocMB),
		zap.Float64("allocRateMBs", allocRateMB),
		zap.Uint32("gcCount", gcCount),
		zap.Uint64("gcLastPauseUs", lastPauseUs),
		zap.Uint64("gcMaxPauseUs", maxPauseUs),
		zap.Float64("sysMB", sysMB),
	}
	frames := p.frameCount
	for _, name := range p.stageOrder {
		avg := p.stageTotals[name] / time.Duration(frames)
		fields = append(fields, zap.Duration(name, avg))
	}
	p.logger.Info("frame stats", fields...)

	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	p.stageTotals = make(map[string]time.Duration)
	p.stageOrder = p.stageOrder[:0]
	return true
}
