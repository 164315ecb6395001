// Package common provides timing and reporting helpers for benchmarks.
package common

import (
	"fmt"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
)

// MemoryStats is the subset of runtime.MemStats a benchmark reports.
type MemoryStats struct {
	Alloc      uint64
	TotalAlloc uint64
	Sys        uint64
	Mallocs    uint64
	NumGC      uint32
}

// GetMemoryStats returns current memory statistics.
func GetMemoryStats() MemoryStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return MemoryStats{
		Alloc:      m.Alloc,
		TotalAlloc: m.TotalAlloc,
		Sys:        m.Sys,
		Mallocs:    m.Mallocs,
		NumGC:      m.NumGC,
	}
}

// String returns a formatted string representation of memory stats.
func (m MemoryStats) String() string {
	return fmt.Sprintf("Alloc: %s, Total: %s, Sys: %s, GC: %d",
		humanize.IBytes(m.Alloc),
		humanize.IBytes(m.TotalAlloc),
		humanize.IBytes(m.Sys),
		m.NumGC)
}

// BenchmarkResult accumulates per-iteration measurements of one augmentation
// benchmark run.
type BenchmarkResult struct {
	Name         string
	Duration     time.Duration
	MemoryBefore MemoryStats
	MemoryAfter  MemoryStats
	Iterations   int
	Applied      int
	// Bytes counts input bytes pushed through the transform.
	Bytes uint64
	Error error

	relChangeSum float64
}

// Record adds one iteration.
func (br *BenchmarkResult) Record(d time.Duration, applied bool, relChange float64, bytes uint64) {
	br.Iterations++
	br.Duration += d
	br.Bytes += bytes
	br.relChangeSum += relChange
	if applied {
		br.Applied++
	}
}

// AppliedFraction is the share of iterations that were not skipped.
func (br BenchmarkResult) AppliedFraction() float64 {
	if br.Iterations == 0 {
		return 0
	}
	return float64(br.Applied) / float64(br.Iterations)
}

// MeanLatency is the average time per iteration.
func (br BenchmarkResult) MeanLatency() time.Duration {
	if br.Iterations == 0 {
		return 0
	}
	return br.Duration / time.Duration(br.Iterations)
}

// MeanRelativeChange is the average of ||out - x|| / ||x|| over iterations.
func (br BenchmarkResult) MeanRelativeChange() float64 {
	if br.Iterations == 0 {
		return 0
	}
	return br.relChangeSum / float64(br.Iterations)
}

// Throughput is bytes processed per second of transform time.
func (br BenchmarkResult) Throughput() uint64 {
	if br.Duration <= 0 {
		return 0
	}
	return uint64(float64(br.Bytes) / br.Duration.Seconds())
}

// String returns a formatted string representation of the benchmark result.
func (br BenchmarkResult) String() string {
	if br.Error != nil {
		return fmt.Sprintf("%s: ERROR - %v", br.Name, br.Error)
	}

	var memDiff int64
	if br.MemoryAfter.TotalAlloc >= br.MemoryBefore.TotalAlloc {
		memDiff = int64(br.MemoryAfter.TotalAlloc - br.MemoryBefore.TotalAlloc) //nolint:gosec // display only
	}

	return fmt.Sprintf("%s: %s iterations, applied: %.1f%%, avg: %v, total: %v, rel change: %.4f, processed: %s (%s/s), alloc: +%s",
		br.Name, humanize.Comma(int64(br.Iterations)), br.AppliedFraction()*100,
		br.MeanLatency(), br.Duration, br.MeanRelativeChange(),
		humanize.Bytes(br.Bytes), humanize.Bytes(br.Throughput()),
		humanize.IBytes(uint64(memDiff))) //nolint:gosec // non-negative
}
