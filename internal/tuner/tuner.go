// Package tuner picks worker counts for I/O-bound metadata work.
package tuner

import "runtime"

const (
	// MinWorkers bounds under-parallelization: many candidates with slow
	// metadata queries take too long below this.
	MinWorkers = 8

	// MaxWorkers bounds over-parallelization: the system metadata service
	// serializes internally, so extra workers past this only burn resources.
	MaxWorkers = 32

	// cpuMultiplier is the worker multiplier per logical CPU for I/O-bound
	// subprocess work.
	cpuMultiplier = 2
)

// PoolSize returns the parallelism for the enrichment pool: a CPU-derived
// heuristic clamped to [MinWorkers, MaxWorkers] regardless of what the
// heuristic says.
func PoolSize() int {
	return Clamp(runtime.NumCPU() * cpuMultiplier)
}

// Clamp forces n into the inclusive [MinWorkers, MaxWorkers] range.
func Clamp(n int) int {
	if n < MinWorkers {
		return MinWorkers
	}
	if n > MaxWorkers {
		return MaxWorkers
	}
	return n
}
