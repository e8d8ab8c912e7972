// Package metrics provides in-memory runtime statistics and cost
// accounting for a search session.
package metrics

import (
	"math"
	"sync"
	"time"
)

// Operation names for the collector.
const (
	OpFetch        = "fetch"
	OpPrefilter    = "prefilter"
	OpEvaluateFast = "evaluate_fast"
	OpEvaluateAdv  = "evaluate_advanced"
	OpMemorySave   = "memory_save"
)

// OperationMetrics holds aggregated metrics for a single operation type.
type OperationMetrics struct {
	Count     int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration

	// Token and cost metrics (only for model operations)
	TotalInputTokens  int64
	TotalOutputTokens int64
	TotalCost         float64
}

// OperationSnapshot provides computed stats from raw metrics.
type OperationSnapshot struct {
	Count       int64
	TotalTimeMs int64
	AvgTimeMs   float64
	MinTimeMs   int64
	MaxTimeMs   int64

	TotalInputTokens  int64
	TotalOutputTokens int64
	TotalCost         float64
}

// Snapshot represents full session statistics at a point in time.
type Snapshot struct {
	UptimeSeconds    float64
	TotalCost        float64
	Fetch            *OperationSnapshot
	Prefilter        *OperationSnapshot
	EvaluateFast     *OperationSnapshot
	EvaluateAdvanced *OperationSnapshot
	MemorySave       *OperationSnapshot
}

// Collector aggregates in-memory runtime statistics.
// All methods are thread-safe.
type Collector struct {
	mu        sync.RWMutex
	startTime time.Time
	ops       map[string]*OperationMetrics
	cost      float64
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
		ops:       make(map[string]*OperationMetrics),
	}
}

// getOrCreate returns existing metrics or creates new ones for an operation.
// Caller must hold write lock.
func (c *Collector) getOrCreate(op string) *OperationMetrics {
	m, ok := c.ops[op]
	if !ok {
		m = &OperationMetrics{
			MinTime: time.Duration(math.MaxInt64),
		}
		c.ops[op] = m
	}
	return m
}

// RecordTiming records timing for an operation.
func (c *Collector) RecordTiming(op string, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.getOrCreate(op)
	m.Count++
	m.TotalTime += duration

	if duration < m.MinTime {
		m.MinTime = duration
	}
	if duration > m.MaxTime {
		m.MaxTime = duration
	}
}

// RecordModelUsage records timing, tokens and cost for a model call.
func (c *Collector) RecordModelUsage(op string, duration time.Duration, inputTokens, outputTokens int64, cost float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.getOrCreate(op)
	m.Count++
	m.TotalTime += duration

	if duration < m.MinTime {
		m.MinTime = duration
	}
	if duration > m.MaxTime {
		m.MaxTime = duration
	}

	m.TotalInputTokens += inputTokens
	m.TotalOutputTokens += outputTokens
	m.TotalCost += cost
	c.cost += cost
}

// TotalCost returns the cumulative model spend recorded so far. The
// Coordinator checks this against the budget cap every iteration.
func (c *Collector) TotalCost() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cost
}

// snapshotOp creates a snapshot for an operation, returning nil if no data.
func snapshotOp(m *OperationMetrics) *OperationSnapshot {
	if m == nil || m.Count == 0 {
		return nil
	}

	return &OperationSnapshot{
		Count:             m.Count,
		TotalTimeMs:       m.TotalTime.Milliseconds(),
		AvgTimeMs:         float64(m.TotalTime.Milliseconds()) / float64(m.Count),
		MinTimeMs:         m.MinTime.Milliseconds(),
		MaxTimeMs:         m.MaxTime.Milliseconds(),
		TotalInputTokens:  m.TotalInputTokens,
		TotalOutputTokens: m.TotalOutputTokens,
		TotalCost:         m.TotalCost,
	}
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Snapshot{
		UptimeSeconds:    time.Since(c.startTime).Seconds(),
		TotalCost:        c.cost,
		Fetch:            snapshotOp(c.ops[OpFetch]),
		Prefilter:        snapshotOp(c.ops[OpPrefilter]),
		EvaluateFast:     snapshotOp(c.ops[OpEvaluateFast]),
		EvaluateAdvanced: snapshotOp(c.ops[OpEvaluateAdv]),
		MemorySave:       snapshotOp(c.ops[OpMemorySave]),
	}
}
