package metrics

import (
	"time"

	"github.com/mnohosten/storagecore/pkg/storage"
)

// StatsSource is anything that can report buffer pool and disk manager
// activity counters — satisfied by *storage.StorageEngine.
type StatsSource interface {
	Stats() (storage.BufferPoolStats, storage.DiskManagerStats)
}

// Collector samples a StatsSource and keeps track of process uptime for the
// debug /stats endpoint.
type Collector struct {
	source    StatsSource
	startTime time.Time
}

// NewCollector builds a Collector sampling source.
func NewCollector(source StatsSource) *Collector {
	return &Collector{source: source, startTime: time.Now()}
}

// Snapshot is a point-in-time read of every counter the collector exposes.
type Snapshot struct {
	UptimeSeconds float64
	BufferPool    storage.BufferPoolStats
	Disk          storage.DiskManagerStats
}

// Sample takes a fresh snapshot of the underlying source.
func (c *Collector) Sample() Snapshot {
	bp, disk := c.source.Stats()
	return Snapshot{
		UptimeSeconds: time.Since(c.startTime).Seconds(),
		BufferPool:    bp,
		Disk:          disk,
	}
}
