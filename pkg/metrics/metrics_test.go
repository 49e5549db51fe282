package metrics

import (
	"testing"

	"github.com/mnohosten/storagecore/pkg/storage"
)

type fakeSource struct {
	bp   storage.BufferPoolStats
	disk storage.DiskManagerStats
}

func (f fakeSource) Stats() (storage.BufferPoolStats, storage.DiskManagerStats) {
	return f.bp, f.disk
}

func TestCollectorSample(t *testing.T) {
	src := fakeSource{
		bp:   storage.BufferPoolStats{Hits: 5, Misses: 2, Evictions: 1, FreeFrames: 3, PoolSize: 10},
		disk: storage.DiskManagerStats{PagesAllocated: 4, BytesWritten: 4096},
	}
	c := NewCollector(src)
	snap := c.Sample()

	if snap.BufferPool.Hits != 5 {
		t.Errorf("expected 5 hits, got %d", snap.BufferPool.Hits)
	}
	if snap.Disk.PagesAllocated != 4 {
		t.Errorf("expected 4 pages allocated, got %d", snap.Disk.PagesAllocated)
	}
	if snap.UptimeSeconds < 0 {
		t.Errorf("expected non-negative uptime, got %v", snap.UptimeSeconds)
	}
}
