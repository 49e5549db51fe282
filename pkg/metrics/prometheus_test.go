package metrics

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mnohosten/storagecore/pkg/storage"
)

func TestPrometheusExporterWriteMetrics(t *testing.T) {
	src := fakeSource{
		bp:   storage.BufferPoolStats{Hits: 7, Misses: 1, Evictions: 0, FreeFrames: 9, PoolSize: 10},
		disk: storage.DiskManagerStats{PagesAllocated: 2, BytesRead: 8192},
	}
	exporter := NewPrometheusExporter(NewCollector(src))

	var buf bytes.Buffer
	if err := exporter.WriteMetrics(&buf); err != nil {
		t.Fatalf("WriteMetrics returned error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"storagecore_buffer_pool_hits_total 7",
		"storagecore_buffer_pool_misses_total 1",
		"storagecore_disk_pages_allocated_total 2",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestPrometheusExporterSetNamespace(t *testing.T) {
	exporter := NewPrometheusExporter(NewCollector(fakeSource{}))
	exporter.SetNamespace("custom")

	var buf bytes.Buffer
	if err := exporter.WriteMetrics(&buf); err != nil {
		t.Fatalf("WriteMetrics returned error: %v", err)
	}
	if !strings.Contains(buf.String(), "custom_uptime_seconds") {
		t.Errorf("expected namespaced metric name, got:\n%s", buf.String())
	}
}
