package metrics

import (
	"fmt"
	"io"
)

// PrometheusExporter renders a Collector's snapshot in Prometheus text
// exposition format (https://prometheus.io/docs/instrumenting/exposition_formats/).
type PrometheusExporter struct {
	collector *Collector
	namespace string
}

// NewPrometheusExporter builds an exporter over collector using the default
// namespace "storagecore".
func NewPrometheusExporter(collector *Collector) *PrometheusExporter {
	return &PrometheusExporter{collector: collector, namespace: "storagecore"}
}

// SetNamespace sets the metric namespace prefix.
func (pe *PrometheusExporter) SetNamespace(namespace string) {
	pe.namespace = namespace
}

// WriteMetrics writes every counter in the collector's current snapshot to
// w in Prometheus text format.
func (pe *PrometheusExporter) WriteMetrics(w io.Writer) error {
	snap := pe.collector.Sample()

	if err := pe.writeGauge(w, "uptime_seconds", "Process uptime in seconds", snap.UptimeSeconds); err != nil {
		return err
	}

	if err := pe.writeCounter(w, "buffer_pool_hits_total", "Total buffer pool fetch hits", snap.BufferPool.Hits); err != nil {
		return err
	}
	if err := pe.writeCounter(w, "buffer_pool_misses_total", "Total buffer pool fetch misses", snap.BufferPool.Misses); err != nil {
		return err
	}
	if err := pe.writeCounter(w, "buffer_pool_evictions_total", "Total frames evicted", snap.BufferPool.Evictions); err != nil {
		return err
	}
	if err := pe.writeGauge(w, "buffer_pool_free_frames", "Free-list frames plus evictable unpinned frames", float64(snap.BufferPool.FreeFrames)); err != nil {
		return err
	}
	if err := pe.writeGauge(w, "buffer_pool_size", "Total number of frames in the pool", float64(snap.BufferPool.PoolSize)); err != nil {
		return err
	}

	if err := pe.writeCounter(w, "disk_pages_allocated_total", "Total pages allocated", snap.Disk.PagesAllocated); err != nil {
		return err
	}
	if err := pe.writeCounter(w, "disk_pages_deallocated_total", "Total pages deallocated", snap.Disk.PagesDeallocated); err != nil {
		return err
	}
	if err := pe.writeCounter(w, "disk_bytes_read_total", "Total bytes read from the database file", snap.Disk.BytesRead); err != nil {
		return err
	}
	if err := pe.writeCounter(w, "disk_bytes_written_total", "Total bytes written to the database file", snap.Disk.BytesWritten); err != nil {
		return err
	}

	return nil
}

func (pe *PrometheusExporter) writeCounter(w io.Writer, name, help string, value uint64) error {
	metricName := pe.namespace + "_" + name
	_, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n%s %d\n",
		metricName, help, metricName, metricName, value)
	return err
}

func (pe *PrometheusExporter) writeGauge(w io.Writer, name, help string, value float64) error {
	metricName := pe.namespace + "_" + name
	_, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s gauge\n%s %g\n",
		metricName, help, metricName, metricName, value)
	return err
}
