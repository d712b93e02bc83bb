package retrodb

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordUpload is called after each file upload with the uncompressed
	// and stored sizes.
	RecordUpload(size, stored int64, duration time.Duration, err error)

	// RecordDownload is called after each file download.
	RecordDownload(size, stored int64, duration time.Duration, err error)

	// RecordRetrieve is called after each neighbor lookup.
	RecordRetrieve(neighbors int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordUpload(int64, int64, time.Duration, error)   {}
func (NoopMetricsCollector) RecordDownload(int64, int64, time.Duration, error) {}
func (NoopMetricsCollector) RecordRetrieve(int, time.Duration, error)          {}

// BasicMetricsCollector provides simple in-memory metrics collection.
type BasicMetricsCollector struct {
	UploadCount        atomic.Int64
	UploadErrors       atomic.Int64
	UploadBytes        atomic.Int64
	UploadStoredBytes  atomic.Int64
	DownloadCount      atomic.Int64
	DownloadErrors     atomic.Int64
	DownloadBytes      atomic.Int64
	RetrieveCount      atomic.Int64
	RetrieveErrors     atomic.Int64
	RetrieveNeighbors  atomic.Int64
	RetrieveTotalNanos atomic.Int64
}

// RecordUpload implements MetricsCollector.
func (b *BasicMetricsCollector) RecordUpload(size, stored int64, _ time.Duration, err error) {
	b.UploadCount.Add(1)
	if err != nil {
		b.UploadErrors.Add(1)
		return
	}
	b.UploadBytes.Add(size)
	b.UploadStoredBytes.Add(stored)
}

// RecordDownload implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDownload(size, _ int64, _ time.Duration, err error) {
	b.DownloadCount.Add(1)
	if err != nil {
		b.DownloadErrors.Add(1)
		return
	}
	b.DownloadBytes.Add(size)
}

// RecordRetrieve implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRetrieve(neighbors int, duration time.Duration, err error) {
	b.RetrieveCount.Add(1)
	b.RetrieveTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.RetrieveErrors.Add(1)
		return
	}
	b.RetrieveNeighbors.Add(int64(neighbors))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	s := BasicMetricsStats{
		UploadCount:       b.UploadCount.Load(),
		UploadErrors:      b.UploadErrors.Load(),
		UploadBytes:       b.UploadBytes.Load(),
		UploadStoredBytes: b.UploadStoredBytes.Load(),
		DownloadCount:     b.DownloadCount.Load(),
		DownloadErrors:    b.DownloadErrors.Load(),
		DownloadBytes:     b.DownloadBytes.Load(),
		RetrieveCount:     b.RetrieveCount.Load(),
		RetrieveErrors:    b.RetrieveErrors.Load(),
		RetrieveNeighbors: b.RetrieveNeighbors.Load(),
	}
	if s.RetrieveCount > 0 {
		s.RetrieveAvgNanos = b.RetrieveTotalNanos.Load() / s.RetrieveCount
	}
	return s
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	UploadCount       int64
	UploadErrors      int64
	UploadBytes       int64
	UploadStoredBytes int64
	DownloadCount     int64
	DownloadErrors    int64
	DownloadBytes     int64
	RetrieveCount     int64
	RetrieveErrors    int64
	RetrieveNeighbors int64
	RetrieveAvgNanos  int64
}
