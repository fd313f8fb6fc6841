// Package metrics holds the process-wide ingestion counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// CaptureFilesParsed counts capture files parsed, by source ("dir" or "archive").
	CaptureFilesParsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wfbrowser_capture_files_parsed_total",
			Help: "Total number of capture files parsed",
		},
		[]string{"source"},
	)

	// DuplicateFilesSkipped counts harvester files dropped because an earlier
	// file from the same device was kept.
	DuplicateFilesSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wfbrowser_duplicate_files_skipped_total",
			Help: "Total number of duplicate harvester files ignored",
		},
	)

	// LoadFailures counts failed event loads by error kind.
	LoadFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wfbrowser_load_failures_total",
			Help: "Total number of event loads that failed",
		},
		[]string{"kind"},
	)

	// TablesBuilt counts waveform tables built, by path ("dense" or "sparse").
	TablesBuilt = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wfbrowser_tables_built_total",
			Help: "Total number of waveform tables built",
		},
		[]string{"path"},
	)
)

const (
	SourceDir     = "dir"
	SourceArchive = "archive"
	PathDense     = "dense"
	PathSparse    = "sparse"
)

func init() {
	prometheus.MustRegister(CaptureFilesParsed)
	prometheus.MustRegister(DuplicateFilesSkipped)
	prometheus.MustRegister(LoadFailures)
	prometheus.MustRegister(TablesBuilt)
}

// TablePath returns the TablesBuilt label for a table.
func TablePath(consistent bool) string {
	if consistent {
		return PathDense
	}
	return PathSparse
}
