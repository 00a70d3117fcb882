package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Global metrics instance for singleton pattern
	globalCollector *Collector
	collectorMutex  sync.Mutex
)

// Collector holds all Prometheus metrics for the application
type Collector struct {
	// Registry for this collector instance
	registry *prometheus.Registry

	// Detection metrics
	DetectionCycles   prometheus.Counter
	CycleDuration     prometheus.Histogram
	ClustersProcessed prometheus.Counter
	ClusterFailures   prometheus.Counter

	// Narrative metrics
	NarrativesCreated prometheus.Counter
	NarrativesUpdated prometheus.Counter
	NarrativesMerged  prometheus.Counter

	// Article metrics
	ArticlesAssigned   prometheus.Counter
	ArticlesSkipped    prometheus.Counter
	ExtractionRetries  prometheus.Counter
	ExtractionFailures prometheus.Counter

	// Integrity metrics
	IntegrityDefects *prometheus.CounterVec

	// Repository metrics
	DBOperations *prometheus.CounterVec
	DBDuration   *prometheus.HistogramVec
}

// NewCollector creates a new metrics collector with the given namespace
func NewCollector(namespace string) *Collector {
	// Use singleton pattern to avoid duplicate registration in tests
	collectorMutex.Lock()
	defer collectorMutex.Unlock()

	if globalCollector != nil {
		return globalCollector
	}

	registry := prometheus.NewRegistry()

	detectionCycles := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "detection_cycles_total",
		Help:      "Total number of detection cycles run",
	})

	cycleDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "detection_cycle_duration_seconds",
		Help:      "Detection cycle duration in seconds",
		Buckets:   prometheus.DefBuckets,
	})

	clustersProcessed := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "clusters_processed_total",
		Help:      "Total number of clusters processed",
	})

	clusterFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cluster_failures_total",
		Help:      "Total number of clusters that failed processing",
	})

	narrativesCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "narratives_created_total",
		Help:      "Total number of narratives created",
	})

	narrativesUpdated := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "narratives_updated_total",
		Help:      "Total number of narratives updated",
	})

	narrativesMerged := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "narratives_merged_total",
		Help:      "Total number of narratives merged away by dedup",
	})

	articlesAssigned := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "articles_assigned_total",
		Help:      "Total number of articles assigned to a narrative",
	})

	articlesSkipped := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "articles_skipped_total",
		Help:      "Total number of articles skipped for a cycle",
	})

	extractionRetries := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "extraction_retries_total",
		Help:      "Total number of extraction retry attempts",
	})

	extractionFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "extraction_failures_total",
		Help:      "Total number of extractions that exhausted retries",
	})

	integrityDefects := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "integrity_defects_total",
		Help:      "Total number of data-integrity defects reported",
	}, []string{"kind"})

	dbOperations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "db_operations_total",
		Help:      "Total number of database operations",
	}, []string{"operation", "table", "status"})

	dbDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "db_operation_duration_seconds",
		Help:      "Database operation duration in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "table"})

	registry.MustRegister(
		detectionCycles,
		cycleDuration,
		clustersProcessed,
		clusterFailures,
		narrativesCreated,
		narrativesUpdated,
		narrativesMerged,
		articlesAssigned,
		articlesSkipped,
		extractionRetries,
		extractionFailures,
		integrityDefects,
		dbOperations,
		dbDuration,
	)

	globalCollector = &Collector{
		registry:           registry,
		DetectionCycles:    detectionCycles,
		CycleDuration:      cycleDuration,
		ClustersProcessed:  clustersProcessed,
		ClusterFailures:    clusterFailures,
		NarrativesCreated:  narrativesCreated,
		NarrativesUpdated:  narrativesUpdated,
		NarrativesMerged:   narrativesMerged,
		ArticlesAssigned:   articlesAssigned,
		ArticlesSkipped:    articlesSkipped,
		ExtractionRetries:  extractionRetries,
		ExtractionFailures: extractionFailures,
		IntegrityDefects:   integrityDefects,
		DBOperations:       dbOperations,
		DBDuration:         dbDuration,
	}

	return globalCollector
}

// ResetForTesting resets the global collector for testing purposes
func ResetForTesting() {
	collectorMutex.Lock()
	defer collectorMutex.Unlock()
	globalCollector = nil
}

// GetRegistry returns the Prometheus registry for this collector
func (c *Collector) GetRegistry() *prometheus.Registry {
	return c.registry
}
