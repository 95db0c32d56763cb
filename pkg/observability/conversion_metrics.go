package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricFilesTotal      = "vuesetup.conversion.files.total"
	metricComponentsTotal = "vuesetup.conversion.components.total"
	metricMembersTotal    = "vuesetup.conversion.members.total"
	metricFileDuration    = "vuesetup.conversion.duration.seconds"
	metricCacheHitsTotal  = "vuesetup.cache.hits.total"
	metricCacheMissTotal  = "vuesetup.cache.misses.total"

	attrChanged = "changed"
	attrRole    = "role"
)

// ConversionMetrics counts what the converter does.
type ConversionMetrics struct {
	filesTotal      metric.Int64Counter
	componentsTotal metric.Int64Counter
	membersTotal    metric.Int64Counter
	fileDuration    metric.Float64Histogram
	cacheHits       metric.Int64Counter
	cacheMisses     metric.Int64Counter
}

// ConversionStats describes one conversion call.
type ConversionStats struct {
	// Members maps a role name to the number of members classified into it.
	Members    map[string]int
	Duration   time.Duration
	Components int
	Changed    bool
}

// NewConversionMetrics creates the conversion instruments from mt.
func NewConversionMetrics(mt metric.Meter) (*ConversionMetrics, error) {
	files, err := mt.Int64Counter(metricFilesTotal,
		metric.WithDescription("Units passed through the converter"),
		metric.WithUnit("{file}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricFilesTotal, err)
	}

	components, err := mt.Int64Counter(metricComponentsTotal,
		metric.WithDescription("Class components lowered to setup form"),
		metric.WithUnit("{component}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricComponentsTotal, err)
	}

	members, err := mt.Int64Counter(metricMembersTotal,
		metric.WithDescription("Class members classified, by role"),
		metric.WithUnit("{member}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricMembersTotal, err)
	}

	duration, err := mt.Float64Histogram(metricFileDuration,
		metric.WithDescription("Per-unit conversion duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricFileDuration, err)
	}

	hits, err := mt.Int64Counter(metricCacheHitsTotal,
		metric.WithDescription("Conversion cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricCacheHitsTotal, err)
	}

	misses, err := mt.Int64Counter(metricCacheMissTotal,
		metric.WithDescription("Conversion cache misses"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricCacheMissTotal, err)
	}

	return &ConversionMetrics{
		filesTotal:      files,
		componentsTotal: components,
		membersTotal:    members,
		fileDuration:    duration,
		cacheHits:       hits,
		cacheMisses:     misses,
	}, nil
}

// RecordConversion records one conversion. Safe on a nil receiver.
func (cm *ConversionMetrics) RecordConversion(ctx context.Context, stats ConversionStats) {
	if cm == nil {
		return
	}

	cm.filesTotal.Add(ctx, 1, metric.WithAttributes(attribute.Bool(attrChanged, stats.Changed)))
	cm.componentsTotal.Add(ctx, int64(stats.Components))
	cm.fileDuration.Record(ctx, stats.Duration.Seconds())

	for role, n := range stats.Members {
		cm.membersTotal.Add(ctx, int64(n), metric.WithAttributes(attribute.String(attrRole, role)))
	}
}

// RecordCache records a cache lookup. Safe on a nil receiver.
func (cm *ConversionMetrics) RecordCache(ctx context.Context, hit bool) {
	if cm == nil {
		return
	}

	if hit {
		cm.cacheHits.Add(ctx, 1)

		return
	}

	cm.cacheMisses.Add(ctx, 1)
}
