// Copyright 2025 l3montree UG (haftungsbeschraenkt).
// SPDX-License-Identifier: 	AGPL-3.0-or-later

package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var MatchingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "vulncorrelator_matching_duration_seconds",
	Help:    "Duration of a matching run for a single scan in seconds",
	Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
})

var MatchingPackagesTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "vulncorrelator_matching_packages_total",
	Help: "The total number of packages evaluated",
})

var MatchingFindingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "vulncorrelator_matching_findings_total",
	Help: "The total number of persisted findings by match type",
}, []string{"match_type"})

var MatchingPackageErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "vulncorrelator_matching_package_errors_total",
	Help: "The total number of packages skipped because of an error",
})

var ManualMappingUsageErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "vulncorrelator_manual_mapping_usage_errors_total",
	Help: "The total number of failed usage counter increments",
})

var VulnDBImportDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "vulncorrelator_vulndb_import_duration_minutes",
	Help:    "Duration of vulndb imports and mirrors in minutes",
	Buckets: prometheus.DefBuckets,
}, []string{"source"})
