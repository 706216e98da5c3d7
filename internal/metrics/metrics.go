// Package metrics exports curation results as Prometheus gauges in the
// node_exporter textfile format.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/inodb/tnbc-explorer/internal/cohort"
)

const namespace = "tnbc_explorer"

// Curation holds the gauges describing the latest curation run.
type Curation struct {
	registry *prometheus.Registry

	selected          *prometheus.GaugeVec
	aligned           *prometheus.GaugeVec
	genes             prometheus.Gauge
	clinicalSamples   prometheus.Gauge
	expressionSamples prometheus.Gauge
	duration          prometheus.Gauge
	lastSuccess       prometheus.Gauge
}

// NewCuration registers the curation gauges on a fresh registry.
func NewCuration() *Curation {
	c := &Curation{
		registry: prometheus.NewRegistry(),
		selected: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cohort_selected_samples",
			Help:      "Samples in the clinical table matching the cohort predicate.",
		}, []string{"cohort"}),
		aligned: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cohort_aligned_samples",
			Help:      "Selected samples present as expression matrix columns.",
		}, []string{"cohort"}),
		genes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "expression_genes",
			Help:      "Gene rows in the expression matrix.",
		}),
		clinicalSamples: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "clinical_samples",
			Help:      "Sample rows in the clinical table.",
		}),
		expressionSamples: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "expression_samples",
			Help:      "Sample columns in the expression matrix.",
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "curation_duration_seconds",
			Help:      "Wall time of the last curation run.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "curation_last_success_timestamp_seconds",
			Help:      "Unix time the last successful curation run started.",
		}),
	}
	c.registry.MustRegister(c.selected, c.aligned, c.genes,
		c.clinicalSamples, c.expressionSamples, c.duration, c.lastSuccess)
	return c
}

// Registry returns the registry holding the gauges.
func (c *Curation) Registry() *prometheus.Registry {
	return c.registry
}

// Observe sets every gauge from a curation report.
func (c *Curation) Observe(report *cohort.Report) {
	for _, co := range report.Cohorts {
		c.selected.WithLabelValues(co.Name).Set(float64(len(co.Selected)))
		c.aligned.WithLabelValues(co.Name).Set(float64(len(co.Samples)))
	}
	c.genes.Set(float64(report.Genes))
	c.clinicalSamples.Set(float64(report.ClinicalSamples))
	c.expressionSamples.Set(float64(report.ExpressionSamples))
	c.duration.Set(report.Duration.Seconds())
	c.lastSuccess.Set(float64(report.StartedAt.Unix()))
}

// WriteFile writes the gauges to path in the textfile format.
func (c *Curation) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
