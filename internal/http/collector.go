package http

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fyrsmithlabs/issuetracker/internal/issue"
)

// storeCollector exports per-project issue counts at scrape time.
type storeCollector struct {
	store  *issue.Store
	issues *prometheus.Desc
	open   *prometheus.Desc
}

func newStoreCollector(store *issue.Store) *storeCollector {
	return &storeCollector{
		store: store,
		issues: prometheus.NewDesc(
			"issuetracker_project_issues",
			"Issues held in memory per project.",
			[]string{"project"}, nil,
		),
		open: prometheus.NewDesc(
			"issuetracker_project_open_issues",
			"Open issues per project.",
			[]string{"project"}, nil,
		),
	}
}

func (c *storeCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.issues
	ch <- c.open
}

func (c *storeCollector) Collect(ch chan<- prometheus.Metric) {
	for _, p := range c.store.Projects(context.Background()) {
		ch <- prometheus.MustNewConstMetric(c.issues, prometheus.GaugeValue, float64(p.Issues), p.Name)
		ch <- prometheus.MustNewConstMetric(c.open, prometheus.GaugeValue, float64(p.Open), p.Name)
	}
}
