// Package metrics exposes campaign counters in the prometheus text format.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"outreach_engine/internal/campaign"
	"outreach_engine/internal/model"
)

const namespace = "outreach"

// Collector owns its registry so several engines (and tests) never collide on the default one.
type Collector struct {
	registry *prometheus.Registry

	actionsTotal      *prometheus.CounterVec
	postsTotal        *prometheus.CounterVec
	repliesTotal      prometheus.Counter
	campaignsTotal    *prometheus.CounterVec
	campaignSent      *prometheus.HistogramVec
	campaignDuration  *prometheus.HistogramVec
	campaignsRunning  prometheus.Gauge
	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Collector{
		registry: reg,
		actionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "actions_total",
				Help:      "Outreach attempts by action kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		postsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "posts_total",
				Help:      "Post publication attempts by result",
			},
			[]string{"result"},
		),
		repliesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replies_total",
			Help:      "Messaging replies sent",
		}),
		campaignsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "campaigns_total",
				Help:      "Finished campaigns by task kind and status",
			},
			[]string{"kind", "status"},
		),
		campaignSent: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "campaign_sent",
				Help:      "Outreach actions sent per finished campaign",
				Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100},
			},
			[]string{"kind"},
		),
		campaignDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "campaign_duration_seconds",
				Help:      "Wall time of finished campaigns",
				Buckets:   []float64{10, 30, 60, 300, 600, 1800, 3600, 7200},
			},
			[]string{"kind"},
		),
		campaignsRunning: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "campaigns_running",
			Help:      "Campaigns currently holding a browser session",
		}),
		httpRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Dashboard API requests",
			},
			[]string{"method", "path", "status"},
		),
		httpDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Dashboard API latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

func (c *Collector) ActionAttempted(kind campaign.Kind, outcome campaign.Outcome) {
	c.actionsTotal.WithLabelValues(string(kind), string(outcome)).Inc()
}

func (c *Collector) PostPublished(ok bool) {
	result := "failed"
	if ok {
		result = "published"
	}
	c.postsTotal.WithLabelValues(result).Inc()
}

func (c *Collector) ReplySent() {
	c.repliesTotal.Inc()
}

func (c *Collector) CampaignFinished(kind model.TaskKind, status model.CampaignStatus, sent int) {
	c.campaignsTotal.WithLabelValues(string(kind), string(status)).Inc()
	c.campaignSent.WithLabelValues(string(kind)).Observe(float64(sent))
}

// CampaignStarted bumps the running gauge and returns the matching stop func.
func (c *Collector) CampaignStarted(kind model.TaskKind) func() {
	start := time.Now()
	c.campaignsRunning.Inc()
	return func() {
		c.campaignsRunning.Dec()
		c.campaignDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
	}
}

func (c *Collector) RecordHTTPRequest(method, path string, status int, d time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
