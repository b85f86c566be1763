// Package metrics serves the service's Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type BuildInfo struct {
	Version   string
	Revision  string
	Branch    string
	BuildDate string
}

type Config struct {
	Enabled bool
	Addr    string
	Path    string
	Build   BuildInfo
}

// Provider gathers the default registry, where the go/process collectors and
// the observability instruments live, plus its own registry.
type Provider struct {
	reg       *prometheus.Registry
	buildInfo *prometheus.GaugeVec
	path      string
}

func Init(cfg Config) *Provider {
	reg := prometheus.NewRegistry()

	build := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_build_info",
			Help: "Build info for this binary (value is always 1).",
		},
		[]string{"version", "revision", "branch", "build_date"},
	)
	reg.MustRegister(build)
	v := cfg.Build
	if v.Version == "" {
		v.Version = "dev"
	}
	build.WithLabelValues(v.Version, v.Revision, v.Branch, v.BuildDate).Set(1)

	path := cfg.Path
	if path == "" {
		path = "/metrics"
	}
	return &Provider{reg: reg, buildInfo: build, path: path}
}

func (p *Provider) Path() string { return p.path }

func (p *Provider) Handler() http.Handler {
	g := prometheus.Gatherers{prometheus.DefaultGatherer, p.reg}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (p *Provider) Register(cs ...prometheus.Collector) {
	for _, c := range cs {
		p.reg.MustRegister(c)
	}
}

