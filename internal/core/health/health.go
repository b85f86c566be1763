// Package health serves the liveness and readiness probes.
package health

import (
	"encoding/json"
	"net/http"
)

func Liveness() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

// ReadinessReporter is implemented by the refresh runner; partitions are the
// ones currently assigned to it.
type ReadinessReporter interface {
	Readiness() (ready bool, partitions []int32)
}

// LoadedFunc adapts a plain readiness flag such as boundary.Loader.Loaded.
type LoadedFunc func() bool

func (f LoadedFunc) Readiness() (bool, []int32) { return f(), nil }

type Component struct {
	Name     string
	Reporter ReadinessReporter
}

// Readiness is ready only when every component is.
func Readiness(components ...Component) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		type resp struct {
			Status     string            `json:"status"`
			Components map[string]string `json:"components,omitempty"`
			Partitions []int32           `json:"partitions,omitempty"`
		}
		out := resp{Status: "ready", Components: make(map[string]string, len(components))}
		var parts []int32
		for _, c := range components {
			ok, p := c.Reporter.Readiness()
			if !ok {
				out.Status = "not_ready"
				out.Components[c.Name] = "not_ready"
				continue
			}
			out.Components[c.Name] = "ready"
			parts = append(parts, p...)
		}
		if out.Status == "ready" {
			out.Partitions = parts
		}
		w.Header().Set("Content-Type", "application/json")
		if out.Status != "ready" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(out)
	}
}
