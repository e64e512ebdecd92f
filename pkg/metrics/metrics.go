// Package metrics holds the Prometheus plumbing shared by bootkit packages.
//
// Collectors are optional everywhere: a component that receives a nil
// registerer creates its metrics unregistered, and every metrics struct in
// the module is nil-safe so callers never branch on "metrics enabled".
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Namespace prefixes every metric exported by bootkit.
const Namespace = "bootkit"

// NewRegistry creates a registry with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// RegisterOrReuse registers c with reg. If an equal collector is already
// registered, the existing one is returned so that a second bootstrap in the
// same process keeps exporting through the original collector. Panics on any
// other registration failure.
func RegisterOrReuse(reg prometheus.Registerer, c prometheus.Collector) prometheus.Collector {
	if reg == nil {
		return c
	}
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return are.ExistingCollector
		}
		panic(err)
	}
	return c
}
