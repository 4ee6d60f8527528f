// Package metrics exposes Prometheus instrumentation for the webhook service.
package metrics

// Config holds metrics configuration.
type Config struct {
	// Namespace prefixes all metric names.
	Namespace string

	// EnableProcessMetrics registers the process collector.
	EnableProcessMetrics bool

	// EnableRuntimeMetrics registers the Go runtime collector.
	EnableRuntimeMetrics bool
}

// DefaultConfig returns the default metrics configuration.
func DefaultConfig() Config {
	return Config{
		Namespace:            "shopcore",
		EnableProcessMetrics: true,
		EnableRuntimeMetrics: true,
	}
}
