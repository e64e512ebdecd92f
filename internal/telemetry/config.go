package telemetry

// Config holds the tracing and profiling settings. It binds under the
// "telemetry" prefix.
type Config struct {
	// Enabled turns on OTLP trace export. When false a no-op tracer is used.
	Enabled bool `config:"enabled" default:"false" description:"export traces over OTLP/gRPC"`

	ServiceName    string `config:"service-name" default:"bootkit" description:"service name reported to the trace backend"`
	ServiceVersion string `config:"service-version" default:"dev"`

	// Endpoint is the OTLP collector address, e.g. "localhost:4317".
	Endpoint string `config:"endpoint" default:"localhost:4317" validate:"required,hostname_port"`

	Insecure bool `config:"insecure" default:"true" description:"disable TLS towards the collector"`

	// SampleRate is the fraction of traces sampled, from 0 to 1.
	SampleRate float64 `config:"sample-rate" default:"1.0" validate:"gte=0,lte=1"`

	Profiling ProfilingConfig `config:"profiling"`
}

// ProfilingConfig holds the Pyroscope continuous profiling settings.
type ProfilingConfig struct {
	Enabled bool `config:"enabled" default:"false" description:"push profiles to Pyroscope"`

	// Endpoint is the Pyroscope server URL.
	Endpoint string `config:"endpoint" default:"http://localhost:4040" validate:"url"`

	// ProfileTypes lists the profiles to collect: cpu, alloc_objects,
	// alloc_space, inuse_objects, inuse_space, goroutines, mutex_count,
	// mutex_duration, block_count, block_duration.
	ProfileTypes []string `config:"profile-types" default:"cpu,alloc_space,inuse_space"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "bootkit",
		ServiceVersion: "dev",
		Endpoint:       "localhost:4317",
		Insecure:       true,
		SampleRate:     1.0,
		Profiling: ProfilingConfig{
			Endpoint:     "http://localhost:4040",
			ProfileTypes: []string{"cpu", "alloc_space", "inuse_space"},
		},
	}
}
