// Package telemetry exports sectiond's OpenTelemetry metrics over OTLP.
//
// The embedding pipeline records its instruments against the global meter
// provider; this package installs a real provider behind it when an OTLP
// collector is configured. Telemetry is off by default and its failures
// never take the daemon down.
package telemetry

import (
	"fmt"
	"strings"
	"time"
)

// Config holds telemetry configuration.
type Config struct {
	Enabled bool `koanf:"enabled"`

	// Endpoint is the OTLP collector address (host:port).
	Endpoint string `koanf:"endpoint"`

	// Protocol selects the OTLP transport: "grpc" or "http/protobuf".
	Protocol string `koanf:"protocol"`

	ServiceName    string `koanf:"service_name"`
	ServiceVersion string `koanf:"service_version"`

	// Insecure disables TLS. Only permitted for local endpoints.
	Insecure bool `koanf:"insecure"`

	// ExportInterval is the periodic reader's push interval.
	ExportInterval time.Duration `koanf:"export_interval"`

	// ShutdownTimeout bounds the final flush on shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// ApplyDefaults sets default values for unset fields. Telemetry stays
// disabled unless explicitly turned on; most deployments have no
// collector.
func (c *Config) ApplyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4317"
		c.Insecure = true
	}
	if c.Protocol == "" {
		c.Protocol = "grpc"
	}
	if c.ServiceName == "" {
		c.ServiceName = "sectiond"
	}
	if c.ServiceVersion == "" {
		c.ServiceVersion = "dev"
	}
	if c.ExportInterval == 0 {
		c.ExportInterval = 15 * time.Second
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
}

// Validate validates the configuration. A disabled config is always valid.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint is required when telemetry is enabled")
	}
	switch c.Protocol {
	case "grpc", "http/protobuf":
	default:
		return fmt.Errorf("invalid protocol %q (grpc or http/protobuf)", c.Protocol)
	}
	if c.Insecure && !c.isLocalEndpoint() {
		return fmt.Errorf("insecure connections to remote endpoints are not allowed")
	}
	if c.ExportInterval <= 0 {
		return fmt.Errorf("export interval must be positive")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}
	return nil
}

// isLocalEndpoint reports whether the endpoint points at this host.
func (c *Config) isLocalEndpoint() bool {
	host := c.Endpoint

	if strings.HasPrefix(host, "[") {
		// Bracketed IPv6: [::1]:4317
		if idx := strings.Index(host, "]:"); idx != -1 {
			host = host[1:idx]
		} else if strings.HasSuffix(host, "]") {
			host = host[1 : len(host)-1]
		}
	} else if strings.Count(host, ":") == 1 {
		if idx := strings.LastIndex(host, ":"); idx != -1 {
			host = host[:idx]
		}
	}

	return host == "localhost" ||
		host == "127.0.0.1" ||
		host == "::1" ||
		strings.HasPrefix(host, "127.") ||
		strings.HasPrefix(c.Endpoint, "::1")
}
