package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/delta10/wcs-client/wcs"
)

type TLS struct {
	Certificate      string `yaml:"certificate"`
	Key              string `yaml:"key"`
	RootCertificates string `yaml:"rootCertificates"`
}

type Auth struct {
	Header map[string]string `yaml:"header"`
	Basic  struct {
		Username string `yaml:"username"`
		Password string `yaml:"password"`
	} `yaml:"basic"`
	TLS TLS `yaml:"tls"`
}

// Service is a remote WCS endpoint exposed by the gateway.
type Service struct {
	URL     string        `yaml:"url"`
	Version string        `yaml:"version"`
	Timeout time.Duration `yaml:"timeout"`
	// Filter is a jq expression applied to the JSON capabilities view.
	Filter     string            `yaml:"filter"`
	LogBackend string            `yaml:"logBackend"`
	Auth       Auth              `yaml:"auth"`
	Cookies    map[string]string `yaml:"cookies"`
}

type ListenTLS struct {
	Certificate string `yaml:"certificate"`
	Key         string `yaml:"key"`
}

type LogBackend struct {
	BaseURL string `yaml:"baseUrl"`
}

type Config struct {
	ListenAddress string    `yaml:"listenAddress"`
	ListenTLS     ListenTLS `yaml:"listenTls"`
	JwksURL       string    `yaml:"jwksUrl"`
	// LogBackend names the log backend used by services that do not set one.
	LogBackend  string                `yaml:"logBackend"`
	Services    map[string]Service    `yaml:"services"`
	LogBackends map[string]LogBackend `yaml:"logBackends"`
}

// NewConfig returns a new decoded Config struct
func NewConfig(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	config := &Config{}
	d := yaml.NewDecoder(file)
	if err := d.Decode(config); err != nil {
		return nil, fmt.Errorf("could not decode %s: %w", configPath, err)
	}

	if config.ListenAddress == "" {
		config.ListenAddress = ":8080"
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks that every service can be opened and that referenced log
// backends exist.
func (c *Config) Validate() error {
	var errs []error
	for name, service := range c.Services {
		if service.URL == "" {
			errs = append(errs, fmt.Errorf("service %s: url is required", name))
		}
		if service.Version != "" && !wcs.SupportedVersion(service.Version) {
			errs = append(errs, fmt.Errorf("service %s: unsupported version %s", name, service.Version))
		}
		if service.Timeout < 0 {
			errs = append(errs, fmt.Errorf("service %s: timeout must not be negative", name))
		}
		if lb := service.LogBackend; lb != "" {
			if _, ok := c.LogBackends[lb]; !ok {
				errs = append(errs, fmt.Errorf("service %s: unknown log backend %s", name, lb))
			}
		}
	}
	if c.LogBackend != "" {
		if _, ok := c.LogBackends[c.LogBackend]; !ok {
			errs = append(errs, fmt.Errorf("unknown log backend %s", c.LogBackend))
		}
	}
	return errors.Join(errs...)
}

// LogBackendFor returns the log backend for the named service, if any.
func (c *Config) LogBackendFor(service string) (LogBackend, bool) {
	name := c.Services[service].LogBackend
	if name == "" {
		name = c.LogBackend
	}
	if name == "" {
		return LogBackend{}, false
	}
	lb, ok := c.LogBackends[name]
	return lb, ok
}
