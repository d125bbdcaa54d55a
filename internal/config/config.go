// Package config loads the serve configuration from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration file.
type Config struct {
	Server    Server    `yaml:"server"`
	Log       Log       `yaml:"log"`
	Telemetry Telemetry `yaml:"telemetry"`
}

type Server struct {
	Addr           string        `yaml:"addr" validate:"required"`
	Path           string        `yaml:"path" validate:"required"`
	Timeout        time.Duration `yaml:"timeout" validate:"gte=0"`
	Pretty         bool          `yaml:"pretty"`
	MaxBodyBytes   int64         `yaml:"maxBodyBytes" validate:"gte=0"`
	CORS           []string      `yaml:"cors" validate:"dive,required"`
	ForwardHeaders []string      `yaml:"forwardHeaders" validate:"dive,required"`
	Introspection  bool          `yaml:"introspection"`
}

type Log struct {
	Level  string `yaml:"level" validate:"oneof=trace debug info warn warning error fatal panic"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// Telemetry configures trace export. An empty endpoint disables it.
type Telemetry struct {
	Endpoint string `yaml:"endpoint"`
	Service  string `yaml:"service" validate:"required"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: Server{
			Addr:          ":8080",
			Path:          "/graphql",
			Timeout:       10 * time.Second,
			MaxBodyBytes:  1 << 20,
			Introspection: true,
		},
		Log:       Log{Level: "info", Format: "text"},
		Telemetry: Telemetry{Service: "typegraph"},
	}
}

// Load reads the file at path over the defaults and validates the result.
// An empty path yields the validated defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		cfg := Default()
		return cfg, cfg.Validate()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML from r over the defaults. Unknown keys are errors.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, cfg.Validate()
}

var validate = validator.New()

// Validate checks field constraints and reports every violation.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("configuration is nil")
	}
	if !strings.HasPrefix(c.Server.Path, "/") && c.Server.Path != "" {
		return fmt.Errorf("server.path must start with /, got %q", c.Server.Path)
	}
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validation error: %w", err)
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		msgs[i] = fmt.Sprintf("%s failed on '%s'", fe.Namespace(), fe.Tag())
		if fe.Param() != "" {
			msgs[i] += fmt.Sprintf(" (%s)", fe.Param())
		}
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}
