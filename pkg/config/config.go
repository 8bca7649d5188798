package config

import (
	"fmt"
	"slices"

	"gopkg.in/yaml.v2"
)

const DefaultServiceNameOnO11y = "logpig"

var allowedVals map[string][]string

func init() {
	allowedVals = map[string][]string{
		"log.level":         {"debug", "info", "warn", "error"},
		"log.format":        {"json", "text"},
		"compression.level": {"1", "2", "3", "4", "5", "6", "7", "8", "9"},
		"notification.type": {"noop", "sqs"},
		"destination.type":  {"s3", "localstorage"},
	}
}

type Config struct {
	Log          LogConfig          `yaml:"log"`
	Version      string             `yaml:"version"`
	API          APIConfig          `yaml:"api"`
	Tracing      TracingConfig      `yaml:"tracing"`
	Rolling      RollingConfig      `yaml:"rolling"`
	Compression  CompressionConfig  `yaml:"compression"`
	Dispatch     DispatchConfig     `yaml:"dispatch"`
	Destination  DestinationConfig  `yaml:"destination"`
	Notification NotificationConfig `yaml:"notification"`
}

// New parses and validates the config. Destination bucket and retry settings are not validated
// here: invalid ones turn uploads off instead of failing the startup.
func New(confData []byte) (*Config, error) {
	c := &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		API: APIConfig{
			Port: DefaultPort,
		},
	}

	err := yaml.Unmarshal(confData, c)
	if err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	c.fillDefaultValues()

	err = c.validate()
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) fillDefaultValues() {
	c.Log = c.Log.fillDefaults()
	c.API = c.API.fillDefaults()
	c.Tracing = c.Tracing.fillDefaults()
	c.Rolling = c.Rolling.fillDefaultValues()
	c.Dispatch = c.Dispatch.fillDefaultValues()
	c.Destination = c.Destination.fillDefaultValues()
	c.Notification = c.Notification.fillDefaultValues()
}

func (c *Config) validate() error {
	validators := []func() error{
		c.Log.validate,
		c.API.validate,
		c.Tracing.validate,
		c.Rolling.validate,
		c.Compression.validate,
		c.Dispatch.validate,
		c.Destination.validate,
		c.Notification.validate,
	}

	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

func allowed(group []string, elem string) bool {
	return slices.Contains(group, elem)
}

func allowedValues(key string) []string {
	return allowedVals[key]
}
