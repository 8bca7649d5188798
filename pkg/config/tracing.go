package config

import "errors"

const DefaultTracingSampleRatio = 1.0

type TracingConfig struct {
	Enabled     bool     `yaml:"enabled"`
	ServiceName string   `yaml:"service_name"`
	SampleRatio *float64 `yaml:"sample_ratio"`
	Endpoint    string   `yaml:"endpoint"`
}

func (tracingConf TracingConfig) fillDefaults() TracingConfig {
	if tracingConf.ServiceName == "" {
		tracingConf.ServiceName = DefaultServiceNameOnO11y
	}

	if tracingConf.SampleRatio == nil {
		ratio := DefaultTracingSampleRatio
		tracingConf.SampleRatio = &ratio
	}
	return tracingConf
}

func (tracingConf TracingConfig) validate() error {
	if tracingConf.SampleRatio != nil && (*tracingConf.SampleRatio < 0 || *tracingConf.SampleRatio > 1) {
		return errors.New("tracing.sample_ratio should be between 0 and 1")
	}
	return nil
}

// Ratio is the sample ratio, with the default applied when it was never set.
func (tracingConf TracingConfig) Ratio() float64 {
	if tracingConf.SampleRatio == nil {
		return DefaultTracingSampleRatio
	}
	return *tracingConf.SampleRatio
}
