package config

import (
	"errors"
	"time"
)

const DefaultCBOpenIntervalInMs = 100

type CircuitBreakerConfig struct {
	TurnOn       *bool `yaml:"turn_on"`
	OpenInterval int64 `yaml:"open_interval_in_ms"`
}

func (cbConf CircuitBreakerConfig) fillDefaultValues() CircuitBreakerConfig {
	if cbConf.TurnOn == nil {
		turnOn := true
		cbConf.TurnOn = &turnOn
	}

	if cbConf.OpenInterval == 0 {
		cbConf.OpenInterval = DefaultCBOpenIntervalInMs
	}
	return cbConf
}

func (cbConf CircuitBreakerConfig) validate() error {
	if cbConf.OpenInterval < 0 {
		return errors.New("circuit_breaker.open_interval_in_ms cannot be negative")
	}
	return nil
}

func (cbConf CircuitBreakerConfig) IsOn() bool {
	return cbConf.TurnOn == nil || *cbConf.TurnOn
}

func (cbConf CircuitBreakerConfig) OpenIntervalAsDuration() time.Duration {
	return time.Duration(cbConf.OpenInterval) * time.Millisecond
}
