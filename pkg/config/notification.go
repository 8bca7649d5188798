package config

import "fmt"

type NotificationConfig struct {
	Type           string               `yaml:"type"`
	Config         interface{}          `yaml:"config"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

func (notifConf NotificationConfig) fillDefaultValues() NotificationConfig {
	if notifConf.Type == "" {
		notifConf.Type = "noop"
	}
	notifConf.CircuitBreaker = notifConf.CircuitBreaker.fillDefaultValues()
	return notifConf
}

func (notifConf NotificationConfig) validate() error {
	if !allowed(allowedValues("notification.type"), notifConf.Type) {
		return fmt.Errorf("notification.type should be one of %v", allowedValues("notification.type"))
	}

	return notifConf.CircuitBreaker.validate()
}
