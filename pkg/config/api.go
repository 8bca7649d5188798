package config

import "errors"

const DefaultPort = 9010

// APIConfig is the operational HTTP API (metrics, health). Port -1 turns it off.
type APIConfig struct {
	Port int `yaml:"port"`
}

func (apiConf APIConfig) fillDefaults() APIConfig {
	if apiConf.Port == 0 {
		apiConf.Port = DefaultPort
	}

	return apiConf
}

func (apiConf APIConfig) validate() error {
	if apiConf.Port < -1 || apiConf.Port > 65535 {
		return errors.New("api.port should be in the interval [-1, 65535]")
	}
	return nil
}

func (apiConf APIConfig) Enabled() bool {
	return apiConf.Port > 0
}
