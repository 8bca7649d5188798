package config

import "fmt"

// CompressionConfig only tunes the level. The algorithm comes from the rolling file name pattern.
type CompressionConfig struct {
	Level string `yaml:"level"`
}

func (compConf CompressionConfig) validate() error {
	if compConf.Level == "" {
		return nil
	}

	if !allowed(allowedValues("compression.level"), compConf.Level) {
		return fmt.Errorf("compression.level option must be one of %v", allowedValues("compression.level"))
	}

	return nil
}
