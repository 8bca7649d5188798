package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

const (
	DatePlaceholder   = "{date}"
	DefaultDateLayout = "2006-01-02"
	DefaultInterval   = 24 * time.Hour
	minInterval       = time.Second
)

type RollingConfig struct {
	File            string        `yaml:"file"`
	FileNamePattern string        `yaml:"file_name_pattern"`
	DateLayout      string        `yaml:"date_layout"`
	Interval        time.Duration `yaml:"interval"`
	MaxHistory      int           `yaml:"max_history"`
}

func (rollConf RollingConfig) fillDefaultValues() RollingConfig {
	if rollConf.DateLayout == "" {
		rollConf.DateLayout = DefaultDateLayout
	}

	if rollConf.Interval == 0 {
		rollConf.Interval = DefaultInterval
	}

	return rollConf
}

func (rollConf RollingConfig) validate() error {
	if rollConf.FileNamePattern == "" {
		return errors.New("rolling.file_name_pattern is required")
	}

	if strings.Count(rollConf.FileNamePattern, DatePlaceholder) != 1 {
		return fmt.Errorf("rolling.file_name_pattern must contain %s exactly once", DatePlaceholder)
	}

	if !strings.Contains(filepath.Base(rollConf.FileNamePattern), DatePlaceholder) {
		return fmt.Errorf("rolling.file_name_pattern must have %s on the file name, not on the directory", DatePlaceholder)
	}

	if rollConf.Interval < minInterval {
		return fmt.Errorf("rolling.interval cannot be smaller than %v", minInterval)
	}

	if rollConf.MaxHistory < 0 {
		return errors.New("rolling.max_history cannot be negative")
	}

	if rollConf.File != "" && strings.Contains(rollConf.File, DatePlaceholder) {
		return fmt.Errorf("rolling.file must not contain %s", DatePlaceholder)
	}

	return nil
}
