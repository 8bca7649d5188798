package config

import (
	"errors"
	"time"
)

const (
	DefaultQueueCapacity       = 64
	DefaultWorkers             = 2
	DefaultShutdownGracePeriod = 30 * time.Second
)

type DispatchConfig struct {
	QueueCapacity       int           `yaml:"queue_capacity"`
	Workers             int           `yaml:"workers"`
	ShutdownGracePeriod time.Duration `yaml:"shutdown_grace_period"`
}

func (dispConf DispatchConfig) fillDefaultValues() DispatchConfig {
	if dispConf.QueueCapacity == 0 {
		dispConf.QueueCapacity = DefaultQueueCapacity
	}

	if dispConf.Workers == 0 {
		dispConf.Workers = DefaultWorkers
	}

	if dispConf.ShutdownGracePeriod == 0 {
		dispConf.ShutdownGracePeriod = DefaultShutdownGracePeriod
	}
	return dispConf
}

func (dispConf DispatchConfig) validate() error {
	if dispConf.QueueCapacity < 1 {
		return errors.New("dispatch.queue_capacity should be at least 1")
	}

	if dispConf.Workers < 1 {
		return errors.New("dispatch.workers should be at least 1")
	}

	if dispConf.ShutdownGracePeriod < 0 {
		return errors.New("dispatch.shutdown_grace_period cannot be negative")
	}
	return nil
}
