package config

import (
	"errors"
	"fmt"

	"github.com/jademcosta/logpig/pkg/destination"
)

const DefaultDestinationType = "s3"

type DestinationConfig struct {
	Type            string `yaml:"type"`
	LocalPath       string `yaml:"local_path"`
	BucketName      string `yaml:"bucket_name"`
	FolderName      string `yaml:"folder_name"`
	RegionName      string `yaml:"region_name"`
	RetryCount      *int   `yaml:"retry_count"`
	MockPut         bool   `yaml:"mock_put"`
	Endpoint        string `yaml:"endpoint"`
	ForcePathStyle  bool   `yaml:"force_path_style"`
	AccessKey       string `yaml:"access_key"`
	SecretKey       string `yaml:"secret_key"`
	TimeoutInMillis int64  `yaml:"timeout_milliseconds"`

	declared bool
}

func (destConf DestinationConfig) fillDefaultValues() DestinationConfig {
	destConf.declared = destConf.hasAnyField()

	if destConf.Type == "" {
		destConf.Type = DefaultDestinationType
	}

	if destConf.RegionName == "" {
		destConf.RegionName = destination.DefaultRegion
	}

	if destConf.RetryCount == nil {
		retryCount := destination.DefaultRetryCount
		destConf.RetryCount = &retryCount
	}
	return destConf
}

// validate only checks what the store needs to be built. Bucket and retry rules belong to
// destination.Settings and never fail the startup.
func (destConf DestinationConfig) validate() error {
	if !allowed(allowedValues("destination.type"), destConf.Type) {
		return fmt.Errorf("destination.type should be one of %v", allowedValues("destination.type"))
	}

	if destConf.Type == "localstorage" && destConf.LocalPath == "" {
		return errors.New("destination.local_path is required when destination.type is localstorage")
	}

	if destConf.TimeoutInMillis < 0 {
		return errors.New("destination.timeout_milliseconds cannot be negative")
	}
	return nil
}

// Declared tells apart "no destination at all" from "a destination that might be invalid". Any
// field set on the config file declares it, so a partial block still gets its violations reported.
func (destConf DestinationConfig) Declared() bool {
	return destConf.declared
}

// hasAnyField must run before defaults are filled.
func (destConf DestinationConfig) hasAnyField() bool {
	return destConf.Type != "" || destConf.LocalPath != "" || destConf.BucketName != "" ||
		destConf.FolderName != "" || destConf.RegionName != "" || destConf.RetryCount != nil ||
		destConf.MockPut || destConf.Endpoint != "" || destConf.ForcePathStyle ||
		destConf.AccessKey != "" || destConf.SecretKey != "" || destConf.TimeoutInMillis != 0
}

func (destConf DestinationConfig) Settings() destination.Settings {
	retryCount := destination.DefaultRetryCount
	if destConf.RetryCount != nil {
		retryCount = *destConf.RetryCount
	}

	return destination.Settings{
		BucketName: destConf.BucketName,
		FolderName: destConf.FolderName,
		RegionName: destConf.RegionName,
		RetryCount: retryCount,
		MockPut:    destConf.MockPut,
	}
}
