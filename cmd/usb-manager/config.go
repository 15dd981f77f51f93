package main

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/storagedev/usb-manager/internal/storage"
)

type Config struct {
	PollingInterval string   `yaml:"polling_interval,omitempty"` // Go duration string, e.g. "2s"
	MountHints      bool     `yaml:"mount_hints,omitempty"`
	StatusDir       string   `yaml:"status_dir,omitempty"`
	IgnoreLabels    []string `yaml:"ignore_labels,omitempty"` // regexps matched against device names

	interval time.Duration    // parsed interval if the config is valid
	ignore   []*regexp.Regexp // compiled matchers if the config is valid
}

func defaultConfig() *Config {
	return &Config{interval: storage.DefaultPollingInterval}
}

func (c *Config) validate() error {
	var errs error

	c.interval = storage.DefaultPollingInterval
	if c.PollingInterval != "" {
		interval, err := time.ParseDuration(c.PollingInterval)
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf(".polling_interval: %q must be a valid duration: %w", c.PollingInterval, err))
		} else if interval <= 0 {
			errs = errors.Join(errs, fmt.Errorf(".polling_interval: %q must be greater than 0", c.PollingInterval))
		} else {
			c.interval = interval
		}
	}

	for i, pattern := range c.IgnoreLabels {
		matcher, err := regexp.Compile(pattern)
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf(".ignore_labels[%d]: %q must be a valid regexp: %w", i, pattern, err))
			continue
		}
		c.ignore = append(c.ignore, matcher)
	}

	return errs
}

func parseConfig(reader io.Reader) (*Config, error) {
	decoder := yaml.NewDecoder(reader)
	config := &Config{}
	if err := decoder.Decode(config); err != nil {
		return nil, err
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}
