package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// config is the YAML configuration file. Every key is optional and only
// fills in flags that were not given on the command line.
type config struct {
	Indent    *int    `yaml:"indent"`
	Width     *int    `yaml:"width"`
	Threshold *int    `yaml:"threshold"`
	Fallback  *string `yaml:"fallback"`
	Color     *string `yaml:"color"`
	Backup    *bool   `yaml:"backup"`
	Verbose   *bool   `yaml:"verbose"`
}

func loadConfig(path string) (*config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var c config
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &c, nil
}

// apply sets every configured value whose flag was not set explicitly.
func (c *config) apply(fs *flag.FlagSet) error {
	explicit := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	values := map[string]string{}
	if c.Indent != nil {
		values["indent"] = strconv.Itoa(*c.Indent)
	}
	if c.Width != nil {
		values["width"] = strconv.Itoa(*c.Width)
	}
	if c.Threshold != nil {
		values["threshold"] = strconv.Itoa(*c.Threshold)
	}
	if c.Fallback != nil {
		values["fallback"] = *c.Fallback
	}
	if c.Color != nil {
		values["color"] = *c.Color
	}
	if c.Backup != nil {
		values["backup"] = strconv.FormatBool(*c.Backup)
	}
	if c.Verbose != nil {
		values["v"] = strconv.FormatBool(*c.Verbose)
	}

	for name, value := range values {
		if explicit[name] {
			continue
		}
		if err := fs.Set(name, value); err != nil {
			return fmt.Errorf("config %s: %w", name, err)
		}
	}
	return nil
}
