/*
 * This file is part of the KubeVirt project
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 * Copyright The KubeVirt Authors.
 *
 */

package config

import (
	"os"

	"github.com/pkg/errors"
	flag "github.com/spf13/pflag"
	"sigs.k8s.io/yaml"

	"kubevirt.io/vkdebug/pkg/vulkan/debug"
	"kubevirt.io/vkdebug/pkg/vulkan/vk"
)

const (
	OutputLogfmt = "logfmt"
	OutputText   = "text"

	ValidationLayer = "VK_LAYER_KHRONOS_validation"
)

// Config describes which instance to create and which debug messages to
// receive.
type Config struct {
	ApplicationName string   `json:"applicationName,omitempty"`
	Severity        string   `json:"severity,omitempty"`
	Types           string   `json:"types,omitempty"`
	Layers          []string `json:"layers,omitempty"`
	Extensions      []string `json:"extensions,omitempty"`
	LoaderPaths     []string `json:"loaderPaths,omitempty"`
	MetricsListen   string   `json:"metricsListen,omitempty"`
	Output          string   `json:"output,omitempty"`
	RateLimit       float64  `json:"rateLimit,omitempty"`
}

func Default() *Config {
	return &Config{
		ApplicationName: "vkdebug",
		Severity:        "error,warning",
		Types:           "general",
		Layers:          []string{ValidationLayer},
		Extensions:      []string{vk.EXT_DEBUG_UTILS_EXTENSION_NAME},
		Output:          OutputLogfmt,
	}
}

// AddFlags binds the configuration to fs. Values already in c are the flag
// defaults.
func (c *Config) AddFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.ApplicationName, "application-name", c.ApplicationName, "Application name reported to the driver")
	fs.StringVar(&c.Severity, "severity", c.Severity, "Comma separated message severities: error, warning, information, verbose, all or none")
	fs.StringVar(&c.Types, "types", c.Types, "Comma separated message types: general, validation, performance, all or none")
	fs.StringSliceVar(&c.Layers, "layers", c.Layers, "Instance layers to enable")
	fs.StringSliceVar(&c.Extensions, "extensions", c.Extensions, "Instance extensions to enable")
	fs.StringSliceVar(&c.LoaderPaths, "loader", c.LoaderPaths, "Vulkan loader libraries to try, defaults to libvulkan.so.1")
	fs.StringVar(&c.MetricsListen, "metrics-listen", c.MetricsListen, "Address to serve prometheus metrics on, disabled when empty")
	fs.StringVar(&c.Output, "output", c.Output, "Message output format: logfmt or text")
	fs.Float64Var(&c.RateLimit, "rate-limit", c.RateLimit, "Maximum messages printed per second, unlimited when 0")
}

// Load reads a YAML configuration file on top of the defaults. Flags of fs
// that were set explicitly take precedence over the file.
func Load(path string, fs *flag.FlagSet) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", path)
	}

	c := Default()
	if err := yaml.UnmarshalStrict(data, c); err != nil {
		return nil, errors.Wrapf(err, "failed to parse config file %s", path)
	}

	if fs != nil {
		var flagErr error
		fs.Visit(func(f *flag.Flag) {
			if flagErr == nil {
				flagErr = c.applyFlag(fs, f)
			}
		})
		if flagErr != nil {
			return nil, flagErr
		}
	}
	return c, c.Validate()
}

func (c *Config) applyFlag(fs *flag.FlagSet, f *flag.Flag) error {
	var err error
	switch f.Name {
	case "application-name":
		c.ApplicationName = f.Value.String()
	case "severity":
		c.Severity = f.Value.String()
	case "types":
		c.Types = f.Value.String()
	case "layers":
		c.Layers, err = fs.GetStringSlice(f.Name)
	case "extensions":
		c.Extensions, err = fs.GetStringSlice(f.Name)
	case "loader":
		c.LoaderPaths, err = fs.GetStringSlice(f.Name)
	case "metrics-listen":
		c.MetricsListen = f.Value.String()
	case "output":
		c.Output = f.Value.String()
	case "rate-limit":
		c.RateLimit, err = fs.GetFloat64(f.Name)
	}
	return errors.Wrapf(err, "invalid value for flag --%s", f.Name)
}

func (c *Config) Validate() error {
	if _, err := c.MessageSeverity(); err != nil {
		return err
	}
	if _, err := c.MessageType(); err != nil {
		return err
	}
	if c.Output != OutputLogfmt && c.Output != OutputText {
		return errors.Errorf("unknown output format %q", c.Output)
	}
	if c.RateLimit < 0 {
		return errors.Errorf("rate limit must not be negative, got %v", c.RateLimit)
	}
	return nil
}

func (c *Config) MessageSeverity() (debug.MessageSeverity, error) {
	s, err := debug.ParseMessageSeverity(c.Severity)
	return s, errors.Wrap(err, "invalid severity")
}

func (c *Config) MessageType() (debug.MessageType, error) {
	t, err := debug.ParseMessageType(c.Types)
	return t, errors.Wrap(err, "invalid types")
}

// InstanceCreateInfo returns the instance parameters. VK_EXT_debug_utils is
// not added implicitly, so a configuration without it reproduces the
// missing extension error.
func (c *Config) InstanceCreateInfo() vk.InstanceCreateInfo {
	return vk.InstanceCreateInfo{
		ApplicationName: c.ApplicationName,
		Layers:          c.Layers,
		Extensions:      c.Extensions,
	}
}
