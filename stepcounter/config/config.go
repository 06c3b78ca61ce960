/*
	Copyright 2024 StepCounting Authors

	Licensed under the Apache License, Version 2.0 (the "License");
	you may not use this file except in compliance with the License.
	You may obtain a copy of the License at

	https://www.apache.org/licenses/LICENSE-2.0

	Unless required by applicable law or agreed to in writing, software
	distributed under the License is distributed on an "AS IS" BASIS,
	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
	See the License for the specific language governing permissions and
	limitations under the License.
*/

package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/michaelquigley/pfxlog"
	"github.com/pkg/errors"
	"github.com/stepcounting/sdk-golang/stepcounter/sensor"
	"gopkg.in/yaml.v3"
)

// EnvFile names the environment variable NewFromEnv reads the config file path from.
const EnvFile = "STEPCOUNTER_CONFIG"

const DefaultProbeTimeout = 10 * time.Second

// Duration accepts either a Go duration string ("2s", "1m30s") or a number of milliseconds.
type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	return d.set(v)
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var v interface{}
	if err := node.Decode(&v); err != nil {
		return err
	}
	return d.set(v)
}

func (d *Duration) set(v interface{}) error {
	switch val := v.(type) {
	case float64:
		*d = Duration(time.Duration(val) * time.Millisecond)
	case int:
		*d = Duration(time.Duration(val) * time.Millisecond)
	case string:
		parsed, err := time.ParseDuration(val)
		if err != nil {
			return errors.Wrapf(err, "invalid duration [%s]", val)
		}
		*d = Duration(parsed)
	default:
		return errors.Errorf("invalid duration %v of type %T", v, v)
	}
	return nil
}

type Config struct {
	Bridge            string   `json:"bridge" yaml:"bridge"`
	ProbeTimeout      Duration `json:"probeTimeout" yaml:"probeTimeout"`
	ProbeOnStart      bool     `json:"probeOnStart" yaml:"probeOnStart"`
	BackgroundService *bool    `json:"backgroundService,omitempty" yaml:"backgroundService"`
	MetricsSourceId   string   `json:"metricsSourceId" yaml:"metricsSourceId"`
}

func New() *Config {
	return &Config{
		Bridge:       sensor.BridgeAuto,
		ProbeTimeout: Duration(DefaultProbeTimeout),
	}
}

// BackgroundServiceEnabled defaults to true when the file does not say otherwise.
func (self *Config) BackgroundServiceEnabled() bool {
	return self.BackgroundService == nil || *self.BackgroundService
}

func (self *Config) Validate() error {
	switch self.Bridge {
	case "", sensor.BridgeAuto, sensor.BridgeTurbo, sensor.BridgeLegacy:
	default:
		return errors.Errorf("invalid bridge [%s], must be one of %s, %s or %s",
			self.Bridge, sensor.BridgeAuto, sensor.BridgeTurbo, sensor.BridgeLegacy)
	}
	if self.ProbeTimeout < 0 {
		return errors.Errorf("probeTimeout must not be negative, got %v", self.ProbeTimeout.Duration())
	}
	return nil
}

// NewFromFile loads a JSON or YAML config, chosen by file extension. Fields missing from the file
// keep the values from New.
func NewFromFile(confFilePath string) (*Config, error) {
	log := pfxlog.Logger().WithField("path", confFilePath)
	log.Debug("loading step counter config")

	resolved, err := filepath.EvalSymlinks(confFilePath)
	if err != nil {
		return nil, errors.Errorf("config file (%s) is not found", confFilePath)
	}
	if resolved != confFilePath {
		log.Debugf("config file is a symlink to %s", resolved)
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read config file (%s)", resolved)
	}

	c := New()
	switch strings.ToLower(filepath.Ext(resolved)) {
	case ".yml", ".yaml":
		err = yaml.Unmarshal(data, c)
	default:
		err = json.Unmarshal(data, c)
	}
	if err != nil {
		return nil, errors.Errorf("failed to load step counter configuration (%s): %v", resolved, err)
	}

	if err = c.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid step counter configuration (%s)", resolved)
	}

	return c, nil
}

// NewFromEnv loads the file named by STEPCOUNTER_CONFIG, or returns the defaults when it is unset.
func NewFromEnv() (*Config, error) {
	if path := os.Getenv(EnvFile); path != "" {
		return NewFromFile(path)
	}
	return New(), nil
}
