// Copyright 2026 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config resolves the harness configuration.
//
// Every setting is a command line flag.  A flag that is not given on the
// command line may instead be set in the environment, as POLICYHARNESS_
// followed by the upper-cased flag name with dashes replaced by
// underscores, or in a YAML configuration file keyed by flag name.
// Command line flags win over the environment, which wins over the file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment variable names.
const EnvPrefix = "POLICYHARNESS"

// Emulator names.
const (
	Mininet = "mininet"
	Sim     = "sim"
)

// Config is the resolved harness configuration.
type Config struct {
	FloodlightDir        string        `mapstructure:"floodlight-dir"`
	ControllerCommand    string        `mapstructure:"controller-command"`
	ControllerConfigFlag string        `mapstructure:"controller-config-flag"`
	ControllerConfigDir  string        `mapstructure:"controller-config-dir"`
	ControllerIP         string        `mapstructure:"controller-ip"`
	ControllerPort       int           `mapstructure:"controller-port"`
	ControllerSettle     time.Duration `mapstructure:"controller-settle"`
	ControllerStopGrace  time.Duration `mapstructure:"controller-stop-grace"`
	ControllerLog        string        `mapstructure:"controller-log"`
	TopologySettle       time.Duration `mapstructure:"topology-settle"`

	Emulator string `mapstructure:"emulator"`
	MNBinary string `mapstructure:"mn-binary"`
	MNSwitch string `mapstructure:"mn-switch"`

	Depth   int    `mapstructure:"depth"`
	Fanout  int    `mapstructure:"fanout"`
	Random  bool   `mapstructure:"random"`
	NFlows  int    `mapstructure:"nflows"`
	NTrails int    `mapstructure:"ntrails"`
	Seed    uint64 `mapstructure:"seed"`

	Report        string `mapstructure:"report"`
	MetricsFile   string `mapstructure:"metrics-file"`
	MetricsListen string `mapstructure:"metrics-listen"`
	TopologyDOT   string `mapstructure:"topology-dot"`
	TraceBucket   string `mapstructure:"trace-bucket"`
	TracePrefix   string `mapstructure:"trace-prefix"`
	LockFile      string `mapstructure:"lock-file"`
	KnownIssueURL string `mapstructure:"known-issue-url"`
}

// DefaultControllerCommand starts Floodlight from its checkout.
const DefaultControllerCommand = "java -ea -Dlogback.configurationFile=logback.xml -jar target/floodlight.jar"

// RegisterFlags adds the run flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("floodlight-dir", ".", "Controller checkout; working directory of the controller and root of tmp/, traces/ and random-traces/.")
	fs.String("controller-command", DefaultControllerCommand, "Controller command line, without the configuration file arguments.")
	fs.String("controller-config-flag", "-cf", "Controller flag that precedes the module configuration file.")
	fs.String("controller-config-dir", "src/main/resources", "Directory of the <module>.properties files, relative to --floodlight-dir.")
	fs.String("controller-ip", "0.0.0.0", "Address the emulated switches use to reach the controller.")
	fs.Int("controller-port", 6653, "OpenFlow port of the controller.")
	fs.Duration("controller-settle", 3*time.Second, "How long to wait for the controller to come up.")
	fs.Duration("controller-stop-grace", 5*time.Second, "How long to wait after SIGTERM before killing the controller process group.")
	fs.String("controller-log", "", "File that receives the controller output; discarded if empty.")
	fs.Duration("topology-settle", 3*time.Second, "How long to wait after the topology is up before probing.")

	fs.String("emulator", Mininet, "Network emulator: mininet or sim.")
	fs.String("mn-binary", "mn", "Mininet executable.")
	fs.String("mn-switch", "ovsk", "Mininet switch type.")

	fs.Int("depth", 2, "Depth of the tree topology.")
	fs.Int("fanout", 2, "Fanout of the tree topology.")
	fs.Bool("random", false, "Probe randomly drawn host pairs instead of the module's scenario.")
	fs.Int("nflows", 10, "Number of probes per randomized trial.")
	fs.Int("ntrails", 1, "Number of trials; more than one requires --random.")
	fs.Uint64("seed", 0, "Seed of the randomized probe draw; 0 picks one from the clock.")

	fs.String("report", "", "Write a YAML report of the results to this file.")
	fs.String("metrics-file", "", "Write Prometheus metrics in text format to this file.")
	fs.String("metrics-listen", "", "Serve Prometheus metrics on this address while running.")
	fs.String("topology-dot", "", "Write the topology as a Graphviz DOT file.")
	fs.String("trace-bucket", "", "Upload archived traces to this Cloud Storage bucket.")
	fs.String("trace-prefix", "", "Object name prefix for uploaded traces.")
	fs.String("lock-file", "", "Lock file that keeps runs exclusive; defaults to <floodlight-dir>/tmp/policyharness.lock.")
	fs.String("known-issue-url", "", "Report a known issue that explains why the run fails.")
}

// Load resolves the configuration from fs, the environment and, if
// file is not empty, the YAML file at file.
func Load(fs *pflag.FlagSet, file string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}
	if file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("cannot read config %s: %w", file, err)
		}
	}
	c := new(Config)
	if err := v.Unmarshal(c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the settings that do not depend on the module.
func (c *Config) Validate() error {
	switch c.Emulator {
	case Mininet, Sim:
	default:
		return fmt.Errorf("unknown emulator %q, want %s or %s", c.Emulator, Mininet, Sim)
	}
	if c.ControllerPort < 1 || c.ControllerPort > 65535 {
		return fmt.Errorf("controller port %d out of range", c.ControllerPort)
	}
	if len(c.Command()) == 0 {
		return fmt.Errorf("empty controller command")
	}
	if c.ControllerSettle < 0 || c.TopologySettle < 0 {
		return fmt.Errorf("negative settle delay")
	}
	return nil
}

// Command splits the controller command line into arguments.
func (c *Config) Command() []string {
	return strings.Fields(c.ControllerCommand)
}
