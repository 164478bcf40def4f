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

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/pflag"
)

func flags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("Parse(%v) got error: %v", args, err)
	}
	return fs
}

func TestDefaults(t *testing.T) {
	got, err := Load(flags(t), "")
	if err != nil {
		t.Fatalf("Load() got error: %v", err)
	}
	want := &Config{
		FloodlightDir:        ".",
		ControllerCommand:    DefaultControllerCommand,
		ControllerConfigFlag: "-cf",
		ControllerConfigDir:  "src/main/resources",
		ControllerIP:         "0.0.0.0",
		ControllerPort:       6653,
		ControllerSettle:     3 * time.Second,
		ControllerStopGrace:  5 * time.Second,
		TopologySettle:       3 * time.Second,
		Emulator:             Mininet,
		MNBinary:             "mn",
		MNSwitch:             "ovsk",
		Depth:                2,
		Fanout:               2,
		NFlows:               10,
		NTrails:              1,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Load() -want, +got:\n%s", diff)
	}
	if diff := cmp.Diff([]string{"java", "-ea", "-Dlogback.configurationFile=logback.xml", "-jar", "target/floodlight.jar"}, got.Command()); diff != "" {
		t.Errorf("Command() -want, +got:\n%s", diff)
	}
}

func TestPrecedence(t *testing.T) {
	file := filepath.Join(t.TempDir(), "harness.yaml")
	yaml := strings.Join([]string{
		"depth: 3",
		"fanout: 3",
		"nflows: 20",
		"controller-settle: 5s",
		"emulator: sim",
	}, "\n")
	if err := os.WriteFile(file, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("POLICYHARNESS_FANOUT", "4")
	t.Setenv("POLICYHARNESS_NFLOWS", "30")
	t.Setenv("POLICYHARNESS_RANDOM", "true")

	got, err := Load(flags(t, "--nflows=40", "--seed=7"), file)
	if err != nil {
		t.Fatalf("Load() got error: %v", err)
	}
	cases := []struct {
		desc      string
		got, want any
	}{
		{"depth from file", got.Depth, 3},
		{"fanout from env over file", got.Fanout, 4},
		{"nflows from flag over env", got.NFlows, 40},
		{"random from env", got.Random, true},
		{"seed from flag", got.Seed, uint64(7)},
		{"settle from file", got.ControllerSettle, 5 * time.Second},
		{"emulator from file", got.Emulator, Sim},
		{"port default", got.ControllerPort, 6653},
	}
	for _, c := range cases {
		if c.got != c.want {
			t.Errorf("%s got %v, want %v", c.desc, c.got, c.want)
		}
	}
}

func TestLoadErrors(t *testing.T) {
	cases := []struct {
		desc string
		args []string
	}{
		{"unknown emulator", []string{"--emulator=docker"}},
		{"port out of range", []string{"--controller-port=70000"}},
		{"empty command", []string{"--controller-command= "}},
		{"negative settle", []string{"--topology-settle=-1s"}},
	}
	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			if _, err := Load(flags(t, c.args...), ""); err == nil {
				t.Errorf("Load(%v) got no error", c.args)
			}
		})
	}
	if _, err := Load(flags(t), filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Errorf("Load() with a missing config file got no error")
	}
}
