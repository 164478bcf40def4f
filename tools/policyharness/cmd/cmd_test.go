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

package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/openconfig/policyharness/internal/harness"
	"github.com/openconfig/policyharness/internal/policy"
)

func TestModules(t *testing.T) {
	var out bytes.Buffer
	if err := Execute([]string{"modules"}, &out); err != nil {
		t.Fatalf("modules got error: %v", err)
	}
	for _, name := range policy.Names() {
		if !strings.Contains(out.String(), name+".properties") {
			t.Errorf("modules output does not list %s:\n%s", name, out.String())
		}
	}
}

func TestTopology(t *testing.T) {
	var out bytes.Buffer
	if err := Execute([]string{"topology", "--depth=1", "--fanout=3"}, &out); err != nil {
		t.Fatalf("topology got error: %v", err)
	}
	got := out.String()
	for _, want := range []string{"s1", "h1", "h3"} {
		if !strings.Contains(got, want) {
			t.Errorf("topology output does not contain %s:\n%s", want, got)
		}
	}
	if strings.Contains(got, "h4") {
		t.Errorf("topology output of a 3 host tree contains h4:\n%s", got)
	}
	if err := Execute([]string{"topology", "--depth=0"}, &out); err == nil {
		t.Errorf("topology --depth=0 got no error")
	}
}

// floodlight returns a directory laid out like a controller checkout whose
// controller is a shell script that sleeps.
func floodlight(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "src", "main", "resources")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, m := range policy.Modules() {
		if err := os.WriteFile(filepath.Join(cfgDir, m.ConfigFile()), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	script := filepath.Join(dir, "controller.sh")
	if err := os.WriteFile(script, []byte("#!/bin/sh\nexec sleep 60\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return dir
}

func runArgs(dir string, extra ...string) []string {
	return append([]string{
		"run",
		"--emulator=sim",
		"--floodlight-dir=" + dir,
		"--controller-command=" + filepath.Join(dir, "controller.sh"),
		"--controller-settle=20ms",
		"--topology-settle=0s",
	}, extra...)
}

func TestRunSim(t *testing.T) {
	dir := floodlight(t)
	report := filepath.Join(dir, "report.yaml")
	prom := filepath.Join(dir, "metrics.prom")
	dot := filepath.Join(dir, "tree.dot")
	var out bytes.Buffer
	args := runArgs(dir, "--report="+report, "--metrics-file="+prom, "--topology-dot="+dot, "auth")
	if err := Execute(args, &out); err != nil {
		t.Fatalf("run got error: %v", err)
	}
	if !strings.Contains(out.String(), "h1->h3") {
		t.Errorf("run output does not list the h1->h3 probe:\n%s", out.String())
	}
	for _, path := range []string{
		report,
		prom,
		dot,
		filepath.Join(dir, "traces", "auth.trace"),
	} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("run did not write %s: %v", path, err)
		}
	}
}

func TestRunErrors(t *testing.T) {
	cases := []struct {
		desc    string
		args    []string
		wantErr error
	}{
		{"unknown module", []string{"nosuchmodule"}, harness.ErrConfiguration},
		{"trials without random", []string{"--ntrails=2", "auth"}, harness.ErrConfiguration},
		{"random without flows", []string{"--random", "--nflows=0", "auth"}, harness.ErrConfiguration},
	}
	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			dir := floodlight(t)
			err := Execute(runArgs(dir, c.args...), &bytes.Buffer{})
			if !errors.Is(err, c.wantErr) {
				t.Errorf("run %v got error %v, want %v", c.args, err, c.wantErr)
			}
			if _, err := os.Stat(filepath.Join(dir, "tmp")); err == nil {
				t.Errorf("run %v created tmp/ although it was rejected", c.args)
			}
		})
	}
	if err := Execute([]string{"run"}, &bytes.Buffer{}); err == nil {
		t.Errorf("run without a module got no error")
	}
}
