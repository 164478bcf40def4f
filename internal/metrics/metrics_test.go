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

package metrics

import (
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New()
	m.Probe("auth", false, false)
	m.Probe("auth", false, true)
	m.Probe("auth", true, false)
	m.Trace("auth", true)
	m.RunFinished("auth", "ok", 12)
	m.RunFinished("auth", "provisioning", 1)

	cases := []struct {
		desc string
		got  float64
		want float64
	}{
		{"deterministic probes", testutil.ToFloat64(m.probes.WithLabelValues("auth", "false")), 2},
		{"randomized probes", testutil.ToFloat64(m.probes.WithLabelValues("auth", "true")), 1},
		{"probe errors", testutil.ToFloat64(m.probeErrors.WithLabelValues("auth")), 1},
		{"traces", testutil.ToFloat64(m.traces.WithLabelValues("auth", "true")), 1},
		{"ok runs", testutil.ToFloat64(m.runs.WithLabelValues("auth", "ok")), 1},
		{"failed runs", testutil.ToFloat64(m.runs.WithLabelValues("auth", "provisioning")), 1},
	}
	for _, c := range cases {
		if c.got != c.want {
			t.Errorf("%s got %v, want %v", c.desc, c.got, c.want)
		}
	}
	if got := testutil.CollectAndCount(m.runDuration); got != 1 {
		t.Errorf("run duration series got %d, want 1 (failed runs are not observed)", got)
	}
}

func TestWriteFile(t *testing.T) {
	m := New()
	m.ControllerUp(true)
	m.Probe("learningswitch", false, false)
	path := filepath.Join(t.TempDir(), "policyharness.prom")
	if err := m.WriteFile(path); err != nil {
		t.Fatalf("WriteFile() got error: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		`policyharness_probes_total{module="learningswitch",randomized="false"} 1`,
		"policyharness_controller_up 1",
	} {
		if !strings.Contains(string(b), want) {
			t.Errorf("textfile does not contain %q:\n%s", want, b)
		}
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.Trace("auth", false)
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("GET got error: %v", err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if want := `policyharness_traces_total{module="auth",produced="false"} 1`; !strings.Contains(string(b), want) {
		t.Errorf("served metrics do not contain %q:\n%s", want, b)
	}
}
