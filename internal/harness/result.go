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

package harness

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	closer "github.com/openconfig/gocloser"
	"github.com/openconfig/policyharness/internal/scenario"
	"github.com/openconfig/policyharness/internal/trace"
	"github.com/openconfig/policyharness/topologies/tree"
	"gopkg.in/yaml.v3"
)

// RunResult is the record of one trial of one module.
type RunResult struct {
	ID         uuid.UUID          `yaml:"id"`
	Module     string             `yaml:"module"`
	Trial      int                `yaml:"trial"`
	Randomized bool               `yaml:"randomized"`
	Seed       uint64             `yaml:"seed,omitempty"`
	Topology   string             `yaml:"topology"`
	Hosts      []tree.Host        `yaml:"hosts"`
	Outcomes   []scenario.Outcome `yaml:"outcomes"`
	Trace      trace.Archive      `yaml:"trace"`
	// NoTrace is set when the controller produced no trace for the run.
	NoTrace     bool              `yaml:"no_trace"`
	TraceErr    string            `yaml:"trace_error,omitempty"`
	TeardownErr string            `yaml:"teardown_error,omitempty"`
	Properties  map[string]string `yaml:"properties,omitempty"`
	Started     time.Time         `yaml:"started"`
	Finished    time.Time         `yaml:"finished"`
}

// FailedProbes returns the number of probes that could not be executed.
func (r *RunResult) FailedProbes() int {
	var n int
	for _, o := range r.Outcomes {
		if o.Failed() {
			n++
		}
	}
	return n
}

// Summary describes r in a few human readable lines.
func (r *RunResult) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s trial %d on %s", r.Module, r.Trial, r.Topology)
	if r.Randomized {
		fmt.Fprintf(&b, " (randomized, seed %d)", r.Seed)
	}
	tr := r.Trace.String()
	if r.TraceErr != "" {
		tr = "not archived: " + r.TraceErr
	}
	fmt.Fprintf(&b, ": %d probes, %d failed, trace: %s\n", len(r.Outcomes), r.FailedProbes(), tr)
	for _, o := range r.Outcomes {
		fmt.Fprintf(&b, "  %-12s %-8s %s", o.Probe, o.Probe.Intent, o.Probe.Tool)
		if o.Failed() {
			fmt.Fprintf(&b, "  error: %s", o.Err)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Report is the YAML document written for an invocation.
type Report struct {
	Results []*RunResult `yaml:"results"`
	Error   string       `yaml:"error,omitempty"`
}

// EncodeReport writes results and the invocation error, if any, as YAML.
func EncodeReport(w io.Writer, results []*RunResult, runErr error) error {
	rep := Report{Results: results}
	if runErr != nil {
		rep.Error = runErr.Error()
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(rep); err != nil {
		return err
	}
	return enc.Close()
}

// WriteReport writes the YAML report to path.
func WriteReport(path string, results []*RunResult, runErr error) (rerr error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer closer.Close(&rerr, f.Close, "error closing report")
	return EncodeReport(f, results, runErr)
}

// classify names the failure class of a Run error for metrics.
func classify(err error) string {
	switch {
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrProvisioning):
		return "provisioning"
	case errors.Is(err, ErrControllerStart):
		return "controller_start"
	case errors.Is(err, ErrBusy):
		return "busy"
	default:
		return "error"
	}
}
