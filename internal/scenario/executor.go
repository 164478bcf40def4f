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

package scenario

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/golang/glog"
)

// Hosts is the view of a provisioned topology that probes run against.
// *tree.HostSet implements it.
type Hosts interface {
	Names() []string
	IP(name string) (string, bool)
	Exec(ctx context.Context, host string, argv ...string) (string, error)
}

// Outcome is the recorded result of one probe.  A failure to run the
// traffic tool is recorded in Err; Output always holds whatever the tool
// printed.
type Outcome struct {
	Probe  Probe     `yaml:"probe"`
	SrcIP  string    `yaml:"src_ip,omitempty"`
	DstIP  string    `yaml:"dst_ip,omitempty"`
	Output string    `yaml:"output"`
	Err    string    `yaml:"error,omitempty"`
	Time   time.Time `yaml:"time"`
}

// Failed reports whether the probe could not be executed.
func (o Outcome) Failed() bool { return o.Err != "" }

// Mode selects how the executor obtains its probes.
type Mode struct {
	// Randomized draws Flows probes from the hosts instead of running the
	// scenario's fixed probes.
	Randomized bool
	Flows      int
	// Rand is the source for randomized draws.  It must be set when
	// Randomized is true.
	Rand *rand.Rand
	// Tool is used for randomized probes; the zero value means Hping.
	Tool Tool
}

// Executor runs probes.
type Executor struct {
	now func() time.Time
}

// NewExecutor returns an Executor that timestamps outcomes with the
// wall clock.
func NewExecutor() *Executor {
	return &Executor{now: time.Now}
}

// Run executes the probes selected by mode against hosts, in order, and
// returns one outcome per probe in execution order.
func (e *Executor) Run(ctx context.Context, sc Scenario, hosts Hosts, mode Mode) []Outcome {
	var probes []Probe
	if mode.Randomized {
		tool := mode.Tool
		if tool == (Tool{}) {
			tool = Hping
		}
		probes = Draw(mode.Rand, hosts.Names(), mode.Flows, tool)
	} else {
		probes = sc.Expand(hosts.Names())
	}
	return e.Execute(ctx, hosts, probes)
}

// Draw picks n probes with source and destination sampled independently
// and uniformly, with replacement, from names.  Self probes are kept.
func Draw(r *rand.Rand, names []string, n int, tool Tool) []Probe {
	if len(names) == 0 {
		return nil
	}
	probes := make([]Probe, n)
	for i := range probes {
		probes[i] = Probe{
			Src:  names[r.IntN(len(names))],
			Dst:  names[r.IntN(len(names))],
			Tool: tool,
		}
	}
	return probes
}

// Execute runs probes one after the other.  Each probe completes before
// the next one starts.
func (e *Executor) Execute(ctx context.Context, hosts Hosts, probes []Probe) []Outcome {
	outcomes := make([]Outcome, 0, len(probes))
	for i, p := range probes {
		o := e.probe(ctx, hosts, p)
		if o.Failed() {
			glog.Warningf("Probe %d/%d %v failed: %s", i+1, len(probes), p, o.Err)
		} else {
			glog.Infof("Probe %d/%d %s (%s) -> %s (%s): %v", i+1, len(probes), p.Src, o.SrcIP, p.Dst, o.DstIP, p.Tool)
		}
		glog.V(2).Infof("Probe %v output:\n%s", p, o.Output)
		outcomes = append(outcomes, o)
	}
	return outcomes
}

func (e *Executor) probe(ctx context.Context, hosts Hosts, p Probe) Outcome {
	o := Outcome{Probe: p, Time: e.now()}
	srcIP, ok := hosts.IP(p.Src)
	if !ok {
		o.Err = fmt.Sprintf("source host %q is not in the topology", p.Src)
		return o
	}
	o.SrcIP = srcIP
	dstIP, ok := hosts.IP(p.Dst)
	if !ok {
		o.Err = fmt.Sprintf("destination host %q is not in the topology", p.Dst)
		return o
	}
	o.DstIP = dstIP
	out, err := hosts.Exec(ctx, p.Src, p.Tool.Argv(dstIP)...)
	o.Output = out
	if err != nil {
		o.Err = err.Error()
	}
	return o
}
