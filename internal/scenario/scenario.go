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

// Package scenario executes traffic probes between emulated hosts.
//
// A Scenario is either a fixed, ordered list of probes or an all-pairs
// reachability sweep.  Probes are executed one at a time in order: later
// probes of a stateful policy are expected to see state established by
// earlier ones, so execution is never reordered or parallelized.  The
// executor records the raw output of each probe and leaves its
// interpretation to whoever reads the outcomes.
package scenario

import (
	"fmt"
	"strconv"
	"strings"
)

// Intent documents what a policy is expected to do with a probe.  It is
// never enforced by the executor.
type Intent int

const (
	// Unspecified means the scenario does not document an expectation.
	Unspecified Intent = iota
	// Allow means the probe is expected to get through.
	Allow
	// Block means the probe is expected to be dropped.
	Block
)

func (i Intent) String() string {
	switch i {
	case Allow:
		return "allow"
	case Block:
		return "block"
	}
	return "unspecified"
}

// MarshalYAML implements yaml.Marshaler.
func (i Intent) MarshalYAML() (any, error) {
	return i.String(), nil
}

// Tool is a traffic tool invocation with a repetition count.
type Tool struct {
	Name  string `yaml:"name"`
	Count int    `yaml:"count"`
}

// Traffic tools used by the scenarios.
var (
	Ping  = Tool{Name: "ping", Count: 1}
	Ping5 = Tool{Name: "ping", Count: 5}
	Hping = Tool{Name: "hping3", Count: 4}
)

// Argv returns the command line that sends the tool's probes to dst.
func (t Tool) Argv(dst string) []string {
	return []string{t.Name, "-c", strconv.Itoa(t.Count), dst}
}

func (t Tool) String() string {
	return fmt.Sprintf("%s -c %d", t.Name, t.Count)
}

// Probe is one directed traffic attempt between two hosts.
type Probe struct {
	Src    string `yaml:"src"`
	Dst    string `yaml:"dst"`
	Tool   Tool   `yaml:"tool"`
	Intent Intent `yaml:"intent"`
}

func (p Probe) String() string {
	return p.Src + "->" + p.Dst
}

// Scenario is a sequence of probes associated with a policy module.
type Scenario struct {
	// Probes are executed in order.
	Probes []Probe
	// AllPairs, when set, replaces Probes with a probe from every host to
	// every other host of the topology, in host order.
	AllPairs *Tool
}

// Expand returns the probes of the scenario for the given hosts.
func (s Scenario) Expand(hosts []string) []Probe {
	if s.AllPairs == nil {
		return append([]Probe(nil), s.Probes...)
	}
	probes := make([]Probe, 0, len(hosts)*(len(hosts)-1))
	for _, src := range hosts {
		for _, dst := range hosts {
			if src == dst {
				continue
			}
			probes = append(probes, Probe{Src: src, Dst: dst, Tool: *s.AllPairs, Intent: Allow})
		}
	}
	return probes
}

// MaxHost returns the highest host index (the N of hN) that the fixed
// probes refer to, or 0 for an all-pairs scenario.
func (s Scenario) MaxHost() int {
	highest := 0
	for _, p := range s.Probes {
		for _, h := range []string{p.Src, p.Dst} {
			if n := hostIndex(h); n > highest {
				highest = n
			}
		}
	}
	return highest
}

func hostIndex(name string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(name, "h"))
	if err != nil || !strings.HasPrefix(name, "h") {
		return 0
	}
	return n
}
