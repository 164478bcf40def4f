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

// Package policy is the registry of controller policy modules under test.
//
// Every module maps to exactly one controller configuration file and one
// deterministic scenario.  Each module also carries a reference policy
// expression that describes, for the simulated network, which flows the
// module is meant to allow.  The expression is evaluated by
// topologies/sim with these variables:
//
//   - src, dst: the probe's source and destination host names.
//   - seen: hosts that took part in any earlier allowed flow.
//   - authorized: sources of earlier allowed flows to server.
//   - server: the authentication server host.
package policy

import (
	"fmt"
	"strings"

	"github.com/openconfig/policyharness/internal/scenario"
)

// All selects every registered module.
const All = "all"

// AuthServer is the host that the auth module treats as its
// authentication server.
const AuthServer = "h4"

// Module is a policy module of the controller.
type Module struct {
	// Name is the module identifier, also used for trace file names.
	Name string
	// Description is a one line summary of what the module enforces.
	Description string
	// Scenario is the deterministic scenario for the module.
	Scenario scenario.Scenario
	// Expr is the reference policy used by the simulated network.
	Expr string
}

// ConfigFile returns the name of the controller configuration file that
// loads the module.
func (m *Module) ConfigFile() string {
	return m.Name + ".properties"
}

func hping(src, dst string, intent scenario.Intent) scenario.Probe {
	return scenario.Probe{Src: src, Dst: dst, Tool: scenario.Hping, Intent: intent}
}

func ping(src, dst string, intent scenario.Intent) scenario.Probe {
	return scenario.Probe{Src: src, Dst: dst, Tool: scenario.Ping5, Intent: intent}
}

const (
	allow = scenario.Allow
	block = scenario.Block
)

var (
	// h1 and h2 sit behind port 1 of s1; h3 and h4 are outside.
	statelessProbes = []scenario.Probe{
		hping("h1", "h4", allow),
		hping("h4", "h2", block),
		hping("h2", "h4", allow),
	}
	// h4 becomes known through h1's flow and may then reach inside; h3
	// never established state and stays blocked.
	statefulProbes = []scenario.Probe{
		hping("h1", "h4", allow),
		hping("h4", "h2", allow),
		hping("h2", "h4", allow),
		hping("h3", "h2", block),
	}
	// The out-of-network probe comes first, before any state exists.
	l3StatefulProbes = []scenario.Probe{
		hping("h3", "h2", block),
		hping("h1", "h4", allow),
		hping("h4", "h2", allow),
		hping("h2", "h4", allow),
	}
	authProbes = []scenario.Probe{
		ping("h1", AuthServer, allow),
		ping("h2", AuthServer, allow),
		ping("h1", "h2", allow),
		ping("h1", "h3", block),
	}
)

const (
	inside        = `src in ["h1", "h2"]`
	statefulExpr  = inside + ` || src in seen`
	statelessExpr = inside
	authExpr      = `dst == server || (src in authorized && dst in authorized) || src == dst`
)

var registry = []*Module{{
	Name:        "learningswitch",
	Description: "L2 learning switch; every pair of hosts is reachable",
	Scenario:    scenario.Scenario{AllPairs: &scenario.Ping},
	Expr:        "true",
}, {
	Name:        "statelessfirewall",
	Description: "stateless firewall; only flows from inside hosts pass",
	Scenario:    scenario.Scenario{Probes: statelessProbes},
	Expr:        statelessExpr,
}, {
	Name:        "statefulfirewall",
	Description: "stateful firewall; outside hosts pass once seen in an inside flow",
	Scenario:    scenario.Scenario{Probes: statefulProbes},
	Expr:        statefulExpr,
}, {
	Name:        "firewallmigration",
	Description: "stateful firewall with state migration between switches",
	Scenario:    scenario.Scenario{Probes: statefulProbes},
	Expr:        statefulExpr,
}, {
	Name:        "l3statelessfirewall",
	Description: "L3 stateless firewall",
	Scenario:    scenario.Scenario{Probes: statelessProbes},
	Expr:        statelessExpr,
}, {
	Name:        "l3statefulfirewall",
	Description: "L3 stateful firewall; out-of-network traffic is blocked before any state exists",
	Scenario:    scenario.Scenario{Probes: l3StatefulProbes},
	Expr:        statefulExpr,
}, {
	Name:        "l3firewallmigration",
	Description: "L3 stateful firewall with state migration",
	Scenario:    scenario.Scenario{Probes: l3StatefulProbes},
	Expr:        statefulExpr,
}, {
	Name:        "auth",
	Description: "hosts authenticate with " + AuthServer + " before talking to each other",
	Scenario:    scenario.Scenario{Probes: authProbes},
	Expr:        authExpr,
}}

// Modules returns every registered module in registry order.
func Modules() []*Module {
	return append([]*Module(nil), registry...)
}

// Names returns the names of every registered module in registry order.
func Names() []string {
	names := make([]string, len(registry))
	for i, m := range registry {
		names[i] = m.Name
	}
	return names
}

// Lookup returns the module with the given name.
func Lookup(name string) (*Module, error) {
	for _, m := range registry {
		if m.Name == name {
			return m, nil
		}
	}
	return nil, fmt.Errorf("unknown policy module %q, want one of %s or %q", name, strings.Join(Names(), ", "), All)
}

// Resolve returns the modules selected by name, which is either a module
// name or All.
func Resolve(name string) ([]*Module, error) {
	if name == All {
		return Modules(), nil
	}
	m, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return []*Module{m}, nil
}
