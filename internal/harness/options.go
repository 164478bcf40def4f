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

	"github.com/openconfig/policyharness/internal/policy"
	"github.com/openconfig/policyharness/topologies/tree"
)

// Errors returned by Run.  Failures are wrapped, so use errors.Is.
var (
	// ErrConfiguration means the options were rejected before anything
	// was started.
	ErrConfiguration = errors.New("invalid configuration")
	// ErrProvisioning means the emulated network could not be built.
	ErrProvisioning = errors.New("cannot provision topology")
	// ErrControllerStart means the controller could not be started.
	ErrControllerStart = errors.New("cannot start controller")
	// ErrBusy means another run holds the run lock.
	ErrBusy = errors.New("another run is in progress")
)

// Options selects what a run verifies.
type Options struct {
	// Module is a policy module name or policy.All.
	Module   string
	Topology tree.Spec
	// Randomized replaces the module scenarios with Flows randomly drawn
	// probes.
	Randomized bool
	Flows      int
	// Trials repeats each module; only randomized runs may repeat.
	Trials int
	// Seed seeds the randomized draw of the first trial; trial i uses
	// Seed+i-1.  Zero picks a seed from the clock.
	Seed uint64
}

func configErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// Validate checks o and returns the modules it selects.  All errors wrap
// ErrConfiguration.
func (o Options) Validate() ([]*policy.Module, error) {
	mods, err := policy.Resolve(o.Module)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	if o.Trials < 1 {
		return nil, configErr("ntrails must be at least 1, got %d", o.Trials)
	}
	if o.Trials > 1 && !o.Randomized {
		return nil, configErr("ntrails=%d requires randomized mode; deterministic scenarios give the same result every trial", o.Trials)
	}
	if err := o.Topology.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	if o.Randomized {
		if o.Flows < 1 {
			return nil, configErr("nflows must be at least 1 in randomized mode, got %d", o.Flows)
		}
		return mods, nil
	}
	hosts := o.Topology.NumHosts()
	for _, m := range mods {
		if need := m.Scenario.MaxHost(); need > hosts {
			return nil, configErr("module %s probes h%d but %v has only %d hosts", m.Name, need, o.Topology, hosts)
		}
	}
	return mods, nil
}
