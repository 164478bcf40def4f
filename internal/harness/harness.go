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

// Package harness runs policy modules end to end.
//
// A run of one module starts the controller with the module's
// configuration, builds the emulated tree network, executes the module's
// scenario (or randomly drawn probes) against it, tears the network down,
// stops the controller and archives the trace the controller wrote.  Runs
// are strictly sequential and exclusive: a lock file keeps two harness
// processes from sharing the emulator and the controller port.
//
// Failures to configure, provision or start anything end the invocation
// with an error.  Failed probes and missing traces are part of the
// RunResult instead.
package harness

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/openconfig/policyharness/internal/controller"
	"github.com/openconfig/policyharness/internal/metrics"
	"github.com/openconfig/policyharness/internal/policy"
	"github.com/openconfig/policyharness/internal/rundata"
	"github.com/openconfig/policyharness/internal/scenario"
	"github.com/openconfig/policyharness/internal/trace"
	"github.com/openconfig/policyharness/topologies/tree"
)

// LockName is the default lock file name under the trace tmp directory.
const LockName = "policyharness.lock"

// Config wires a Harness to its collaborators.
type Config struct {
	// Root is the controller checkout; the lock file and trace
	// directories live under it.
	Root string
	// LockFile overrides <Root>/tmp/policyharness.lock.
	LockFile string

	Emulator tree.Emulator
	// EmulatorName is reported in run properties.
	EmulatorName   string
	Endpoint       tree.Endpoint
	TopologySettle time.Duration

	Supervisor *controller.Supervisor
	Archiver   *trace.Archiver
	// Metrics is optional.
	Metrics *metrics.Metrics

	KnownIssueURL string
}

// loader is implemented by emulators that enforce a module's reference
// policy themselves, such as the simulated network.
type loader interface {
	Load(module, expression string) error
}

// Harness runs policy modules.
type Harness struct {
	cfg   Config
	prov  *tree.Provisioner
	exec  *scenario.Executor
	hooks *Hooks
	now   func() time.Time

	mu   sync.Mutex
	live *tree.HostSet
}

// New returns a Harness.  The controller and any live network are
// registered as exit hooks, so the network is torn down before the
// controller is stopped.
func New(cfg Config) *Harness {
	if cfg.Archiver == nil {
		cfg.Archiver = trace.NewArchiver(cfg.Root)
	}
	h := &Harness{
		cfg:   cfg,
		prov:  tree.NewProvisioner(cfg.Emulator, cfg.Endpoint, cfg.TopologySettle),
		exec:  scenario.NewExecutor(),
		hooks: &Hooks{},
		now:   time.Now,
	}
	h.hooks.Add("stop controller", cfg.Supervisor.Shutdown)
	h.hooks.Add("tear down topology", h.teardownLive)
	return h
}

// Hooks returns the exit hooks.  Callers run them on every exit path.
func (h *Harness) Hooks() *Hooks { return h.hooks }

func (h *Harness) lockPath() string {
	if h.cfg.LockFile != "" {
		return h.cfg.LockFile
	}
	return filepath.Join(h.cfg.Root, trace.TmpDir, LockName)
}

// lock takes the run lock without waiting.
func (h *Harness) lock() (*flock.Flock, error) {
	path := h.lockPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: lock directory: %v", ErrConfiguration, err)
	}
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("%w: cannot lock %s: %v", ErrConfiguration, path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s is locked", ErrBusy, path)
	}
	return fl, nil
}

// Run validates opts and runs every selected module for opts.Trials
// trials, in order.  It returns the results of the runs that completed;
// the first fatal error ends the invocation.
func (h *Harness) Run(ctx context.Context, opts Options) ([]*RunResult, error) {
	mods, err := opts.Validate()
	if err != nil {
		return nil, err
	}
	fl, err := h.lock()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := fl.Unlock(); err != nil {
			glog.Warningf("Cannot release run lock: %v", err)
		}
	}()

	seed := opts.Seed
	if opts.Randomized && seed == 0 {
		seed = uint64(h.now().UnixNano())
		glog.Infof("Using random seed %d", seed)
	}

	var results []*RunResult
	for _, mod := range mods {
		for trial := 1; trial <= opts.Trials; trial++ {
			res, err := h.runOnce(ctx, mod, opts, trial, seed+uint64(trial-1))
			if err != nil {
				h.record(mod.Name, classify(err), 0)
				return results, fmt.Errorf("%s trial %d: %w", mod.Name, trial, err)
			}
			h.record(mod.Name, "ok", res.Finished.Sub(res.Started).Seconds())
			results = append(results, res)
		}
	}
	return results, nil
}

func (h *Harness) runOnce(ctx context.Context, mod *policy.Module, opts Options, trial int, seed uint64) (*RunResult, error) {
	res := &RunResult{
		ID:         uuid.New(),
		Module:     mod.Name,
		Trial:      trial,
		Randomized: opts.Randomized,
		Topology:   opts.Topology.String(),
		Started:    h.now(),
	}
	mode := scenario.Mode{Randomized: opts.Randomized}
	if opts.Randomized {
		res.Seed = seed
		mode.Flows = opts.Flows
		mode.Rand = rand.New(rand.NewPCG(seed, seed))
	}
	glog.Infof("Run %s: module %s trial %d on %v", res.ID, mod.Name, trial, opts.Topology)

	if l, ok := h.cfg.Emulator.(loader); ok {
		if err := l.Load(mod.Name, mod.Expr); err != nil {
			return nil, fmt.Errorf("%w: loading %s policy: %v", ErrProvisioning, mod.Name, err)
		}
	}

	ctrl, err := h.cfg.Supervisor.Start(ctx, mod.Name, mod.ConfigFile())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrControllerStart, err)
	}
	defer ctrl.Stop()
	h.controllerUp(true)
	defer h.controllerUp(false)

	hosts, err := h.prov.Build(ctx, opts.Topology)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvisioning, err)
	}
	h.setLive(hosts)
	res.Hosts = hosts.Hosts()

	res.Outcomes = h.exec.Run(ctx, mod.Scenario, hosts, mode)
	for _, o := range res.Outcomes {
		if h.cfg.Metrics != nil {
			h.cfg.Metrics.Probe(mod.Name, opts.Randomized, o.Failed())
		}
	}

	if err := h.prov.Teardown(ctx, hosts); err != nil {
		glog.Warningf("Teardown of %v: %v", opts.Topology, err)
		res.TeardownErr = err.Error()
	}
	h.setLive(nil)
	if err := ctrl.Stop(); err != nil {
		glog.Warningf("Stopping controller for %s: %v", mod.Name, err)
		res.TeardownErr = joinMsg(res.TeardownErr, err.Error())
	}

	ar, err := h.cfg.Archiver.Archive(ctx, mod.Name, opts.Randomized)
	if err != nil {
		glog.Warningf("Archiving trace of %s: %v", mod.Name, err)
		res.TraceErr = err.Error()
	}
	res.Trace = ar
	// A trace that exists but could not be archived is a TraceErr, not
	// a missing trace.
	res.NoTrace = err == nil && !ar.Produced
	if h.cfg.Metrics != nil {
		h.cfg.Metrics.Trace(mod.Name, ar.Produced)
	}

	res.Finished = h.now()
	res.Properties = rundata.Properties(rundata.Run{
		Module:        mod.Name,
		Topology:      res.Topology,
		Emulator:      h.cfg.EmulatorName,
		Randomized:    opts.Randomized,
		Flows:         opts.Flows,
		Seed:          seed,
		Trial:         trial,
		ControllerDir: h.cfg.Root,
		KnownIssueURL: h.cfg.KnownIssueURL,
		Begin:         res.Started,
		End:           res.Finished,
	})
	return res, nil
}

func (h *Harness) setLive(hs *tree.HostSet) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.live = hs
}

// teardownLive tears down the network of an interrupted run.
func (h *Harness) teardownLive() error {
	h.mu.Lock()
	hs := h.live
	h.live = nil
	h.mu.Unlock()
	if hs == nil {
		return nil
	}
	return h.prov.Teardown(context.Background(), hs)
}

func (h *Harness) controllerUp(up bool) {
	if h.cfg.Metrics != nil {
		h.cfg.Metrics.ControllerUp(up)
	}
}

func (h *Harness) record(module, result string, seconds float64) {
	if h.cfg.Metrics != nil {
		h.cfg.Metrics.RunFinished(module, result, seconds)
	}
}

func joinMsg(a, b string) string {
	if a == "" {
		return b
	}
	return a + "; " + b
}
