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

package tree

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/golang/glog"
)

// Endpoint is the address of the remote controller that every emulated
// switch connects to.
type Endpoint struct {
	IP   string
	Port int
}

func (e Endpoint) String() string {
	return net.JoinHostPort(e.IP, strconv.Itoa(e.Port))
}

// Host is an emulated host.
type Host struct {
	Name string `yaml:"name"`
	IP   string `yaml:"ip"`
}

// Network is a running emulated topology.
type Network interface {
	// Hosts returns the hosts of the network in h1..hN order.
	Hosts() []Host
	// Exec runs argv in the context of the named host and returns its
	// combined output.
	Exec(ctx context.Context, host string, argv ...string) (string, error)
	// Stop stops emulation.
	Stop(ctx context.Context) error
}

// Emulator builds networks.
type Emulator interface {
	// Clean removes global emulator state left over from a previous run.
	// It must be safe to call at any time, any number of times.
	Clean(ctx context.Context) error
	// Start builds and starts a network of the given shape whose switches
	// are attached to the controller at ctrl.
	Start(ctx context.Context, spec Spec, ctrl Endpoint) (Network, error)
}

// HostSet is the set of hosts of a provisioned network.  It is only
// usable between Provisioner.Build and Provisioner.Teardown.
type HostSet struct {
	spec   Spec
	net    Network
	hosts  []Host
	byName map[string]Host

	mu       sync.Mutex
	torn     bool
	stopOnce sync.Once
	stopErr  error
}

func newHostSet(spec Spec, n Network) *HostSet {
	hosts := n.Hosts()
	hs := &HostSet{
		spec:   spec,
		net:    n,
		hosts:  hosts,
		byName: make(map[string]Host, len(hosts)),
	}
	for _, h := range hosts {
		hs.byName[h.Name] = h
	}
	return hs
}

// Spec returns the shape the host set was built from.
func (hs *HostSet) Spec() Spec { return hs.spec }

// Len returns the number of hosts.
func (hs *HostSet) Len() int { return len(hs.hosts) }

// Hosts returns a copy of the hosts in h1..hN order.
func (hs *HostSet) Hosts() []Host {
	return append([]Host(nil), hs.hosts...)
}

// Names returns the host names in h1..hN order.
func (hs *HostSet) Names() []string {
	names := make([]string, len(hs.hosts))
	for i, h := range hs.hosts {
		names[i] = h.Name
	}
	return names
}

// IP returns the address of the named host.
func (hs *HostSet) IP(name string) (string, bool) {
	h, ok := hs.byName[name]
	return h.IP, ok
}

// Exec runs argv in the context of the named host.
func (hs *HostSet) Exec(ctx context.Context, host string, argv ...string) (string, error) {
	hs.mu.Lock()
	torn := hs.torn
	hs.mu.Unlock()
	if torn {
		return "", errors.New("network has been torn down")
	}
	if _, ok := hs.byName[host]; !ok {
		return "", fmt.Errorf("host %q is not part of %v", host, hs.spec)
	}
	return hs.net.Exec(ctx, host, argv...)
}

func (hs *HostSet) stop(ctx context.Context) error {
	hs.stopOnce.Do(func() {
		hs.mu.Lock()
		hs.torn = true
		hs.mu.Unlock()
		hs.stopErr = hs.net.Stop(ctx)
	})
	return hs.stopErr
}

// Provisioner builds and tears down tree networks on an Emulator.
type Provisioner struct {
	emu    Emulator
	ctrl   Endpoint
	settle time.Duration
}

// NewProvisioner returns a Provisioner that attaches every network to
// ctrl and waits settle after starting it so that switches can connect.
func NewProvisioner(emu Emulator, ctrl Endpoint, settle time.Duration) *Provisioner {
	return &Provisioner{emu: emu, ctrl: ctrl, settle: settle}
}

// Build cleans stale emulator state and starts a network of the given
// shape.  On error no HostSet is returned and the emulator has been
// cleaned again.
func (p *Provisioner) Build(ctx context.Context, spec Spec) (*HostSet, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if err := p.emu.Clean(ctx); err != nil {
		return nil, fmt.Errorf("pre-run cleanup: %w", err)
	}
	glog.Infof("Starting %v attached to controller %v", spec, p.ctrl)
	n, err := p.emu.Start(ctx, spec, p.ctrl)
	if err != nil {
		p.clean(ctx)
		return nil, fmt.Errorf("cannot start %v: %w", spec, err)
	}
	hs := newHostSet(spec, n)
	if got, want := hs.Len(), spec.NumHosts(); got != want {
		p.Teardown(ctx, hs)
		return nil, fmt.Errorf("%v started with %d hosts, want %d", spec, got, want)
	}
	if p.settle > 0 {
		glog.V(1).Infof("Waiting %v for switches to connect", p.settle)
		select {
		case <-time.After(p.settle):
		case <-ctx.Done():
			p.Teardown(context.WithoutCancel(ctx), hs)
			return nil, ctx.Err()
		}
	}
	return hs, nil
}

// Teardown stops the network and cleans the emulator.  Calling it more
// than once is harmless; later calls return the result of the first stop
// combined with a fresh clean.
func (p *Provisioner) Teardown(ctx context.Context, hs *HostSet) error {
	if hs == nil {
		return nil
	}
	var errs []error
	if err := hs.stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stop %v: %w", hs.spec, err))
	}
	if err := p.emu.Clean(ctx); err != nil {
		errs = append(errs, fmt.Errorf("post-run cleanup: %w", err))
	}
	return errors.Join(errs...)
}

func (p *Provisioner) clean(ctx context.Context) {
	if err := p.emu.Clean(ctx); err != nil {
		glog.Warningf("Cleanup after failed start: %v", err)
	}
}
