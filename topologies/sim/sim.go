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

// Package sim is an in-process stand-in for an emulated network and the
// controller policy running on it.
//
// Hosts are addressed like Mininet addresses them (h1 is 10.0.0.1, and so
// on).  Every probe is decided by a Policy expression evaluated against
// the flows that came before it, which makes stateful behavior
// reproducible without a controller.  Probe output mimics the summary
// lines of ping and hping3.
package sim

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/openconfig/policyharness/internal/iputil"
	"github.com/openconfig/policyharness/topologies/tree"
)

// Emulator is a simulated tree.Emulator.
type Emulator struct {
	// Server is the authentication server host passed to policies.
	Server string
	// TraceDir, if set, receives a <module>.trace file listing every
	// decided flow when a network stops.
	TraceDir string

	mu     sync.Mutex
	module string
	policy *Policy
	live   *Network
}

// New returns an emulator whose policy allows everything.
func New() *Emulator {
	p, err := Compile("true")
	if err != nil {
		panic(err)
	}
	return &Emulator{Server: "h4", module: "sim", policy: p}
}

// Load makes subsequently started networks enforce the given policy and
// name their trace after module.
func (e *Emulator) Load(module, expression string) error {
	p, err := Compile(expression)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.module = module
	e.policy = p
	return nil
}

// Clean stops any network that is still running.
func (e *Emulator) Clean(ctx context.Context) error {
	e.mu.Lock()
	n := e.live
	e.live = nil
	e.mu.Unlock()
	if n != nil {
		glog.Infof("sim: removing stale network %v", n.spec)
		n.halt()
	}
	return nil
}

// Start starts a simulated network.  It fails if a previous network was
// neither stopped nor cleaned.
func (e *Emulator) Start(ctx context.Context, spec tree.Spec, ctrl tree.Endpoint) (tree.Network, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.live != nil {
		return nil, errors.New("sim: a network is already running; clean it first")
	}
	n := &Network{
		emu:    e,
		spec:   spec,
		ctrl:   ctrl,
		module: e.module,
		policy: e.policy,
		server: e.Server,
		byIP:   map[string]string{},
	}
	names := spec.HostNames()
	ips, err := iputil.HostIPs(iputil.DefaultBase, len(names))
	if err != nil {
		return nil, err
	}
	for i, name := range names {
		h := tree.Host{Name: name, IP: ips[i]}
		n.hosts = append(n.hosts, h)
		n.byIP[h.IP] = name
	}
	e.live = n
	return n, nil
}

// Live reports whether a network is running.
func (e *Emulator) Live() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.live != nil
}

// Network is a running simulated network.
type Network struct {
	emu    *Emulator
	spec   tree.Spec
	ctrl   tree.Endpoint
	module string
	policy *Policy
	server string
	hosts  []tree.Host
	byIP   map[string]string

	mu      sync.Mutex
	stopped bool
	flows   []Flow
}

// Hosts implements tree.Network.
func (n *Network) Hosts() []tree.Host {
	return append([]tree.Host(nil), n.hosts...)
}

// Flows returns the flows decided so far.
func (n *Network) Flows() []Flow {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Flow(nil), n.flows...)
}

// Exec implements tree.Network.  Only ping and hping3 invocations of the
// form "<tool> -c <count> <ip>" are understood.
func (n *Network) Exec(ctx context.Context, host string, argv ...string) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.stopped {
		return "", errors.New("sim: network is stopped")
	}
	if len(argv) != 4 || argv[1] != "-c" {
		return "", fmt.Errorf("sim: unsupported command %q", strings.Join(argv, " "))
	}
	tool, dstIP := argv[0], argv[3]
	count, err := strconv.Atoi(argv[2])
	if err != nil || count < 1 {
		return "", fmt.Errorf("sim: bad count %q", argv[2])
	}
	dst, ok := n.byIP[dstIP]
	if !ok {
		return fmt.Sprintf("%s: unknown host %s\n", tool, dstIP), errors.New("exit status 2")
	}
	allowed, err := n.policy.Allow(host, dst, n.server, n.flows)
	if err != nil {
		return "", fmt.Errorf("sim: evaluate %v: %w", n.policy, err)
	}
	n.flows = append(n.flows, Flow{Src: host, Dst: dst, Allowed: allowed})
	received := 0
	if allowed {
		received = count
	}
	switch tool {
	case "ping":
		return pingOutput(dstIP, count, received), nil
	case "hping3":
		return hpingOutput(host, dstIP, count, received), nil
	}
	return "", fmt.Errorf("sim: unsupported tool %q", tool)
}

func loss(count, received int) int {
	return 100 * (count - received) / count
}

func pingOutput(dst string, count, received int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "PING %s (%s) 56(84) bytes of data.\n", dst, dst)
	for i := 1; i <= received; i++ {
		fmt.Fprintf(&b, "64 bytes from %s: icmp_seq=%d ttl=64 time=0.1 ms\n", dst, i)
	}
	fmt.Fprintf(&b, "\n--- %s ping statistics ---\n", dst)
	fmt.Fprintf(&b, "%d packets transmitted, %d received, %d%% packet loss, time 0ms\n", count, received, loss(count, received))
	return b.String()
}

func hpingOutput(src, dst string, count, received int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "HPING %s (%s-eth0 %s): NO FLAGS are set, 40 headers + 0 data bytes\n", dst, src, dst)
	for i := 0; i < received; i++ {
		fmt.Fprintf(&b, "len=46 ip=%s ttl=64 DF id=0 sport=0 flags=RA seq=%d win=0 rtt=0.1 ms\n", dst, i)
	}
	fmt.Fprintf(&b, "\n--- %s hping statistic ---\n", dst)
	fmt.Fprintf(&b, "%d packets transmitted, %d packets received, %d%% packet loss\n", count, received, loss(count, received))
	return b.String()
}

// Stop implements tree.Network.
func (n *Network) Stop(ctx context.Context) error {
	n.halt()
	n.emu.mu.Lock()
	if n.emu.live == n {
		n.emu.live = nil
	}
	n.emu.mu.Unlock()
	return n.writeTrace()
}

func (n *Network) halt() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stopped = true
}

func (n *Network) writeTrace() error {
	if n.emu.TraceDir == "" {
		return nil
	}
	n.mu.Lock()
	flows := append([]Flow(nil), n.flows...)
	n.mu.Unlock()
	if len(flows) == 0 {
		return nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "// Trace collected %s\n", time.Now().Format(time.UnixDate))
	for _, f := range flows {
		verdict := "drop"
		if f.Allowed {
			verdict = "forward"
		}
		fmt.Fprintf(&b, "%s(%s, %s)\n", verdict, f.Src, f.Dst)
	}
	if err := os.MkdirAll(n.emu.TraceDir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(n.emu.TraceDir, n.module+".trace"), []byte(b.String()), 0o644)
}
