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

// Package mininet provisions tree topologies with Mininet.
//
// The emulator runs the mn command line tool on a pseudo-terminal and
// drives its interactive CLI: host addresses are read with "py hN.IP()"
// and probes are run as "hN <command>".  Mininet must run as root, and
// Clean ("mn -c") removes switches, links and processes left behind by
// an earlier run that did not exit cleanly.
package mininet

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/creack/pty"
	"github.com/golang/glog"
	"github.com/openconfig/policyharness/topologies/tree"
)

// Config configures the Mininet emulator.
type Config struct {
	// Binary is the mn executable.
	Binary string
	// Switch is the --switch argument, e.g. "ovsk".
	Switch string
	// StartTimeout bounds how long the network may take to come up.
	StartTimeout time.Duration
	// CommandTimeout bounds a single CLI command.
	CommandTimeout time.Duration
	// StopTimeout bounds how long mn may take to exit after "exit".
	StopTimeout time.Duration
}

const prompt = "mininet> "

// Emulator is a tree.Emulator backed by Mininet.
type Emulator struct {
	cfg Config
}

// New returns a Mininet emulator.  Zero fields of cfg take defaults.
func New(cfg Config) *Emulator {
	if cfg.Binary == "" {
		cfg.Binary = "mn"
	}
	if cfg.Switch == "" {
		cfg.Switch = "ovsk"
	}
	if cfg.StartTimeout == 0 {
		cfg.StartTimeout = 2 * time.Minute
	}
	if cfg.CommandTimeout == 0 {
		cfg.CommandTimeout = 2 * time.Minute
	}
	if cfg.StopTimeout == 0 {
		cfg.StopTimeout = time.Minute
	}
	return &Emulator{cfg: cfg}
}

// Clean runs "mn -c".
func (e *Emulator) Clean(ctx context.Context) error {
	out, err := exec.CommandContext(ctx, e.cfg.Binary, "-c").CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s -c: %w: %s", e.cfg.Binary, err, strings.TrimSpace(string(out)))
	}
	glog.V(1).Infof("%s -c:\n%s", e.cfg.Binary, out)
	return nil
}

func (e *Emulator) args(spec tree.Spec, ctrl tree.Endpoint) []string {
	return []string{
		"--topo", fmt.Sprintf("tree,depth=%d,fanout=%d", spec.Depth, spec.Fanout),
		"--controller", fmt.Sprintf("remote,ip=%s,port=%d", ctrl.IP, ctrl.Port),
		"--switch", e.cfg.Switch,
	}
}

// Start starts mn and waits for its CLI.
func (e *Emulator) Start(ctx context.Context, spec tree.Spec, ctrl tree.Endpoint) (tree.Network, error) {
	cmd := exec.Command(e.cfg.Binary, e.args(spec, ctrl)...)
	cmd.Env = append(os.Environ(), "TERM=dumb")
	glog.Infof("Running %v", cmd)
	f, err := pty.Start(cmd)
	if err != nil {
		return nil, err
	}
	if err := disableEcho(f); err != nil {
		glog.Warningf("Cannot disable terminal echo: %v", err)
	}
	n := &Network{
		cfg:    e.cfg,
		cmd:    cmd,
		con:    newConsole(f, prompt),
		exited: make(chan struct{}),
	}
	go func() {
		n.waitErr = cmd.Wait()
		close(n.exited)
	}()

	banner, err := n.con.wait(ctx, e.cfg.StartTimeout)
	glog.V(1).Infof("mn startup:\n%s", banner)
	if err != nil {
		n.kill()
		return nil, fmt.Errorf("mininet did not start: %w", err)
	}
	for _, name := range spec.HostNames() {
		out, err := n.con.run(ctx, fmt.Sprintf("py %s.IP()", name), e.cfg.CommandTimeout)
		if err != nil {
			n.kill()
			return nil, fmt.Errorf("cannot read address of %s: %w", name, err)
		}
		ip := strings.TrimSpace(out)
		if net.ParseIP(ip) == nil {
			n.kill()
			return nil, fmt.Errorf("host %s has no address, got %q", name, ip)
		}
		n.hosts = append(n.hosts, tree.Host{Name: name, IP: ip})
	}
	return n, nil
}

// Network is a running Mininet network.
type Network struct {
	cfg   Config
	cmd   *exec.Cmd
	con   *console
	hosts []tree.Host

	exited  chan struct{}
	waitErr error

	mu      sync.Mutex
	stopped bool
}

// Hosts implements tree.Network.
func (n *Network) Hosts() []tree.Host {
	return append([]tree.Host(nil), n.hosts...)
}

// Exec implements tree.Network.  The command runs in the host's shell,
// so only failures to talk to the CLI are reported as errors; a failing
// command shows up in the output.
func (n *Network) Exec(ctx context.Context, host string, argv ...string) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.stopped {
		return "", errors.New("mininet has been stopped")
	}
	return n.con.run(ctx, host+" "+strings.Join(argv, " "), n.cfg.CommandTimeout)
}

// Stop exits the CLI, which stops the network, and kills mn if it does
// not exit in time.
func (n *Network) Stop(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.stopped {
		return nil
	}
	n.stopped = true
	if err := n.con.send("exit"); err != nil {
		glog.Warningf("Cannot send exit to mininet: %v", err)
	}
	select {
	case <-n.exited:
	case <-time.After(n.cfg.StopTimeout):
		glog.Warningf("mininet did not exit within %v, killing it", n.cfg.StopTimeout)
		n.kill()
		return fmt.Errorf("mininet did not exit within %v", n.cfg.StopTimeout)
	case <-ctx.Done():
		n.kill()
		return ctx.Err()
	}
	n.con.close()
	return n.waitErr
}

func (n *Network) kill() {
	if n.cmd.Process != nil {
		n.cmd.Process.Kill()
	}
	<-n.exited
	n.con.close()
}
