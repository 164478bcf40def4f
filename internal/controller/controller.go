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

// Package controller supervises the external SDN controller process.
//
// The controller is started in its own process group so that everything
// it forks can be signalled together.  It offers no readiness signal, so
// Start returns after a fixed settling delay.  Stop terminates the whole
// group, escalating to SIGKILL for members that outlive the grace period,
// and is safe to call any number of times from any goroutine.
package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/golang/glog"
	"github.com/shirou/gopsutil/v3/process"
	"golang.org/x/sys/unix"
)

// Config describes how to launch the controller.
type Config struct {
	// Dir is the working directory of the controller, e.g. a Floodlight
	// checkout.
	Dir string
	// Command is the controller command line without the module
	// configuration arguments.
	Command []string
	// ConfigFlag precedes the configuration file path on the command
	// line.
	ConfigFlag string
	// ConfigDir holds the per-module configuration files.  A relative
	// path is relative to Dir.
	ConfigDir string
	// Settle is how long Start waits before declaring the controller
	// ready.
	Settle time.Duration
	// StopGrace is how long Stop waits after SIGTERM before sending
	// SIGKILL to the group.
	StopGrace time.Duration
	// Stdout and Stderr receive the controller's output; nil discards it.
	Stdout, Stderr io.Writer
}

// DefaultCommand launches Floodlight from its checkout.
var DefaultCommand = []string{"java", "-ea", "-Dlogback.configurationFile=logback.xml", "-jar", "target/floodlight.jar"}

// Supervisor starts and stops controller processes.  At most one
// controller is live at a time.
type Supervisor struct {
	cfg Config

	mu   sync.Mutex
	live *Handle
}

// NewSupervisor returns a Supervisor for cfg.
func NewSupervisor(cfg Config) *Supervisor {
	if len(cfg.Command) == 0 {
		cfg.Command = DefaultCommand
	}
	if cfg.ConfigFlag == "" {
		cfg.ConfigFlag = "-cf"
	}
	if cfg.StopGrace == 0 {
		cfg.StopGrace = 5 * time.Second
	}
	return &Supervisor{cfg: cfg}
}

// Handle is a running controller process group.
type Handle struct {
	Module     string
	Pid        int
	Pgid       int
	ConfigPath string
	Started    time.Time
	// Ready is when the settling delay ended.
	Ready time.Time

	sup     *Supervisor
	exited  chan struct{}
	waitErr error

	stopOnce sync.Once
	stopErr  error
}

// Start launches the controller with configFile for module and waits
// for the settling delay.  If the controller exits or ctx is done before
// the delay ends, the group is stopped and an error returned.
func (s *Supervisor) Start(ctx context.Context, module, configFile string) (*Handle, error) {
	s.mu.Lock()
	if s.live != nil {
		live := s.live.Module
		s.mu.Unlock()
		return nil, fmt.Errorf("controller for %s is still running", live)
	}
	s.mu.Unlock()

	cfgPath := filepath.Join(s.cfg.ConfigDir, configFile)
	check := cfgPath
	if !filepath.IsAbs(check) {
		check = filepath.Join(s.cfg.Dir, check)
	}
	if _, err := os.Stat(check); err != nil {
		return nil, fmt.Errorf("controller configuration for %s: %w", module, err)
	}

	argv := append(append([]string(nil), s.cfg.Command...), s.cfg.ConfigFlag, cfgPath)
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = s.cfg.Dir
	cmd.Stdout = s.cfg.Stdout
	cmd.Stderr = s.cfg.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	glog.Infof("Starting controller: %v", cmd)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("cannot start controller for %s: %w", module, err)
	}

	h := &Handle{
		Module:     module,
		Pid:        cmd.Process.Pid,
		Pgid:       cmd.Process.Pid,
		ConfigPath: cfgPath,
		Started:    time.Now(),
		sup:        s,
		exited:     make(chan struct{}),
	}
	if pgid, err := unix.Getpgid(h.Pid); err == nil {
		h.Pgid = pgid
	}
	go func() {
		h.waitErr = cmd.Wait()
		close(h.exited)
	}()
	s.mu.Lock()
	s.live = h
	s.mu.Unlock()

	select {
	case <-time.After(s.cfg.Settle):
	case <-h.exited:
		h.Stop()
		return nil, fmt.Errorf("controller for %s exited while settling: %v", module, h.waitErr)
	case <-ctx.Done():
		h.Stop()
		return nil, ctx.Err()
	}
	h.Ready = time.Now()
	glog.Infof("Controller for %s running as process group %d", module, h.Pgid)
	return h, nil
}

// Live returns the running controller, if any.
func (s *Supervisor) Live() *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live
}

// Shutdown stops the running controller, if any.  It is meant to be
// registered as an exit hook.
func (s *Supervisor) Shutdown() error {
	if h := s.Live(); h != nil {
		return h.Stop()
	}
	return nil
}

// Stop terminates the controller's process group.  Only the first call
// does any work; later calls return its result.
func (h *Handle) Stop() error {
	h.stopOnce.Do(func() {
		h.stopErr = h.stop()
		h.sup.mu.Lock()
		if h.sup.live == h {
			h.sup.live = nil
		}
		h.sup.mu.Unlock()
		glog.Infof("Cleaned up controller for %s", h.Module)
	})
	return h.stopErr
}

func (h *Handle) stop() error {
	if err := unix.Kill(-h.Pgid, unix.SIGTERM); err != nil && !errors.Is(err, unix.ESRCH) {
		return fmt.Errorf("cannot signal process group %d: %w", h.Pgid, err)
	}
	if h.drain(h.sup.cfg.StopGrace) {
		return nil
	}
	glog.Warningf("Process group %d survived SIGTERM for %v, sending SIGKILL", h.Pgid, h.sup.cfg.StopGrace)
	if err := unix.Kill(-h.Pgid, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
		return fmt.Errorf("cannot kill process group %d: %w", h.Pgid, err)
	}
	if !h.drain(h.sup.cfg.StopGrace) {
		return fmt.Errorf("process group %d still has members %v", h.Pgid, h.Members())
	}
	return nil
}

// drain waits up to d for the leader to be reaped and the group to
// empty.
func (h *Handle) drain(d time.Duration) bool {
	deadline := time.After(d)
	select {
	case <-h.exited:
	case <-deadline:
		return false
	}
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		if !h.Alive() {
			return true
		}
		select {
		case <-tick.C:
		case <-deadline:
			return false
		}
	}
}

// Done is closed when the leading controller process has exited.
func (h *Handle) Done() <-chan struct{} { return h.exited }

// Alive reports whether any process of the group is still running.
func (h *Handle) Alive() bool {
	return len(h.Members()) > 0
}

// Members returns the pids of live, non-zombie processes in the group.
func (h *Handle) Members() []int32 {
	procs, err := process.Processes()
	if err != nil {
		glog.Warningf("Cannot list processes: %v", err)
		// Fall back to asking the kernel whether the group exists.
		if err := unix.Kill(-h.Pgid, 0); err == nil {
			return []int32{int32(h.Pgid)}
		}
		return nil
	}
	var pids []int32
	for _, p := range procs {
		pgid, err := unix.Getpgid(int(p.Pid))
		if err != nil || pgid != h.Pgid {
			continue
		}
		if st, err := p.Status(); err == nil && len(st) > 0 && st[0] == process.Zombie {
			continue
		}
		pids = append(pids, p.Pid)
	}
	return pids
}
