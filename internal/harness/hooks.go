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
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/golang/glog"
)

// Hooks is a registry of cleanups that must run however the process
// exits: from a deferred Run on the normal path, or from the signal
// handler installed by HandleSignals.
type Hooks struct {
	mu    sync.Mutex
	next  int
	hooks []hook
}

type hook struct {
	id   int
	name string
	fn   func() error
}

// Add registers fn and returns a function that unregisters it.
func (h *Hooks) Add(name string, fn func() error) (remove func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	id := h.next
	h.hooks = append(h.hooks, hook{id: id, name: name, fn: fn})
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		for i, k := range h.hooks {
			if k.id == id {
				h.hooks = append(h.hooks[:i], h.hooks[i+1:]...)
				return
			}
		}
	}
}

// Len returns the number of registered hooks.
func (h *Hooks) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.hooks)
}

// Run runs and unregisters every hook, the most recently added first.
// A failing hook does not prevent the others from running.
func (h *Hooks) Run() error {
	h.mu.Lock()
	hooks := h.hooks
	h.hooks = nil
	h.mu.Unlock()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		k := hooks[i]
		glog.V(1).Infof("Running exit hook %q", k.name)
		if err := k.fn(); err != nil {
			glog.Errorf("Exit hook %q: %v", k.name, err)
			errs = append(errs, fmt.Errorf("%s: %w", k.name, err))
		}
	}
	return errors.Join(errs...)
}

// HandleSignals runs the hooks and then calls exit(1) when the process
// receives SIGINT or SIGTERM.  A nil exit means os.Exit.  The returned
// function stops handling signals.
func (h *Hooks) HandleSignals(exit func(code int)) (stop func()) {
	if exit == nil {
		exit = func(code int) {
			glog.Flush()
			os.Exit(code)
		}
	}
	sigs := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigs:
			glog.Warningf("Received %v, cleaning up", sig)
			h.Run()
			exit(1)
		case <-done:
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(sigs)
			close(done)
		})
	}
}
