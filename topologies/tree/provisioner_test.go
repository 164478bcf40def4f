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
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// fakeEmulator tracks how many networks are allocated.
type fakeEmulator struct {
	live     int
	cleans   int
	startErr error
	dropHost bool
}

func (e *fakeEmulator) Clean(context.Context) error {
	e.cleans++
	e.live = 0
	return nil
}

func (e *fakeEmulator) Start(_ context.Context, spec Spec, _ Endpoint) (Network, error) {
	if e.live > 0 {
		return nil, errors.New("stale network present")
	}
	if e.startErr != nil {
		e.live++ // partially built
		return nil, e.startErr
	}
	e.live++
	n := &fakeNetwork{emu: e}
	for i, name := range spec.HostNames() {
		n.hosts = append(n.hosts, Host{Name: name, IP: fmt.Sprintf("10.0.0.%d", i+1)})
	}
	if e.dropHost {
		n.hosts = n.hosts[1:]
	}
	return n, nil
}

type fakeNetwork struct {
	emu   *fakeEmulator
	hosts []Host
	stops int
}

func (n *fakeNetwork) Hosts() []Host { return n.hosts }

func (n *fakeNetwork) Exec(_ context.Context, host string, argv ...string) (string, error) {
	return host + ": " + strings.Join(argv, " "), nil
}

func (n *fakeNetwork) Stop(context.Context) error {
	n.stops++
	n.emu.live--
	return nil
}

func TestBuildTeardown(t *testing.T) {
	ctx := context.Background()
	for _, spec := range []Spec{{1, 1}, {2, 2}, {3, 2}, {2, 3}} {
		t.Run(spec.String(), func(t *testing.T) {
			emu := &fakeEmulator{}
			p := NewProvisioner(emu, Endpoint{IP: "0.0.0.0", Port: 6653}, 0)
			hs, err := p.Build(ctx, spec)
			if err != nil {
				t.Fatalf("Build(%v) got error: %v", spec, err)
			}
			if diff := cmp.Diff(spec.HostNames(), hs.Names()); diff != "" {
				t.Errorf("Names() -want, +got:\n%s", diff)
			}
			if err := p.Teardown(ctx, hs); err != nil {
				t.Fatalf("Teardown() got error: %v", err)
			}
			if emu.live != 0 {
				t.Errorf("after Teardown %d networks still allocated", emu.live)
			}
			hs2, err := p.Build(ctx, spec)
			if err != nil {
				t.Fatalf("second Build(%v) got error: %v", spec, err)
			}
			p.Teardown(ctx, hs2)
		})
	}
}

func TestTeardownIdempotent(t *testing.T) {
	ctx := context.Background()
	emu := &fakeEmulator{}
	p := NewProvisioner(emu, Endpoint{}, 0)
	hs, err := p.Build(ctx, Spec{Depth: 2, Fanout: 2})
	if err != nil {
		t.Fatalf("Build() got error: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := p.Teardown(ctx, hs); err != nil {
			t.Errorf("Teardown() #%d got error: %v", i, err)
		}
	}
	if got := hs.net.(*fakeNetwork).stops; got != 1 {
		t.Errorf("network stopped %d times, want 1", got)
	}
	if _, err := hs.Exec(ctx, "h1", "ping", "-c", "1", "10.0.0.2"); err == nil {
		t.Errorf("Exec() after Teardown got no error")
	}
}

func TestBuildFailure(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		desc string
		emu  *fakeEmulator
		spec Spec
	}{{
		desc: "start fails",
		emu:  &fakeEmulator{startErr: errors.New("out of veth pairs")},
		spec: Spec{Depth: 2, Fanout: 2},
	}, {
		desc: "host missing",
		emu:  &fakeEmulator{dropHost: true},
		spec: Spec{Depth: 2, Fanout: 2},
	}, {
		desc: "invalid spec",
		emu:  &fakeEmulator{},
		spec: Spec{Depth: 0, Fanout: 2},
	}}
	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			p := NewProvisioner(c.emu, Endpoint{}, 0)
			hs, err := p.Build(ctx, c.spec)
			if err == nil {
				t.Fatalf("Build() got no error")
			}
			if hs != nil {
				t.Errorf("Build() returned a partial HostSet")
			}
			if c.emu.live != 0 {
				t.Errorf("after failed Build %d networks still allocated", c.emu.live)
			}
		})
	}
}

func TestBuildCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	emu := &fakeEmulator{}
	p := NewProvisioner(emu, Endpoint{}, 1<<40)
	if _, err := p.Build(ctx, Spec{Depth: 1, Fanout: 2}); !errors.Is(err, context.Canceled) {
		t.Errorf("Build() got error %v, want %v", err, context.Canceled)
	}
	if emu.live != 0 {
		t.Errorf("after cancelled Build %d networks still allocated", emu.live)
	}
}

func TestHostSet(t *testing.T) {
	ctx := context.Background()
	p := NewProvisioner(&fakeEmulator{}, Endpoint{}, 0)
	hs, err := p.Build(ctx, Spec{Depth: 2, Fanout: 2})
	if err != nil {
		t.Fatalf("Build() got error: %v", err)
	}
	defer p.Teardown(ctx, hs)

	if ip, ok := hs.IP("h3"); !ok || ip != "10.0.0.3" {
		t.Errorf("IP(h3) got %q, %v, want 10.0.0.3, true", ip, ok)
	}
	if _, ok := hs.IP("h9"); ok {
		t.Errorf("IP(h9) got ok for a missing host")
	}
	if _, err := hs.Exec(ctx, "h9", "true"); err == nil {
		t.Errorf("Exec(h9) got no error")
	}
	out, err := hs.Exec(ctx, "h1", "ping", "-c", "1", "10.0.0.4")
	if err != nil {
		t.Fatalf("Exec(h1) got error: %v", err)
	}
	if want := "h1: ping -c 1 10.0.0.4"; out != want {
		t.Errorf("Exec(h1) got %q, want %q", out, want)
	}
}
