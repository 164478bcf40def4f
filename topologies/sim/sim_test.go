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

package sim

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/openconfig/policyharness/internal/policy"
	"github.com/openconfig/policyharness/internal/scenario"
	"github.com/openconfig/policyharness/topologies/tree"
)

var defaultTree = tree.Spec{Depth: 2, Fanout: 2}

func loaded(t *testing.T, module, expression string) *Emulator {
	t.Helper()
	e := New()
	if err := e.Load(module, expression); err != nil {
		t.Fatalf("Load(%s) got error: %v", module, err)
	}
	return e
}

func start(t *testing.T, e *Emulator) *Network {
	t.Helper()
	n, err := e.Start(context.Background(), defaultTree, tree.Endpoint{IP: "0.0.0.0", Port: 6653})
	if err != nil {
		t.Fatalf("Start() got error: %v", err)
	}
	return n.(*Network)
}

func probe(t *testing.T, n *Network, src, dst string) bool {
	t.Helper()
	ip := "10.0.0." + strings.TrimPrefix(dst, "h")
	out, err := n.Exec(context.Background(), src, "hping3", "-c", "4", ip)
	if err != nil {
		t.Fatalf("Exec(%s->%s) got error: %v", src, dst, err)
	}
	return strings.Contains(out, " 0% packet loss")
}

func TestModulePolicies(t *testing.T) {
	for _, m := range policy.Modules() {
		if m.Scenario.AllPairs != nil {
			continue
		}
		t.Run(m.Name, func(t *testing.T) {
			n := start(t, loaded(t, m.Name, m.Expr))
			defer n.Stop(context.Background())
			for _, p := range m.Scenario.Probes {
				want := p.Intent == scenario.Allow
				if got := probe(t, n, p.Src, p.Dst); got != want {
					t.Errorf("%v allowed got %v, want %v", p, got, want)
				}
			}
		})
	}
}

func TestStatefulHistory(t *testing.T) {
	m, err := policy.Lookup("statefulfirewall")
	if err != nil {
		t.Fatal(err)
	}
	// Without the earlier inside flows h4 is unknown and stays blocked.
	n := start(t, loaded(t, m.Name, m.Expr))
	if probe(t, n, "h4", "h2") {
		t.Errorf("h4->h2 allowed before h4 was seen")
	}
	if !probe(t, n, "h1", "h4") {
		t.Errorf("h1->h4 blocked")
	}
	if !probe(t, n, "h4", "h2") {
		t.Errorf("h4->h2 blocked after h1->h4")
	}
	want := []Flow{{"h4", "h2", false}, {"h1", "h4", true}, {"h4", "h2", true}}
	if diff := cmp.Diff(want, n.Flows()); diff != "" {
		t.Errorf("Flows() -want, +got:\n%s", diff)
	}
}

func TestPingOutput(t *testing.T) {
	n := start(t, loaded(t, "auth", `dst == server`))
	out, err := n.Exec(context.Background(), "h1", "ping", "-c", "5", "10.0.0.4")
	if err != nil {
		t.Fatalf("Exec() got error: %v", err)
	}
	if !strings.Contains(out, "5 packets transmitted, 5 received, 0% packet loss") {
		t.Errorf("allowed ping output:\n%s", out)
	}
	out, err = n.Exec(context.Background(), "h1", "ping", "-c", "5", "10.0.0.3")
	if err != nil {
		t.Fatalf("Exec() got error: %v", err)
	}
	if !strings.Contains(out, "5 packets transmitted, 0 received, 100% packet loss") {
		t.Errorf("blocked ping output:\n%s", out)
	}
}

func TestExecErrors(t *testing.T) {
	n := start(t, New())
	ctx := context.Background()
	for _, argv := range [][]string{
		{"ping"},
		{"ping", "-c", "x", "10.0.0.1"},
		{"ping", "-c", "0", "10.0.0.1"},
		{"ping", "-c", "1", "10.9.9.9"},
		{"nc", "-c", "1", "10.0.0.1"},
	} {
		if _, err := n.Exec(ctx, "h1", argv...); err == nil {
			t.Errorf("Exec(%q) got no error", argv)
		}
	}
	n.Stop(ctx)
	if _, err := n.Exec(ctx, "h1", "ping", "-c", "1", "10.0.0.2"); err == nil {
		t.Errorf("Exec() after Stop got no error")
	}
}

func TestStaleNetwork(t *testing.T) {
	ctx := context.Background()
	e := New()
	start(t, e)
	if _, err := e.Start(ctx, defaultTree, tree.Endpoint{}); err == nil {
		t.Fatalf("Start() over a stale network got no error")
	}
	if err := e.Clean(ctx); err != nil {
		t.Fatalf("Clean() got error: %v", err)
	}
	if e.Live() {
		t.Errorf("Live() after Clean got true")
	}
	if err := e.Clean(ctx); err != nil {
		t.Errorf("second Clean() got error: %v", err)
	}
	n := start(t, e)
	n.Stop(ctx)
	if e.Live() {
		t.Errorf("Live() after Stop got true")
	}
}

func TestTrace(t *testing.T) {
	dir := t.TempDir()
	e := loaded(t, "statefulfirewall", "true")
	e.TraceDir = dir
	n := start(t, e)
	probe(t, n, "h1", "h2")
	if err := n.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() got error: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(dir, "statefulfirewall.trace"))
	if err != nil {
		t.Fatalf("trace not written: %v", err)
	}
	if !strings.Contains(string(b), "forward(h1, h2)") {
		t.Errorf("trace got:\n%s", b)
	}
}

func TestCompile(t *testing.T) {
	for _, bad := range []string{"", "   ", "src +", `"not a bool"`, "unknown_var"} {
		if _, err := Compile(bad); err == nil {
			t.Errorf("Compile(%q) got no error", bad)
		}
	}
}
