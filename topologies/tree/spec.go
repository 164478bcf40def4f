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

// Package tree provisions tree-shaped emulated networks.
//
// A tree of depth d and fanout f has f^d hosts named h1..hN and
// (f^d-1)/(f-1) switches named s1..sM, numbered in the same depth-first
// order that Mininet's TreeTopo uses.  The package does not emulate
// anything itself; an Emulator implementation (see topologies/mininet and
// topologies/sim) does the work, and the Provisioner wraps it with the
// pre-clean, settle and guaranteed teardown semantics that a policy run
// needs.
package tree

import (
	"fmt"
	"math"

	"github.com/awalterschulze/gographviz"
)

// Spec is the shape of a tree topology.
type Spec struct {
	Depth  int `yaml:"depth"`
	Fanout int `yaml:"fanout"`
}

func (s Spec) String() string {
	return fmt.Sprintf("tree,depth=%d,fanout=%d", s.Depth, s.Fanout)
}

// Validate checks that both dimensions are positive and that the host
// count fits in an int.
func (s Spec) Validate() error {
	if s.Depth < 1 {
		return fmt.Errorf("topology depth must be at least 1, got %d", s.Depth)
	}
	if s.Fanout < 1 {
		return fmt.Errorf("topology fanout must be at least 1, got %d", s.Fanout)
	}
	if s.Fanout == 1 {
		return nil
	}
	n := 1
	for i := 0; i < s.Depth; i++ {
		if n > math.MaxInt/s.Fanout {
			return fmt.Errorf("topology %v has too many hosts to count", s)
		}
		n *= s.Fanout
	}
	return nil
}

// NumHosts returns the number of hosts in the tree.  The result is only
// meaningful for a spec that passes Validate.
func (s Spec) NumHosts() int {
	n := 1
	for i := 0; i < s.Depth; i++ {
		n *= s.Fanout
	}
	return n
}

// HostNames returns h1..hN.
func (s Spec) HostNames() []string {
	names := make([]string, s.NumHosts())
	for i := range names {
		names[i] = fmt.Sprintf("h%d", i+1)
	}
	return names
}

// Link is an undirected link between two nodes of the tree.
type Link struct {
	A, B string
}

// Links returns the links of the tree in the order Mininet's TreeTopo
// adds them: children are wired before their parent is linked upward.
func (s Spec) Links() []Link {
	var (
		links     []Link
		hostNum   = 1
		switchNum = 1
	)
	var add func(depth int) string
	add = func(depth int) string {
		if depth == 0 {
			name := fmt.Sprintf("h%d", hostNum)
			hostNum++
			return name
		}
		name := fmt.Sprintf("s%d", switchNum)
		switchNum++
		for i := 0; i < s.Fanout; i++ {
			child := add(depth - 1)
			links = append(links, Link{A: name, B: child})
		}
		return name
	}
	add(s.Depth)
	return links
}

// DOT renders the tree as a Graphviz graph.  Switches are drawn as boxes
// and hosts as ellipses.
func (s Spec) DOT() (string, error) {
	if err := s.Validate(); err != nil {
		return "", err
	}
	const name = "tree"
	g := gographviz.NewGraph()
	if err := g.SetName(name); err != nil {
		return "", err
	}
	if err := g.SetDir(false); err != nil {
		return "", err
	}
	added := map[string]bool{}
	addNode := func(n string) error {
		if added[n] {
			return nil
		}
		added[n] = true
		shape := "ellipse"
		if n[0] == 's' {
			shape = "box"
		}
		return g.AddNode(name, n, map[string]string{"shape": shape})
	}
	for _, l := range s.Links() {
		if err := addNode(l.A); err != nil {
			return "", err
		}
		if err := addNode(l.B); err != nil {
			return "", err
		}
		if err := g.AddEdge(l.A, l.B, false, nil); err != nil {
			return "", err
		}
	}
	return g.String(), nil
}
