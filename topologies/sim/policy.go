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
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Flow is a probe the simulated network has forwarded or dropped.
type Flow struct {
	Src, Dst string
	Allowed  bool
}

// Policy decides whether a flow is allowed given the flows before it.
type Policy struct {
	source string
	prog   *vm.Program
}

func newEnv() map[string]any {
	return map[string]any{
		"src":        "",
		"dst":        "",
		"server":     "",
		"seen":       []string{},
		"authorized": []string{},
	}
}

// Compile compiles a boolean policy expression.  See package policy for
// the variables it may use.
func Compile(source string) (*Policy, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, fmt.Errorf("empty policy expression")
	}
	prog, err := expr.Compile(source, expr.Env(newEnv()), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("invalid policy %q: %w", source, err)
	}
	return &Policy{source: source, prog: prog}, nil
}

func (p *Policy) String() string { return p.source }

// Allow evaluates the policy for src->dst after history.
func (p *Policy) Allow(src, dst, server string, history []Flow) (bool, error) {
	var seen, authorized []string
	seenSet := map[string]bool{}
	authSet := map[string]bool{}
	for _, f := range history {
		if !f.Allowed {
			continue
		}
		for _, h := range []string{f.Src, f.Dst} {
			if !seenSet[h] {
				seenSet[h] = true
				seen = append(seen, h)
			}
		}
		if f.Dst == server && !authSet[f.Src] {
			authSet[f.Src] = true
			authorized = append(authorized, f.Src)
		}
	}
	env := newEnv()
	env["src"] = src
	env["dst"] = dst
	env["server"] = server
	if seen != nil {
		env["seen"] = seen
	}
	if authorized != nil {
		env["authorized"] = authorized
	}
	out, err := expr.Run(p.prog, env)
	if err != nil {
		return false, err
	}
	b, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("policy %q evaluated to %T, want bool", p.source, out)
	}
	return b, nil
}
