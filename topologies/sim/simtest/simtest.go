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

// Package simtest provides test helpers for the simulated emulator.
package simtest

import (
	"testing"

	"github.com/openconfig/policyharness/topologies/sim"
)

// MustNew returns an emulator enforcing expression for module, failing
// the test if the expression does not compile.
func MustNew(t testing.TB, module, expression string) *sim.Emulator {
	t.Helper()
	e := sim.New()
	if err := e.Load(module, expression); err != nil {
		t.Fatalf("cannot load policy for %s: %v", module, err)
	}
	return e
}
