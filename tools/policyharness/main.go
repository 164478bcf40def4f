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

// policyharness verifies SDN controller policy modules on emulated tree
// networks.
//
// Usage:
//
//	policyharness run <module|all> [--depth=2] [--fanout=2] [--random --nflows=10 --ntrails=1]
//	policyharness modules
//	policyharness topology [--depth=2] [--fanout=2]
//
// Run it from the root of a Floodlight checkout, or pass --floodlight-dir.
// Mininet requires root.
package main

import (
	"os"

	log "github.com/golang/glog"
	"github.com/openconfig/policyharness/tools/policyharness/cmd"
)

func main() {
	if err := cmd.Execute(os.Args[1:], os.Stdout); err != nil {
		log.Exitf("policyharness: %v", err)
	}
	log.Flush()
}
