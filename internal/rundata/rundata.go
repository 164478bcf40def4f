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

// Package rundata collects the data that describes a verification run.
//
// The values collected are:
//
//   - build.go_version - from runtime/debug.BuildInfo.GoVersion
//   - build.path - from runtime/debug.BuildInfo.Path
//   - build.main.path - from runtime/debug.BuildInfo.Main.Path
//   - build.main.version - from runtime/debug.BuildInfo.Main.Version
//   - build.main.sum - from runtime/debug.BuildInfo.Main.Sum
//   - For each build setting obtained from runtime/debug.BuildInfo.Settings:
//     build.settings.key - the key and the value from runtime/debug.BuildSetting.
//   - controller.git.commit - commit hash at HEAD of the controller checkout.
//   - controller.git.commit_timestamp - commit timestamp at HEAD of the
//     controller checkout, in Unix epoch seconds.
//   - controller.git.origin - fetch URL of the "origin" remote.
//   - controller.git.clean - true if the checkout has no local
//     modifications, or false otherwise.
//   - controller.git.status - the short status of the checkout, which is
//     empty if it is clean.  Policy modules are usually edited in place, so
//     this records which version of a module produced a trace.
//   - run.module, run.topology, run.emulator, run.randomized, run.flows,
//     run.seed and run.trial - how the run was configured.
//   - known_issue_url - optional link explaining an expected failure.
//   - time.begin and time.end - when the run started and finished, in Unix
//     epoch seconds.
package rundata

import (
	"fmt"
	"strconv"
	"time"
)

// Run describes a single run of a policy module.
type Run struct {
	Module     string
	Topology   string
	Emulator   string
	Randomized bool
	Flows      int
	Seed       uint64
	Trial      int
	// ControllerDir is the controller checkout whose git state is
	// recorded.
	ControllerDir string
	// KnownIssueURL is reported when non-empty.
	KnownIssueURL string
	Begin, End    time.Time
}

// Properties builds the properties map representing run data.
func Properties(r Run) map[string]string {
	m := make(map[string]string)
	buildInfo(m)
	if r.ControllerDir != "" {
		gitInfo(m, r.ControllerDir)
	}
	m["run.module"] = r.Module
	m["run.topology"] = r.Topology
	if r.Emulator != "" {
		m["run.emulator"] = r.Emulator
	}
	m["run.randomized"] = strconv.FormatBool(r.Randomized)
	m["run.trial"] = strconv.Itoa(r.Trial)
	if r.Randomized {
		m["run.flows"] = strconv.Itoa(r.Flows)
		m["run.seed"] = strconv.FormatUint(r.Seed, 10)
	}
	if r.KnownIssueURL != "" {
		m["known_issue_url"] = r.KnownIssueURL
	}
	timing(m, r.Begin, r.End)
	return m
}

func timing(m map[string]string, begin, end time.Time) {
	if !begin.IsZero() {
		m["time.begin"] = fmt.Sprint(begin.Unix())
	}
	if !end.IsZero() {
		m["time.end"] = fmt.Sprint(end.Unix())
	}
}
