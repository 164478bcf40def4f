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

package cmd

import (
	"fmt"
	"strings"

	"github.com/openconfig/policyharness/internal/policy"
	"github.com/spf13/cobra"
)

func newModulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "modules",
		Short: "List the policy modules and their scenarios",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			for _, m := range policy.Modules() {
				fmt.Fprintf(out, "%-20s %s\n", m.Name, m.Description)
				fmt.Fprintf(out, "%-20s config %s\n", "", m.ConfigFile())
				if m.Scenario.AllPairs != nil {
					fmt.Fprintf(out, "%-20s every host to every other host with %v\n", "", *m.Scenario.AllPairs)
					continue
				}
				var probes []string
				for _, p := range m.Scenario.Probes {
					probes = append(probes, fmt.Sprintf("%v (%v)", p, p.Intent))
				}
				fmt.Fprintf(out, "%-20s %s with %v\n", "", strings.Join(probes, ", "), m.Scenario.Probes[0].Tool)
			}
			return nil
		},
	}
}
