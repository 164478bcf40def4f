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

// Package cmd implements the policyharness commands.
package cmd

import (
	"context"
	goflag "flag"
	"io"

	"github.com/spf13/cobra"
)

// newRootCmd returns the policyharness command tree writing to out.
func newRootCmd(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "policyharness",
		Short: "Verify SDN controller policy modules on emulated networks",
		Long: `policyharness starts an SDN controller with a policy module, builds an
emulated tree network attached to it, probes the network with the module's
scenario or with randomly drawn flows, and archives the trace the controller
wrote.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	// For compatibility with glog.
	root.PersistentFlags().AddGoFlagSet(goflag.CommandLine)
	root.PersistentFlags().String("config", "", "YAML configuration file keyed by flag name.")

	root.AddCommand(newRunCmd(), newModulesCmd(), newTopologyCmd())
	return root
}

// Execute runs the command line args.
func Execute(args []string, out io.Writer) error {
	root := newRootCmd(out)
	root.SetArgs(args)
	return root.ExecuteContext(context.Background())
}
