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

	"github.com/openconfig/policyharness/topologies/tree"
	"github.com/spf13/cobra"
)

func newTopologyCmd() *cobra.Command {
	var spec tree.Spec
	cmd := &cobra.Command{
		Use:   "topology",
		Short: "Print a tree topology in Graphviz DOT format",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dot, err := spec.DOT()
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), dot)
			return nil
		},
	}
	cmd.Flags().IntVar(&spec.Depth, "depth", 2, "Depth of the tree topology.")
	cmd.Flags().IntVar(&spec.Fanout, "fanout", 2, "Fanout of the tree topology.")
	return cmd
}
