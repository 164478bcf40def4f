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
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	log "github.com/golang/glog"
	"github.com/kr/pretty"
	closer "github.com/openconfig/gocloser"
	"github.com/openconfig/policyharness/internal/config"
	"github.com/openconfig/policyharness/internal/controller"
	"github.com/openconfig/policyharness/internal/harness"
	"github.com/openconfig/policyharness/internal/metrics"
	"github.com/openconfig/policyharness/internal/policy"
	"github.com/openconfig/policyharness/internal/trace"
	"github.com/openconfig/policyharness/topologies/mininet"
	"github.com/openconfig/policyharness/topologies/sim"
	"github.com/openconfig/policyharness/topologies/tree"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <module|all>",
		Short: "Run policy modules against an emulated network",
		Long: `run starts the controller with each selected module, probes an emulated tree
network and archives the controller's trace under traces/ (or random-traces/
with --random).  Use "all" to run every module in turn.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := cmd.Flags().GetString("config")
			if err != nil {
				return err
			}
			cfg, err := config.Load(cmd.Flags(), file)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cmd.OutOrStdout(), cfg, args[0])
		},
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

func newEmulator(cfg *config.Config) tree.Emulator {
	if cfg.Emulator == config.Sim {
		e := sim.New()
		e.Server = policy.AuthServer
		e.TraceDir = filepath.Join(cfg.FloodlightDir, trace.TmpDir)
		return e
	}
	return mininet.New(mininet.Config{Binary: cfg.MNBinary, Switch: cfg.MNSwitch})
}

func newArchiver(ctx context.Context, cfg *config.Config) (*trace.Archiver, func()) {
	if cfg.TraceBucket == "" {
		return trace.NewArchiver(cfg.FloodlightDir), func() {}
	}
	gcs, err := trace.NewGCS(ctx, cfg.TraceBucket, cfg.TracePrefix)
	if err != nil {
		log.Warningf("Traces will not be uploaded to %s: %v", cfg.TraceBucket, err)
		return trace.NewArchiver(cfg.FloodlightDir), func() {}
	}
	if host, err := os.Hostname(); err == nil {
		gcs.Metadata = map[string]string{"host": host}
	}
	return trace.NewArchiver(cfg.FloodlightDir, trace.WithUploader(gcs)), func() {
		closer.CloseAndLog(gcs.Close, "error closing storage client")
	}
}

func serveMetrics(m *metrics.Metrics, addr string) func() {
	srv := &http.Server{Addr: addr, Handler: m.Handler()}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warningf("Metrics server on %s: %v", addr, err)
		}
	}()
	return func() {
		closer.CloseAndLog(srv.Close, "error closing metrics server")
	}
}

func run(ctx context.Context, out io.Writer, cfg *config.Config, module string) (rerr error) {
	opts := harness.Options{
		Module:     module,
		Topology:   tree.Spec{Depth: cfg.Depth, Fanout: cfg.Fanout},
		Randomized: cfg.Random,
		Flows:      cfg.NFlows,
		Trials:     cfg.NTrails,
		Seed:       cfg.Seed,
	}
	if _, err := opts.Validate(); err != nil {
		return err
	}

	ctrlCfg := controller.Config{
		Dir:        cfg.FloodlightDir,
		Command:    cfg.Command(),
		ConfigFlag: cfg.ControllerConfigFlag,
		ConfigDir:  cfg.ControllerConfigDir,
		Settle:     cfg.ControllerSettle,
		StopGrace:  cfg.ControllerStopGrace,
	}
	if cfg.ControllerLog != "" {
		f, err := os.OpenFile(cfg.ControllerLog, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		defer closer.Close(&rerr, f.Close, "error closing controller log")
		ctrlCfg.Stdout, ctrlCfg.Stderr = f, f
	}

	archiver, closeArchiver := newArchiver(ctx, cfg)
	defer closeArchiver()

	m := metrics.New()
	if cfg.MetricsListen != "" {
		defer serveMetrics(m, cfg.MetricsListen)()
	}

	h := harness.New(harness.Config{
		Root:           cfg.FloodlightDir,
		LockFile:       cfg.LockFile,
		Emulator:       newEmulator(cfg),
		EmulatorName:   cfg.Emulator,
		Endpoint:       tree.Endpoint{IP: cfg.ControllerIP, Port: cfg.ControllerPort},
		TopologySettle: cfg.TopologySettle,
		Supervisor:     controller.NewSupervisor(ctrlCfg),
		Archiver:       archiver,
		Metrics:        m,
		KnownIssueURL:  cfg.KnownIssueURL,
	})
	defer h.Hooks().Run()
	defer h.Hooks().HandleSignals(nil)()

	if cfg.TopologyDOT != "" {
		if err := writeDOT(cfg.TopologyDOT, opts.Topology); err != nil {
			log.Warningf("Cannot write topology: %v", err)
		}
	}

	results, runErr := h.Run(ctx, opts)
	for _, res := range results {
		fmt.Fprint(out, res.Summary())
		if log.V(2) {
			log.Info(pretty.Sprint(res))
		}
	}

	if cfg.Report != "" {
		if err := harness.WriteReport(cfg.Report, results, runErr); err != nil {
			log.Errorf("Cannot write report %s: %v", cfg.Report, err)
		}
	}
	if cfg.MetricsFile != "" {
		if err := m.WriteFile(cfg.MetricsFile); err != nil {
			log.Errorf("Cannot write metrics %s: %v", cfg.MetricsFile, err)
		}
	}
	return runErr
}

func writeDOT(path string, spec tree.Spec) error {
	dot, err := spec.DOT()
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(dot), 0o644)
}
