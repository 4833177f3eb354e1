// Copyright Contributors to the SeaClaw Platform project

package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/seaclaw/platform/internal/cluster"
	"github.com/seaclaw/platform/internal/config"
	"github.com/seaclaw/platform/internal/orchestrator"
	"github.com/seaclaw/platform/internal/planstore"
	"github.com/seaclaw/platform/internal/registry"
	"github.com/seaclaw/platform/internal/relay"
	"github.com/seaclaw/platform/internal/server"
	"github.com/seaclaw/platform/internal/swarm"
)

func init() {
	rootCmd.AddCommand(serverCmd)
}

var serverListen string

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the gateway HTTP server",
	Long: `Start the gateway that serves the platform REST API.

The server exposes:
  - tenant lifecycle (create, delete, restart, config patch)
  - chat and project relay into tenant workloads
  - worker swarm management
  - the operator plan tracker

Configuration comes from the environment (NAMESPACE, SEACLAW_IMAGE,
MAX_INSTANCES, DATA_DIR, LOG_LEVEL); --listen overrides LISTEN_ADDR.`,
	RunE: runServer,
}

func init() {
	serverCmd.Flags().StringVar(&serverListen, "listen", "",
		"The address the server binds to (e.g., :8090). Overrides LISTEN_ADDR.")
}

func runServer(cmd *cobra.Command, args []string) error {
	settings := config.FromEnv()
	if serverListen != "" {
		settings.ListenAddr = serverListen
	}

	opts := zap.Options{Development: true}
	if settings.LogLevel == "debug" {
		opts.Level = zapcore.DebugLevel
	}
	ctrl.SetLogger(zap.New(zap.UseFlagOptions(&opts)))
	log := ctrl.Log.WithName("gateway")

	log.Info("starting gateway",
		"namespace", settings.Namespace,
		"image", settings.Image,
		"max_instances", settings.MaxInstances,
		"data_dir", settings.DataDir,
	)

	clusterClient := cluster.New(settings.Namespace)
	reg := registry.New(settings.RegistryPath())

	store, err := planstore.Open(settings.PlanStorePath())
	if err != nil {
		log.Error(err, "failed to open plan store")
		return err
	}
	defer store.Close()

	orch := orchestrator.New(clusterClient, reg, settings)
	rl := relay.New(settings.Namespace)
	sw := swarm.New(reg, orch, rl)

	srv := server.New(server.Options{
		Address:      settings.ListenAddr,
		Orchestrator: orch,
		Registry:     reg,
		Relay:        rl,
		Swarm:        sw,
		PlanStore:    store,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		log.Error(err, "server error")
		return err
	}
	return nil
}
