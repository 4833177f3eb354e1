// Copyright Contributors to the SeaClaw Platform project

// gateway is the SeaClaw platform control plane: it accepts tenant
// sign-ups, materializes each tenant as an isolated workload on the
// cluster, and relays chat traffic into the running instances.
//
// Available commands:
//   - server:   Start the gateway HTTP server
//   - version:  Print the build version
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "gateway",
	Short: "SeaClaw Platform - multi-tenant agent hosting control plane",
	Long: `The SeaClaw gateway hosts autonomous agent instances on Kubernetes.

It accepts sign-ups describing a desired agent (provider, credentials,
persona, feature flags), creates the per-tenant workload and its
configuration objects, and mediates all further interaction: chat
relay, config mutation, workspace management, and worker swarms.

Examples:
  # Start the gateway
  gateway server --listen=:8090

  # Run against a local kubeconfig with a custom namespace
  NAMESPACE=seaclaw-dev gateway server`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
