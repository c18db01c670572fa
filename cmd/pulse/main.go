/*-
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package main runs the systempulse dashboard service.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

const defaultConfigPath = "/etc/systempulse/pulse.json"

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pulse",
		Short: "Real-time metrics dashboard backend",
		Long: `pulse polls a metrics source, derives trends between consecutive
samples and serves the resulting view over HTTP, WebSocket and gRPC.

Quick start:
  pulse serve --config pulse.yaml      # Run the service
  pulse snapshot --config pulse.yaml   # Fetch once and print the indicators
  pulse dashboards --config pulse.yaml # List Grafana dashboard links`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringP("config", "c", defaultConfigPath, "Path to config file (json or yaml)")

	cmd.AddCommand(serveCommand())
	cmd.AddCommand(snapshotCommand())
	cmd.AddCommand(dashboardsCommand())

	return cmd
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
