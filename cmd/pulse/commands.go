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

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/mfreeman451/systempulse/pkg/config"
	"github.com/mfreeman451/systempulse/pkg/dashboards"
	"github.com/mfreeman451/systempulse/pkg/models"
	"github.com/mfreeman451/systempulse/pkg/server"
)

const snapshotTimeout = 30 * time.Second

func loadConfig(cmd *cobra.Command) (*server.Config, error) {
	path, _ := cmd.Flags().GetString("config")

	var cfg server.Config
	if err := config.LoadAndValidate(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &cfg, nil
}

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			log.Printf("Starting %s", cfg.ServiceName)

			return server.Run(cmd.Context(), cfg)
		},
	}
}

func snapshotCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Fetch the source once and print the indicators",
		Long: `Fetch the configured metrics source once and print each indicator.

Examples:
  # Table output (default)
  pulse snapshot --config pulse.yaml

  # JSON output for scripting
  pulse snapshot --config pulse.yaml -o json`,
		RunE: runSnapshot,
	}

	cmd.Flags().StringP("output", "o", "table", "Output format: table or json")

	return cmd
}

func runSnapshot(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// a one-shot fetch must not touch the service's checkpoint
	cfg.DBPath = ""
	cfg.Restore = false
	cfg.Upstream = nil
	cfg.Webhooks = nil

	ctx, cancel := context.WithTimeout(cmd.Context(), snapshotTimeout)
	defer cancel()

	s, err := server.New(ctx, cfg)
	if err != nil {
		return err
	}

	defer func() {
		if err := s.Stop(context.Background()); err != nil {
			log.Printf("Failed to stop: %v", err)
		}
	}()

	view, err := s.Engine().RefreshNow(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", cfg.Source.Type, err)
	}

	output, _ := cmd.Flags().GetString("output")
	if output == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")

		return enc.Encode(view)
	}

	return printView(cmd.OutOrStdout(), &view)
}

func printView(out io.Writer, view *models.View) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, "INDICATOR\tVALUE\tUNIT\tTREND")

	for i := range view.Indicators {
		ind := &view.Indicators[i]
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", ind.Name, ind.Display, ind.Unit, ind.Trend.Direction)
	}

	if err := w.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(out, "\ngeneration %s, fetched %s\n",
		humanize.Comma(int64(view.Generation)), humanize.Time(view.FetchedAt))

	return err
}

func dashboardsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dashboards",
		Short: "List Grafana dashboard links",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			builder, err := dashboards.NewBuilder(cfg.Grafana)
			if err != nil {
				return err
			}

			kiosk, _ := cmd.Flags().GetBool("kiosk")

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tURL")

			for _, d := range builder.List() {
				link := d.URL
				if kiosk {
					link = d.EmbedURL
				}

				fmt.Fprintf(w, "%s\t%s\t%s\n", d.ID, d.Title, link)
			}

			return w.Flush()
		},
	}

	cmd.Flags().Bool("kiosk", false, "Print kiosk embed URLs")

	return cmd
}
