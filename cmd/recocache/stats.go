package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/explore-jakarta/recocache/pkg/config"
	"github.com/explore-jakarta/recocache/pkg/tracker"
)

func newStatsCmd() *cobra.Command {
	var (
		configPath string
		since      time.Duration
		recent     int
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show recorded lookup statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(configPath)
			if err != nil {
				return err
			}
			if !cfg.Tracker.Enabled {
				return fmt.Errorf("lookup tracking is disabled in %s", configPath)
			}

			tr, err := tracker.New(cfg.Tracker.DBPath, cfg.Tracker.Retention, nil)
			if err != nil {
				return err
			}
			defer tr.Close()

			ctx := context.Background()

			if recent > 0 {
				recs, err := tr.Recent(ctx, recent)
				if err != nil {
					return err
				}
				if len(recs) == 0 {
					fmt.Println("No lookups recorded.")
					return nil
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "TIME\tKEY\tOUTCOME\tRESULTS\tLATENCY\tERROR")
				for _, r := range recs {
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%dms\t%s\n",
						r.CreatedAt.Local().Format("2006-01-02T15:04:05"), r.Key, r.Outcome, r.Results, r.LatencyMs, r.Error)
				}
				return w.Flush()
			}

			var from time.Time
			if since > 0 {
				from = time.Now().UTC().Add(-since)
			}
			summaries, err := tr.Summary(ctx, from)
			if err != nil {
				return err
			}
			if len(summaries) == 0 {
				fmt.Println("No lookups recorded.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "KIND\tLOOKUPS\tHITS\tMISSES\tERRORS\tHIT RATE\tAVG LATENCY")
			for _, s := range summaries {
				rate := 0.0
				if s.Lookups > 0 {
					rate = float64(s.Hits) / float64(s.Lookups) * 100
				}
				fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%.1f%%\t%.0fms\n",
					s.Kind, s.Lookups, s.Hits, s.Misses, s.Errors, rate, s.AvgLatencyMs)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "recocache.yaml", "path to config file")
	cmd.Flags().DurationVar(&since, "since", 0, "only include lookups newer than this (e.g. 24h)")
	cmd.Flags().IntVar(&recent, "recent", 0, "list the N most recent lookups instead of the summary")
	return cmd
}
