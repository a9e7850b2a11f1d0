package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/explore-jakarta/recocache/pkg/cache"
	"github.com/explore-jakarta/recocache/pkg/models"
)

func newCacheCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear a running server's cache",
	}
	cmd.PersistentFlags().StringVar(&addr, "addr", "http://localhost:8080", "base URL of a running recocache server")

	var showKeys bool
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			var stats models.CacheStats
			if err := debugRequest(http.MethodGet, addr, "/debug/cache", &stats); err != nil {
				return err
			}

			fmt.Printf("Entries:  %d\nHits:     %d\nMisses:   %d\nHit rate: %.1f%%\n",
				stats.Entries, stats.Hits, stats.Misses, stats.HitRate*100)

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "\nKIND\tLIVE")
			for _, k := range cache.Kinds {
				fmt.Fprintf(w, "%s\t%d\n", k, stats.Breakdown[string(k)])
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if showKeys {
				fmt.Println()
				for _, k := range stats.Keys {
					fmt.Println(k)
				}
			}
			return nil
		},
	}
	statsCmd.Flags().BoolVar(&showKeys, "keys", false, "list live cache keys")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every cache entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			var res struct {
				Removed int `json:"removed"`
			}
			if err := debugRequest(http.MethodDelete, addr, "/debug/cache", &res); err != nil {
				return err
			}
			fmt.Printf("Removed %d entries.\n", res.Removed)
			return nil
		},
	}

	invalidateCmd := &cobra.Command{
		Use:   "invalidate-user <user-id>",
		Short: "Drop cached personalized recommendations for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid user id %q", args[0])
			}
			var res struct {
				Removed int `json:"removed"`
			}
			if err := debugRequest(http.MethodDelete, addr, "/debug/cache/users/"+args[0], &res); err != nil {
				return err
			}
			fmt.Printf("Removed %d entries for user %d.\n", res.Removed, id)
			return nil
		},
	}

	cmd.AddCommand(statsCmd, clearCmd, invalidateCmd)
	return cmd
}

func debugRequest(method, addr, path string, out any) error {
	req, err := http.NewRequest(method, strings.TrimRight(addr, "/")+path, http.NoBody)
	if err != nil {
		return err
	}
	hc := &http.Client{Timeout: 10 * time.Second}
	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("contact server: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.Unmarshal(body, out)
}
