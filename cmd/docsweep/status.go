package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aatumaykin/docsweep/internal/cleanup"
	"github.com/aatumaykin/docsweep/internal/constants"
	"github.com/aatumaykin/docsweep/internal/workers"
)

var statusAPI string

// statusCmd prints disk usage per category and the mode the next cycle would pick.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show disk usage and cleanup state",
	Long: `Sample the category directories and print usage per category together
with the mode the monitor loop would choose now. With --api the status of a
running instance is fetched from its admin API instead.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if statusAPI != "" {
			return remoteStatus(cmd, statusAPI)
		}
		return localStatus(cmd)
	},
}

func localStatus(cmd *cobra.Command) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	p := cleanup.NewPolicy(cfg)

	pool := workers.NewPool(workers.DefaultPoolSize, workers.DefaultQueueSize, nil)
	pool.Start()
	defer pool.Stop()

	usage, err := cleanup.NewSampler(pool, nil).Sample(cmd.Context(), p.Categories())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-18s %-8s %8s %10s  %s\n", "CATEGORY", "STATE", "FILES", "SIZE", "DIRECTORY")
	for _, c := range p.Categories() {
		cu := usage.Categories[c.Name]
		state := fmt.Sprintf("%dd", c.RetentionDays)
		if !c.Enabled {
			state = "off"
		}
		fmt.Fprintf(out, "%-18s %-8s %8d %10s  %s\n", c.Name, state, cu.Files, cleanup.FormatSize(cu.Bytes), c.Dir)
	}
	fmt.Fprintf(out, "\ntotal: %d files, %s (normal above %s, emergency above %s)\n",
		usage.TotalFiles, cleanup.FormatSize(usage.TotalBytes),
		cleanup.FormatSize(p.DiskThreshold), cleanup.FormatSize(p.EmergencyThreshold))
	fmt.Fprintf(out, "next cycle mode: %s\n", cleanup.SelectMode(p, usage, 0))
	return nil
}

type remoteStatusResponse struct {
	cleanup.Status
	DiskUsageFormatted string `json:"disk_usage_formatted"`
}

func remoteStatus(cmd *cobra.Command, base string) error {
	client := &http.Client{Timeout: 10 * time.Second}
	url := strings.TrimRight(base, "/") + "/api/cleanup/status"

	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("status request failed: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var st remoteStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return fmt.Errorf("failed to decode status: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "monitor running:  %t\n", st.MonitorRunning)
	fmt.Fprintf(out, "mode:             %s\n", st.Mode)
	fmt.Fprintf(out, "disk usage:       %s (%d files)\n", st.DiskUsageFormatted, st.FileCount)
	fmt.Fprintf(out, "session files:    %d\n", st.SessionFiles)
	fmt.Fprintf(out, "cleanups:         %d (%d files, %s freed, %d errors)\n",
		st.CleanupCount, st.FilesDeleted, cleanup.FormatSize(st.BytesFreed), st.ErrorCount)
	if !st.LastCheckTime.IsZero() {
		fmt.Fprintf(out, "last check:       %s\n", st.LastCheckTime.Format(time.RFC3339))
	}
	if !st.LastCleanupTime.IsZero() {
		fmt.Fprintf(out, "last cleanup:     %s\n", st.LastCleanupTime.Format(time.RFC3339))
	}

	names := make([]string, 0, len(st.Categories))
	for name := range st.Categories {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		cu := st.Categories[name]
		fmt.Fprintf(out, "  %-18s %8d %10s\n", name, cu.Files, cleanup.FormatSize(cu.Bytes))
	}
	return nil
}

func init() {
	statusCmd.Flags().StringVar(&statusAPI, "api", "", "Query a running instance, e.g. "+constants.DefaultAPIURL)
}
