package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	goble "github.com/srg/botlink/internal/device/go-ble"
	"github.com/srg/botlink/internal/extensions/catalog"
	"github.com/srg/botlink/scanner"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for supported robots",
	Long: `Scan for robots nearby and show which extensions can drive them.

Robots are recognised by the service UUID they advertise. Several drone
extensions share one service, so a drone lists every family able to drive it.`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

var (
	scanDuration    time.Duration
	scanFormat      string
	scanFamilies    []string
	scanAllowList   []string
	scanBlockList   []string
	scanNoDuplicate bool
)

func init() {
	scanCmd.Flags().DurationVarP(&scanDuration, "duration", "d", 10*time.Second, "Scan duration (default from config)")
	scanCmd.Flags().StringVarP(&scanFormat, "format", "f", "", "Output format (table, json; default from config)")
	scanCmd.Flags().StringSliceVarP(&scanFamilies, "family", "F", nil, "Only look for these extensions ("+strings.Join(catalog.IDs(), ", ")+")")
	scanCmd.Flags().StringSliceVar(&scanAllowList, "allow", nil, "Only show robots with these addresses")
	scanCmd.Flags().StringSliceVar(&scanBlockList, "block", nil, "Hide robots with these addresses")
	scanCmd.Flags().BoolVar(&scanNoDuplicate, "no-duplicates", true, "Filter duplicate advertisements")
}

func runScan(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	format := cfg.OutputFormat
	if scanFormat != "" {
		format = scanFormat
	}
	if !slices.Contains([]string{"table", "json"}, format) {
		return fmt.Errorf("invalid format '%s': must be one of [table json]", format)
	}
	for _, id := range scanFamilies {
		if _, err := catalog.Lookup(id); err != nil {
			return err
		}
	}

	duration := cfg.ScanTimeout
	if cmd.Flags().Changed("duration") {
		duration = scanDuration
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	s, err := scanner.NewScanner(goble.NewTransport(logger), logger)
	if err != nil {
		return fmt.Errorf("failed to create BLE scanner: %w", err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(cmd.ErrOrStderr(), "\nCtrl+C pressed, cancelling scan...")
			cancel()
		case <-ctx.Done():
		}
	}()

	progress := NewCountdownProgressPrinter(cmd.ErrOrStderr(), "Scanning for robots", "Scanning", duration, "Processing results")
	progress.Start()
	defer progress.Stop()

	found, err := s.Scan(ctx, &scanner.ScanOptions{
		Duration:        duration,
		DuplicateFilter: scanNoDuplicate,
		AllowList:       scanAllowList,
		BlockList:       scanBlockList,
		Families:        scanFamilies,
	}, progress.Callback())
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Error("scan failed")
		return err
	}
	progress.Stop()

	if format == "json" {
		return displayRobotsJSON(cmd.OutOrStdout(), found)
	}
	return displayRobotsTable(cmd.OutOrStdout(), found)
}

func displayRobotsTable(out io.Writer, robots []scanner.Discovered) error {
	if len(robots) == 0 {
		color.New(color.FgYellow).Fprintln(out, "No robots discovered")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tADDRESS\tRSSI\tEXTENSIONS\tLAST SEEN")
	fmt.Fprintln(w, strings.Repeat("-", 72))

	for _, r := range robots {
		name := r.Name
		if name == "" {
			name = "(unknown)"
		}
		if len(name) > 20 {
			name = name[:17] + "..."
		}
		lastSeen := time.Since(r.LastSeen).Truncate(time.Second)
		fmt.Fprintf(w, "%s\t%s\t%d dBm\t%s\t%s ago\n",
			name, r.Address, r.RSSI, strings.Join(r.Families, ","), lastSeen)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	color.New(color.FgGreen).Fprintf(out, "\n%d robot(s) found\n", len(robots))
	return nil
}

func displayRobotsJSON(out io.Writer, robots []scanner.Discovered) error {
	if robots == nil {
		robots = []scanner.Discovered{}
	}
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(robots)
}
