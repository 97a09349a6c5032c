package main

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

const defaultAddr = "http://localhost:8080"

func newRootCmd(out io.Writer) *cobra.Command {
	addr := os.Getenv("WEATHERNFT_ADDR")
	if addr == "" {
		addr = defaultAddr
	}

	root := &cobra.Command{
		Use:   "weathernftctl",
		Short: "WeatherNFT operator console",
		Long: `weathernftctl drives a running weathernft service: inspect the dashboard
and admin log, manage events, settings, AI algorithms and tokens.`,
		SilenceUsage: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&addr, "addr", addr, "service base URL (env WEATHERNFT_ADDR)")

	// run issues one API call and prints its data.
	run := func(cmd *cobra.Command, method, path string, body any) error {
		data, err := newAPIClient(addr).call(cmd.Context(), method, path, body)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), data)
	}

	root.AddCommand(
		newDashboardCmd(run),
		newLogsCmd(run),
		newEventsCmd(run),
		newSettingsCmd(run),
		newAlgorithmsCmd(run),
		newNFTCmd(run),
	)
	return root
}

type runFunc func(cmd *cobra.Command, method, path string, body any) error

func newDashboardCmd(run runFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show the admin dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, http.MethodGet, "/api/dashboard", nil)
		},
	}
}

func newLogsCmd(run runFunc) *cobra.Command {
	var (
		level string
		since string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Query the admin log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q := url.Values{}
			setIf(q, "level", level)
			setIf(q, "since", since)
			if limit > 0 {
				q.Set("limit", strconv.Itoa(limit))
			}
			return run(cmd, http.MethodGet, withQuery("/api/admin/logs", q), nil)
		},
	}
	cmd.Flags().StringVar(&level, "level", "", "info, warning or error")
	cmd.Flags().StringVar(&since, "since", "", "only entries after this RFC 3339 time")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum entries (server default 100)")
	return cmd
}

func newEventsCmd(run runFunc) *cobra.Command {
	events := &cobra.Command{
		Use:   "events",
		Short: "List, generate and manage weather events",
	}

	var status, rarity string
	list := &cobra.Command{
		Use:   "list",
		Short: "List events, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q := url.Values{}
			setIf(q, "status", status)
			setIf(q, "rarity", rarity)
			return run(cmd, http.MethodGet, withQuery("/api/events", q), nil)
		},
	}
	list.Flags().StringVar(&status, "status", "", "all, active or inactive")
	list.Flags().StringVar(&rarity, "rarity", "", "rarity tier")

	var (
		lat, lng  float64
		forceTier string
	)
	generate := &cobra.Command{
		Use:   "generate",
		Short: "Generate an event at a coordinate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			body := map[string]any{"lat": lat, "lng": lng}
			if forceTier != "" {
				body["forceRarity"] = forceTier
			}
			return run(cmd, http.MethodPost, "/api/events/generate", body)
		},
	}
	generate.Flags().Float64Var(&lat, "lat", 0, "latitude")
	generate.Flags().Float64Var(&lng, "lng", 0, "longitude")
	generate.Flags().StringVar(&forceTier, "rarity", "", "force a rarity tier")

	var userID string
	capture := &cobra.Command{
		Use:   "capture ID",
		Short: "Capture one slot of an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var body any
			if userID != "" {
				body = map[string]string{"userId": userID}
			}
			return run(cmd, http.MethodPost, "/api/events/"+url.PathEscape(args[0])+"/capture", body)
		},
	}
	capture.Flags().StringVar(&userID, "user", "", "charge this user's credits")

	var multiplier float64
	boost := &cobra.Command{
		Use:   "boost ID",
		Short: "Multiply an event's price",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, http.MethodPost, "/api/admin/events/"+url.PathEscape(args[0])+"/boost",
				map[string]float64{"boostMultiplier": multiplier})
		},
	}
	boost.Flags().Float64Var(&multiplier, "multiplier", 1.5, "price multiplier")

	var reason string
	deactivate := &cobra.Command{
		Use:   "deactivate ID",
		Short: "Force-close an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			setIf(q, "reason", reason)
			return run(cmd, http.MethodDelete, withQuery("/api/admin/events/"+url.PathEscape(args[0]), q), nil)
		},
	}
	deactivate.Flags().StringVar(&reason, "reason", "", "recorded in the admin log")

	events.AddCommand(list, generate, capture, boost, deactivate)
	return events
}

func newSettingsCmd(run runFunc) *cobra.Command {
	settings := &cobra.Command{
		Use:   "settings",
		Short: "Inspect engine settings",
	}
	settings.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Print the current settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, http.MethodGet, "/api/admin/settings", nil)
		},
	})
	return settings
}

func newAlgorithmsCmd(run runFunc) *cobra.Command {
	algorithms := &cobra.Command{
		Use:   "algorithms",
		Short: "Manage AI algorithms",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List algorithms with their settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, http.MethodGet, "/api/ai/models", nil)
		},
	}

	var enabled bool
	toggle := &cobra.Command{
		Use:   "toggle NAME",
		Short: "Enable or disable an algorithm",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, http.MethodPost, "/api/ai/models/"+url.PathEscape(args[0])+"/toggle",
				map[string]bool{"enabled": enabled})
		},
	}
	toggle.Flags().BoolVar(&enabled, "enabled", true, "enable (true) or disable (false)")

	retrain := &cobra.Command{
		Use:   "retrain NAME",
		Short: "Start retraining an algorithm",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, http.MethodPost, "/api/ai/models/"+url.PathEscape(args[0])+"/retrain", nil)
		},
	}

	algorithms.AddCommand(list, toggle, retrain)
	return algorithms
}

func newNFTCmd(run runFunc) *cobra.Command {
	tokens := &cobra.Command{
		Use:   "nft",
		Short: "Inspect and move minted tokens",
	}

	owner := &cobra.Command{
		Use:   "owner ADDRESS",
		Short: "List tokens held by a user id or wallet address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, http.MethodGet, "/api/nft/owner/"+url.PathEscape(args[0]), nil)
		},
	}

	var from, to string
	transfer := &cobra.Command{
		Use:   "transfer TOKEN_ID",
		Short: "Move a token to another user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("token id %q: %w", args[0], err)
			}
			return run(cmd, http.MethodPost, "/api/nft/transfer",
				map[string]any{"tokenId": id, "from": from, "to": to})
		},
	}
	transfer.Flags().StringVar(&from, "from", "", "current owner user id")
	transfer.Flags().StringVar(&to, "to", "", "recipient user id")
	_ = transfer.MarkFlagRequired("from")
	_ = transfer.MarkFlagRequired("to")

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show token, event and user totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, http.MethodGet, "/api/stats", nil)
		},
	}

	tokens.AddCommand(owner, transfer, stats)
	return tokens
}

func setIf(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}
