// Command warctl is the operator CLI for a running warsim server.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/talgya/warfront/internal/game"
	"github.com/talgya/warfront/internal/market"
	"github.com/talgya/warfront/internal/world"
	"github.com/talgya/warfront/internal/worldevent"
)

var (
	serverURL string
	adminKey  string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "warctl",
		Short: "Warfront server control",
		Long:  "Inspects and administers a running warsim server over its HTTP API.",
	}
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "warsim server base URL")
	rootCmd.PersistentFlags().StringVar(&adminKey, "admin-key", os.Getenv("WARSIM_ADMIN_KEY"), "bearer token for admin commands")

	rootCmd.AddCommand(
		pricesCmd(),
		statsCmd(),
		eventsCmd(),
		provincesCmd(),
		grantCmd(),
		injectEventCmd(),
		speedCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func pricesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prices",
		Short: "Show current market prices",
		RunE: func(cmd *cobra.Command, args []string) error {
			var prices []market.Price
			if err := getJSON("/api/v1/prices", &prices); err != nil {
				return err
			}

			table := tablewriter.NewTable(os.Stdout,
				tablewriter.WithHeader([]string{"Resource", "Price", "Change", "Demand", "Supply", "Updated"}),
			)
			for _, p := range prices {
				change := fmt.Sprintf("%+.2f%%", p.ChangePercent())
				table.Append([]string{
					string(p.Resource),
					fmt.Sprintf("%.2f", p.Price),
					change,
					fmt.Sprintf("%.2f", p.Demand),
					fmt.Sprintf("%.2f", p.Supply),
					humanize.Time(p.LastUpdated),
				})
			}
			table.Render()
			return nil
		},
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show world statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			var stats game.Stats
			if err := getJSON("/api/v1/stats", &stats); err != nil {
				return err
			}

			title := color.New(color.FgCyan, color.Bold)
			title.Println("Warfront world statistics")
			fmt.Printf("  Players:        %d\n", stats.Players)
			fmt.Printf("  Total gold:     %s\n", humanize.Commaf(stats.TotalGold))
			fmt.Printf("  Total units:    %s\n", humanize.Comma(int64(stats.TotalUnits)))
			fmt.Printf("  Active tasks:   %d\n", stats.ActiveTasks)
			fmt.Printf("  Active events:  %d\n", stats.ActiveEvents)
			fmt.Printf("  Provinces:      %d\n", stats.Provinces)
			fmt.Printf("  Market health:  %s\n", stats.MarketHealth)
			return nil
		},
	}
}

func eventsCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show world events",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/events"
			if all {
				path += "?all=true"
			}
			var resp struct {
				Count  int               `json:"count"`
				Events []worldevent.Event `json:"events"`
			}
			if err := getJSON(path, &resp); err != nil {
				return err
			}

			table := tablewriter.NewTable(os.Stdout,
				tablewriter.WithHeader([]string{"Category", "Severity", "Title", "Impact", "Expires"}),
			)
			for _, e := range resp.Events {
				table.Append([]string{
					string(e.Category),
					e.Severity,
					e.Title,
					fmt.Sprintf("%+.2f", e.Impact),
					humanize.Time(e.ExpiresAt),
				})
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include expired events")
	return cmd
}

func provincesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "provinces",
		Short: "Show province map state",
		RunE: func(cmd *cobra.Command, args []string) error {
			var provinces []world.Province
			if err := getJSON("/api/v1/provinces", &provinces); err != nil {
				return err
			}

			table := tablewriter.NewTable(os.Stdout,
				tablewriter.WithHeader([]string{"ID", "Name", "Owner", "Infra", "Morale", "Weather", "Temp"}),
			)
			for _, p := range provinces {
				owner := "-"
				if p.Owner != 0 {
					owner = fmt.Sprintf("%d", p.Owner)
				}
				table.Append([]string{
					fmt.Sprintf("%d", p.ID),
					p.Name,
					owner,
					fmt.Sprintf("%.2f", p.Infrastructure),
					fmt.Sprintf("%.0f", p.Morale),
					string(p.Weather),
					fmt.Sprintf("%.1f°C", p.Temperature),
				})
			}
			table.Render()
			return nil
		},
	}
}

func grantCmd() *cobra.Command {
	var player int64
	var resource string
	var amount float64
	cmd := &cobra.Command{
		Use:   "grant",
		Short: "Grant resources to a player (admin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]any{
				"player_id": player,
				"resource":  resource,
				"amount":    amount,
			}
			var resp map[string]any
			if err := postJSON("/api/v1/admin/grant", body, &resp); err != nil {
				return err
			}
			color.Green("Granted %.1f %s to player %d (balance now %v)",
				amount, resource, player, resp["balance"])
			return nil
		},
	}
	cmd.Flags().Int64Var(&player, "player", 0, "player ID")
	cmd.Flags().StringVar(&resource, "resource", "gold", "resource type")
	cmd.Flags().Float64Var(&amount, "amount", 0, "amount to grant")
	cmd.MarkFlagRequired("player")
	cmd.MarkFlagRequired("amount")
	return cmd
}

func injectEventCmd() *cobra.Command {
	var category, title, description, severity string
	var impact, intensity float64
	var duration time.Duration
	cmd := &cobra.Command{
		Use:   "inject-event",
		Short: "Inject a world event (admin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]any{
				"category":    category,
				"title":       title,
				"description": description,
				"severity":    severity,
				"impact":      impact,
				"intensity":   intensity,
			}
			if duration > 0 {
				body["expires_at"] = time.Now().Add(duration).UTC().Format(time.RFC3339)
			}
			var ev worldevent.Event
			if err := postJSON("/api/v1/admin/inject-event", body, &ev); err != nil {
				return err
			}
			color.Green("Injected event %s: %s", ev.ID, ev.Title)
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "economic", "event category")
	cmd.Flags().StringVar(&title, "title", "", "event title")
	cmd.Flags().StringVar(&description, "description", "", "event description")
	cmd.Flags().StringVar(&severity, "severity", "medium", "event severity")
	cmd.Flags().Float64Var(&impact, "impact", 0, "price impact, -0.3 to 0.3")
	cmd.Flags().Float64Var(&intensity, "intensity", 0.5, "intensity, 0 to 1")
	cmd.Flags().DurationVar(&duration, "duration", 0, "event duration (default server-chosen)")
	cmd.MarkFlagRequired("title")
	return cmd
}

func speedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "speed [multiplier]",
		Short: "Set the simulation speed (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var speed float64
			if _, err := fmt.Sscanf(args[0], "%f", &speed); err != nil {
				return fmt.Errorf("invalid speed %q", args[0])
			}
			var resp map[string]float64
			if err := postJSON("/api/v1/admin/speed", map[string]float64{"speed": speed}, &resp); err != nil {
				return err
			}
			color.Green("Speed set to %.1fx", resp["speed"])
			return nil
		},
	}
}

func getJSON(path string, out any) error {
	resp, err := http.Get(serverURL + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func postJSON(path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, serverURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if adminKey != "" {
		req.Header.Set("Authorization", "Bearer "+adminKey)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, out any) error {
	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("server returned %s: %s", resp.Status, bytes.TrimSpace(msg))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
