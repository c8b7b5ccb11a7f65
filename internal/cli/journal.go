package cli

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/lazypower/echocloset/internal/store"
)

// --- echo command ---

var echoCmd = &cobra.Command{
	Use:   "echo <text>",
	Short: "Drop a line into the closet",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect(cmd.Context(), cfg.ClientURL)
		if err != nil {
			return err
		}
		res, err := c.Echo(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return friendly(err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), res.Message)
		return nil
	},
}

// --- recent command ---

var (
	recentCount int
	recentDays  int
)

var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Show the most recent entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect(cmd.Context(), cfg.ClientURL)
		if err != nil {
			return err
		}
		entries, err := c.Recent(cmd.Context(), recentCount, recentDays)
		if err != nil {
			return friendly(err)
		}
		out := cmd.OutOrStdout()
		if len(entries) == 0 {
			fmt.Fprintln(out, "這段時間什麼也沒有。")
			return nil
		}
		fmt.Fprintln(out, "最近的殘響：")
		for _, e := range entries {
			fmt.Fprintf(out, "%s → %s\n", e.Timestamp.Local().Format("2006-01-02 15:04"), describe(e))
		}
		return nil
	},
}

func describe(e store.Entry) string {
	if e.Kind == store.KindHoard {
		return fmt.Sprintf("[囤] %s (%d天, %s)", e.Description, e.CooldownDays, e.Status)
	}
	if len(e.Tags) == 0 {
		return e.Text
	}
	return fmt.Sprintf("%s  #%s", e.Text, strings.Join(e.Tags, " #"))
}

// --- analyze command ---

var analyzeDays int

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Show the most frequent emotions",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect(cmd.Context(), cfg.ClientURL)
		if err != nil {
			return err
		}
		a, err := c.Analyze(cmd.Context(), analyzeDays)
		if err != nil {
			return friendly(err)
		}
		out := cmd.OutOrStdout()
		switch {
		case a.NoData:
			fmt.Fprintf(out, "最近 %d 天什麼也沒有。\n", a.WindowDays)
		case len(a.Tags) == 0:
			fmt.Fprintf(out, "最近 %d 天沒有檢測到明顯情緒詞。\n", a.WindowDays)
		default:
			fmt.Fprintf(out, "最近 %d 天最常出現的情緒（%s 則紀錄）：\n", a.WindowDays, humanize.Comma(int64(a.Entries)))
			for _, tc := range a.Tags {
				fmt.Fprintf(out, "%s: %d 次\n", tc.Tag, tc.Count)
			}
		}
		return nil
	},
}

// --- hoard commands ---

var (
	hoardCooldown int
	hoardOwner    string
)

var hoardCmd = &cobra.Command{
	Use:   "hoard <description>",
	Short: "Hold something you want to buy through a cooldown",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var cooldown *int
		if cmd.Flags().Changed("cooldown") {
			cooldown = &hoardCooldown
		}
		c, err := connect(cmd.Context(), cfg.ClientURL)
		if err != nil {
			return err
		}
		res, err := c.CreateHoard(cmd.Context(), strings.Join(args, " "), cooldown, hoardOwner)
		if err != nil {
			return friendly(err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), res.Message)
		return nil
	},
}

var hoardsCmd = &cobra.Command{
	Use:   "hoards",
	Short: "List your hoards still in cooldown",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect(cmd.Context(), cfg.ClientURL)
		if err != nil {
			return err
		}
		hoards, err := c.Hoards(cmd.Context(), hoardOwner)
		if err != nil {
			return friendly(err)
		}
		out := cmd.OutOrStdout()
		if len(hoards) == 0 {
			fmt.Fprintln(out, "清單是空的。")
			return nil
		}
		fmt.Fprintln(out, "你的囤物清單：")
		for _, h := range hoards {
			fmt.Fprintf(out, "%s → %s (冷靜期至 %s, %s)\n",
				h.Entry.Timestamp.Local().Format("2006-01-02"),
				h.Entry.Description,
				h.Deadline.Local().Format("2006-01-02"),
				humanize.Time(h.Deadline))
		}
		return nil
	},
}

// --- ghost & scan commands ---

var ghostCmd = &cobra.Command{
	Use:   "ghost",
	Short: "Toggle ghost mode: only answer in the small hours",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect(cmd.Context(), cfg.ClientURL)
		if err != nil {
			return err
		}
		state, err := c.ToggleGhost(cmd.Context())
		if err != nil {
			return friendly(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", state.Message, state.Window)
		return nil
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Check expired hoards now instead of waiting for the next tick",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect(cmd.Context(), cfg.ClientURL)
		if err != nil {
			return err
		}
		res, err := c.Scan(cmd.Context())
		if err != nil {
			return friendly(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "due: %d, notified: %d, failed: %d\n", res.Due, res.Expired, res.Failed)
		return nil
	},
}

func init() {
	recentCmd.Flags().IntVarP(&recentCount, "count", "n", 5, "How many entries to show")
	recentCmd.Flags().IntVar(&recentDays, "days", 0, "Only entries from the last N days")

	analyzeCmd.Flags().IntVar(&analyzeDays, "days", 30, "Window in days")

	hoardCmd.Flags().IntVar(&hoardCooldown, "cooldown", 7, "Cooldown in days")
	hoardCmd.Flags().StringVar(&hoardOwner, "owner", "", "Who to remind when the cooldown ends")
	hoardCmd.MarkFlagRequired("owner")

	hoardsCmd.Flags().StringVar(&hoardOwner, "owner", "", "Whose hoards to list")
	hoardsCmd.MarkFlagRequired("owner")
}
