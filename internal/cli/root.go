package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lazypower/echocloset/internal/client"
	"github.com/lazypower/echocloset/internal/config"
	"github.com/lazypower/echocloset/internal/logging"
)

// cfg is loaded once before any command runs.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "echocloset",
	Short: "A quiet closet for stray feelings and impulse buys",
	Long: "Echo Closet keeps a private journal of short lines, tags them with emotions, " +
		"and holds impulse purchases through a cooldown before asking if you still want them.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		cfg = c
		logging.Init(cfg.Log.Level, cfg.Log.Format)
		return nil
	},
}

func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(echoCmd)
	rootCmd.AddCommand(recentCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(hoardCmd)
	rootCmd.AddCommand(hoardsCmd)
	rootCmd.AddCommand(ghostCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(wipeCmd)
}

// connect returns a client for the server at url, or a readable error when
// nothing answers the health check there.
func connect(ctx context.Context, url string) (*client.Client, error) {
	c := client.New(url)
	if !c.Healthy(ctx) {
		return nil, fmt.Errorf("echocloset server is not running at %s (start it with `echocloset serve`)", url)
	}
	return c, nil
}

// friendly unwraps server declines so the user sees the server's words.
func friendly(err error) error {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return errors.New(apiErr.Message)
	}
	return err
}
