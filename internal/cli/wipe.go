package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var wipeYes bool

var wipeCmd = &cobra.Command{
	Use:   "wipe",
	Short: "Burn every record. Asks for confirmation first",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect(cmd.Context(), cfg.ClientURL)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		ticket, err := c.RequestWipe(cmd.Context())
		if err != nil {
			return friendly(err)
		}

		if !wipeYes {
			fmt.Fprintf(out, "警告：這會把 %d 條紀錄永久刪除，沒有備份。\n", ticket.Entries)
			fmt.Fprintf(out, "真的要的話，請在 %s 前輸入 yes：", ticket.ExpiresAt)

			answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if strings.TrimSpace(strings.ToLower(answer)) != "yes" {
				fmt.Fprintln(out, "沒燒。")
				return nil
			}
		}

		res, err := c.ConfirmWipe(cmd.Context(), ticket.Token)
		if err != nil {
			return friendly(err)
		}
		fmt.Fprintln(out, res.Message)
		return nil
	},
}

func init() {
	wipeCmd.Flags().BoolVarP(&wipeYes, "yes", "y", false, "Skip the interactive prompt")
}
