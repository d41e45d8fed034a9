package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/reelscout/reelscout/history"
	"github.com/reelscout/reelscout/icon"
	"github.com/reelscout/reelscout/style"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringP("source", "s", "", "Show only runs of this source")
	historyCmd.Flags().IntP("limit", "n", 20, "Show at most this many runs, newest first")
	historyCmd.Flags().BoolP("json", "j", false, "Print the summaries as JSON")
	historyCmd.Flags().Bool("clear", false, "Forget every summary")
	historyCmd.SetOut(os.Stdout)
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show summaries of past collection runs",
	Run: func(cmd *cobra.Command, args []string) {
		if lo.Must(cmd.Flags().GetBool("clear")) {
			handleErr(history.Clear())
			cmd.Printf("%s history cleared\n", style.Fg(style.Green)(icon.Get(icon.Success)))
			return
		}

		var (
			summaries []*history.Summary
			err       error
		)
		if source := lo.Must(cmd.Flags().GetString("source")); source != "" {
			summaries, err = history.Of(source)
		} else {
			summaries, err = history.Get()
		}
		handleErr(err)

		summaries = lo.Reverse(append([]*history.Summary(nil), summaries...))
		if limit := lo.Must(cmd.Flags().GetInt("limit")); limit > 0 && len(summaries) > limit {
			summaries = summaries[:limit]
		}

		if lo.Must(cmd.Flags().GetBool("json")) {
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			handleErr(encoder.Encode(summaries))
			return
		}

		if len(summaries) == 0 {
			cmd.Println(style.Faint("no runs yet"))
			return
		}

		for _, s := range summaries {
			mark := style.Fg(style.Green)(icon.Get(icon.Success))
			switch {
			case s.IsMock:
				mark = style.Fg(style.Red)(icon.Get(icon.Mock))
			case s.Padded > 0 || s.Cancelled:
				mark = style.Fg(style.Yellow)(icon.Get(icon.Warn))
			}

			cmd.Printf("%s %s %s %s\n",
				mark,
				style.Faint(s.StartedAt.Format(time.DateTime)),
				style.Bold(s.Source),
				style.Faint(fmt.Sprintf("%d/%d scraped, %d padded, %d pages, %s", s.Scraped, s.Target, s.Padded, s.Pages, s.Duration.Round(time.Millisecond))),
			)
		}
	},
}
