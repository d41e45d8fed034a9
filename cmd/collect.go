package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/reelscout/reelscout/content"
	"github.com/reelscout/reelscout/filesystem"
	"github.com/reelscout/reelscout/history"
	"github.com/reelscout/reelscout/icon"
	"github.com/reelscout/reelscout/key"
	"github.com/reelscout/reelscout/log"
	"github.com/reelscout/reelscout/provider"
	"github.com/reelscout/reelscout/style"
	"github.com/reelscout/reelscout/util"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

func init() {
	rootCmd.AddCommand(collectCmd)

	collectCmd.Flags().IntP("target", "t", 0, "Unique records to aim for per source")
	collectCmd.Flags().IntP("pages", "p", 0, "Maximum listing pages per source")
	collectCmd.Flags().IntP("attempts", "a", 0, "Maximum failed page attempts per source")
	collectCmd.Flags().Int("timeout", 0, "Run deadline in seconds")
	collectCmd.Flags().BoolP("json", "j", false, "Print the runs as JSON")
	collectCmd.Flags().StringP("output", "o", "", "Write the JSON runs to a file instead of stdout")

	lo.Must0(viper.BindPFlag(key.CollectTarget, collectCmd.Flags().Lookup("target")))
	lo.Must0(viper.BindPFlag(key.CollectMaxPages, collectCmd.Flags().Lookup("pages")))
	lo.Must0(viper.BindPFlag(key.CollectMaxAttempts, collectCmd.Flags().Lookup("attempts")))
	lo.Must0(viper.BindPFlag(key.CollectTimeout, collectCmd.Flags().Lookup("timeout")))

	collectCmd.ValidArgsFunction = completionSources
	collectCmd.SetOut(os.Stdout)
}

// collectCmd runs a paginated collection against one or more sources.
var collectCmd = &cobra.Command{
	Use:   "collect [sources...]",
	Short: "Collect listing records from sources",
	Long: `Collect listing records from one or more sources.

Pages are fetched through the direct, proxy, browser and rendering tiers in
that order. A source that under-delivers is padded with synthetic records,
and a source that yields nothing is replaced by them entirely.`,
	Example: "  reelscout collect dramacool asianc --target 40 --json -o runs.json",
	Run: func(cmd *cobra.Command, args []string) {
		registry, err := provider.Load()
		handleErr(err)

		sources, err := resolveSources(registry, args)
		handleErr(err)

		collector, err := newCollector(registry)
		handleErr(err)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		if timeout := seconds(key.CollectTimeout); timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		runs, err := collector.CollectAll(
			ctx,
			sources,
			viper.GetInt(key.CollectTarget),
			viper.GetInt(key.CollectMaxPages),
			viper.GetInt(key.CollectMaxAttempts),
		)
		handleErr(err)

		if viper.GetBool(key.HistorySave) {
			if err := history.Save(runs...); err != nil {
				log.Warnf("save history: %v", err)
			}
		}

		output := lo.Must(cmd.Flags().GetString("output"))
		if lo.Must(cmd.Flags().GetBool("json")) || output != "" {
			handleErr(writeRuns(cmd.OutOrStdout(), output, runs))
			return
		}

		for i, run := range runs {
			printRun(cmd.OutOrStdout(), run)
			if i < len(runs)-1 {
				cmd.Println()
			}
		}
	},
}

// resolveSources picks the sources from the arguments, then the configuration,
// then an interactive prompt when attached to a terminal.
func resolveSources(registry *provider.Registry, args []string) ([]string, error) {
	if len(args) > 0 {
		return lo.Uniq(args), nil
	}
	if configured := viper.GetStringSlice(key.DefaultSources); len(configured) > 0 {
		return lo.Uniq(configured), nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil, errors.New("no sources given and none configured in " + key.DefaultSources)
	}

	var selected []string
	prompt := &survey.MultiSelect{
		Message: "Select sources to collect from",
		Options: registry.Names(),
	}
	if err := survey.AskOne(prompt, &selected, survey.WithValidator(survey.Required)); err != nil {
		return nil, err
	}
	return selected, nil
}

func writeRuns(stdout io.Writer, output string, runs []*content.Run) error {
	data, err := json.MarshalIndent(runs, "", "  ")
	if err != nil {
		return err
	}

	if output == "" {
		_, err = fmt.Fprintln(stdout, string(data))
		return err
	}

	if err := filesystem.WriteAtomic(output, data, 0644); err != nil {
		return err
	}
	_, err = fmt.Fprintf(stdout, "%s wrote %s to %s\n", style.Fg(style.Green)(icon.Get(icon.Success)), util.Quantify(len(runs), "run", "runs"), output)
	return err
}

func printRun(w io.Writer, run *content.Run) {
	status := style.Fg(style.Green)(icon.Get(icon.Success))
	switch {
	case run.IsMock:
		status = style.Fg(style.Red)(icon.Get(icon.Mock))
	case run.Padded > 0 || run.Cancelled:
		status = style.Fg(style.Yellow)(icon.Get(icon.Warn))
	}

	tiers := lo.Map(lo.Uniq(run.Tiers), func(t string, _ int) string {
		return style.Tier(t)
	})

	_, _ = fmt.Fprintf(w, "%s %s %s\n",
		status,
		style.Bold(run.Source),
		style.Faint(fmt.Sprintf(
			"%d/%d scraped, %s, %s, %s",
			run.Scraped(), run.TargetCount,
			util.Quantify(run.PagesFetched, "page", "pages"),
			util.Quantify(run.Attempts, "failed attempt", "failed attempts"),
			run.Duration().Round(time.Millisecond),
		)),
	)
	if len(tiers) > 0 {
		_, _ = fmt.Fprintf(w, "  %s %s\n", style.Faint("tiers"), strings.Join(tiers, " "))
	}
	if run.IsMock {
		_, _ = fmt.Fprintf(w, "  %s\n", style.Fg(style.Red)("every record is synthetic"))
	} else if run.Padded > 0 {
		_, _ = fmt.Fprintf(w, "  %s\n", style.Fg(style.Yellow)(util.Quantify(run.Padded, "synthetic record", "synthetic records")+" appended"))
	}
	if run.Cancelled {
		_, _ = fmt.Fprintf(w, "  %s\n", style.Fg(style.Yellow)("deadline reached, partial run"))
	}

	for _, r := range run.Records {
		line := r.Title
		if rating, ok := r.Rating.Get(); ok {
			line += style.Faint(fmt.Sprintf(" ★ %.1f", rating))
		}
		if year, ok := r.Year.Get(); ok {
			line += style.Faint(fmt.Sprintf(" (%d)", year))
		}
		_, _ = fmt.Fprintf(w, "  %s %s\n", style.Provenance(string(r.Provenance)), line)
	}
}
