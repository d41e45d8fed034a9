package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/reelscout/reelscout/icon"
	"github.com/reelscout/reelscout/internal/cache"
	"github.com/reelscout/reelscout/key"
	"github.com/reelscout/reelscout/style"
	"github.com/reelscout/reelscout/util"
	"github.com/reelscout/reelscout/where"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type clearTarget struct {
	name     string
	argLong  string
	argShort mo.Option[string]
	location func() string
}

var clearTargets = []clearTarget{
	{"cache directory", "cache", mo.Some("c"), where.Cache},
	{"rendered pages", "rendered", mo.Some("r"), where.Rendered},
	{"screenshots", "screenshots", mo.None[string](), where.Screenshots},
	{"stream references", "streams", mo.None[string](), where.Streams},
	{"history file", "history", mo.Some("s"), where.History},
}

func init() {
	rootCmd.AddCommand(clearCmd)

	for _, target := range clearTargets {
		help := fmt.Sprintf("clear %s", target.name)
		if target.argShort.IsPresent() {
			clearCmd.Flags().BoolP(target.argLong, target.argShort.MustGet(), false, help)
		} else {
			clearCmd.Flags().Bool(target.argLong, false, help)
		}
	}
	clearCmd.Flags().Bool("expired", false, "only prune expired rendered pages")
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove cached and generated files",
	Run: func(cmd *cobra.Command, args []string) {
		if lo.Must(cmd.Flags().GetBool("expired")) {
			store := cache.New(where.Rendered(), time.Duration(viper.GetInt(key.RenderCacheTTL))*time.Minute)
			n := store.Prune()
			fmt.Printf("%s pruned %s\n", style.Fg(style.Green)(icon.Get(icon.Success)), util.Quantify(n, "rendered page", "rendered pages"))
			return
		}

		var anyCleared bool
		for _, target := range clearTargets {
			if !lo.Must(cmd.Flags().GetBool(target.argLong)) {
				continue
			}

			anyCleared = true
			if err := util.Delete(target.location()); err != nil && !errors.Is(err, fs.ErrNotExist) {
				handleErr(err)
			}
			fmt.Printf("%s %s cleared\n", style.Fg(style.Green)(icon.Get(icon.Success)), util.Capitalize(target.name))
		}

		if !anyCleared {
			handleErr(cmd.Help())
		}
	},
}
