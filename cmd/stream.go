package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/reelscout/reelscout/content"
	"github.com/reelscout/reelscout/icon"
	"github.com/reelscout/reelscout/key"
	"github.com/reelscout/reelscout/provider"
	"github.com/reelscout/reelscout/stream"
	"github.com/reelscout/reelscout/style"
	"github.com/reelscout/reelscout/where"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(streamCmd)

	streamCmd.Flags().StringP("content-id", "c", "", "Content id to store the reference under")
	streamCmd.Flags().StringP("episode-id", "e", "", "Episode id to store the reference under")
	streamCmd.Flags().BoolP("refresh", "r", false, "Ignore a stored reference and extract again")
	streamCmd.Flags().BoolP("json", "j", false, "Print the reference as JSON")
	streamCmd.SetOut(os.Stdout)
}

// streamCmd captures the playable media URL of an episode page.
var streamCmd = &cobra.Command{
	Use:   "stream <source> <episode-url>",
	Short: "Capture the stream URL of an episode page",
	Long: `Open an episode page in a headless browser and capture the stream it plays.

Network traffic is watched first, then iframes are followed, then video tags
are read. HLS playlists win over MP4 files and higher qualities win ties.`,
	Args: cobra.ExactArgs(2),
	ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) == 0 {
			return completionSources(cmd, args, toComplete)
		}
		return nil, cobra.ShellCompDirectiveNoFileComp
	},
	Run: func(cmd *cobra.Command, args []string) {
		registry, err := provider.Load()
		handleErr(err)

		profile, err := registry.Get(args[0])
		handleErr(err)

		var (
			contentID = lo.Must(cmd.Flags().GetString("content-id"))
			episodeID = lo.Must(cmd.Flags().GetString("episode-id"))
			refresh   = lo.Must(cmd.Flags().GetBool("refresh"))
			asJSON    = lo.Must(cmd.Flags().GetBool("json"))
			store     = stream.NewStore(where.Streams())
			storeKey  = stream.Key(contentID, episodeID)
		)

		if contentID != "" && !refresh {
			cached, err := store.Get(storeKey)
			handleErr(err)
			if ref, ok := cached.Get(); ok {
				printStream(cmd, &ref, asJSON, "stored")
				return
			}
		}

		pool, err := newPool()
		handleErr(err)

		browser := newBrowser(pool)
		if browser == nil {
			handleErr(errors.New("stream capture needs the browser tier, set " + key.BrowserEnabled + " to true"))
		}

		extractor := stream.NewExtractor(
			stream.Rod(browser),
			stream.WithCapture(seconds(key.StreamCapture)),
			stream.WithDefaultExpiry(time.Duration(viper.GetInt(key.StreamDefaultExpiry))*time.Hour),
		)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		ref, err := extractor.Extract(ctx, profile, args[1])
		handleErr(err)

		if contentID != "" {
			ttl, err := store.Put(storeKey, ref)
			handleErr(err)
			printStream(cmd, ref, asJSON, "stored for "+ttl.String())
			return
		}
		printStream(cmd, ref, asJSON, "")
	},
}

func printStream(cmd *cobra.Command, ref *content.Stream, asJSON bool, note string) {
	if asJSON {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		handleErr(encoder.Encode(ref))
		return
	}

	cmd.Printf("%s %s\n", style.Fg(style.Green)(icon.Get(icon.Stream)), ref.URL)
	if quality, ok := ref.Quality.Get(); ok {
		cmd.Printf("  %s %s\n", style.Faint("quality"), quality)
	}
	cmd.Printf("  %s %s\n", style.Faint("type"), ref.ContentType)
	cmd.Printf("  %s %s\n", style.Faint("referrer policy"), ref.ReferrerPolicy)
	if ref.Referer != "" {
		cmd.Printf("  %s %s\n", style.Faint("referer"), ref.Referer)
	}
	cmd.Printf("  %s %s\n", style.Faint("expires"), ref.ExpiresAt.Format(time.RFC3339))
	if note != "" {
		cmd.Println(style.Faint(fmt.Sprintf("  (%s)", note)))
	}
}
