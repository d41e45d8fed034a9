// Package cmd implements the command-line interface for reelscout.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/reelscout/reelscout/constant"
	"github.com/reelscout/reelscout/icon"
	"github.com/reelscout/reelscout/key"
	"github.com/reelscout/reelscout/log"
	"github.com/reelscout/reelscout/provider"
	"github.com/reelscout/reelscout/style"
	"github.com/reelscout/reelscout/util"
	"github.com/reelscout/reelscout/where"
	cc "github.com/ivanpirog/coloredcobra"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print the application version")

	rootCmd.PersistentFlags().StringP("icons", "I", "", "Set the icon variant (emoji, nerd, plain, kaomoji, squares)")
	lo.Must0(rootCmd.RegisterFlagCompletionFunc("icons", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return icon.AvailableVariants(), cobra.ShellCompDirectiveDefault
	}))
	lo.Must0(viper.BindPFlag(key.IconsVariant, rootCmd.PersistentFlags().Lookup("icons")))

	rootCmd.PersistentFlags().BoolP("write-history", "H", true, "Save a summary of every collection run")
	lo.Must0(viper.BindPFlag(key.HistorySave, rootCmd.PersistentFlags().Lookup("write-history")))

	rootCmd.PersistentFlags().StringSliceP("source", "S", []string{}, "Default sources to collect from")
	lo.Must0(rootCmd.RegisterFlagCompletionFunc("source", completionSources))
	lo.Must0(viper.BindPFlag(key.DefaultSources, rootCmd.PersistentFlags().Lookup("source")))

	go func() {
		_ = util.Delete(where.Temp())
	}()
}

func completionSources(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	registry, err := provider.Load()
	if err != nil {
		return lo.Map(provider.Builtins(), func(p *provider.Profile, _ int) string {
			return p.Name
		}), cobra.ShellCompDirectiveNoFileComp
	}
	return registry.Names(), cobra.ShellCompDirectiveNoFileComp
}

// rootCmd is the entry point of the CLI.
var rootCmd = &cobra.Command{
	Use:   constant.App,
	Short: "Resilient content acquisition from streaming catalog sites",
	Long: style.New().Bold(true).Foreground(style.Purple).Render(constant.App) + "\n" +
		style.New().Italic(true).Foreground(style.Gray).Render("    Collect listings and stream references through an escalating fetch ladder"),
	Run: func(cmd *cobra.Command, args []string) {
		if cmd.Flags().Changed("version") {
			versionCmd.Run(versionCmd, args)
			return
		}
		handleErr(cmd.Help())
	},
}

// Execute wires the command tree and runs it.
func Execute() {
	if viper.GetBool(key.CliColored) {
		cc.Init(&cc.Config{
			RootCmd:       rootCmd,
			Headings:      cc.HiCyan + cc.Bold + cc.Underline,
			Commands:      cc.HiYellow + cc.Bold,
			Example:       cc.Italic,
			ExecName:      cc.Bold,
			Flags:         cc.Bold,
			FlagsDataType: cc.Italic + cc.HiBlue,
		})
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func handleErr(err error) {
	if err != nil {
		log.Error(err)
		_, _ = fmt.Fprintf(os.Stderr, "%s %s\n", style.Fg(style.Red)(icon.Get(icon.Fail)), strings.Trim(err.Error(), " \n"))
		os.Exit(1)
	}
}
