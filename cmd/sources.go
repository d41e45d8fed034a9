package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/reelscout/reelscout/constant"
	"github.com/reelscout/reelscout/filesystem"
	"github.com/reelscout/reelscout/icon"
	"github.com/reelscout/reelscout/key"
	"github.com/reelscout/reelscout/provider"
	"github.com/reelscout/reelscout/style"
	"github.com/reelscout/reelscout/util"
	"github.com/reelscout/reelscout/where"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Manage bundled and custom source profiles",
}

func init() {
	sourcesCmd.AddCommand(sourcesListCmd)

	sourcesListCmd.Flags().BoolP("raw", "r", false, "Suppress headers")
	sourcesListCmd.Flags().BoolP("custom", "c", false, "List only custom profiles")
	sourcesListCmd.Flags().BoolP("builtin", "b", false, "List only bundled profiles")

	sourcesListCmd.MarkFlagsMutuallyExclusive("custom", "builtin")
	sourcesListCmd.SetOut(os.Stdout)
}

var sourcesListCmd = &cobra.Command{
	Use:   "list [filter]",
	Short: "List source profiles, optionally fuzzy filtered",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		printHeader := !lo.Must(cmd.Flags().GetBool("raw"))
		headerStyle := style.New().Foreground(style.Blue).Bold(true).Render
		h := func(s string) {
			if printHeader {
				cmd.Println(headerStyle(s))
			}
		}

		filter := func(profiles []*provider.Profile) []string {
			names := lo.Map(profiles, func(p *provider.Profile, _ int) string { return p.Name })
			if len(args) == 0 {
				return names
			}
			return fuzzy.FindFold(args[0], names)
		}

		printBuiltin := func() {
			h("Builtin:")
			for _, name := range filter(provider.Builtins()) {
				cmd.Println(name)
			}
		}

		printCustom := func() {
			customs, err := provider.Customs()
			handleErr(err)

			h("Custom:")
			for _, name := range filter(customs) {
				cmd.Println(name)
			}
		}

		switch {
		case lo.Must(cmd.Flags().GetBool("builtin")):
			printBuiltin()
		case lo.Must(cmd.Flags().GetBool("custom")):
			printCustom()
		default:
			printBuiltin()
			if printHeader {
				cmd.Println()
			}
			printCustom()
		}
	},
}

func init() {
	sourcesCmd.AddCommand(sourcesShowCmd)
	sourcesShowCmd.SetOut(os.Stdout)
}

var sourcesShowCmd = &cobra.Command{
	Use:               "show <source>",
	Short:             "Print the effective profile of a source as YAML",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completionSources,
	Run: func(cmd *cobra.Command, args []string) {
		registry, err := provider.Load()
		handleErr(err)

		profile, err := registry.Get(args[0])
		handleErr(err)

		out, err := yaml.Marshal(profile)
		handleErr(err)
		cmd.Print(string(out))
	},
}

func init() {
	sourcesCmd.AddCommand(sourcesValidateCmd)
	sourcesValidateCmd.SetOut(os.Stdout)
}

var sourcesValidateCmd = &cobra.Command{
	Use:   "validate [files...]",
	Short: "Validate profile files, or every installed profile when none are given",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			registry, err := provider.Load()
			handleErr(err)
			cmd.Printf("%s %s valid\n", style.Fg(style.Green)(icon.Get(icon.Success)), util.Quantify(registry.Len(), "profile", "profiles"))
			return
		}

		var failed bool
		for _, path := range args {
			data, err := filesystem.API().ReadFile(path)
			if err == nil {
				var profiles []*provider.Profile
				if profiles, err = provider.Decode(data); err == nil {
					if len(profiles) == 0 {
						err = errors.New("no profiles found")
					} else {
						_, err = provider.NewRegistry(profiles...)
					}
				}
			}

			if err != nil {
				failed = true
				cmd.Printf("%s %s\n%s\n", style.Fg(style.Red)(icon.Get(icon.Fail)), path, style.Faint(err.Error()))
				continue
			}
			cmd.Printf("%s %s\n", style.Fg(style.Green)(icon.Get(icon.Success)), path)
		}

		if failed {
			os.Exit(1)
		}
	},
}

func init() {
	sourcesCmd.AddCommand(sourcesSchemaCmd)
	sourcesSchemaCmd.SetOut(os.Stdout)
}

var sourcesSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema of a source profile",
	Run: func(cmd *cobra.Command, args []string) {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		handleErr(encoder.Encode(provider.Schema()))
	},
}

func init() {
	sourcesCmd.AddCommand(sourcesGenCmd)

	sourcesGenCmd.Flags().StringP("name", "n", "", "Name of the new source")
	sourcesGenCmd.Flags().StringP("url", "u", "", "Base URL of the site")

	lo.Must0(sourcesGenCmd.MarkFlagRequired("name"))
	lo.Must0(sourcesGenCmd.MarkFlagRequired("url"))
	sourcesGenCmd.SetOut(os.Stdout)
}

var sourcesGenCmd = &cobra.Command{
	Use:   "gen",
	Short: "Scaffold a YAML source profile",
	Run: func(cmd *cobra.Command, args []string) {
		s := struct {
			Name    string
			URL     string
			App     string
			Version string
		}{
			Name:    util.Slugify(lo.Must(cmd.Flags().GetString("name"))),
			URL:     lo.Must(cmd.Flags().GetString("url")),
			App:     constant.App,
			Version: constant.Version,
		}

		tmpl, err := template.New("profile").Parse(constant.ProfileTemplate)
		handleErr(err)

		target := filepath.Join(where.Sources(), util.SanitizeFilename(s.Name)+".yaml")
		if exists, _ := filesystem.API().Exists(target); exists {
			handleErr(fmt.Errorf("%s already exists", target))
		}

		f, err := filesystem.API().Create(target)
		handleErr(err)
		defer util.Ignore(f.Close)

		handleErr(tmpl.Execute(f, s))
		cmd.Println(target)
	},
}

func init() {
	sourcesCmd.AddCommand(sourcesUpdateCmd)
	sourcesUpdateCmd.SetOut(os.Stdout)
}

var sourcesUpdateCmd = &cobra.Command{
	Use:   "update [catalog-url]",
	Short: "Download the profile catalog and install it when it changed",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		url := viper.GetString(key.SourcesCatalog)
		if len(args) == 1 {
			url = args[0]
		}
		if url == "" {
			handleErr(fmt.Errorf("no catalog url given and %s is not set", key.SourcesCatalog))
		}

		updated, err := provider.UpdateCatalog(context.Background(), httpClient(), url)
		handleErr(err)

		if updated {
			cmd.Printf("%s catalog installed to %s\n", style.Fg(style.Green)(icon.Get(icon.Success)), filepath.Join(where.Sources(), provider.CatalogFile))
		} else {
			cmd.Printf("%s catalog is up to date\n", style.Fg(style.Green)(icon.Get(icon.Success)))
		}
	},
}
