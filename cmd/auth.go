package cmd

import (
	"errors"
	"os"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/reelscout/reelscout/auth"
	"github.com/reelscout/reelscout/icon"
	"github.com/reelscout/reelscout/style"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authSetRenderKeyCmd, authClearCmd)
	authSetRenderKeyCmd.SetOut(os.Stdout)
	authClearCmd.SetOut(os.Stdout)
}

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage credentials kept in the system keyring",
}

var authSetRenderKeyCmd = &cobra.Command{
	Use:   "set-render-key [key]",
	Short: "Store the rendering API key in the system keyring",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var apiKey string
		if len(args) == 1 {
			apiKey = args[0]
		} else {
			prompt := &survey.Password{Message: "Rendering API key:"}
			handleErr(survey.AskOne(prompt, &apiKey))
		}

		if strings.TrimSpace(apiKey) == "" {
			handleErr(errors.New("empty key"))
		}

		handleErr(auth.SetRenderKey(apiKey))
		cmd.Printf("%s rendering API key saved\n", style.Fg(style.Green)(icon.Get(icon.Success)))
	},
}

var authClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the stored rendering API key",
	Run: func(cmd *cobra.Command, args []string) {
		handleErr(auth.DeleteRenderKey())
		cmd.Printf("%s rendering API key removed\n", style.Fg(style.Green)(icon.Get(icon.Success)))
	},
}
