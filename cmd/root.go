package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set via ldflags at build time.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:     "poststudio",
	Short:   "OAuth credential manager for Twitter and Facebook",
	Long:    `Runs the authorization endpoints for Twitter (OAuth2 with PKCE and OAuth1.0a) and Facebook, and manages the resulting credentials.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate("poststudio version {{.Version}}\n")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
