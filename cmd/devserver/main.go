package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree; running it without a subcommand
// serves
func newRootCmd() *cobra.Command {
	serve := newServeCmd()

	root := &cobra.Command{
		Use:   "devserver",
		Short: "Serve a web project from its asset graph",
		Long: `devserver answers HTTP requests with the assets reachable from an entry
file, following the scripts, stylesheets and images it references.
Files are re-read when they change and connected browsers are told to
reload.`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE:         serve.RunE,
	}
	root.Flags().AddFlagSet(serve.Flags())
	root.AddCommand(serve, newHistoryCmd(), newGraphCmd(), newInitCmd())
	return root
}
