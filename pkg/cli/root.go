package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
	// BuildDate is injected during build
	BuildDate = "unknown"
)

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	jsonOutput bool
}

// NewRootCmd builds the acceptevents command tree.
func NewRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "acceptevents",
		Short: "acceptevents serves resources with Accept-Events negotiation",
		Long: `acceptevents is a resource server that negotiates event delivery with its clients.

A client lists the protocols it accepts in the Accept-Events request header;
the server delivers the resource over the first protocol that works (sse,
webhook, websocket or mqtt) and otherwise falls back to a plain response,
reporting the failure in the Events response header.`,
		SilenceUsage:  true,
		SilenceErrors: true, // We handle errors in Execute()
	}

	root.PersistentFlags().BoolVar(&g.jsonOutput, "json", false, "Output command results in JSON format")

	root.AddCommand(newServeCmd())
	root.AddCommand(newValidateCmd(g))
	root.AddCommand(newVersionCmd(g))
	return root
}

// Execute runs the root command with os.Args.
// This is called by main.main().
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
