// Package commands implements the posedexctl command tree.
package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/posedex/internal/logger"
	"github.com/kailas-cloud/posedex/internal/version"
	posedex "github.com/kailas-cloud/posedex/pkg/sdk"
)

const (
	envServer = "POSEDEX_URL"
	envAPIKey = "POSEDEX_API_KEY"

	defaultServer = "http://localhost:8000"
)

// globals holds the persistent flags shared by every subcommand.
type globals struct {
	server  string
	apiKey  string
	json    bool
	verbose bool
}

// client builds an SDK client from the persistent flags.
func (g *globals) client() (*posedex.Client, error) {
	var opts []posedex.Option
	if g.apiKey != "" {
		opts = append(opts, posedex.WithAPIKey(g.apiKey))
	}
	return posedex.New(g.server, opts...)
}

// logger returns the CLI logger: warnings on stderr, debug with --verbose.
func (g *globals) logger() *zap.Logger {
	level := "warn"
	if g.verbose {
		level = "debug"
	}
	l, err := logger.NewLogger("cli", level)
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	g := &globals{}
	cmd := &cobra.Command{
		Use:   "posedexctl",
		Short: "Operate a posedex search server and its corpus",
		Long: `posedexctl queries a running posedex server and maintains the local
corpus and image store it serves.

Server address and API key default to $POSEDEX_URL and $POSEDEX_API_KEY,
read from the environment or a .env file in the working directory.`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if g.server == "" {
				g.server = defaultServer
			}
		},
	}

	cmd.PersistentFlags().StringVar(&g.server, "server", os.Getenv(envServer), "posedex server URL")
	cmd.PersistentFlags().StringVar(&g.apiKey, "api-key", os.Getenv(envAPIKey), "bearer token")
	cmd.PersistentFlags().BoolVar(&g.json, "json", false, "print JSON instead of text")
	cmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(
		newSearchCmd(g),
		newPoseCmd(g),
		newEmbedCmd(g),
		newCorpusCmd(g),
		newImagesCmd(g),
		newHealthCmd(g),
	)
	return cmd
}

// Execute runs the CLI.
func Execute() error {
	// A missing .env is fine.
	_ = godotenv.Load()
	return NewRootCmd().Execute()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	return nil
}
