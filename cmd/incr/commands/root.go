// Package commands implements the CLI commands of incr.
package commands

import (
	"context"
	"io"

	"github.com/spf13/cobra"
	"go.trai.ch/incr/internal/app"
	"go.trai.ch/incr/internal/build"
)

// Application is the application logic driven by the commands.
type Application interface {
	Status(ctx context.Context, o app.Options) (app.StatusReport, error)
	Record(ctx context.Context, o app.Options, req app.RecordRequest) (app.RecordResult, error)
	Lookup(ctx context.Context, o app.Options, symbol string) ([]string, error)
	Dump(ctx context.Context, o app.Options) (string, error)
	HashSums(ctx context.Context, o app.Options, tag string) (string, error)
	Clean(ctx context.Context, o app.Options) error
	Watch(ctx context.Context, o app.Options) error
}

// CLI represents the command line interface for incr.
type CLI struct {
	app     Application
	rootCmd *cobra.Command
}

// New creates a new CLI instance with the given app.
func New(a Application) *CLI {
	rootCmd := &cobra.Command{
		Use:           "incr",
		Short:         "Inspect and maintain incremental compilation caches",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
	}

	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "Path to the incr.yaml file (default: discovered from the working directory)")
	flags.String("project-root", "", "Project root that source keys are relative to")
	flags.String("cache-dir", "", "Cache root directory (default: <project-root>/.incr/caches)")
	flags.String("output-dir", "", "Output directory of the compiled artifacts")
	flags.String("platform", "", "Target platform: jvm or js")
	flags.String("backend", "", "Storage backend: sqlite or files")

	c := &CLI{
		app:     a,
		rootCmd: rootCmd,
	}

	rootCmd.AddCommand(
		c.newStatusCmd(),
		c.newRecordCmd(),
		c.newLookupCmd(),
		c.newDumpCmd(),
		c.newHashesCmd(),
		c.newCleanCmd(),
		c.newWatchCmd(),
		c.newVersionCmd(),
	)

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error writers of the root command.
func (c *CLI) SetOutput(out, errOut io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(errOut)
}

// options collects the persistent flags.
func options(cmd *cobra.Command) app.Options {
	flags := cmd.Flags()
	get := func(name string) string {
		v, _ := flags.GetString(name)
		return v
	}
	return app.Options{
		ConfigPath:  get("config"),
		ProjectRoot: get("project-root"),
		CacheDir:    get("cache-dir"),
		OutputDir:   get("output-dir"),
		Platform:    get("platform"),
		Backend:     get("backend"),
	}
}
