package main

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/odvcencio/ozx/pkg/config"
	"github.com/odvcencio/ozx/pkg/logging"
)

const version = "0.1.0-dev"

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	verbosity  int
	quiet      bool
	logFormat  string
}

// settings loads the config file and applies the global flags over it.
func (g *globalFlags) settings(flags *pflag.FlagSet) (config.Config, error) {
	cfg, err := config.Load(config.Resolve(g.configPath))
	if err != nil {
		return config.Config{}, err
	}
	if flagChanged(flags, "log-format") {
		cfg.LogFormat = g.logFormat
	}
	return cfg, cfg.Validate()
}

func (g *globalFlags) logger(cfg config.Config, out io.Writer) (*logrus.Logger, error) {
	return logging.New(logging.Settings{
		Level:     cfg.LogLevel,
		Format:    cfg.LogFormat,
		Verbosity: g.verbosity,
		Quiet:     g.quiet,
		Out:       out,
	})
}

func flagChanged(flags *pflag.FlagSet, name string) bool {
	f := flags.Lookup(name)
	return f != nil && f.Changed
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "ozx",
		Short:         "Pack local zarr hierarchies into single-file .ozx containers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.configPath, "config", "", "path to a TOML config file (default: $"+config.EnvPath+" or the user config dir)")
	root.PersistentFlags().CountVarP(&g.verbosity, "verbose", "v", "increase log verbosity (repeatable)")
	root.PersistentFlags().BoolVarP(&g.quiet, "quiet", "q", false, "only log errors")
	root.PersistentFlags().StringVar(&g.logFormat, "log-format", "text", "log format: text or json")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newCreateCmd(g))
	root.AddCommand(newConfigCmd(g))
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ozx %s\n", version)
		},
	}
}
