// Package commands is the callsummarizer command line.
package commands

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	cfg "github.com/vijay-svsk/call-summarizer/config"
)

// app is the state shared by every subcommand of one invocation.
type app struct {
	configFile string
	envFile    string
	logJSON    bool
	logLevel   string

	conf *cfg.Root
	log  *logrus.Logger
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "callsummarizer",
		Short: "Analyze recorded sales and support calls",
		Long: `callsummarizer turns a call recording into a structured record:
transcript and speaker segments, sentiment and mood breakdowns, an
interaction score, and a narrative summary from a generative model.

Configuration is read from config/<CONFIG_ENV>/config.yaml, config/config.yaml
or ./config.yaml, with CALLSCOPE_* environment overrides.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd.ErrOrStderr())
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "config file (default: search config/<env>/config.yaml)")
	pf.StringVar(&a.envFile, "env-file", "", "dotenv file to load (default: .env when present)")
	pf.BoolVar(&a.logJSON, "log-json", false, "log as JSON")
	pf.StringVar(&a.logLevel, "log-level", "", "log level (overrides pipeline.log_level)")

	root.AddCommand(a.analyzeCmd(), a.serveCmd(), a.historyCmd(), a.configCmd())
	return root
}

// Execute runs the command line against os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

func (a *app) init(logOut io.Writer) error {
	c, err := cfg.Load(cfg.Options{ConfigFile: a.configFile, EnvFile: a.envFile})
	if err != nil {
		return err
	}
	a.conf = c

	level := c.Pipeline.LogLvl
	if a.logLevel != "" {
		level = a.logLevel
	}
	a.log, err = newLogger(logOut, level, a.logJSON)
	return err
}

func newLogger(out io.Writer, level string, asJSON bool) (*logrus.Logger, error) {
	l := logrus.New()
	if out == nil {
		out = os.Stderr
	}
	l.SetOutput(out)
	if level != "" {
		lvl, err := logrus.ParseLevel(level)
		if err != nil {
			return nil, err
		}
		l.SetLevel(lvl)
	}
	if asJSON {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return l, nil
}
