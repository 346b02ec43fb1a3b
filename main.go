package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"latex_doc_editor/config"
	"latex_doc_editor/editor"
	"latex_doc_editor/generator"
	"latex_doc_editor/intent"
	"latex_doc_editor/journal"
	"latex_doc_editor/keypool"
	"latex_doc_editor/workflow"
)

// cli holds the state shared by every subcommand.
type cli struct {
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{logger: zap.NewNop()}
	root := &cobra.Command{
		Use:   "latexedit",
		Short: "Apply natural-language edits to LaTeX documents",
		Long: `latexedit turns instructions such as "replace X with Y" or
"add a section called Z before Limitations" into precise edits of a LaTeX
source. A language service resolves each instruction when credentials are
configured; otherwise a deterministic parser is used.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = c.logger.Sync()
		},
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "config.yaml", "path to config.yaml")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logs")

	root.AddCommand(
		c.editCmd(),
		c.resolveCmd(),
		c.fitCmd(),
		c.serveCmd(),
		c.statsCmd(),
		c.initConfigCmd(),
	)
	return root
}

func (c *cli) setup() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", c.configPath, err)
	}
	c.cfg = cfg

	zc := zap.NewProductionConfig()
	if cfg.Logging.Development {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zapcore.ParseLevel(strings.ToLower(cfg.Logging.Level))
	if err != nil {
		level = zapcore.InfoLevel
	}
	if c.verbose {
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	logger, err := zc.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	c.logger = logger
	return nil
}

// app is the wired editing stack built from the config.
type app struct {
	pool      *keypool.Pool
	assistant *generator.Assistant
	journal   *journal.Journal
	editor    *workflow.Editor
}

// build wires pool, assistant, resolver, engine and, when withJournal is set and a
// path is configured, the edit journal.
func (c *cli) build(withJournal bool) (*app, error) {
	cfg := c.cfg
	a := &app{pool: keypool.New(cfg.Credentials(), keypool.WithCooldown(cfg.GetCooldown()))}

	if cfg.LLMEnabled() {
		factory, err := generator.NewFactory(cfg.LLMSettings())
		if err != nil {
			return nil, err
		}
		if factory != nil {
			a.assistant, err = generator.NewAssistant(a.pool, factory,
				generator.WithMaxAttempts(cfg.LLM.MaxAttempts),
				generator.WithCallTimeout(cfg.GetCallTimeout()),
				generator.WithLogger(c.logger.Named("assistant")))
			if err != nil {
				return nil, err
			}
		}
	}
	c.logger.Debug("language service",
		zap.String("provider", cfg.LLM.Provider),
		zap.Bool("enabled", a.assistant != nil),
		zap.Int("credentials", a.pool.Len()))

	policy, err := cfg.CasePolicy()
	if err != nil {
		return nil, err
	}
	engineOpts := []editor.Option{editor.WithCasePolicy(policy), editor.WithLogger(c.logger.Named("engine"))}
	resolver := intent.NewResolver(nil, c.logger.Named("resolver"))
	if a.assistant != nil {
		engineOpts = append(engineOpts, editor.WithAssistant(a.assistant))
		resolver = intent.NewResolver(a.assistant, c.logger.Named("resolver"))
	}

	wfOpts := []workflow.Option{workflow.WithLogger(c.logger.Named("workflow"))}
	if withJournal && cfg.Journal.Path != "" {
		j, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			return nil, err
		}
		a.journal = j
		wfOpts = append(wfOpts, workflow.WithRecorder(j))
	}
	a.editor = workflow.New(resolver, editor.New(engineOpts...), wfOpts...)
	return a, nil
}

func (a *app) Close() error {
	if a.journal != nil {
		return a.journal.Close()
	}
	return nil
}
