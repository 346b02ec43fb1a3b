package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"latex_doc_editor/journal"
	"latex_doc_editor/layout"
	"latex_doc_editor/server"
)

func (c *cli) editCmd() *cobra.Command {
	var (
		file         string
		output       string
		instructions []string
		dryRun       bool
	)
	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Apply one or more instructions to a document",
		Example: `  latexedit edit -f paper.tex -i "replace 'CGM' with 'glucose monitor'" -o out.tex
  latexedit edit -f paper.tex -i "remove all tables" -i "add section \"Discussion\" before Limitations"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(instructions) == 0 {
				return errors.New("at least one -i instruction is required")
			}
			doc, err := readInput(cmd, file)
			if err != nil {
				return err
			}
			a, err := c.build(true)
			if err != nil {
				return err
			}
			defer a.Close()

			out, results := a.editor.Batch(cmd.Context(), doc, instructions)
			for i, res := range results {
				status := "ok"
				if !res.Success {
					status = "failed: " + res.Error
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "[%d] %s via %s, %d change(s), %s\n",
					i+1, res.Action, res.Method, res.Changes, status)
			}
			if dryRun {
				return printJSON(cmd.OutOrStdout(), results)
			}
			return writeOutput(cmd, output, out)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "LaTeX source to edit (- for stdin)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the result here instead of stdout")
	cmd.Flags().StringArrayVarP(&instructions, "instruction", "i", nil, "instruction to apply; repeat for a batch")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the results as JSON and leave the document alone")
	return cmd
}

func (c *cli) resolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve [instruction]",
		Short: "Print the structured intent for an instruction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.build(false)
			if err != nil {
				return err
			}
			defer a.Close()
			return printJSON(cmd.OutOrStdout(), a.editor.Resolve(cmd.Context(), args[0]))
		},
	}
}

func (c *cli) fitCmd() *cobra.Command {
	var (
		file        string
		output      string
		profile     string
		positioning bool
		planOnly    bool
	)
	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Rebalance the column widths of every tabular in a document",
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := c.cfg.LayoutBudget()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("profile") {
				if b, err = layout.ParseProfile(profile); err != nil {
					return err
				}
				b = b.WithPositioning(c.cfg.Layout.Positioning)
			}
			if cmd.Flags().Changed("positioning") {
				b = b.WithPositioning(positioning)
			}

			doc, err := readInput(cmd, file)
			if err != nil {
				return err
			}
			out, plans := layout.FitDocument(doc, b)
			for i, p := range plans {
				c.logger.Info("table fitted",
					zap.Int("table", i+1),
					zap.String("mode", string(p.Mode)),
					zap.Float64("total", p.Total()),
					zap.Float64("shift", p.HorizontalShift))
			}
			if planOnly {
				return printJSON(cmd.OutOrStdout(), plans)
			}
			return writeOutput(cmd, output, out)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "LaTeX source (- for stdin)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the result here instead of stdout")
	cmd.Flags().StringVar(&profile, "profile", "", "page profile: two-column or single-column")
	cmd.Flags().BoolVar(&positioning, "positioning", true, "shift oversized tables instead of compressing them")
	cmd.Flags().BoolVar(&planOnly, "plan", false, "print the width plans as JSON instead of the document")
	return cmd
}

func (c *cli) serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.build(true)
			if err != nil {
				return err
			}
			defer a.Close()

			b, err := c.cfg.LayoutBudget()
			if err != nil {
				return err
			}
			opts := []server.Option{
				server.WithBudget(b),
				server.WithPool(a.pool),
				server.WithLogger(c.logger.Named("http")),
				server.WithRequestTimeout(c.cfg.GetRequestTimeout()),
			}
			if a.journal != nil {
				opts = append(opts, server.WithJournal(a.journal))
			}
			srv, err := server.New(a.editor, opts...)
			if err != nil {
				return err
			}

			listen := c.cfg.Server.Addr
			if addr != "" {
				listen = addr
			}
			if listen == "" {
				listen = ":8080"
			}
			return serve(cmd.Context(), c.logger, listen, srv.Routes())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

func serve(ctx context.Context, logger *zap.Logger, addr string, h http.Handler) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	hs := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() {
		logger.Info("starting web server", zap.String("addr", addr))
		errc <- hs.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (c *cli) statsCmd() *cobra.Command {
	var session string
	var limit int
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize the edit journal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if c.cfg.Journal.Path == "" {
				return errors.New("journal disabled (journal.path is empty)")
			}
			j, err := journal.Open(c.cfg.Journal.Path)
			if err != nil {
				return err
			}
			defer j.Close()

			if session != "" {
				entries, err := j.List(cmd.Context(), session, limit)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), entries)
			}
			stats, err := j.Stats(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%-22s %6s %6s %8s %8s\n", "ACTION", "TOTAL", "OK", "CHANGES", "FALLBACK")
			for _, s := range stats {
				fmt.Fprintf(w, "%-22s %6d %6d %8d %8d\n", s.Action, s.Total, s.Succeeded, s.Changes, s.Fallback)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "list the entries of one session instead")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum entries to list (0 for all)")
	return cmd
}

func (c *cli) initConfigCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init-config [path]",
		Short: "Write a default config file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := c.configPath
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			cfg := *c.cfg
			cfg.LLM.Keys = nil
			if err := cfg.Save(path); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func readInput(cmd *cobra.Command, path string) (string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

func writeOutput(cmd *cobra.Command, path, content string) error {
	if path == "" {
		_, err := io.WriteString(cmd.OutOrStdout(), content)
		return err
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
