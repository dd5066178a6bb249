package main

import (
	"fmt"
	"time"

	"bennypowers.dev/lesstheme/internal/bundle"
	"bennypowers.dev/lesstheme/internal/metrics"
	"bennypowers.dev/lesstheme/internal/palette"
	"bennypowers.dev/lesstheme/internal/server"
	"bennypowers.dev/lesstheme/internal/variables"
	"bennypowers.dev/lesstheme/internal/version"
	"bennypowers.dev/lesstheme/internal/watch"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newGenerateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Build the theme once",
		Long:  "Build the theme once. Without --output the theme is printed to stdout.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			doc, err := a.generator(cfg, nil).Generate(cmd.Context())
			if err != nil {
				return err
			}
			if cfg.OutputPath == "" {
				_, err = fmt.Fprint(cmd.OutOrStdout(), doc.String())
			}
			return err
		},
	}
}

func newWatchCmd(a *app) *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rebuild the theme whenever its sources change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			w := watch.New(*cfg, a.generator(cfg, nil), watch.Options{Debounce: debounce})
			return w.Run(cmd.Context())
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "quiet period before a rebuild")
	return cmd
}

func newServeCmd(a *app) *cobra.Command {
	var (
		addr      string
		timeout   time.Duration
		watchSrcs bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the theme, a LESS render endpoint and metrics over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			recorder := metrics.New(true)
			gen := a.generator(cfg, recorder)
			srv := server.New(gen, server.Options{
				Metrics: recorder.Handler(),
				Timeout: timeout,
			})

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error { return srv.ListenAndServe(ctx, addr) })
			if watchSrcs {
				w := watch.New(*cfg, gen, watch.Options{})
				g.Go(func() error { return w.Run(ctx) })
			}
			return g.Wait()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().DurationVar(&timeout, "build-timeout", 2*time.Minute, "limit for one theme build")
	cmd.Flags().BoolVar(&watchSrcs, "watch", false, "rebuild in the background when sources change")
	return cmd
}

func newVarsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "vars",
		Short: "List the color variables of the variable file and their resolved values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			text, err := bundle.Bundle(cfg.VariablePath(), cfg.IncludePaths()...)
			if err != nil {
				return err
			}
			mapping, err := variables.Resolve(text)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, name := range variables.Declared(text) {
				if value, ok := mapping[name]; ok {
					fmt.Fprintf(out, "%s: %s;\n", name, value)
				}
			}
			return nil
		},
	}
}

func newRandomColorCmd(a *app) *cobra.Command {
	var shades bool
	cmd := &cobra.Command{
		Use:   "random-color",
		Short: "Print a random hex color, optionally with its palette expressions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "@random-color: %s;\n", palette.RandomColor())
			if !shades {
				return nil
			}
			b := palette.NewBuilder()
			for _, i := range palette.DefaultIndices {
				name := b.ShadeName("@random-color", i)
				expr, err := b.Expression(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s: %s;\n", name, expr)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&shades, "shades", false, "also print shade expressions")
	return cmd
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "less-theme", version.Current())
			return err
		},
	}
}
