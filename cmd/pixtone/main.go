// Command pixtone applies tone and color enhancements to images.
//
// Usage:
//
//	pixtone menu photo.jpg                                   # interactive text menu
//	pixtone apply -i photo.jpg -o out.png -s gamma=2,equalize # one shot pipeline
//	pixtone serve --addr :8080                               # web dashboard
//
// Settings are read from a TOML file given with --config. Flags override it.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/soypat/pixtone/filters"
	"github.com/soypat/pixtone/internal/config"
	"github.com/soypat/pixtone/internal/imageio"
	"github.com/soypat/pixtone/internal/logging"
	"github.com/soypat/pixtone/internal/menu"
	"github.com/soypat/pixtone/internal/server"
	"github.com/soypat/pixtone/internal/session"
	"github.com/soypat/pixtone/pipeline"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "pixtone:", err)
		stop()
		os.Exit(1)
	}
}

type app struct {
	configPath string
	logLevel   string
	useGPU     bool

	cfg    config.Config
	log    zerolog.Logger
	gpu    *filters.GPU
	runner *pipeline.Runner
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "pixtone",
		Short:         "Tone and color enhancement for images",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.Flags())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.gpu != nil {
				a.gpu.Release()
			}
		},
	}
	addGlobalFlags(root.PersistentFlags(), a)
	root.AddCommand(a.menuCmd(), a.applyCmd(), a.serveCmd())
	return root
}

func addGlobalFlags(fs *pflag.FlagSet, a *app) {
	fs.StringVarP(&a.configPath, "config", "c", "", "TOML configuration file")
	fs.StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	fs.BoolVar(&a.useGPU, "gpu", false, "run gamma and exposure on the GPU when available")
}

// setup loads configuration, applies flag overrides and builds the shared logger and runner.
func (a *app) setup(fs *pflag.FlagSet) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if fs.Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if fs.Changed("gpu") {
		cfg.GPU = a.useGPU
	}
	if fs.Lookup("addr") != nil && fs.Changed("addr") {
		cfg.Server.Addr, _ = fs.GetString("addr")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	level, _ := cfg.Log.ZerologLevel()
	a.cfg = cfg
	a.log = logging.New(os.Stderr, level, cfg.Log.Console)

	opts := []pipeline.Option{pipeline.WithLogger(a.log)}
	if cfg.GPU {
		gpu, err := filters.OpenGPU()
		if err != nil {
			a.log.Warn().Err(err).Msg("GPU unavailable, using CPU")
		} else {
			a.gpu = gpu
			opts = append(opts, pipeline.WithGPU(gpu))
		}
	}
	a.runner = pipeline.NewRunner(opts...)
	return nil
}

func (a *app) output() imageio.Options {
	return imageio.Options{JPEGQuality: a.cfg.Output.JPEGQuality, PNGCompression: a.cfg.Output.PNGCompression}
}

func (a *app) menuCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "menu [image]",
		Short: "Interactive text menu",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := session.New(a.log, a.runner, a.output())
			if len(args) == 1 {
				if err := s.Load(args[0]); err != nil {
					return err
				}
			}
			m := menu.New(s, cmd.InOrStdin(), cmd.OutOrStdout(), a.cfg.Preview.Width)
			err := m.Run(cmd.Context())
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}

func (a *app) applyCmd() *cobra.Command {
	var in, out, steps string
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Run a step list over an image and save the result",
		Example: `  pixtone apply -i photo.jpg -o photo_enhanced.png -s "gamma=2.2,equalize,saturation=1.2"
  pixtone apply -i scan.tiff -o scan.jpg -s "contrast=1.5,sharpness=2"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := pipeline.Parse(steps)
			if err != nil {
				return err
			}
			if out == "" {
				out = menu.DefaultOutputPath(in)
			}
			s := session.New(a.log, a.runner, a.output())
			if err := s.Load(in); err != nil {
				return err
			}
			for _, step := range parsed {
				if err := s.Apply(cmd.Context(), step); err != nil {
					return err
				}
			}
			if err := s.Save(out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s [%s]\n", in, out, pipeline.Format(parsed))
			return nil
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&in, "input", "i", "", "input image")
	fs.StringVarP(&out, "output", "o", "", "output image, format from extension (default <input>_enhanced.png)")
	fs.StringVarP(&steps, "steps", "s", "", "comma separated steps, e.g. gamma=2,equalize,contrast=1.2")
	cmd.MarkFlagRequired("input")
	return cmd
}

func (a *app) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			srv := server.New(a.log, a.runner, a.output(), a.cfg.Server.MaxUploadMB)
			return srv.ListenAndServe(cmd.Context(), a.cfg.Server.Addr)
		},
	}
	cmd.Flags().String("addr", ":8080", "listen address")
	return cmd
}
