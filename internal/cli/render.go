package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/diagramsync/pkg/config"
	"github.com/matzehuels/diagramsync/pkg/controller"
	"github.com/matzehuels/diagramsync/pkg/errors"
	"github.com/matzehuels/diagramsync/pkg/export"
	"github.com/matzehuels/diagramsync/pkg/scene"
)

const (
	formatScene = "json" // scene JSON
	formatSVG   = export.FormatSVG
	formatPNG   = export.FormatPNG
)

// inputOpts are the flags shared by commands that read flowchart text.
type inputOpts struct {
	theme   string
	noCache bool
	paste   bool
}

func (o *inputOpts) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.theme, "theme", "", "color theme: light, dark (default from config)")
	cmd.Flags().BoolVar(&o.noCache, "no-cache", false, "disable the scene cache")
	cmd.Flags().BoolVar(&o.paste, "paste", false, "read the source from the clipboard")
}

// resolveTheme returns the flag value, falling back to the config theme.
func (o *inputOpts) resolveTheme(cfg config.Config) (string, error) {
	theme := o.theme
	if theme == "" {
		theme = cfg.Theme
	}
	return theme, errors.ValidateTheme(theme)
}

// renderFile reads source text from path and renders it through a
// controller. The returned controller holds the rendered state; call the
// returned func once done with it to release the scene cache.
func (c *CLI) renderFile(ctx context.Context, path string, opts *inputOpts) (*controller.Controller, func(), error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	theme, err := opts.resolveTheme(cfg)
	if err != nil {
		return nil, nil, err
	}
	data, err := readInput(path, opts.paste)
	if err != nil {
		return nil, nil, err
	}
	renderer, closeCache, err := c.newRenderer(ctx, cfg, opts.noCache)
	if err != nil {
		return nil, nil, err
	}

	logger := loggerFromContext(ctx)
	ctl := controller.New(controller.Options{Theme: theme, Renderer: renderer, Logger: logger})

	prog := newProgress(logger)
	if err := ctl.SetSource(ctx, string(data)); err != nil {
		closeCache()
		return nil, nil, err
	}
	ctl.Wait()
	if err := ctl.Err(); err != nil {
		closeCache()
		return nil, nil, err
	}
	sc := ctl.Scene()
	prog.done(fmt.Sprintf("Rendered %d nodes", len(sc.Nodes)))
	return ctl, closeCache, nil
}

// =============================================================================
// render
// =============================================================================

type renderOpts struct {
	inputOpts
	output   string
	format   string
	copyText bool
}

func (c *CLI) renderCommand() *cobra.Command {
	opts := renderOpts{format: formatScene}

	cmd := &cobra.Command{
		Use:   "render [file]",
		Short: "Lay out flowchart text and print the scene",
		Long: `Render lays out flowchart text with Graphviz and prints the resulting scene
as JSON (node ids, labels, shapes and bounds; edges with their routes) or
the raw SVG. Reads standard input when no file or "-" is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format := strings.ToLower(opts.format)
			if format != formatScene && format != formatSVG {
				return errors.New(errors.ErrCodeInvalidFormat, "invalid format: %q (must be one of: json, svg)", opts.format)
			}
			ctl, done, err := c.renderFile(cmd.Context(), firstArg(args), &opts.inputOpts)
			if err != nil {
				return err
			}
			defer done()
			sc := ctl.Scene()

			var data []byte
			if format == formatSVG {
				data, err = export.SVG(sc)
			} else {
				data, err = marshalScene(sc)
			}
			if err != nil {
				return err
			}
			if err := c.writeOutput(opts.output, data, opts.copyText); err != nil {
				return err
			}
			printStats(len(sc.Nodes), len(sc.Edges), sc.Direction)
			if opts.output != "" {
				printNextStep("Export as PNG", fmt.Sprintf("%s export %s -f png", appName, firstArg(args)))
			}
			return nil
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: json (default), svg")
	cmd.Flags().BoolVar(&opts.copyText, "copy", false, "copy the output to the clipboard")
	return cmd
}

func marshalScene(sc *scene.Scene) ([]byte, error) {
	data, err := json.MarshalIndent(sc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// =============================================================================
// export
// =============================================================================

type exportOpts struct {
	inputOpts
	output  string
	format  string
	scale   float64
	padding float64
}

func (c *CLI) exportCommand() *cobra.Command {
	opts := exportOpts{format: formatSVG, scale: 2, padding: 16}

	cmd := &cobra.Command{
		Use:   "export [file]",
		Short: "Export a rendered flowchart as SVG or PNG",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format := strings.ToLower(opts.format)
			if !export.ValidFormats[format] {
				return errors.New(errors.ErrCodeInvalidFormat, "invalid format: %q (must be one of: svg, png)", opts.format)
			}
			if format == formatPNG && opts.output == "" {
				return errors.New(errors.ErrCodeInvalidInput, "png output requires --output")
			}
			ctl, done, err := c.renderFile(cmd.Context(), firstArg(args), &opts.inputOpts)
			if err != nil {
				return err
			}
			defer done()
			data, err := export.Export(ctl.Scene(), format,
				export.WithTheme(ctl.Theme()),
				export.WithScale(opts.scale),
				export.WithPadding(opts.padding))
			if err != nil {
				return err
			}
			return c.writeOutput(opts.output, data, false)
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (required for png)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: svg (default), png")
	cmd.Flags().Float64Var(&opts.scale, "scale", opts.scale, "png pixel scale")
	cmd.Flags().Float64Var(&opts.padding, "padding", opts.padding, "png margin around the content")
	return cmd
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return stdinPath
	}
	return args[0]
}
