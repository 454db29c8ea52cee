package cli

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/matzehuels/diagramsync/pkg/config"
	"github.com/matzehuels/diagramsync/pkg/controller"
	"github.com/matzehuels/diagramsync/pkg/elements"
	"github.com/matzehuels/diagramsync/pkg/history"
)

type shapesOpts struct {
	inputOpts
	output    string
	copyText  bool
	noHistory bool
}

func (o *shapesOpts) register(cmd *cobra.Command) {
	o.inputOpts.register(cmd)
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&o.copyText, "copy", false, "copy the elements to the clipboard")
	cmd.Flags().BoolVar(&o.noHistory, "no-history", false, "do not record the result in history")
}

// openHistory returns the configured store, or nil when disabled. The
// returned func closes it.
func (o *shapesOpts) openHistory(ctx context.Context, cfg config.Config) (history.Store, func(), error) {
	if o.noHistory {
		return nil, func() {}, nil
	}
	store, err := newHistory(ctx, cfg)
	if err != nil || store == nil {
		return nil, func() {}, err
	}
	return store, func() { _ = store.Close() }, nil
}

func (c *CLI) writeElements(path string, els []elements.Element, copyText bool) error {
	if els == nil {
		els = []elements.Element{}
	}
	data, err := json.MarshalIndent(els, "", "  ")
	if err != nil {
		return err
	}
	return c.writeOutput(path, append(data, '\n'), copyText)
}

// =============================================================================
// normalize
// =============================================================================

func (c *CLI) normalizeCommand() *cobra.Command {
	var opts shapesOpts

	cmd := &cobra.Command{
		Use:   "normalize [file]",
		Short: "Normalize a canvas shape list into canonical elements",
		Long: `Normalize reads a JSON shape list, either full canvas elements or loose
descriptors such as {"type": "rectangle", "label": "Start"}, and prints
canonical elements with ids, geometry defaults and theme colors filled in.
Fenced code blocks around the JSON are accepted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			theme, err := opts.resolveTheme(cfg)
			if err != nil {
				return err
			}
			data, err := readInput(firstArg(args), opts.paste)
			if err != nil {
				return err
			}
			store, closeStore, err := opts.openHistory(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			ctl := controller.New(controller.Options{
				Theme:   theme,
				History: store,
				Logger:  loggerFromContext(ctx),
			})
			els, err := ctl.LoadShapes(ctx, data)
			if err != nil {
				return err
			}
			return c.writeElements(opts.output, els, opts.copyText)
		},
	}

	opts.register(cmd)
	return cmd
}

// =============================================================================
// convert
// =============================================================================

func (c *CLI) convertCommand() *cobra.Command {
	var opts shapesOpts

	cmd := &cobra.Command{
		Use:   "convert [file]",
		Short: "Convert flowchart text into canvas elements",
		Long: `Convert renders flowchart text and turns the laid-out scene into canvas
elements: one shape per node with its label bound to it, and one arrow per
edge following the routed path.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			theme, err := opts.resolveTheme(cfg)
			if err != nil {
				return err
			}
			data, err := readInput(firstArg(args), opts.paste)
			if err != nil {
				return err
			}
			renderer, closeCache, err := c.newRenderer(ctx, cfg, opts.noCache)
			if err != nil {
				return err
			}
			defer closeCache()
			store, closeStore, err := opts.openHistory(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			ctl := controller.New(controller.Options{
				Theme:    theme,
				Renderer: renderer,
				History:  store,
				Logger:   loggerFromContext(ctx),
			})
			if err := ctl.SetSource(ctx, string(data)); err != nil {
				return err
			}
			ctl.Wait()
			if err := ctl.Err(); err != nil {
				return err
			}
			els, err := ctl.ConvertToElements(ctx)
			if err != nil {
				return err
			}
			return c.writeElements(opts.output, els, opts.copyText)
		},
	}

	opts.register(cmd)
	return cmd
}
