package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/diagramsync/pkg/config"
	"github.com/matzehuels/diagramsync/pkg/controller"
	"github.com/matzehuels/diagramsync/pkg/errors"
	"github.com/matzehuels/diagramsync/pkg/generate"
)

// newGenerator returns a client for the configured generation service, or
// nil when no endpoint is set.
func newGenerator(cfg config.Config) generate.Client {
	if cfg.Generate.Endpoint == "" {
		return nil
	}
	var opts []generate.HTTPOption
	if cfg.Generate.APIKey != "" {
		opts = append(opts, generate.WithAPIKey(cfg.Generate.APIKey))
	}
	return generate.NewHTTPClient(cfg.Generate.Endpoint, opts...)
}

type generateOpts struct {
	shapesOpts
	kind  string
	title string
}

func (c *CLI) generateCommand() *cobra.Command {
	opts := generateOpts{kind: string(generate.KindText)}

	cmd := &cobra.Command{
		Use:   "generate <prompt...>",
		Short: "Ask the generation service for a diagram",
		Long: `Generate sends a natural-language prompt to the generation service
configured under [generate] (or DIAGRAMSYNC_GENERATE_URL) and prints the
result: flowchart text for --kind text, canvas elements for --kind shapes.
Results are recorded in history.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			kind := generate.Kind(strings.ToLower(opts.kind))
			if kind != generate.KindText && kind != generate.KindShapes {
				return errors.New(errors.ErrCodeInvalidInput, "invalid kind: %q (must be one of: text, shapes)", opts.kind)
			}
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			client := newGenerator(cfg)
			if client == nil {
				return errors.New(errors.ErrCodeUnsupported, "no generation endpoint configured")
			}
			theme, err := opts.resolveTheme(cfg)
			if err != nil {
				return err
			}
			store, closeStore, err := opts.openHistory(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			renderer, closeCache, err := c.newRenderer(ctx, cfg, opts.noCache)
			if err != nil {
				return err
			}
			defer closeCache()

			ctl := controller.New(controller.Options{
				Theme:    theme,
				Renderer: renderer,
				History:  store,
				Logger:   loggerFromContext(ctx),
			})
			prompt := strings.Join(args, " ")

			spin := newSpinner(ctx, "Generating...")
			spin.Start()

			if kind == generate.KindShapes {
				data, err := generate.Shapes(ctx, client, prompt)
				if err != nil {
					spin.StopWithError(errors.UserMessage(err))
					return err
				}
				els, err := ctl.LoadShapes(ctx, data)
				if err != nil {
					spin.StopWithError(errors.UserMessage(err))
					return err
				}
				spin.Stop()
				return c.writeElements(opts.output, els, opts.copyText)
			}

			src, err := generate.Text(ctx, client, prompt)
			if err != nil {
				spin.StopWithError(errors.UserMessage(err))
				return err
			}
			if err := ctl.ApplyGenerated(ctx, src, opts.title); err != nil {
				spin.StopWithError(errors.UserMessage(err))
				return err
			}
			ctl.Wait()
			spin.Stop()
			if err := ctl.Err(); err != nil {
				printWarning("Generated text does not render: %s", errors.UserMessage(err))
			} else {
				sc := ctl.Scene()
				printStats(len(sc.Nodes), len(sc.Edges), sc.Direction)
			}
			return c.writeOutput(opts.output, []byte(src), opts.copyText)
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVarP(&opts.kind, "kind", "k", opts.kind, "what to generate: text (default), shapes")
	cmd.Flags().StringVar(&opts.title, "title", "", "title recorded with the history entry")
	return cmd
}
