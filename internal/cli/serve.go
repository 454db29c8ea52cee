package cli

import (
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/matzehuels/diagramsync/pkg/server"
)

func (c *CLI) serveCommand() *cobra.Command {
	var addr string
	var noCache bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: `Serve exposes rendering, text rewrites, shape normalization, conversion,
export, generation and history over HTTP. The listen address, history
backend, cache and generation endpoint come from the config file and
environment; --addr overrides the address.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}

			renderer, closeCache, err := c.newRenderer(ctx, cfg, noCache)
			if err != nil {
				return err
			}
			defer closeCache()

			opts := []server.Option{
				server.WithLogger(c.Logger),
				server.WithTheme(cfg.Theme),
			}
			store, err := newHistory(ctx, cfg)
			if err != nil {
				return err
			}
			if store != nil {
				defer store.Close()
				opts = append(opts, server.WithHistory(store))
			}
			if gen := newGenerator(cfg); gen != nil {
				opts = append(opts, server.WithGenerator(gen))
			}

			c.Logger.Info("starting server",
				"addr", cfg.Addr,
				"history", cfg.History.Backend,
				"cache", cfg.Cache.Backend,
				"generate", cfg.Generate.Endpoint != "")

			err = server.New(renderer, opts...).ListenAndServe(ctx, cfg.Addr)
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8790)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the scene cache")
	return cmd
}
