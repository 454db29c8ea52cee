package cli

import (
	"errors"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/diagramsync/pkg/controller"
	"github.com/matzehuels/diagramsync/pkg/history"
)

func (c *CLI) editCommand() *cobra.Command {
	var opts inputOpts
	var restoreID string

	cmd := &cobra.Command{
		Use:   "edit [file]",
		Short: "Edit a flowchart interactively in the terminal",
		Long: `Edit opens a terminal editor on a flowchart file. Select a node and press
enter to rename it; the label is patched into the source and the diagram
re-renders. Orientation, shape injection, theme and pan mode are one key
away, and "s" writes the source back to the file.

A missing file starts an empty diagram that is created on first save.
--restore loads a history entry instead of the file's contents; saving
then overwrites the file with the restored source.`,
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

			var path string
			var source []byte
			if len(args) == 1 {
				path = args[0]
				source, err = os.ReadFile(path)
				if err != nil && !errors.Is(err, os.ErrNotExist) {
					return err
				}
			} else if opts.paste {
				if source, err = readInput("", true); err != nil {
					return err
				}
			}

			renderer, closeCache, err := c.newRenderer(ctx, cfg, opts.noCache)
			if err != nil {
				return err
			}
			defer closeCache()

			// The TUI owns the terminal, so the controller logs nowhere.
			ctl := controller.New(controller.Options{Theme: theme, Renderer: renderer})
			if restoreID != "" {
				err = c.withHistory(ctx, func(store history.Store) error {
					e, err := resolveEntry(ctx, store, restoreID)
					if err != nil {
						return err
					}
					ctl.Restore(ctx, e.State)
					return nil
				})
			} else {
				err = ctl.SetSource(ctx, string(source))
			}
			if err != nil {
				return err
			}

			var save SaveFunc
			if path != "" {
				save = func(text string) error { return os.WriteFile(path, []byte(text), 0644) }
			}
			model := NewEditorModel(ctx, ctl, path, save)
			if _, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
				return err
			}
			ctl.Wait()
			return nil
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVar(&restoreID, "restore", "", "start from a history entry (id or unique prefix)")
	return cmd
}
