package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/diagramsync/pkg/errors"
	"github.com/matzehuels/diagramsync/pkg/history"
)

func (c *CLI) historyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "history",
		Aliases: []string{"hist"},
		Short:   "Browse diagrams recorded after generation and shape loads",
	}

	cmd.AddCommand(c.historyListCommand())
	cmd.AddCommand(c.historyShowCommand())
	cmd.AddCommand(c.historyRestoreCommand())
	cmd.AddCommand(c.historyDeleteCommand())

	return cmd
}

// withHistory opens the configured store, runs fn and closes the store.
func (c *CLI) withHistory(ctx context.Context, fn func(history.Store) error) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	store, err := newHistory(ctx, cfg)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New(errors.ErrCodeUnsupported, "history is disabled (backend \"none\")")
	}
	defer store.Close()
	return fn(store)
}

func (c *CLI) historyListCommand() *cobra.Command {
	limit := history.DefaultLimit

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded diagrams, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withHistory(cmd.Context(), func(store history.Store) error {
				entries, err := store.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					printInfo("History is empty")
					return nil
				}
				rows := make([][]string, len(entries))
				for i, e := range entries {
					rows[i] = []string{shortID(e.ID), string(e.Type), formatRelativeTime(e.Timestamp, time.Now()), e.Preview}
				}
				fmt.Fprintln(c.out, renderTable([]string{"ID", "Type", "When", "Preview"}, rows))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", limit, "maximum number of entries (0 for all)")
	return cmd
}

func (c *CLI) historyShowCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one recorded diagram",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withHistory(cmd.Context(), func(store history.Store) error {
				e, err := resolveEntry(cmd.Context(), store, args[0])
				if err != nil {
					return err
				}
				if asJSON {
					data, err := json.MarshalIndent(e, "", "  ")
					if err != nil {
						return err
					}
					_, err = c.out.Write(append(data, '\n'))
					return err
				}
				printKeyValue("ID", e.ID)
				printKeyValue("Type", string(e.Type))
				printKeyValue("Recorded", e.Timestamp.Local().Format(time.DateTime))
				if e.State.Title != "" {
					printKeyValue("Title", e.State.Title)
				}
				printKeyValue("Elements", fmt.Sprint(len(e.State.Elements)))
				if e.State.SourceText != "" {
					fmt.Fprintln(c.out)
					fmt.Fprint(c.out, e.State.SourceText)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full entry as JSON")
	return cmd
}

func (c *CLI) historyRestoreCommand() *cobra.Command {
	var output string
	var elementsOnly, copyText bool

	cmd := &cobra.Command{
		Use:   "restore <id>",
		Short: "Write a recorded diagram's source text or elements",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withHistory(cmd.Context(), func(store history.Store) error {
				e, err := resolveEntry(cmd.Context(), store, args[0])
				if err != nil {
					return err
				}
				if elementsOnly {
					return c.writeElements(output, e.State.Elements, copyText)
				}
				if e.State.SourceText == "" {
					return errors.New(errors.ErrCodeNotFound, "entry %s has no source text; use --elements", shortID(e.ID))
				}
				return c.writeOutput(output, []byte(e.State.SourceText), copyText)
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&elementsOnly, "elements", false, "write the canvas elements instead of the source")
	cmd.Flags().BoolVar(&copyText, "copy", false, "copy the result to the clipboard")
	return cmd
}

func (c *CLI) historyDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a recorded diagram",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withHistory(cmd.Context(), func(store history.Store) error {
				e, err := resolveEntry(cmd.Context(), store, args[0])
				if err != nil {
					return err
				}
				if err := store.Delete(cmd.Context(), e.ID); err != nil {
					return err
				}
				printSuccess("Deleted %s", shortID(e.ID))
				return nil
			})
		},
	}
}

// resolveEntry looks up id, accepting the short prefix shown by list.
func resolveEntry(ctx context.Context, store history.Store, id string) (*history.Entry, error) {
	e, err := store.Get(ctx, id)
	if err == nil || !errors.Is(err, errors.ErrCodeNotFound) || len(id) >= 36 {
		return e, err
	}
	entries, lerr := store.List(ctx, 0)
	if lerr != nil {
		return nil, lerr
	}
	var match *history.Entry
	for i := range entries {
		if len(entries[i].ID) >= len(id) && entries[i].ID[:len(id)] == id {
			if match != nil {
				return nil, errors.New(errors.ErrCodeInvalidInput, "id prefix %q is ambiguous", id)
			}
			match = &entries[i]
		}
	}
	if match == nil {
		return nil, err
	}
	return match, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatRelativeTime(t, now time.Time) string {
	diff := now.Sub(t)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return t.Format("Jan 2, 2006")
	}
}
