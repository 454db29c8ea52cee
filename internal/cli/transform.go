package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/diagramsync/pkg/errors"
	"github.com/matzehuels/diagramsync/pkg/flowchart"
)

// rewriteOpts are the flags shared by commands that rewrite source text.
type rewriteOpts struct {
	output   string
	inPlace  bool
	copyText bool
	paste    bool
}

func (o *rewriteOpts) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVarP(&o.inPlace, "write", "w", false, "write the result back to the input file")
	cmd.Flags().BoolVar(&o.copyText, "copy", false, "copy the result to the clipboard")
	cmd.Flags().BoolVar(&o.paste, "paste", false, "read the source from the clipboard")
}

func (o *rewriteOpts) target(path string) (string, error) {
	if !o.inPlace {
		return o.output, nil
	}
	if path == stdinPath || o.paste {
		return "", errors.New(errors.ErrCodeInvalidInput, "--write needs an input file")
	}
	if o.output != "" {
		return "", errors.New(errors.ErrCodeInvalidInput, "--write and --output are mutually exclusive")
	}
	return path, nil
}

func (o *rewriteOpts) readSource(path string) (string, error) {
	data, err := readInput(path, o.paste)
	if err != nil {
		return "", err
	}
	source := string(data)
	return source, errors.ValidateSource(source)
}

// =============================================================================
// orient
// =============================================================================

func (c *CLI) orientCommand() *cobra.Command {
	var opts rewriteOpts

	cmd := &cobra.Command{
		Use:   "orient [file]",
		Short: "Toggle the flowchart direction between TD and LR",
		Long: `Orient flips the direction keyword on the header line between top-down and
left-right. A missing or other direction becomes LR. Every other line is
left untouched.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := firstArg(args)
			dst, err := opts.target(path)
			if err != nil {
				return err
			}
			source, err := opts.readSource(path)
			if err != nil {
				return err
			}
			out := flowchart.ToggleOrientation(source)
			loggerFromContext(cmd.Context()).Debug("toggled orientation",
				"from", flowchart.Direction(source), "to", flowchart.Direction(out))
			return c.writeOutput(dst, []byte(out), opts.copyText)
		},
	}

	opts.register(cmd)
	return cmd
}

// =============================================================================
// inject
// =============================================================================

func (c *CLI) injectCommand() *cobra.Command {
	var opts rewriteOpts
	var label string

	cmd := &cobra.Command{
		Use:   "inject <shape> [file]",
		Short: "Append a node of the given shape",
		Long: fmt.Sprintf(`Inject appends a node declaration with a fresh id (N1, N2, ...) to the end
of the source, adding a "graph TD" header when there is none.

Shapes: %s`, strings.Join(flowchart.ShapeNames(), ", ")),
		Args:      cobra.RangeArgs(1, 2),
		ValidArgs: flowchart.ShapeNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := firstArg(args[1:])
			dst, err := opts.target(path)
			if err != nil {
				return err
			}
			source, err := opts.readSource(path)
			if err != nil {
				return err
			}
			out, id, err := flowchart.InjectShape(source, args[0], label)
			if err != nil {
				return err
			}
			if err := c.writeOutput(dst, []byte(out), opts.copyText); err != nil {
				return err
			}
			printSuccess("Added %s node %s", args[0], StyleHighlight.Render(id))
			return nil
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVarP(&label, "label", "l", "", "node label (default depends on shape)")
	return cmd
}

// =============================================================================
// patch
// =============================================================================

type patchOpts struct {
	rewriteOpts
	from    string
	to      string
	node    string
	theme   string
	noCache bool
}

func (c *CLI) patchCommand() *cobra.Command {
	var opts patchOpts

	cmd := &cobra.Command{
		Use:   "patch [file]",
		Short: "Rename a node label in the source text",
		Long: `Patch replaces the first bracketed or quoted occurrence of a label with new
text. Select the label with --from, or select a node by id with --node,
which renders the diagram and edits the node the way a click on it would.

When the label occurs more than once only the first occurrence changes.
A label that cannot be found leaves the source as it was.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (opts.from == "") == (opts.node == "") {
				return errors.New(errors.ErrCodeInvalidInput, "exactly one of --from or --node is required")
			}
			if err := errors.ValidateLabel(opts.to); err != nil {
				return err
			}
			path := firstArg(args)
			dst, err := opts.target(path)
			if err != nil {
				return err
			}

			var out string
			var changed bool
			if opts.node != "" {
				out, changed, err = c.patchNode(cmd, path, &opts)
			} else {
				var source string
				if source, err = opts.readSource(path); err == nil {
					out, changed = flowchart.ReplaceLabel(source, opts.from, opts.to)
				}
			}
			if err != nil {
				return err
			}
			if !changed {
				printWarning("No matching label; source unchanged")
			}
			return c.writeOutput(dst, []byte(out), opts.copyText)
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVar(&opts.from, "from", "", "current label text")
	cmd.Flags().StringVar(&opts.node, "node", "", "node id to relabel")
	cmd.Flags().StringVar(&opts.to, "to", "", "new label text")
	cmd.Flags().StringVar(&opts.theme, "theme", "", "color theme used for rendering")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the scene cache")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

// patchNode renders the source, opens an edit session on the node's center
// and commits the new label.
func (c *CLI) patchNode(cmd *cobra.Command, path string, opts *patchOpts) (string, bool, error) {
	ctx := cmd.Context()
	ctl, done, err := c.renderFile(ctx, path, &inputOpts{theme: opts.theme, noCache: opts.noCache, paste: opts.paste})
	if err != nil {
		return "", false, err
	}
	defer done()
	n, ok := ctl.Scene().Node(opts.node)
	if !ok {
		return "", false, errors.New(errors.ErrCodeNotFound, "node %q not found", opts.node)
	}
	at := ctl.Viewport().SceneToScreen(n.Bounds.Center())
	sess, err := ctl.OpenEdit(ctx, at)
	if err != nil {
		return "", false, err
	}
	if sess == nil {
		return "", false, errors.New(errors.ErrCodeNotFound, "node %q is not selectable", opts.node)
	}
	ctl.UpdateDraft(opts.to)
	changed, err := ctl.CommitEdit(ctx)
	ctl.Wait()
	return ctl.Source(), changed, err
}
