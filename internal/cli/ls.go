package cli

import (
	"fmt"
	"io"
	"strings"

	"pass-tui/internal/storetree"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newLsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "ls [category]",
		Short: "Print the store as a tree",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig()
			if err != nil {
				return err
			}
			tree, err := app.scan(cfg)
			if err != nil {
				return err
			}
			node, title := tree.Root(), "Password Store"
			if len(args) == 1 {
				p := strings.Trim(strings.TrimSpace(args[0]), "/")
				if p != "" {
					n, ok := tree.FindCategory(p)
					if !ok {
						return errNotFound("category", p)
					}
					node, title = n, p
				}
			}
			writeTree(cmd.OutOrStdout(), title, node)
			return nil
		},
	}
}

// writeTree prints node's subtree with box-drawing guides, in store order.
func writeTree(w io.Writer, title string, node *storetree.Node) {
	dir := color.New(color.FgBlue, color.Bold).SprintFunc()
	fmt.Fprintln(w, dir(title))

	var walk func(n *storetree.Node, prefix string)
	walk = func(n *storetree.Node, prefix string) {
		children := n.Children()
		for i, ch := range children {
			branch, next := "├── ", "│   "
			if i == len(children)-1 {
				branch, next = "└── ", "    "
			}
			name := ch.Name()
			if ch.IsCategory() {
				name = dir(name)
			}
			fmt.Fprintln(w, prefix+branch+name)
			if ch.IsCategory() {
				walk(ch, prefix+next)
			}
		}
	}
	walk(node, "")
}
