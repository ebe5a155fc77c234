package cli

import (
	"fmt"
	"strings"

	"pass-tui/internal/search"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newFindCmd(app *App) *cobra.Command {
	var limit int
	var showCost bool

	cmd := &cobra.Command{
		Use:   "find <query>",
		Short: "Fuzzy-search entry paths, best match first",
		Long: strings.TrimSpace(`
Matches the query as a case-insensitive subsequence of every entry path and
prints the matches ranked the same way as the interactive search. Exits with
an error when nothing matches.
`),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig()
			if err != nil {
				return err
			}
			tree, err := app.scan(cfg)
			if err != nil {
				return err
			}
			opts := searchOptions(cfg)
			if cmd.Flags().Changed("limit") {
				opts.Limit = limit
			}

			query := strings.Join(args, " ")
			results := search.New(opts).Search(tree, query)
			if len(results) == 0 {
				return noMatchError{query: query}
			}
			hl := color.New(color.FgYellow, color.Bold).SprintFunc()
			out := cmd.OutOrStdout()
			for _, r := range results {
				line := highlight(r.Path(), r.Matched, hl)
				if showCost {
					line = fmt.Sprintf("%6d  %s", r.Cost, line)
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results (0 = all)")
	cmd.Flags().BoolVar(&showCost, "cost", false, "Prefix each match with its ranking cost")
	return cmd
}

func highlight(s string, offsets []int, hl func(a ...any) string) string {
	hit := make(map[int]bool, len(offsets))
	for _, o := range offsets {
		hit[o] = true
	}
	var b strings.Builder
	for off, r := range s {
		if hit[off] {
			b.WriteString(hl(string(r)))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
