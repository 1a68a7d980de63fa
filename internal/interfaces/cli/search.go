package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/claimscope/claimscope/pkg/client"
)

// searchResults renders a search response as a table.
type searchResults struct {
	*client.SearchResponse
}

func (r searchResults) TableHeaders() []string {
	return []string{"#", "PATENT", "TITLE", "VECTOR", "FUZZY", "COMBINED"}
}

func (r searchResults) TableRows() [][]string {
	rows := make([][]string, 0, len(r.Results))
	for i, res := range r.Results {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			res.Patent.PatentNumber,
			truncateCell(res.Patent.Title, 50),
			fmt.Sprintf("%.3f", res.VectorScore),
			fmt.Sprintf("%.3f", res.FuzzyScore),
			fmt.Sprintf("%.3f", res.CombinedScore),
		})
	}
	return rows
}

// NewSearchCmd builds the hybrid patent search command.
func NewSearchCmd() *cobra.Command {
	var (
		limit        int
		vectorWeight float64
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search patents with combined semantic and fuzzy scoring",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			req := client.SearchRequest{
				Query: strings.Join(args, " "),
				Limit: limit,
			}
			if cmd.Flags().Changed("vector-weight") {
				if vectorWeight < 0 || vectorWeight > 1 {
					return fmt.Errorf("vector-weight must be between 0.0 and 1.0, got %.2f", vectorWeight)
				}
				req.VectorWeight = &vectorWeight
			}

			ctx, cancel := cliCtx.requestContext(cmd)
			defer cancel()

			resp, err := cliCtx.Client.Analysis().Search(ctx, req)
			if err != nil {
				return err
			}
			if resp.Degraded {
				fmt.Fprintln(cmd.ErrOrStderr(), "Warning: semantic layer unavailable, results are fuzzy-only")
			}
			if len(resp.Results) == 0 {
				PrintSuccess(cmd, "no matching patents")
				return nil
			}
			return PrintResult(cmd, searchResults{resp})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "maximum number of results")
	cmd.Flags().Float64Var(&vectorWeight, "vector-weight", 0.7, "weight of the semantic component (0.0-1.0)")

	return cmd
}

func truncateCell(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
