package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/claimscope/claimscope/pkg/client"
)

// priorArtResult renders blocking patents as a table.
type priorArtResult struct {
	*client.PriorArtReport
}

func (r priorArtResult) TableHeaders() []string {
	return []string{"PATENT", "TITLE", "RISK", "BLOCKING CLAIMS"}
}

func (r priorArtResult) TableRows() [][]string {
	rows := make([][]string, 0, len(r.BlockingPatents))
	for _, bp := range r.BlockingPatents {
		rows = append(rows, []string{
			bp.Patent.PatentNumber,
			truncateCell(bp.Patent.Title, 50),
			bp.OverallRisk,
			fmt.Sprintf("%d", len(bp.BlockingClaims)),
		})
	}
	return rows
}

// NewPriorArtCmd builds the freedom-to-operate scan command.
func NewPriorArtCmd() *cobra.Command {
	var (
		file    string
		limit   int
		analyze bool
	)

	cmd := &cobra.Command{
		Use:   "priorart [description]",
		Short: "Scan stored patents for prior art blocking an invention",
		Long:  "Scans the corpus for patents whose claims overlap an invention\ndescription. The description is taken from the arguments, from --file,\nor from stdin when neither is given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			description, err := readDescription(cmd, args, file)
			if err != nil {
				return err
			}

			ctx, cancel := cliCtx.requestContext(cmd)
			defer cancel()

			report, err := cliCtx.Client.Analysis().PriorArt(ctx, client.PriorArtRequest{
				InventionDescription: description,
				Limit:                limit,
				IncludeAnalysis:      analyze,
			})
			if err != nil {
				return err
			}

			if cliCtx.OutputFormat == "json" {
				return PrintResult(cmd, report)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Patents searched:   %d\n", report.PatentsSearched)
			fmt.Fprintf(out, "Overall risk:       %s\n", report.OverallRisk)
			fmt.Fprintf(out, "Freedom to operate: %s\n", report.FreedomToOperate)
			if report.Degraded {
				fmt.Fprintln(cmd.ErrOrStderr(), "Warning: semantic layer unavailable, scan was fuzzy-only")
			}

			if len(report.BlockingPatents) == 0 {
				fmt.Fprintln(out, "\nNo blocking patents found.")
			} else {
				fmt.Fprintln(out)
				fmt.Fprint(out, FormatTable(
					priorArtResult{report}.TableHeaders(),
					priorArtResult{report}.TableRows(),
				))
			}

			if report.Analysis != nil {
				fmt.Fprintf(out, "\n%s\n", report.Analysis.Summary)
				if report.Analysis.FreedomToOperate != "" {
					fmt.Fprintf(out, "Assessed freedom to operate: %s\n", report.Analysis.FreedomToOperate)
				}
				for _, risk := range report.Analysis.KeyRisks {
					fmt.Fprintf(out, "  - %s\n", risk)
				}
				for _, suggestion := range report.Analysis.DesignAroundSuggestions {
					fmt.Fprintf(out, "  * %s\n", suggestion)
				}
				if report.Analysis.Recommendation != "" {
					fmt.Fprintf(out, "Recommendation: %s\n", report.Analysis.Recommendation)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "read the invention description from a file")
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum number of blocking patents")
	cmd.Flags().BoolVar(&analyze, "analyze", false, "include a free-text risk analysis")

	return cmd
}

func readDescription(cmd *cobra.Command, args []string, file string) (string, error) {
	if len(args) > 0 && file != "" {
		return "", fmt.Errorf("provide the description as arguments or via --file, not both")
	}
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if file != "" {
		raw, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read description file: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}

	raw, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read description from stdin: %w", err)
	}
	description := strings.TrimSpace(string(raw))
	if description == "" {
		return "", fmt.Errorf("invention description is required")
	}
	return description, nil
}
