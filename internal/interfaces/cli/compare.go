package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/claimscope/claimscope/pkg/client"
)

// comparisonResult renders a comparison report's matches as a table.
type comparisonResult struct {
	*client.ComparisonReport
}

func (r comparisonResult) TableHeaders() []string {
	return []string{"SRC CLAIM", "TGT CLAIM", "SIMILARITY", "RISK"}
}

func (r comparisonResult) TableRows() [][]string {
	rows := make([][]string, 0, len(r.TopMatches))
	for _, m := range r.TopMatches {
		rows = append(rows, []string{
			fmt.Sprintf("%d", m.SourceClaim.Number),
			fmt.Sprintf("%d", m.TargetClaim.Number),
			fmt.Sprintf("%.3f", m.Similarity),
			m.RiskLevel,
		})
	}
	return rows
}

// NewCompareCmd builds the patent and claim comparison command.
func NewCompareCmd() *cobra.Command {
	var (
		claimLevel bool
		explain    bool
	)

	cmd := &cobra.Command{
		Use:   "compare <source-patent-id> <target-patent-id>",
		Short: "Compare two patents claim by claim and grade the risk",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			sourceID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("source patent id must be a UUID: %w", err)
			}
			targetID, err := uuid.Parse(args[1])
			if err != nil {
				return fmt.Errorf("target patent id must be a UUID: %w", err)
			}
			if sourceID == targetID {
				return fmt.Errorf("source and target patent must differ")
			}
			if explain && !claimLevel {
				return fmt.Errorf("--explain requires --claims")
			}

			ctx, cancel := cliCtx.requestContext(cmd)
			defer cancel()

			var report *client.ComparisonReport
			if claimLevel {
				report, err = cliCtx.Client.Analysis().CompareClaims(ctx, client.CompareClaimsRequest{
					SourcePatentID:     sourceID.String(),
					TargetPatentID:     targetID.String(),
					IncludeExplanation: explain,
				})
			} else {
				report, err = cliCtx.Client.Analysis().Compare(ctx, client.CompareRequest{
					SourcePatentID: sourceID.String(),
					TargetPatentID: targetID.String(),
				})
			}
			if err != nil {
				return err
			}

			if cliCtx.OutputFormat == "json" {
				return PrintResult(cmd, report)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Overall risk:       %s\n", report.OverallRisk)
			fmt.Fprintf(out, "Freedom to operate: %s\n", report.FreedomToOperate)
			fmt.Fprintf(out, "Highest similarity: %.3f\n", report.HighestSimilarity)
			fmt.Fprintf(out, "Independent claims at risk: %d\n", report.IndependentClaimsAtRisk)
			if report.Summary != "" {
				fmt.Fprintf(out, "\n%s\n", report.Summary)
			}
			if report.Recommendation != "" {
				fmt.Fprintf(out, "Recommendation: %s\n", report.Recommendation)
			}
			if report.Degraded {
				fmt.Fprintln(cmd.ErrOrStderr(), "Warning: embeddings unavailable, scores are fuzzy-only")
			}

			if len(report.TopMatches) > 0 {
				fmt.Fprintln(out)
				fmt.Fprint(out, FormatTable(
					comparisonResult{report}.TableHeaders(),
					comparisonResult{report}.TableRows(),
				))
				for _, m := range report.TopMatches {
					if m.OverlapAssessment != "" {
						fmt.Fprintf(out, "\nClaim %d vs %d: %s\n",
							m.SourceClaim.Number, m.TargetClaim.Number, m.OverlapAssessment)
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&claimLevel, "claims", false, "claim-level report with per-match detail")
	cmd.Flags().BoolVar(&explain, "explain", false, "include free-text overlap explanations (requires --claims)")

	return cmd
}
