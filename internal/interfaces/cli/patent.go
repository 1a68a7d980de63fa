package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/claimscope/claimscope/pkg/client"
)

// patentListResult renders a patent listing as a table.
type patentListResult struct {
	*client.PatentList
}

func (r patentListResult) TableHeaders() []string {
	return []string{"ID", "PATENT", "TITLE", "ASSIGNEE", "CLAIMS"}
}

func (r patentListResult) TableRows() [][]string {
	rows := make([][]string, 0, len(r.Patents))
	for _, p := range r.Patents {
		rows = append(rows, []string{
			p.ID,
			p.PatentNumber,
			truncateCell(p.Title, 40),
			p.Assignee,
			fmt.Sprintf("%d", len(p.Claims)),
		})
	}
	return rows
}

// claimListResult renders a claim set as a table.
type claimListResult struct {
	*client.ClaimList
}

func (r claimListResult) TableHeaders() []string {
	return []string{"#", "KIND", "INDEP", "PARENT", "TEXT"}
}

func (r claimListResult) TableRows() [][]string {
	rows := make([][]string, 0, len(r.Claims))
	for _, c := range r.Claims {
		parent := ""
		if c.ParentNumber > 0 {
			parent = fmt.Sprintf("%d", c.ParentNumber)
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", c.Number),
			c.Kind,
			fmt.Sprintf("%t", c.IsIndependent),
			parent,
			truncateCell(strings.ReplaceAll(c.Text, "\n", " "), 60),
		})
	}
	return rows
}

// NewPatentCmd builds the patent management command group.
func NewPatentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patent",
		Short: "Manage the stored patent corpus",
	}
	cmd.AddCommand(
		newPatentAddCmd(),
		newPatentGetCmd(),
		newPatentListCmd(),
		newPatentClaimsCmd(),
		newPatentParseCmd(),
	)
	return cmd
}

func newPatentAddCmd() *cobra.Command {
	var (
		number         string
		title          string
		abstract       string
		assignee       string
		classification string
		filingDate     string
		claimsFile     string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a patent and index its claims",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			req := client.CreatePatentRequest{
				PatentNumber:   number,
				Title:          title,
				Abstract:       abstract,
				Assignee:       assignee,
				Classification: classification,
				FilingDate:     filingDate,
			}
			if claimsFile != "" {
				raw, err := os.ReadFile(claimsFile)
				if err != nil {
					return fmt.Errorf("read claims file: %w", err)
				}
				req.ClaimsText = string(raw)
			}

			ctx, cancel := cliCtx.requestContext(cmd)
			defer cancel()

			p, err := cliCtx.Client.Patents().Create(ctx, req)
			if err != nil {
				return err
			}
			if cliCtx.OutputFormat == "json" {
				return PrintResult(cmd, p)
			}
			label := p.PatentNumber
			if label == "" {
				label = p.Title
			}
			PrintSuccess(cmd, fmt.Sprintf("patent %s stored as %s with %d claims",
				label, p.ID, len(p.Claims)))
			return nil
		},
	}

	cmd.Flags().StringVar(&number, "number", "", "publication number, e.g. US1234567")
	cmd.Flags().StringVar(&title, "title", "", "patent title (required)")
	cmd.Flags().StringVar(&abstract, "abstract", "", "patent abstract")
	cmd.Flags().StringVar(&assignee, "assignee", "", "patent assignee")
	cmd.Flags().StringVar(&classification, "classification", "", "IPC/CPC classification code")
	cmd.Flags().StringVar(&filingDate, "filing-date", "", "filing date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&claimsFile, "claims-file", "", "file with the raw claims text")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

func newPatentGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <patent-id>",
		Short: "Show one stored patent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := cliCtx.requestContext(cmd)
			defer cancel()

			p, err := cliCtx.Client.Patents().Get(ctx, args[0])
			if err != nil {
				return err
			}
			return PrintResult(cmd, p)
		},
	}
}

func newPatentListCmd() *cobra.Command {
	var (
		assignee string
		limit    int
		offset   int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored patents, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := cliCtx.requestContext(cmd)
			defer cancel()

			list, err := cliCtx.Client.Patents().List(ctx, client.ListPatentsRequest{
				Assignee: assignee,
				Limit:    limit,
				Offset:   offset,
			})
			if err != nil {
				return err
			}
			if list.Count == 0 {
				PrintSuccess(cmd, "no patents stored")
				return nil
			}
			return PrintResult(cmd, patentListResult{list})
		},
	}

	cmd.Flags().StringVar(&assignee, "assignee", "", "filter by assignee")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of patents")
	cmd.Flags().IntVar(&offset, "offset", 0, "pagination offset")

	return cmd
}

func newPatentClaimsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "claims <patent-id>",
		Short: "Show a patent's extracted claims",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := cliCtx.requestContext(cmd)
			defer cancel()

			claims, err := cliCtx.Client.Patents().Claims(ctx, args[0])
			if err != nil {
				return err
			}
			return PrintResult(cmd, claimListResult{claims})
		},
	}
}

func newPatentParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <patent-id>",
		Short: "Re-run claim extraction over a patent's stored claims text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := cliCtx.requestContext(cmd)
			defer cancel()

			claims, err := cliCtx.Client.Patents().ParseClaims(ctx, args[0])
			if err != nil {
				return err
			}
			if cliCtx.OutputFormat == "json" {
				return PrintResult(cmd, claims)
			}
			PrintSuccess(cmd, fmt.Sprintf("extracted %d claims", claims.Count))
			return nil
		},
	}
}
