package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// QueryListResult represents the query history API response.
type QueryListResult struct {
	Queries []AskResponse `json:"queries"`
	Total   int           `json:"total"`
	Limit   int           `json:"limit"`
	Offset  int           `json:"offset"`
}

// HistoryCmd creates the history command.
func HistoryCmd() *cobra.Command {
	var (
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past queries",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runHistory(cmd, limit, offset, outputJSON)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of queries")
	cmd.Flags().IntVar(&offset, "offset", 0, "Pagination offset")

	return cmd
}

func runHistory(cmd *cobra.Command, limit, offset int, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Get(fmt.Sprintf("/queries?limit=%d&offset=%d", limit, offset))
	if err != nil {
		return fmt.Errorf("history failed: %w", err)
	}

	var listResp QueryListResult
	if err := json.Unmarshal(resp.Data, &listResp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(listResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(listResp.Queries) == 0 {
		fmt.Println("No queries found.")
		return nil
	}

	fmt.Printf("%d of %d queries:\n\n", len(listResp.Queries), listResp.Total)
	for i, q := range listResp.Queries {
		fmt.Printf("%d. %s\n", i+1, q.Question)
		answer := strings.ReplaceAll(q.Answer, "\n", " ")
		if len(answer) > 120 {
			answer = answer[:117] + "..."
		}
		fmt.Printf("   %s\n", answer)
		fmt.Printf("   Confidence: %.2f, Sources: %d, ID: %s\n", q.Confidence, len(q.Sources), q.ID)
		if i < len(listResp.Queries)-1 {
			fmt.Println(strings.Repeat("-", 40))
		}
	}

	return nil
}
