package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// AnalyticsResult represents the analytics API response.
type AnalyticsResult struct {
	TotalQueries      int     `json:"total_queries"`
	AvgConfidence     float64 `json:"avg_confidence"`
	AvgProcessingTime float64 `json:"avg_processing_time"`
	QueriesLast24h    int     `json:"queries_last_24h"`
	IndexedChunks     int     `json:"indexed_chunks"`
	IndexedDocuments  int     `json:"indexed_documents"`
}

// AnalyticsCmd creates the analytics command.
func AnalyticsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Show query analytics",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runAnalytics(cmd, outputJSON)
		},
	}

	return cmd
}

func runAnalytics(cmd *cobra.Command, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Get("/analytics")
	if err != nil {
		return fmt.Errorf("analytics failed: %w", err)
	}

	var stats AnalyticsResult
	if err := json.Unmarshal(resp.Data, &stats); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(stats, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Total queries:      %d\n", stats.TotalQueries)
	fmt.Printf("Queries (24h):      %d\n", stats.QueriesLast24h)
	fmt.Printf("Avg confidence:     %.2f\n", stats.AvgConfidence)
	fmt.Printf("Avg processing (s): %.2f\n", stats.AvgProcessingTime)
	fmt.Printf("Indexed chunks:     %d\n", stats.IndexedChunks)
	fmt.Printf("Indexed documents:  %d\n", stats.IndexedDocuments)

	return nil
}
