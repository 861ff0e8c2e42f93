package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// AskRequest represents the ask API request.
type AskRequest struct {
	Question   string `json:"question"`
	TopK       int    `json:"top_k,omitempty"`
	DocumentID string `json:"document_id,omitempty"`
	Category   string `json:"category,omitempty"`
	Tag        string `json:"tag,omitempty"`
}

// AskSource represents a cited source in an answer.
type AskSource struct {
	ChunkID        string  `json:"chunk_id"`
	DocumentID     string  `json:"document_id"`
	ChunkIndex     int     `json:"chunk_index"`
	RelevanceScore float32 `json:"relevance_score"`
	Snippet        string  `json:"snippet"`
}

// AskResponse represents the ask API response.
type AskResponse struct {
	ID             string      `json:"id"`
	Question       string      `json:"question"`
	Answer         string      `json:"answer"`
	Confidence     float32     `json:"confidence"`
	Sources        []AskSource `json:"sources"`
	ModelUsed      string      `json:"model_used"`
	ProcessingTime float64     `json:"processing_time"`
	Cached         bool        `json:"cached"`
}

// AskCmd creates the ask command.
func AskCmd() *cobra.Command {
	var (
		topK       int
		documentID string
		category   string
		tag        string
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question",
		Long:  "Asks a question against the indexed document library and prints the answer with cited sources.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runAsk(cmd, args[0], topK, documentID, category, tag, outputJSON)
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of chunks to retrieve")
	cmd.Flags().StringVar(&documentID, "document", "", "Restrict to a single document ID")
	cmd.Flags().StringVar(&category, "category", "", "Restrict to a category")
	cmd.Flags().StringVar(&tag, "tag", "", "Restrict to a tag")

	return cmd
}

func runAsk(cmd *cobra.Command, question string, topK int, documentID, category, tag string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	req := AskRequest{
		Question:   question,
		TopK:       topK,
		DocumentID: documentID,
		Category:   category,
		Tag:        tag,
	}

	resp, err := api.Post("/queries", req)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	var askResp AskResponse
	if err := json.Unmarshal(resp.Data, &askResp); err != nil {
		return fmt.Errorf("failed to parse answer: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(askResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Println(askResp.Answer)
	fmt.Println()
	fmt.Printf("Confidence: %.2f", askResp.Confidence)
	if askResp.Cached {
		fmt.Printf(" (cached)")
	}
	fmt.Println()

	if len(askResp.Sources) > 0 {
		fmt.Printf("\nSources:\n")
		for i, src := range askResp.Sources {
			snippet := src.Snippet
			if len(snippet) > 100 {
				snippet = snippet[:97] + "..."
			}
			snippet = strings.ReplaceAll(snippet, "\n", " ")
			fmt.Printf("%d. [%.2f] %s (chunk %d)\n   %s\n", i+1, src.RelevanceScore, src.DocumentID, src.ChunkIndex, snippet)
		}
	}

	return nil
}
