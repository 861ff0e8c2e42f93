package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// DocumentListResult represents the document list API response.
type DocumentListResult struct {
	Documents []DocumentResult `json:"documents"`
	Total     int              `json:"total"`
	Limit     int              `json:"limit"`
	Offset    int              `json:"offset"`
}

// DocsCmd creates the docs command with list/get/delete subcommands.
func DocsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Manage documents",
	}

	cmd.AddCommand(docsListCmd())
	cmd.AddCommand(docsGetCmd())
	cmd.AddCommand(docsDeleteCmd())

	return cmd
}

func docsListCmd() *cobra.Command {
	var (
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runDocsList(cmd, limit, offset, outputJSON)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of documents")
	cmd.Flags().IntVar(&offset, "offset", 0, "Pagination offset")

	return cmd
}

func runDocsList(cmd *cobra.Command, limit, offset int, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Get(fmt.Sprintf("/documents?limit=%d&offset=%d", limit, offset))
	if err != nil {
		return fmt.Errorf("list failed: %w", err)
	}

	var listResp DocumentListResult
	if err := json.Unmarshal(resp.Data, &listResp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(listResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(listResp.Documents) == 0 {
		fmt.Println("No documents found.")
		return nil
	}

	fmt.Printf("%d of %d documents:\n\n", len(listResp.Documents), listResp.Total)
	for i, doc := range listResp.Documents {
		fmt.Printf("%d. %s [%s]\n", i+1, doc.Filename, doc.Status)
		fmt.Printf("   ID: %s\n", doc.ID)
		if doc.ChunkCount > 0 {
			fmt.Printf("   Chunks: %d\n", doc.ChunkCount)
		}
		if doc.Error != "" {
			fmt.Printf("   Error: %s\n", doc.Error)
		}
		if i < len(listResp.Documents)-1 {
			fmt.Println(strings.Repeat("-", 40))
		}
	}

	return nil
}

func docsGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runDocsGet(cmd, args[0], outputJSON)
		},
	}

	return cmd
}

func runDocsGet(cmd *cobra.Command, id string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Get("/documents/" + id)
	if err != nil {
		return fmt.Errorf("get failed: %w", err)
	}

	var doc DocumentResult
	if err := json.Unmarshal(resp.Data, &doc); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(doc, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("%s [%s]\n", doc.Filename, doc.Status)
	fmt.Printf("ID: %s\n", doc.ID)
	fmt.Printf("Type: %s, Size: %d bytes\n", doc.ContentType, doc.FileSize)
	fmt.Printf("Chunks: %d\n", doc.ChunkCount)
	if doc.Title != "" {
		fmt.Printf("Title: %s\n", doc.Title)
	}
	if doc.Category != "" {
		fmt.Printf("Category: %s\n", doc.Category)
	}
	if len(doc.Tags) > 0 {
		fmt.Printf("Tags: %s\n", strings.Join(doc.Tags, ", "))
	}
	if doc.Error != "" {
		fmt.Printf("Error: %s\n", doc.Error)
	}
	fmt.Printf("Uploaded: %s\n", doc.UploadedAt)

	return nil
}

func docsDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a document",
		Long:  "Deletes a document, its chunks, and its index entries.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDocsDelete(cmd, args[0])
		},
	}

	return cmd
}

func runDocsDelete(cmd *cobra.Command, id string) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	if _, err := api.Delete("/documents/" + id); err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}

	fmt.Printf("Deleted document %s\n", id)
	return nil
}
