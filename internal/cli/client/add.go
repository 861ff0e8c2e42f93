package client

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// DocumentResult represents a document in API responses.
type DocumentResult struct {
	ID          string   `json:"id"`
	Filename    string   `json:"filename"`
	ContentType string   `json:"content_type"`
	FileSize    int64    `json:"file_size"`
	Status      string   `json:"status"`
	ChunkCount  int      `json:"chunk_count"`
	Error       string   `json:"error,omitempty"`
	Title       string   `json:"title,omitempty"`
	Category    string   `json:"category,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	UploadedAt  string   `json:"uploaded_at"`
}

// AddCmd creates the add command.
func AddCmd() *cobra.Command {
	var (
		title    string
		author   string
		category string
		tags     []string
	)

	cmd := &cobra.Command{
		Use:   "add <file>",
		Short: "Upload a document",
		Long:  "Uploads a document for chunking and indexing. Supported: .txt, .csv, .md, .pdf",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runAdd(cmd, args[0], title, author, category, tags, outputJSON)
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Document title")
	cmd.Flags().StringVar(&author, "author", "", "Document author")
	cmd.Flags().StringVar(&category, "category", "", "Document category")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Document tag (repeatable)")

	return cmd
}

func runAdd(cmd *cobra.Command, filePath, title, author, category string, tags []string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	contentType, err := detectContentType(filePath)
	if err != nil {
		return err
	}

	fields := map[string]string{
		"title":    title,
		"author":   author,
		"category": category,
		"tags":     strings.Join(tags, ","),
	}

	resp, err := api.UploadDocument("/documents", filePath, contentType, fields)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
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

	fmt.Printf("Uploaded %s (%d bytes)\n", doc.Filename, doc.FileSize)
	fmt.Printf("ID: %s\n", doc.ID)
	fmt.Printf("Status: %s (processing happens in the background)\n", doc.Status)
	return nil
}

func detectContentType(filePath string) (string, error) {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".txt":
		return "text/plain", nil
	case ".csv":
		return "text/csv", nil
	case ".md", ".markdown":
		return "text/markdown", nil
	case ".pdf":
		return "application/pdf", nil
	default:
		return "", fmt.Errorf("unsupported file type: %s (supported: .txt, .csv, .md, .pdf)", filepath.Ext(filePath))
	}
}
