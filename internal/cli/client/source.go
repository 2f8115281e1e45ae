package client

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

type chunkSourcePayload struct {
	ChunkID       string  `json:"chunk_id"`
	DocumentTitle *string `json:"document_title,omitempty"`
	DownloadURL   string  `json:"download_url"`
}

// SourceCmd creates the source command.
func SourceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "source <chunk-id>",
		Short: "Get the source document for a chunk",
		Long:  "Prints a download link for the document a search result was cut from.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSource(cmd, args[0])
		},
	}
}

func runSource(cmd *cobra.Command, chunkID string) error {
	api, err := NewAPIClientWithCmd(cmd.Root())
	if err != nil {
		return err
	}
	api = api.Timeout(30 * time.Second)

	resp, err := api.Get("/chunks/" + chunkID + "/source")
	if err != nil {
		return fmt.Errorf("failed to fetch source: %w", err)
	}

	var payload chunkSourcePayload
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		return fmt.Errorf("failed to parse source: %w", err)
	}

	if payload.DocumentTitle != nil && *payload.DocumentTitle != "" {
		fmt.Printf("%s\n", *payload.DocumentTitle)
	}
	fmt.Println(payload.DownloadURL)

	return nil
}
