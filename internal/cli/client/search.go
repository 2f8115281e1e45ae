package client

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// SearchRequest represents the search API request.
type SearchRequest struct {
	Query         string   `json:"query"`
	PersonaSlug   string   `json:"persona_slug"`
	TopK          int      `json:"top_k,omitempty"`
	Threshold     *float64 `json:"threshold,omitempty"`
	UseHybrid     *bool    `json:"use_hybrid,omitempty"`
	UseRerank     *bool    `json:"use_rerank,omitempty"`
	KeywordWeight *float64 `json:"keyword_weight,omitempty"`
}

// SearchResultChunk represents one ranked chunk in the response.
type SearchResultChunk struct {
	ID            string   `json:"id"`
	Content       string   `json:"content"`
	DocumentTitle *string  `json:"document_title,omitempty"`
	Similarity    float64  `json:"similarity"`
	KeywordRank   *int     `json:"keyword_rank,omitempty"`
	CombinedScore *float64 `json:"combined_score,omitempty"`
	RerankScore   float64  `json:"rerank_score"`
	RerankState   string   `json:"rerank_state"`
}

// SearchResponse represents the search API response.
type SearchResponse struct {
	Success     bool                `json:"success"`
	Chunks      []SearchResultChunk `json:"chunks"`
	Query       string              `json:"query,omitempty"`
	PersonaSlug string              `json:"persona_slug,omitempty"`
	SearchMode  string              `json:"search_mode,omitempty"`
	Error       string              `json:"error,omitempty"`
}

// SearchCmd creates the search command.
func SearchCmd() *cobra.Command {
	var (
		persona   string
		topK      int
		noHybrid  bool
		noRerank  bool
		threshold float64
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search a persona's knowledge",
		Long:  "Searches a persona's knowledge base with hybrid retrieval and reranking.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("json")
			return runSearch(cmd, args[0], persona, topK, noHybrid, noRerank, threshold, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&persona, "persona", "P", "", "Persona slug to search (required)")
	cmd.Flags().IntVarP(&topK, "top-k", "n", 0, "Maximum number of results")
	cmd.Flags().BoolVar(&noHybrid, "no-hybrid", false, "Disable the keyword leg, vector search only")
	cmd.Flags().BoolVar(&noRerank, "no-rerank", false, "Skip cross-encoder reranking")
	cmd.Flags().Float64Var(&threshold, "threshold", -1, "Minimum vector similarity (0..1)")
	cmd.Flags().Bool("json", false, "Output raw JSON")
	cmd.MarkFlagRequired("persona")

	return cmd
}

func runSearch(cmd *cobra.Command, query, persona string, topK int, noHybrid, noRerank bool, threshold float64, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd.Root())
	if err != nil {
		return err
	}
	api = api.Timeout(30 * time.Second)

	req := SearchRequest{
		Query:       query,
		PersonaSlug: persona,
		TopK:        topK,
	}
	if noHybrid {
		f := false
		req.UseHybrid = &f
	}
	if noRerank {
		f := false
		req.UseRerank = &f
	}
	if threshold >= 0 {
		req.Threshold = &threshold
	}

	var searchResp SearchResponse
	if err := api.PostJSON("/search", req, &searchResp); err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if !searchResp.Success {
		return fmt.Errorf("search failed: %s", searchResp.Error)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(searchResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(searchResp.Chunks) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Printf("Found %d results (%s):\n\n", len(searchResp.Chunks), searchResp.SearchMode)
	for i, chunk := range searchResp.Chunks {
		title := "untitled source"
		if chunk.DocumentTitle != nil && *chunk.DocumentTitle != "" {
			title = *chunk.DocumentTitle
		}

		score := chunk.RerankScore
		label := chunk.RerankState
		fmt.Printf("%d. %s (%.3f, %s)\n", i+1, title, score, label)

		content := chunk.Content
		if len(content) > 160 {
			content = content[:157] + "..."
		}
		fmt.Printf("   %s\n", content)
		fmt.Printf("   ID: %s\n", chunk.ID)
		if i < len(searchResp.Chunks)-1 {
			fmt.Println()
		}
	}

	return nil
}
