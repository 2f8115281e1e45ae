package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// ChatRequest represents the chat API request.
type ChatRequest struct {
	PersonaSlug string `json:"persona_slug"`
	Message     string `json:"message"`
}

type chatDelta struct {
	Delta string `json:"delta"`
}

// ChatCmd creates the chat command.
func ChatCmd() *cobra.Command {
	var persona string

	cmd := &cobra.Command{
		Use:   "chat <message>",
		Short: "Chat with a persona",
		Long:  "Sends one message to a persona and streams the reply.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			showMode, _ := cmd.Flags().GetBool("show-mode")
			return runChat(cmd, persona, args[0], showMode)
		},
	}

	cmd.Flags().StringVarP(&persona, "persona", "P", "", "Persona slug to chat with (required)")
	cmd.Flags().Bool("show-mode", false, "Print the retrieval mode header after the reply")
	cmd.MarkFlagRequired("persona")

	return cmd
}

func runChat(cmd *cobra.Command, persona, message string, showMode bool) error {
	api, err := NewAPIClientWithCmd(cmd.Root())
	if err != nil {
		return err
	}

	req := ChatRequest{PersonaSlug: persona, Message: message}

	headers, err := api.PostStream("/chat", req, func(data string) error {
		var delta chatDelta
		if err := json.Unmarshal([]byte(data), &delta); err != nil {
			// Tolerate unknown event payloads; the stream format can grow.
			return nil
		}
		fmt.Print(delta.Delta)
		return nil
	})
	if err != nil {
		return fmt.Errorf("chat failed: %w", err)
	}
	fmt.Println()

	if showMode {
		if mode := headers.Get("X-Search-Mode"); mode != "" {
			fmt.Printf("[search mode: %s]\n", mode)
		}
	}

	return nil
}
