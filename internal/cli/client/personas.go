package client

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// Persona represents a persona in API responses.
type Persona struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type personaListPayload struct {
	Personas []Persona `json:"personas"`
}

// PersonasCmd creates the personas command.
func PersonasCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "personas",
		Short: "List available personas",
		Long:  "Lists the personas you can chat with or search.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("json")
			return runPersonas(cmd, outputJSON)
		},
	}

	cmd.Flags().Bool("json", false, "Output raw JSON")
	cmd.AddCommand(PersonaShowCmd())

	return cmd
}

func runPersonas(cmd *cobra.Command, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd.Root())
	if err != nil {
		return err
	}
	api = api.Timeout(30 * time.Second)

	resp, err := api.Get("/personas")
	if err != nil {
		return fmt.Errorf("failed to list personas: %w", err)
	}

	var payload personaListPayload
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		return fmt.Errorf("failed to parse personas: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(payload.Personas, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(payload.Personas) == 0 {
		fmt.Println("No personas available.")
		return nil
	}

	fmt.Println("Personas:")
	for _, p := range payload.Personas {
		fmt.Printf("  %s: %s\n", p.Slug, p.Name)
		if p.Description != "" {
			fmt.Printf("      %s\n", p.Description)
		}
	}

	return nil
}

// PersonaShowCmd creates the personas show command.
func PersonaShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <slug>",
		Short: "Show one persona",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPersonaShow(cmd, args[0])
		},
	}
}

func runPersonaShow(cmd *cobra.Command, slug string) error {
	api, err := NewAPIClientWithCmd(cmd.Root())
	if err != nil {
		return err
	}
	api = api.Timeout(30 * time.Second)

	resp, err := api.Get("/personas/" + slug)
	if err != nil {
		return fmt.Errorf("failed to fetch persona: %w", err)
	}

	var p Persona
	if err := json.Unmarshal(resp.Data, &p); err != nil {
		return fmt.Errorf("failed to parse persona: %w", err)
	}

	fmt.Printf("%s (%s)\n", p.Name, p.Slug)
	if p.Description != "" {
		fmt.Println(p.Description)
	}

	return nil
}
