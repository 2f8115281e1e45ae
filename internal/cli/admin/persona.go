package admin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/luminary-chat/luminary/internal/config"
	"github.com/luminary-chat/luminary/internal/domain"
	"github.com/luminary-chat/luminary/internal/repository"
	"github.com/spf13/cobra"
)

func PersonaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "persona",
		Short: "Manage personas",
		Long:  "Create, list, and archive chat personas",
	}

	cmd.AddCommand(PersonaCreateCmd())
	cmd.AddCommand(PersonaListCmd())
	cmd.AddCommand(PersonaArchiveCmd())
	cmd.AddCommand(PersonaStatsCmd())

	return cmd
}

func PersonaCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <slug> <name>",
		Short: "Create a new persona",
		Long:  "Create a new persona with the given slug and display name",
		Args:  cobra.ExactArgs(2),
		RunE:  runPersonaCreate,
	}

	cmd.Flags().StringP("description", "d", "", "Persona description shown to users")
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runPersonaCreate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	slug, name := args[0], args[1]
	description, _ := cmd.Flags().GetString("description")
	outputFormat, _ := cmd.Flags().GetString("output")

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	personaRepo := repository.NewPersonaRepository(pool)

	p := &domain.Persona{
		Slug:        slug,
		Name:        name,
		Description: description,
	}
	if err := personaRepo.Create(ctx, p); err != nil {
		return fmt.Errorf("failed to create persona: %w", err)
	}

	if outputFormat == "json" {
		data := map[string]interface{}{
			"id":         p.ID,
			"slug":       p.Slug,
			"name":       p.Name,
			"created_at": p.CreatedAt,
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		fmt.Printf("Persona created: %s (%s)\n", p.Name, p.Slug)
	}

	return nil
}

func PersonaListCmd() *cobra.Command {
	var includeArchived bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List personas",
		Long:  "List personas in the system",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			return runPersonaList(outputFormat, includeArchived)
		},
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	cmd.Flags().BoolVarP(&includeArchived, "all", "a", false, "Include archived personas")

	return cmd
}

func runPersonaList(outputFormat string, includeArchived bool) error {
	ctx := context.Background()

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	personaRepo := repository.NewPersonaRepository(pool)

	personas, err := personaRepo.List(ctx, includeArchived)
	if err != nil {
		return fmt.Errorf("failed to list personas: %w", err)
	}

	if outputFormat == "json" {
		data := make([]map[string]interface{}, len(personas))
		for i, p := range personas {
			data[i] = map[string]interface{}{
				"slug":     p.Slug,
				"name":     p.Name,
				"archived": p.Archived,
			}
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		if len(personas) == 0 {
			fmt.Println("No personas found")
			return nil
		}
		fmt.Println("Personas:")
		for _, p := range personas {
			marker := ""
			if p.Archived {
				marker = " [archived]"
			}
			fmt.Printf("  %s: %s%s\n", p.Slug, p.Name, marker)
		}
	}

	return nil
}

func PersonaArchiveCmd() *cobra.Command {
	var unarchive bool

	cmd := &cobra.Command{
		Use:   "archive <slug>",
		Short: "Archive a persona",
		Long:  "Archive a persona so it disappears from the public listing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPersonaArchive(args[0], !unarchive)
		},
	}

	cmd.Flags().BoolVar(&unarchive, "undo", false, "Restore an archived persona")

	return cmd
}

func runPersonaArchive(slug string, archived bool) error {
	ctx := context.Background()

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	personaRepo := repository.NewPersonaRepository(pool)

	if err := personaRepo.SetArchived(ctx, slug, archived); err != nil {
		return fmt.Errorf("failed to update persona: %w", err)
	}

	if archived {
		fmt.Printf("Persona archived: %s\n", slug)
	} else {
		fmt.Printf("Persona restored: %s\n", slug)
	}

	return nil
}

func PersonaStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <slug>",
		Short: "Show corpus stats for a persona",
		Long:  "Report how many knowledge chunks a persona has",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPersonaStats(args[0])
		},
	}
}

func runPersonaStats(slug string) error {
	ctx := context.Background()

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	personaRepo := repository.NewPersonaRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)

	persona, err := personaRepo.GetBySlug(ctx, slug)
	if err != nil {
		return fmt.Errorf("failed to load persona: %w", err)
	}

	count, err := chunkRepo.CountByPersona(ctx, slug)
	if err != nil {
		return fmt.Errorf("failed to count chunks: %w", err)
	}

	fmt.Printf("%s (%s): %d chunks\n", persona.Name, persona.Slug, count)
	return nil
}

func getDBPool(ctx context.Context) (*pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}
