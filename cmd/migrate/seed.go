package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"eboto/config"
	"eboto/internal/access"
	"eboto/internal/domain/election"
	"eboto/internal/repository"
	"eboto/internal/services"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newSeedDevCmd() *cobra.Command {
	var voters int
	var email string
	cmd := &cobra.Command{
		Use:   "seed-dev",
		Short: "Create a sample PUBLIC election that opens in an hour",
		RunE: withDB(func(ctx context.Context, cfg *config.Config, db *sql.DB, _ []string) error {
			return seedDevelopment(ctx, cfg, db, email, voters)
		}),
	}
	cmd.Flags().IntVar(&voters, "voters", 10, "number of voters to create")
	cmd.Flags().StringVar(&email, "commissioner-email", "commissioner@eboto.dev", "email of the seeded commissioner")
	return cmd
}

func seedDevelopment(ctx context.Context, cfg *config.Config, db *sql.DB, email string, voters int) error {
	log.Println("🌱 Seeding database (development mode)...")
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	store := repository.NewStore(db)
	elections := services.NewElectionService(store, loc)
	owner := access.Authenticated(uuid.New(), email)

	start := time.Now().In(loc).Truncate(time.Hour).Add(time.Hour)
	e, err := elections.Create(ctx, owner, services.CreateElectionInput{
		Name:            "Supreme Student Council 2026",
		Slug:            fmt.Sprintf("ssc-%d", start.Unix()),
		Description:     "Development seed election",
		StartDate:       start,
		EndDate:         start.Add(48 * time.Hour),
		VotingHourStart: 0,
		VotingHourEnd:   24,
		Publicity:       election.PublicityPublic,
	})
	if err != nil {
		return fmt.Errorf("create election: %w", err)
	}

	roster := []struct {
		position   services.PositionInput
		candidates [][2]string
	}{
		{services.PositionInput{Name: "President", Min: 0, Max: 1}, [][2]string{{"Juan", "Dela Cruz"}, {"Maria", "Santos"}}},
		{services.PositionInput{Name: "Senator", Min: 1, Max: 3}, [][2]string{{"Jose", "Rizal"}, {"Andres", "Bonifacio"}, {"Gabriela", "Silang"}, {"Apolinario", "Mabini"}}},
	}
	for _, r := range roster {
		pos, err := elections.AddPosition(ctx, owner, e.ID, r.position)
		if err != nil {
			return fmt.Errorf("add position %s: %w", r.position.Name, err)
		}
		for i, name := range r.candidates {
			if _, err := elections.AddCandidate(ctx, owner, e.ID, services.CandidateInput{
				PositionID: pos.ID,
				Slug:       fmt.Sprintf("c%d-%s", i+1, pos.ID.String()[:8]),
				FirstName:  name[0],
				LastName:   name[1],
			}); err != nil {
				return fmt.Errorf("add candidate: %w", err)
			}
		}
	}

	for i := 0; i < voters; i++ {
		if _, err := elections.AddVoter(ctx, owner, e.ID, services.VoterInput{
			Email: fmt.Sprintf("voter%d@eboto.dev", i+1),
		}); err != nil {
			return fmt.Errorf("add voter: %w", err)
		}
	}

	log.Println("📊 Seed Summary:")
	log.Printf("   - Election: %s (%s)", e.Name, e.Slug)
	log.Printf("   - Commissioner: %s (%s)", email, owner.UserID)
	log.Printf("   - Voters: %d", voters)
	log.Printf("   - Opens at: %s", e.OpensAt(loc).Format(time.RFC3339))
	log.Println("✅ Development seeding completed!")
	return nil
}
