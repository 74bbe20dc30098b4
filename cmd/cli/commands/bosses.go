package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// CreateBossCmd creates the createBoss command
func CreateBossCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "createBoss <code> <name> <wing> <position>",
		Short: "Add a boss to the catalog",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			wing, err := parseInt("wing", args[2])
			if err != nil {
				return err
			}
			position, err := parseInt("position", args[3])
			if err != nil {
				return err
			}

			boss, err := app.Service.CreateBoss(app.Ctx, args[0], args[1], wing, position)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Boss %d created: W%d.%d %s (%s)\n\n", boss.ID, boss.Wing, boss.Position, boss.Name, boss.Code)
			return nil
		},
	}
}

// ListBossesCmd creates the listBosses command
func ListBossesCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "listBosses",
		Short: "List the boss catalog in wing order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bosses, err := app.Service.ListBosses(app.Ctx)
			if err != nil {
				return err
			}

			fmt.Printf("\nFound %d bosses:\n\n", len(bosses))
			for _, boss := range bosses {
				fmt.Printf("  %3d. W%d.%d %-8s %s\n", boss.ID, boss.Wing, boss.Position, boss.Code, boss.Name)
			}
			fmt.Println()
			return nil
		},
	}
}

// AttachBossCmd creates the attachBoss command
func AttachBossCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "attachBoss <training_id> <boss_id>",
		Short: "Add a boss to a training",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs("id", args)
			if err != nil {
				return err
			}
			if err := app.Service.AttachBoss(app.Ctx, ids[0], ids[1]); err != nil {
				return err
			}

			fmt.Printf("\n✓ Boss %d attached to training %d\n\n", ids[1], ids[0])
			return nil
		},
	}
}

// DetachBossCmd creates the detachBoss command
func DetachBossCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "detachBoss <training_id> <boss_id>",
		Short: "Remove a boss from a training and from every preference for it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs("id", args)
			if err != nil {
				return err
			}
			if err := app.Service.DetachBoss(app.Ctx, ids[0], ids[1]); err != nil {
				return err
			}

			fmt.Printf("\n✓ Boss %d detached from training %d\n\n", ids[1], ids[0])
			return nil
		},
	}
}

// SetPreferencesCmd creates the setPreferences command
func SetPreferencesCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "setPreferences <training_id> <participant> [boss_id...]",
		Short: "Set the bosses a participant wants to play (none clears the preference)",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			trainingID, err := parseID("training_id", args[0])
			if err != nil {
				return err
			}
			bossIDs, err := parseIDs("boss_id", args[2:])
			if err != nil {
				return err
			}

			if err := app.Service.SetPreferences(app.Ctx, trainingID, args[1], bossIDs); err != nil {
				return err
			}

			if len(bossIDs) == 0 {
				fmt.Printf("\n✓ %s has no boss preference for training %d\n\n", args[1], trainingID)
			} else {
				fmt.Printf("\n✓ %s prefers bosses %v for training %d\n\n", args[1], bossIDs, trainingID)
			}
			return nil
		},
	}
}
