package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/training-signups/pkg/core/model"
	"github.com/jakechorley/training-signups/pkg/export"
)

// ResolveAssignmentCmd creates the resolveAssignment command
func ResolveAssignmentCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolveAssignment <training_id>",
		Short: "Preview the assignment of a closed training, or commit it with --commit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			trainingID, err := parseID("training_id", args[0])
			if err != nil {
				return err
			}
			commit, _ := cmd.Flags().GetBool("commit")

			assignment, err := app.Service.ResolveAssignment(app.Ctx, trainingID, commit)
			if err != nil {
				return err
			}

			if commit {
				fmt.Printf("\n✓ Assignment committed for training %d\n", trainingID)
			} else {
				fmt.Printf("\nPreview for training %d (not saved):\n", trainingID)
			}
			return printAssignment(app, trainingID, assignment)
		},
	}

	cmd.Flags().Bool("commit", false, "Save the assignment")

	return cmd
}

// ShowAssignmentCmd creates the showAssignment command
func ShowAssignmentCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "showAssignment <training_id>",
		Short: "Show the committed assignment of a training",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			trainingID, err := parseID("training_id", args[0])
			if err != nil {
				return err
			}

			assignment, err := app.Service.GetAssignment(app.Ctx, trainingID)
			if err != nil {
				return err
			}

			fmt.Printf("\nAssignment for training %d (resolved %s):\n", trainingID, assignment.ResolvedAt.Format("Jan 02 15:04"))
			return printAssignment(app, trainingID, assignment)
		},
	}
}

// ExportAssignmentCmd creates the exportAssignment command
func ExportAssignmentCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exportAssignment <training_id>",
		Short: "Write a committed assignment to a CSV file and/or the configured spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			trainingID, err := parseID("training_id", args[0])
			if err != nil {
				return err
			}
			csvPath, _ := cmd.Flags().GetString("csv")
			publish, _ := cmd.Flags().GetBool("publish")
			if csvPath == "" && !publish {
				return fmt.Errorf("nothing to do: pass --csv <path> and/or --publish")
			}

			table, err := app.Service.ExportAssignment(app.Ctx, trainingID)
			if err != nil {
				return err
			}

			if csvPath != "" {
				if err := writeCSVFile(csvPath, table); err != nil {
					return err
				}
				app.Logger.Info("Assignment written to CSV", zap.Int64("training_id", trainingID), zap.String("path", csvPath))
				fmt.Printf("\n✓ Wrote %d rows to %s\n", len(table.Rows), csvPath)
			}

			if publish {
				client, err := app.SheetsClient()
				if err != nil {
					return err
				}
				if err := client.PublishTable(app.Ctx, app.Cfg.Export.SpreadsheetID, table); err != nil {
					return err
				}
				fmt.Printf("\n✓ Published to sheet %q\n", table.Title)
			}

			fmt.Println()
			return nil
		},
	}

	cmd.Flags().String("csv", "", "Path of the CSV file to write")
	cmd.Flags().Bool("publish", false, "Publish to the configured spreadsheet")

	return cmd
}

func writeCSVFile(path string, table export.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := export.WriteCSV(f, table); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printAssignment(app *AppContext, trainingID int64, assignment *model.Assignment) error {
	roles, err := app.Service.ListRoles(app.Ctx, true)
	if err != nil {
		return err
	}
	signups, err := app.Service.ListSignups(app.Ctx, trainingID)
	if err != nil {
		return err
	}
	bosses, err := app.Service.ListTrainingBosses(app.Ctx, trainingID)
	if err != nil {
		return err
	}

	titles := roleTitles(roles)
	participants := make(map[int64]string, len(signups))
	for _, signup := range signups {
		participants[signup.ID] = signup.Participant
	}

	fmt.Printf("\nPlaced (%d):\n", len(assignment.Placements))
	for _, placement := range assignment.Placements {
		fmt.Printf("  %-20s %s\n", titles[placement.RoleID], participants[placement.SignupID])
	}

	if len(assignment.Unfilled) > 0 {
		fmt.Printf("\nUnfilled:\n")
		for _, unfilled := range assignment.Unfilled {
			fmt.Printf("  %-20s x%d\n", titles[unfilled.RoleID], unfilled.Count)
		}
	}

	if len(assignment.Benched) > 0 {
		fmt.Printf("\nBenched (%d):\n", len(assignment.Benched))
		for _, signupID := range assignment.Benched {
			fmt.Printf("  %s\n", participants[signupID])
		}
	}

	if len(assignment.BossRosters) > 0 {
		names := make(map[int64]string, len(bosses))
		for _, boss := range bosses {
			names[boss.ID] = boss.Name
		}
		fmt.Printf("\nBoss rosters:\n")
		for _, roster := range assignment.BossRosters {
			players := make([]string, len(roster.SignupIDs))
			for i, signupID := range roster.SignupIDs {
				players[i] = participants[signupID]
			}
			fmt.Printf("  %-20s %v\n", names[roster.BossID], players)
		}
	}
	fmt.Println()
	return nil
}
