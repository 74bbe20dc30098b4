package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jakechorley/training-signups/pkg/core/model"
)

// CreateTrainingCmd creates the createTraining command
func CreateTrainingCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "createTraining <title> <date>",
		Short: "Create a training (date e.g. \"2025-03-04 19:00\", UTC)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := parseDate(args[1])
			if err != nil {
				return err
			}

			var tierID *int64
			if tier, _ := cmd.Flags().GetInt64("tier"); tier != 0 {
				tierID = &tier
			}

			training, err := app.Service.CreateTraining(app.Ctx, args[0], date, tierID)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Training %d created: %s on %s\n\n", training.ID, training.Title, training.Date.Format("Mon Jan 02 2006 15:04"))
			return nil
		},
	}

	cmd.Flags().Int64("tier", 0, "Id of the tier required to sign up")

	return cmd
}

// ScheduleTrainingsCmd creates the scheduleTrainings command
func ScheduleTrainingsCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scheduleTrainings <template> <count>",
		Short: "Create trainings from a configured template's recurrence rule",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tmpl, err := app.Cfg.Template(args[0])
			if err != nil {
				return err
			}
			count, err := parseInt("count", args[1])
			if err != nil {
				return err
			}

			from := time.Now().UTC()
			if fromArg, _ := cmd.Flags().GetString("from"); fromArg != "" {
				if from, err = parseDate(fromArg); err != nil {
					return err
				}
			}

			trainings, err := app.Service.ScheduleTrainings(app.Ctx, *tmpl, count, from)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Scheduled %d trainings from %s:\n\n", len(trainings), tmpl.Name)
			for _, training := range trainings {
				fmt.Printf("  %3d. %s  %s\n", training.ID, training.Date.Format("Mon Jan 02 2006 15:04"), training.Title)
			}
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().String("from", "", "First possible date (defaults to now)")

	return cmd
}

// ListTrainingsCmd creates the listTrainings command
func ListTrainingsCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "listTrainings [state...]",
		Short: "List trainings, optionally only those in the given states",
		RunE: func(cmd *cobra.Command, args []string) error {
			states := make([]model.TrainingState, 0, len(args))
			for _, arg := range args {
				state, err := model.ParseTrainingState(arg)
				if err != nil {
					return err
				}
				states = append(states, state)
			}

			trainings, err := app.Service.ListTrainings(app.Ctx, states...)
			if err != nil {
				return err
			}

			fmt.Printf("\nFound %d trainings:\n\n", len(trainings))
			for _, training := range trainings {
				fmt.Printf("  %3d. %s  %-10s %s\n", training.ID, training.Date.Format("Mon Jan 02 2006 15:04"), training.State, training.Title)
			}
			fmt.Println()
			return nil
		},
	}
}

// CountTrainingsCmd creates the countTrainings command
func CountTrainingsCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "countTrainings [state]",
		Short: "Count trainings in a state (defaults to published)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			state := model.StatePublished
			if len(args) > 0 {
				var err error
				if state, err = model.ParseTrainingState(args[0]); err != nil {
					return err
				}
			}

			count, err := app.Service.CountTrainings(app.Ctx, state)
			if err != nil {
				return err
			}

			fmt.Printf("\n%d trainings %s\n\n", count, state)
			return nil
		},
	}
}

// ShowTrainingCmd creates the showTraining command
func ShowTrainingCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "showTraining <training_id>",
		Short: "Show a training with its slots, bosses, signups and history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			trainingID, err := parseID("training_id", args[0])
			if err != nil {
				return err
			}

			training, err := app.Service.GetTraining(app.Ctx, trainingID)
			if err != nil {
				return err
			}
			roles, err := app.Service.ListRoles(app.Ctx, true)
			if err != nil {
				return err
			}
			slots, err := app.Service.ListSlots(app.Ctx, trainingID)
			if err != nil {
				return err
			}
			bosses, err := app.Service.ListTrainingBosses(app.Ctx, trainingID)
			if err != nil {
				return err
			}
			signups, err := app.Service.ListSignups(app.Ctx, trainingID)
			if err != nil {
				return err
			}
			history, err := app.Service.TrainingHistory(app.Ctx, trainingID)
			if err != nil {
				return err
			}

			titles := roleTitles(roles)

			fmt.Printf("\n%s (#%d)\n", training.Title, training.ID)
			fmt.Printf("Date:  %s\n", training.Date.Format("Mon Jan 02 2006 15:04"))
			fmt.Printf("State: %s\n", training.State)
			if training.TierID != nil {
				fmt.Printf("Tier:  %d\n", *training.TierID)
			}

			fmt.Printf("\nSlots:\n")
			for _, slot := range slots {
				fmt.Printf("  %-20s x%d\n", titles[slot.RoleID], slot.Count)
			}

			if len(bosses) > 0 {
				fmt.Printf("\nBosses:\n")
				for _, boss := range bosses {
					fmt.Printf("  W%d.%d %-8s %s\n", boss.Wing, boss.Position, boss.Code, boss.Name)
				}
			}

			fmt.Printf("\nSignups (%d):\n", len(signups))
			for _, signup := range signups {
				accepted := make([]string, len(signup.Roles))
				for i, roleID := range signup.Roles {
					accepted[i] = titles[roleID]
				}
				fmt.Printf("  %s  %-20s %v", signup.RegisteredAt.Format("Jan 02 15:04"), signup.Participant, accepted)
				if signup.Comment != "" {
					fmt.Printf("  %q", signup.Comment)
				}
				fmt.Println()
			}

			if len(history) > 0 {
				fmt.Printf("\nHistory:\n")
				for _, change := range history {
					fmt.Printf("  %s  %s -> %s\n", change.At.Format("Jan 02 15:04"), change.From, change.To)
				}
			}
			fmt.Println()
			return nil
		},
	}
}

// AdvanceTrainingCmd creates the advanceTraining command
func AdvanceTrainingCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "advanceTraining <training_id> <state>",
		Short: "Move a training to its next state (published, closed, started, finished)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			trainingID, err := parseID("training_id", args[0])
			if err != nil {
				return err
			}
			target, err := model.ParseTrainingState(args[1])
			if err != nil {
				return err
			}

			training, err := app.Service.Advance(app.Ctx, trainingID, target)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Training %d is now %s\n\n", training.ID, training.State)
			return nil
		},
	}
}

// SetTrainingTierCmd creates the setTrainingTier command
func SetTrainingTierCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "setTrainingTier <training_id> [tier_id]",
		Short: "Set the tier a training requires, or clear it when no tier is given",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			trainingID, err := parseID("training_id", args[0])
			if err != nil {
				return err
			}

			var tierID *int64
			if len(args) > 1 {
				id, err := parseID("tier_id", args[1])
				if err != nil {
					return err
				}
				tierID = &id
			}

			if err := app.Service.SetTrainingTier(app.Ctx, trainingID, tierID); err != nil {
				return err
			}

			if tierID == nil {
				fmt.Printf("\n✓ Training %d is open to everyone\n\n", trainingID)
			} else {
				fmt.Printf("\n✓ Training %d requires tier %d\n\n", trainingID, *tierID)
			}
			return nil
		},
	}
}

// DeleteTrainingCmd creates the deleteTraining command
func DeleteTrainingCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deleteTraining <training_id>",
		Short: "Delete a training with its signups and assignment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			trainingID, err := parseID("training_id", args[0])
			if err != nil {
				return err
			}
			if err := app.Service.DeleteTraining(app.Ctx, trainingID); err != nil {
				return err
			}

			fmt.Printf("\n✓ Training %d deleted\n\n", trainingID)
			return nil
		},
	}
}

// AddSlotsCmd creates the addSlots command
func AddSlotsCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "addSlots <training_id> <role_id> [count]",
		Short: "Add openings for a role to a training (default 1)",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			trainingID, err := parseID("training_id", args[0])
			if err != nil {
				return err
			}
			roleID, err := parseID("role_id", args[1])
			if err != nil {
				return err
			}
			count := 1
			if len(args) > 2 {
				if count, err = parseInt("count", args[2]); err != nil {
					return err
				}
			}

			if err := app.Service.AddSlots(app.Ctx, trainingID, roleID, count); err != nil {
				return err
			}

			fmt.Printf("\n✓ Added %d openings for role %d to training %d\n\n", count, roleID, trainingID)
			return nil
		},
	}
}

// RemoveSlotCmd creates the removeSlot command
func RemoveSlotCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "removeSlot <training_id> <role_id>",
		Short: "Remove one opening for a role from a training",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			trainingID, err := parseID("training_id", args[0])
			if err != nil {
				return err
			}
			roleID, err := parseID("role_id", args[1])
			if err != nil {
				return err
			}

			if err := app.Service.RemoveSlot(app.Ctx, trainingID, roleID); err != nil {
				return err
			}

			fmt.Printf("\n✓ Removed an opening for role %d from training %d\n\n", roleID, trainingID)
			return nil
		},
	}
}

func roleTitles(roles []model.Role) map[int64]string {
	titles := make(map[int64]string, len(roles))
	for _, role := range roles {
		titles[role.ID] = role.Title
	}
	return titles
}
