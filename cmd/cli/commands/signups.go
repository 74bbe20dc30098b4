package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// RegisterCmd creates the register command
func RegisterCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "register <training_id> <participant> <role_id...>",
		Short: "Sign a participant up with the roles they accept (again to change roles)",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			trainingID, err := parseID("training_id", args[0])
			if err != nil {
				return err
			}
			roleIDs, err := parseIDs("role_id", args[2:])
			if err != nil {
				return err
			}

			signup, err := app.Service.Register(app.Ctx, trainingID, args[1], roleIDs)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ %s signed up for training %d with roles %v\n\n", signup.Participant, trainingID, signup.Roles)
			return nil
		},
	}
}

// WithdrawCmd creates the withdraw command
func WithdrawCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "withdraw <training_id> <participant>",
		Short: "Remove a participant's signup",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			trainingID, err := parseID("training_id", args[0])
			if err != nil {
				return err
			}
			if err := app.Service.Withdraw(app.Ctx, trainingID, args[1]); err != nil {
				return err
			}

			fmt.Printf("\n✓ %s withdrew from training %d\n\n", args[1], trainingID)
			return nil
		},
	}
}

// CommentCmd creates the comment command
func CommentCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "comment <training_id> <participant> [text...]",
		Short: "Set the comment on a signup (no text clears it)",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			trainingID, err := parseID("training_id", args[0])
			if err != nil {
				return err
			}
			text := strings.Join(args[2:], " ")

			if err := app.Service.SetComment(app.Ctx, trainingID, args[1], text); err != nil {
				return err
			}

			fmt.Printf("\n✓ Comment saved for %s on training %d\n\n", args[1], trainingID)
			return nil
		},
	}
}

// ListSignupsCmd creates the listSignups command
func ListSignupsCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "listSignups <training_id>",
		Short: "List a training's signups in registration order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			trainingID, err := parseID("training_id", args[0])
			if err != nil {
				return err
			}

			signups, err := app.Service.ListSignups(app.Ctx, trainingID)
			if err != nil {
				return err
			}
			roles, err := app.Service.ListRoles(app.Ctx, true)
			if err != nil {
				return err
			}
			titles := roleTitles(roles)

			fmt.Printf("\nFound %d signups:\n\n", len(signups))
			for i, signup := range signups {
				accepted := make([]string, len(signup.Roles))
				for j, roleID := range signup.Roles {
					accepted[j] = titles[roleID]
				}
				fmt.Printf("  %2d. %-20s %s", i+1, signup.Participant, strings.Join(accepted, ", "))
				if len(signup.Bosses) > 0 {
					fmt.Printf("  bosses %v", signup.Bosses)
				}
				fmt.Println()
			}
			fmt.Println()
			return nil
		},
	}
}

// MySignupsCmd creates the mySignups command
func MySignupsCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "mySignups <participant>",
		Short: "List a participant's signups for trainings that have not finished",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			signups, err := app.Service.ParticipantSignups(app.Ctx, args[0])
			if err != nil {
				return err
			}

			fmt.Printf("\n%s has %d signups:\n\n", args[0], len(signups))
			for _, ps := range signups {
				fmt.Printf("  %3d. %s  %-10s %s\n",
					ps.Training.ID,
					ps.Training.Date.Format("Mon Jan 02 2006 15:04"),
					ps.Training.State,
					ps.Training.Title,
				)
			}
			fmt.Println()
			return nil
		},
	}
}

// SetProfileCmd creates the setProfile command
func SetProfileCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "setProfile <participant> <account_name>",
		Short: "Record the game account a participant plays under",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := app.Service.SaveProfile(app.Ctx, args[0], args[1])
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ %s plays as %s\n\n", profile.Participant, profile.AccountName)
			return nil
		},
	}
}
