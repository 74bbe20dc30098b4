package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// CreateRoleCmd creates the createRole command
func CreateRoleCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "createRole <title> <code> <glyph> <priority>",
		Short: "Add a role to the catalog (priority 0 is most critical, 4 least)",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			priority, err := parseInt("priority", args[3])
			if err != nil {
				return err
			}

			role, err := app.Service.CreateRole(app.Ctx, args[0], args[1], args[2], priority)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Role %d created: %s %s (%s), priority %d\n\n", role.ID, role.Glyph, role.Title, role.Code, role.Priority)
			return nil
		},
	}
}

// DeactivateRoleCmd creates the deactivateRole command
func DeactivateRoleCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deactivateRole <role_id>",
		Short: "Hide a role from new trainings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			roleID, err := parseID("role_id", args[0])
			if err != nil {
				return err
			}
			if err := app.Service.DeactivateRole(app.Ctx, roleID); err != nil {
				return err
			}

			fmt.Printf("\n✓ Role %d deactivated\n\n", roleID)
			return nil
		},
	}
}

// ListRolesCmd creates the listRoles command
func ListRolesCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "listRoles",
		Short: "List roles by priority",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			all, _ := cmd.Flags().GetBool("all")

			roles, err := app.Service.ListRoles(app.Ctx, all)
			if err != nil {
				return err
			}

			fmt.Printf("\nFound %d roles:\n\n", len(roles))
			for _, role := range roles {
				status := ""
				if !role.Active {
					status = " [inactive]"
				}
				fmt.Printf("  %3d. %s %-20s %-8s priority %d%s\n", role.ID, role.Glyph, role.Title, role.Code, role.Priority, status)
			}
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().Bool("all", false, "Include inactive roles")

	return cmd
}
