package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// CreateTierCmd creates the createTier command
func CreateTierCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "createTier <name> <rank>",
		Short: "Add an eligibility tier (higher rank is more privileged, starting at 1)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rank, err := parseInt("rank", args[1])
			if err != nil {
				return err
			}

			tier, err := app.Service.CreateTier(app.Ctx, args[0], rank)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Tier %d created: %s (rank %d)\n\n", tier.ID, tier.Name, tier.Rank)
			return nil
		},
	}
}

// DeleteTierCmd creates the deleteTier command
func DeleteTierCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deleteTier <tier_id>",
		Short: "Delete a tier that no training requires",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tierID, err := parseID("tier_id", args[0])
			if err != nil {
				return err
			}
			if err := app.Service.DeleteTier(app.Ctx, tierID); err != nil {
				return err
			}

			fmt.Printf("\n✓ Tier %d deleted\n\n", tierID)
			return nil
		},
	}
}

// MapTierCmd creates the mapTier command
func MapTierCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "mapTier <external_group_id> <tier_id>",
		Short: "Grant a tier to members of an external group (e.g. a Discord role id)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tierID, err := parseID("tier_id", args[1])
			if err != nil {
				return err
			}
			if err := app.Service.MapTier(app.Ctx, args[0], tierID); err != nil {
				return err
			}

			fmt.Printf("\n✓ Group %s mapped to tier %d\n\n", args[0], tierID)
			return nil
		},
	}
}

// UnmapTierCmd creates the unmapTier command
func UnmapTierCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "unmapTier <external_group_id>",
		Short: "Remove the tier mapping of an external group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Service.UnmapTier(app.Ctx, args[0]); err != nil {
				return err
			}

			fmt.Printf("\n✓ Group %s unmapped\n\n", args[0])
			return nil
		},
	}
}

// ListTiersCmd creates the listTiers command
func ListTiersCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "listTiers",
		Short: "List tiers and the external groups mapped to them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tiers, err := app.Service.ListTiers(app.Ctx)
			if err != nil {
				return err
			}
			mappings, err := app.Service.ListTierMappings(app.Ctx)
			if err != nil {
				return err
			}

			groups := make(map[int64][]string)
			for _, m := range mappings {
				groups[m.TierID] = append(groups[m.TierID], m.ExternalGroupID)
			}

			fmt.Printf("\nFound %d tiers:\n\n", len(tiers))
			for _, tier := range tiers {
				fmt.Printf("  %3d. %-20s rank %d  groups %v\n", tier.ID, tier.Name, tier.Rank, groups[tier.ID])
			}
			fmt.Println()
			return nil
		},
	}
}

// ResolveTierCmd creates the resolveTier command
func ResolveTierCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resolveTier <participant>",
		Short: "Show the tier a participant resolves to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tier, err := app.Service.ResolveParticipantTier(app.Ctx, args[0])
			if err != nil {
				return err
			}

			fmt.Printf("\n%s resolves to tier %s (rank %d)\n\n", args[0], tier.Name, tier.Rank)
			return nil
		},
	}
}
