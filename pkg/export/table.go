package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/jakechorley/training-signups/pkg/core/model"
)

// Row statuses
const (
	StatusAssigned = "assigned"
	StatusBenched  = "benched"
	StatusOpen     = "open"
)

// Header is the column layout of every exported table
var Header = []string{"Participant", "Account", "Role", "Status", "Bosses", "Comment"}

// Table is a committed assignment flattened for spreadsheets
type Table struct {
	Title string
	Rows  [][]string
}

// Source is everything needed to render one training's assignment
type Source struct {
	Training   model.Training
	Assignment model.Assignment
	Roles      []model.Role
	Signups    []model.Signup
	Bosses     []model.Boss
	// Profiles by participant. Participants without one export a blank account.
	Profiles map[string]model.Profile
}

// BuildTable lists placements in fill order, then benched signups, then one
// row per opening left unfilled
func BuildTable(src Source) Table {
	roles := make(map[int64]model.Role, len(src.Roles))
	for _, role := range src.Roles {
		roles[role.ID] = role
	}
	signups := make(map[int64]model.Signup, len(src.Signups))
	for _, signup := range src.Signups {
		signups[signup.ID] = signup
	}
	bossCodes := make(map[int64]string, len(src.Bosses))
	for _, boss := range src.Bosses {
		bossCodes[boss.ID] = boss.Code
	}

	// Bosses each placed signup is rostered for, in roster order
	rostered := make(map[int64][]string)
	for _, roster := range src.Assignment.BossRosters {
		for _, signupID := range roster.SignupIDs {
			rostered[signupID] = append(rostered[signupID], bossCodes[roster.BossID])
		}
	}

	table := Table{Title: SheetTitle(src.Training)}

	for _, placement := range src.Assignment.Placements {
		signup := signups[placement.SignupID]
		table.Rows = append(table.Rows, []string{
			signup.Participant,
			src.Profiles[signup.Participant].AccountName,
			roleLabel(roles, placement.RoleID),
			StatusAssigned,
			strings.Join(rostered[placement.SignupID], ", "),
			signup.Comment,
		})
	}

	for _, signupID := range src.Assignment.Benched {
		signup := signups[signupID]
		table.Rows = append(table.Rows, []string{
			signup.Participant,
			src.Profiles[signup.Participant].AccountName,
			"",
			StatusBenched,
			"",
			signup.Comment,
		})
	}

	for _, unfilled := range src.Assignment.Unfilled {
		for i := 0; i < unfilled.Count; i++ {
			table.Rows = append(table.Rows, []string{"", "", roleLabel(roles, unfilled.RoleID), StatusOpen, "", ""})
		}
	}

	return table
}

func roleLabel(roles map[int64]model.Role, roleID int64) string {
	role, ok := roles[roleID]
	if !ok {
		return fmt.Sprintf("role %d", roleID)
	}
	return role.Title
}

// SheetTitle names the tab or file a training is exported to, e.g. "2025-03-04 Wing 1 (#12)"
func SheetTitle(training model.Training) string {
	return fmt.Sprintf("%s %s (#%d)", training.Date.Format("2006-01-02"), training.Title, training.ID)
}

// Values returns the header followed by the rows, shaped for the Sheets API
func (t Table) Values() [][]interface{} {
	values := make([][]interface{}, 0, len(t.Rows)+1)
	values = append(values, toInterfaces(Header))
	for _, row := range t.Rows {
		values = append(values, toInterfaces(row))
	}
	return values
}

func toInterfaces(row []string) []interface{} {
	out := make([]interface{}, len(row))
	for i, cell := range row {
		out[i] = cell
	}
	return out
}

// WriteCSV writes the header and rows as CSV
func WriteCSV(w io.Writer, t Table) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := writer.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}
	return nil
}
