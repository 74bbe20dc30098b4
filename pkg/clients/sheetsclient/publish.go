package sheetsclient

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/api/sheets/v4"

	"github.com/jakechorley/training-signups/pkg/export"
)

// PublishTable writes an exported table to the tab named after it. A missing
// tab is created; an existing one is cleared and overwritten, so publishing a
// re-resolved assignment replaces the old rows.
func (c *Client) PublishTable(ctx context.Context, spreadsheetID string, table export.Table) error {
	spreadsheet, err := c.service.Spreadsheets.Get(spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to get spreadsheet metadata: %w", err)
	}

	if findSheet(spreadsheet.Sheets, table.Title) == nil {
		if _, err := c.CreateSheet(ctx, spreadsheetID, table.Title); err != nil {
			return err
		}
		c.logger.Debug("Created tab", zap.String("tab", table.Title))
	} else {
		_, err := c.service.Spreadsheets.Values.
			Clear(spreadsheetID, tabRange(table.Title), &sheets.ClearValuesRequest{}).
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("failed to clear tab: %w", err)
		}
	}

	valueRange := &sheets.ValueRange{Values: table.Values()}
	_, err = c.service.Spreadsheets.Values.Update(spreadsheetID, tabRange(table.Title)+"!A1", valueRange).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}

	c.logger.Info("Published assignment",
		zap.String("spreadsheet_id", spreadsheetID),
		zap.String("tab", table.Title),
		zap.Int("rows", len(table.Rows)))
	return nil
}

func findSheet(sheetList []*sheets.Sheet, title string) *sheets.Sheet {
	for _, sheet := range sheetList {
		if sheet.Properties != nil && sheet.Properties.Title == title {
			return sheet
		}
	}
	return nil
}

// tabRange quotes a tab title for A1 notation
func tabRange(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}
