package sheets

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	sheetsv4 "google.golang.org/api/sheets/v4"

	"wedstrijd-bot/internal/models"
)

// Sheet tab titles are limited to 100 characters.
const maxTabTitle = 100

var rosterHeader = []interface{}{"Naam", "Paard", "Klasse", "Categorie", "Telefoon", "Opmerkingen", "Gecontacteerd", "Notitie"}

// PublishRoster replaces the contents of the tab for competition id with the
// current roster, creating the tab when it does not exist yet.
func (c *Client) PublishRoster(ctx context.Context, id string, ps []models.Participant) error {
	tab := TabTitle(id)
	if err := c.ensureTab(ctx, tab); err != nil {
		return err
	}
	rng := quoteTab(tab)
	if _, err := c.srv.Spreadsheets.Values.Clear(c.spreadsheetID, rng+"!A:Z", &sheetsv4.ClearValuesRequest{}).
		Context(ctx).
		Do(); err != nil {
		return fmt.Errorf("clear %s: %w", tab, err)
	}
	vr := &sheetsv4.ValueRange{Values: RosterRows(ps)}
	if _, err := c.srv.Spreadsheets.Values.Update(c.spreadsheetID, rng+"!A1", vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do(); err != nil {
		return fmt.Errorf("write %s: %w", tab, err)
	}
	logrus.WithFields(logrus.Fields{"competition": id, "tab": tab, "rows": len(ps)}).Info("roster published to sheet")
	return nil
}

func (c *Client) ensureTab(ctx context.Context, tab string) error {
	ss, err := c.srv.Spreadsheets.Get(c.spreadsheetID).
		Fields("sheets.properties.title").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == tab {
			return nil
		}
	}
	req := &sheetsv4.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsv4.Request{{
			AddSheet: &sheetsv4.AddSheetRequest{
				Properties: &sheetsv4.SheetProperties{Title: tab},
			},
		}},
	}
	if _, err := c.srv.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add tab %s: %w", tab, err)
	}
	return nil
}

// RosterRows is the header row followed by one row per participant.
func RosterRows(ps []models.Participant) [][]interface{} {
	rows := make([][]interface{}, 0, len(ps)+1)
	rows = append(rows, rosterHeader)
	for _, p := range ps {
		contacted := "nee"
		if p.Contacted {
			contacted = "ja"
		}
		rows = append(rows, []interface{}{
			p.FullName, p.HorseName, p.Class, p.Category, p.Phone, p.Remarks, contacted, p.Note,
		})
	}
	return rows
}

func TabTitle(id string) string {
	r := []rune(id)
	if len(r) > maxTabTitle {
		r = r[:maxTabTitle]
	}
	return string(r)
}

// quoteTab quotes a tab title for use in A1 notation.
func quoteTab(tab string) string {
	return "'" + strings.ReplaceAll(tab, "'", "''") + "'"
}
