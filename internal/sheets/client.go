package sheets

import (
	"context"
	"errors"
	"fmt"
	"os"

	"google.golang.org/api/option"
	sheetsv4 "google.golang.org/api/sheets/v4"
)

var ErrNoSpreadsheet = errors.New("spreadsheet id is empty")

// Client publishes competition rosters to one spreadsheet, one tab per
// competition. The JSON store stays the source of truth; the spreadsheet is
// only ever overwritten, never read back.
type Client struct {
	srv           *sheetsv4.Service
	spreadsheetID string
}

// New authenticates with a service account key file. The account needs edit
// access to the spreadsheet.
func New(ctx context.Context, serviceAccountJSONPath, spreadsheetID string) (*Client, error) {
	if spreadsheetID == "" {
		return nil, ErrNoSpreadsheet
	}
	if _, err := os.Stat(serviceAccountJSONPath); err != nil {
		return nil, fmt.Errorf("service account json: %w", err)
	}
	srv, err := sheetsv4.NewService(ctx,
		option.WithCredentialsFile(serviceAccountJSONPath),
		option.WithScopes(sheetsv4.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{srv: srv, spreadsheetID: spreadsheetID}, nil
}

func (c *Client) SpreadsheetID() string { return c.spreadsheetID }

// URL is the link the bot hands out after publishing.
func (c *Client) URL() string {
	return "https://docs.google.com/spreadsheets/d/" + c.spreadsheetID
}
