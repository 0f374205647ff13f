package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

type Config struct {
	DataDir string

	TelegramToken string
	AdminTGIDs    map[int64]bool

	HTTPAddr      string
	BasePublicURL string
	ExportSecret  string

	SpreadsheetID            string
	GoogleServiceAccountJSON string

	LogLevel         string
	OutreachTemplate string
}

// FromEnv reads the environment. Only the settings every binary needs are
// checked here; see RequireBot.
func FromEnv() (Config, error) {
	var c Config
	c.DataDir = getEnv("DATA_DIR", "data")
	c.TelegramToken = getEnv("TELEGRAM_BOT_TOKEN", "")
	c.AdminTGIDs = parseAdminIDs(os.Getenv("ADMIN_TG_IDS"))

	c.HTTPAddr = getEnv("HTTP_ADDR", ":8080")
	c.BasePublicURL = strings.TrimRight(getEnv("BASE_PUBLIC_URL", ""), "/")
	c.ExportSecret = getEnv("EXPORT_SECRET", "change-me")

	c.SpreadsheetID = getEnv("GOOGLE_SHEETS_SPREADSHEET_ID", "")
	c.GoogleServiceAccountJSON = getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", "")

	c.LogLevel = getEnv("LOG_LEVEL", "info")
	c.OutreachTemplate = os.Getenv("OUTREACH_TEMPLATE")

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return c, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	if (c.SpreadsheetID == "") != (c.GoogleServiceAccountJSON == "") {
		return c, fmt.Errorf("GOOGLE_SHEETS_SPREADSHEET_ID and GOOGLE_SERVICE_ACCOUNT_JSON must be set together")
	}
	return c, nil
}

// RequireBot checks the settings the Telegram bot cannot run without.
func (c Config) RequireBot() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is empty")
	}
	if len(c.AdminTGIDs) == 0 {
		return fmt.Errorf("ADMIN_TG_IDS is empty")
	}
	return nil
}

func (c Config) SheetsEnabled() bool {
	return c.SpreadsheetID != ""
}

// ApplyLogLevel sets the logrus level; FromEnv already validated it.
func (c Config) ApplyLogLevel() {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func parseAdminIDs(raw string) map[int64]bool {
	m := map[int64]bool{}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return m
	}
	parts := strings.Split(raw, ",")
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			logrus.WithField("value", p).Warn("ignoring invalid ADMIN_TG_IDS entry")
			continue
		}
		m[v] = true
	}
	return m
}
