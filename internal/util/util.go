package util

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

func NowISO() string {
	return time.Now().Format(time.RFC3339)
}

func HMACSHA256Hex(secret, msg string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(msg))
	return hex.EncodeToString(mac.Sum(nil))
}

// ExportToken signs the export link of one competition.
func ExportToken(secret, competitionID string) string {
	return HMACSHA256Hex(secret, "export:"+competitionID)
}

// ValidExportToken compares in constant time.
func ValidExportToken(secret, competitionID, token string) bool {
	expected := ExportToken(secret, competitionID)
	return hmac.Equal([]byte(expected), []byte(token))
}
