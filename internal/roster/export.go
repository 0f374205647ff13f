package roster

import (
	"encoding/csv"
	"io"

	"wedstrijd-bot/internal/models"
)

const (
	ColContacted = "Contacted"
	ColNote      = "Note"
)

var exportHeader = []string{ColName, ColHorse, ColClass, ColCategory, ColRemarks, ColPhone, ColContacted, ColNote}

// WriteCSV writes the roster with the same column names the importer reads,
// so an export can be imported into another competition.
func WriteCSV(w io.Writer, participants []models.Participant) error {
	cw := csv.NewWriter(w)
	cw.Comma = Delimiter
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	for _, p := range participants {
		contacted := "nee"
		if p.Contacted {
			contacted = "ja"
		}
		if err := cw.Write([]string{p.FullName, p.HorseName, p.Class, p.Category, p.Remarks, p.Phone, contacted, p.Note}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
