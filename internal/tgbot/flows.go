package tgbot

import (
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const maxNoteLen = 500

// ---------- Create competition ----------

func (a *App) startCreateFlow(chatID int64) error {
	st := a.chat(chatID)
	st.Flow = "create"
	st.Step = 1
	st.Data = map[string]string{}
	return a.SendText(chatID, "Naam van de wedstrijd? (bv. Zomercup Heerde)\n/annuleer om te stoppen")
}

func (a *App) handleCreateFlow(chatID int64, txt string, st *chatState) error {
	switch st.Step {
	case 1:
		name := strings.TrimSpace(txt)
		if name == "" {
			return a.SendText(chatID, "Naam mag niet leeg zijn.")
		}
		st.Data["name"] = name
		st.Step = 2
		return a.SendText(chatID, "Datum? (JJJJ-MM-DD, bv. 2026-06-01)")
	case 2:
		date, ok := parseDate(txt)
		if !ok {
			return a.SendText(chatID, "Ongeldige datum. Gebruik JJJJ-MM-DD.")
		}
		id, err := a.svc.Create(st.Data["name"], date)
		if err != nil {
			return err
		}
		st.resetFlow()
		st.Competition = id
		logrus.WithFields(logrus.Fields{"chat": chatID, "competition": id}).Info("competition created via bot")
		if err := a.SendText(chatID, "✅ Wedstrijd aangemaakt: "+id); err != nil {
			return err
		}
		return a.showCompetition(chatID, id)
	}
	st.resetFlow()
	return a.SendText(chatID, "Reset. Gebruik /menu")
}

// parseDate accepts YYYY-MM-DD and returns it normalised.
func parseDate(s string) (string, bool) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return "", false
	}
	return t.Format(time.DateOnly), true
}

// ---------- Note ----------

func (a *App) startNoteFlow(chatID int64, id string, n int, st *chatState) error {
	_, p, ok, err := a.participant(id, n)
	if err != nil {
		return err
	}
	if !ok {
		return a.SendText(chatID, "Deelnemer niet gevonden.")
	}
	st.Flow = "note"
	st.Step = 1
	st.Data = map[string]string{
		"idx":   strconv.Itoa(n),
		"naam":  p.FullName,
		"paard": p.HorseName,
	}
	prompt := "Notitie voor " + p.FullName + " (" + p.HorseName + ")?\nStuur '-' om de notitie te wissen."
	if p.Note != "" {
		prompt += "\nHuidig: " + p.Note
	}
	return a.SendText(chatID, prompt)
}

func (a *App) handleNoteFlow(chatID int64, txt string, st *chatState) error {
	if ok, err := a.checkSelection(chatID, st); !ok {
		return err
	}
	note := strings.TrimSpace(txt)
	if note == "-" {
		note = ""
	}
	if len([]rune(note)) > maxNoteLen {
		return a.SendText(chatID, "Notitie is te lang (max "+strconv.Itoa(maxNoteLen)+" tekens).")
	}
	n, _ := strconv.Atoi(st.Data["idx"])
	_, p, ok, err := a.participant(st.Competition, n)
	if err != nil {
		return err
	}
	// the roster may have changed since the flow started
	if !ok || p.FullName != st.Data["naam"] || p.HorseName != st.Data["paard"] {
		st.resetFlow()
		return a.SendText(chatID, "Deelnemer niet gevonden, probeer opnieuw.")
	}
	if err := a.svc.SetNote(st.Competition, p.Key(), note); err != nil {
		return err
	}
	st.resetFlow()
	if err := a.SendText(chatID, "📝 Notitie opgeslagen."); err != nil {
		return err
	}
	return a.showParticipant(chatID, st.Competition, n)
}
