// Package outreach renders the message an organizer sends to a participant.
package outreach

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/osteele/liquid"

	"wedstrijd-bot/internal/models"
)

const DefaultTemplate = `Hoi {{ voornaam | default: naam }}, je staat ingeschreven voor {{ wedstrijd }}` +
	`{% if datum != "" %} op {{ datum }}{% endif %} met {{ paard }}` +
	`{% if klasse != "" %} in klasse {{ klasse }}{% endif %}. Kun je je deelname bevestigen?`

type Renderer struct {
	tpl *liquid.Template
}

// NewRenderer parses src once; an empty src selects DefaultTemplate.
func NewRenderer(src string) (*Renderer, error) {
	if strings.TrimSpace(src) == "" {
		src = DefaultTemplate
	}
	engine := liquid.NewEngine()
	engine.RegisterFilter("default", func(value interface{}, fallback interface{}) interface{} {
		if value == nil {
			return fallback
		}
		if s, ok := value.(string); ok && s == "" {
			return fallback
		}
		return value
	})
	tpl, err := engine.ParseString(src)
	if err != nil {
		return nil, fmt.Errorf("outreach template: %w", err)
	}
	return &Renderer{tpl: tpl}, nil
}

// Message renders the template for one participant of competition id.
func (r *Renderer) Message(id string, c models.Competition, p models.Participant) (string, error) {
	out, err := r.tpl.RenderString(liquid.Bindings{
		"voornaam":  p.FirstName,
		"naam":      p.FullName,
		"paard":     p.HorseName,
		"klasse":    p.Class,
		"categorie": p.Category,
		"wedstrijd": DisplayName(id, c.Date),
		"datum":     c.Date,
	})
	if err != nil {
		return "", fmt.Errorf("render outreach: %w", err)
	}
	return out, nil
}

// DisplayName turns "Zomer_cup_2026-06-01" back into "Zomer cup".
func DisplayName(id, date string) string {
	name := id
	if date != "" {
		name = strings.TrimSuffix(name, "_"+strings.ReplaceAll(date, " ", "_"))
	}
	name = strings.TrimSpace(strings.ReplaceAll(name, "_", " "))
	if name == "" {
		return id
	}
	return name
}

// WhatsAppLink builds a wa.me link with the message filled in. Dutch local
// numbers (06...) get the 31 country code. Empty when phone has no digits.
func WhatsAppLink(phone, text string) string {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	num := digits.String()
	switch {
	case num == "":
		return ""
	case strings.HasPrefix(num, "00"):
		num = num[2:]
	case strings.HasPrefix(num, "0"):
		num = "31" + num[1:]
	}
	return "https://wa.me/" + num + "?text=" + url.QueryEscape(text)
}
