package roster

import (
	"slices"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"

	"wedstrijd-bot/internal/models"
)

func rider(name, horse string) models.Participant {
	first, _ := FirstName(name)
	return models.Participant{FullName: name, FirstName: first, HorseName: horse}
}

func TestMerge_AppendsNewInIncomingOrder(t *testing.T) {
	existing := []models.Participant{rider("Anna Jansen", "Bella")}
	incoming := []models.Participant{rider("Sanne Smit", "Pluis"), rider("Anna Jansen", "Bella"), rider("Piet de Vries", "Storm")}

	got := Merge(existing, incoming)
	assert.Equal(t, []models.Participant{
		rider("Anna Jansen", "Bella"),
		rider("Sanne Smit", "Pluis"),
		rider("Piet de Vries", "Storm"),
	}, got)
}

func TestMerge_SameRiderOtherHorseIsNew(t *testing.T) {
	got := Merge([]models.Participant{rider("Anna Jansen", "Bella")}, []models.Participant{rider("Anna Jansen", "Storm")})
	assert.Len(t, got, 2)
}

func TestMerge_DuplicatesWithinOneUpload(t *testing.T) {
	got := Merge(nil, []models.Participant{rider("Anna Jansen", "Bella"), rider("Anna Jansen", "Bella")})
	assert.Len(t, got, 1)
}

func TestMerge_KeepsExistingFields(t *testing.T) {
	existing := []models.Participant{{FullName: "Anna Jansen", FirstName: "Anna", HorseName: "Bella", Class: "B", Contacted: true, Note: "komt zeker"}}
	incoming := []models.Participant{{FullName: "Anna Jansen", FirstName: "Anna", HorseName: "Bella", Class: "M", Phone: "0612345678"}}

	got := Merge(existing, incoming)
	assert.Equal(t, existing, got)
}

func TestMerge_IdenticalRowsTwice(t *testing.T) {
	csv := exportHead + "Anna Jansen;Bella;B;;;\nAnna Jansen;Bella;B;;;\n"

	var roster []models.Participant
	for i := 0; i < 2; i++ {
		res, err := Parse(strings.NewReader(csv))
		assert.NoError(t, err)
		roster = Merge(roster, res.Participants)
	}
	assert.Len(t, roster, 1)
}

func genParticipant() gopter.Gen {
	return gopter.CombineGens(
		gen.OneConstOf("Anna Jansen", "Piet de Vries", "Sanne Smit", "Kees Bakker"),
		gen.OneConstOf("Bella", "Storm", "Pluis"),
		gen.OneConstOf("B", "L", "M", ""),
		gen.Bool(),
		gen.OneConstOf("", "belt terug", "voicemail"),
	).Map(func(v []interface{}) models.Participant {
		p := rider(v[0].(string), v[1].(string))
		p.Class = v[2].(string)
		p.Contacted = v[3].(bool)
		p.Note = v[4].(string)
		return p
	})
}

func cloneRoster(ps []models.Participant) []models.Participant {
	out := make([]models.Participant, len(ps))
	copy(out, ps)
	return out
}

func TestMergeProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)
	roster := gen.SliceOf(genParticipant())

	properties.Property("re-importing the same upload changes nothing", prop.ForAll(
		func(existing, incoming []models.Participant) bool {
			once := Merge(existing, incoming)
			twice := Merge(once, incoming)
			return slices.Equal(once, twice)
		},
		roster, roster,
	))

	properties.Property("merging a merged roster into its base is a no-op", prop.ForAll(
		func(existing, incoming []models.Participant) bool {
			merged := Merge(existing, incoming)
			return slices.Equal(Merge(existing, merged), merged)
		},
		roster, roster,
	))

	properties.Property("existing entries keep position and fields", prop.ForAll(
		func(existing, incoming []models.Participant) bool {
			merged := Merge(existing, incoming)
			if len(merged) < len(existing) {
				return false
			}
			for i := range existing {
				if merged[i] != existing[i] {
					return false
				}
			}
			return true
		},
		roster, roster,
	))

	properties.Property("appended entries have keys not seen before", prop.ForAll(
		func(existing, incoming []models.Participant) bool {
			merged := Merge(existing, incoming)
			seen := map[models.Key]bool{}
			for _, p := range existing {
				seen[p.Key()] = true
			}
			for _, p := range merged[len(existing):] {
				if seen[p.Key()] {
					return false
				}
				seen[p.Key()] = true
			}
			// every incoming key ends up on the roster
			for _, p := range incoming {
				if !seen[p.Key()] {
					return false
				}
			}
			return true
		},
		roster, roster,
	))

	properties.Property("inputs are not modified", prop.ForAll(
		func(existing, incoming []models.Participant) bool {
			e, in := cloneRoster(existing), cloneRoster(incoming)
			Merge(existing, incoming)
			return slices.Equal(e, existing) && slices.Equal(in, incoming)
		},
		roster, roster,
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

type csvRow struct {
	name, horse, class string
}

func TestParseProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	row := gopter.CombineGens(
		gen.OneConstOf("", "Anna Jansen", " Piet de Vries ", "Sanne\tSmit"),
		gen.OneConstOf("", "Bella", " Storm", "Pluis "),
		gen.OneConstOf("", "B", " L "),
	).Map(func(v []interface{}) csvRow {
		return csvRow{name: v[0].(string), horse: v[1].(string), class: v[2].(string)}
	})

	properties.Property("one trimmed, uncontacted participant per row with both identity cells", prop.ForAll(
		func(rows []csvRow) bool {
			var b strings.Builder
			b.WriteString(exportHead)
			missing := 0
			for _, r := range rows {
				if r.name == "" || r.horse == "" {
					missing++
				}
				b.WriteString(r.name + ";" + r.horse + ";" + r.class + ";;;\n")
			}

			res, err := Parse(strings.NewReader(b.String()))
			if err != nil || res.Skipped != missing || len(res.Participants) != len(rows)-missing {
				return false
			}
			for _, p := range res.Participants {
				if p.Contacted || p.Note != "" {
					return false
				}
				for _, f := range []string{p.FullName, p.HorseName, p.Class, p.FirstName} {
					if f != strings.TrimSpace(f) {
						return false
					}
				}
				if !strings.HasPrefix(p.FullName, p.FirstName) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(row),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestMerge_EmptyInputs(t *testing.T) {
	existing := []models.Participant{}
	out := Merge(existing, nil)
	assert.NotNil(t, out)
	assert.Empty(t, out)
	assert.Equal(t, []models.Participant{}, existing)
}
