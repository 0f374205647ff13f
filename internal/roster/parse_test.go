package roster

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wedstrijd-bot/internal/models"
)

const exportHead = "Name;Sport name 1;Class;Pony category;Remarks;Mobile phone 0\n"

func TestFirstName(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"Anna Jansen", "Anna", true},
		{"  Anna   Jansen ", "Anna", true},
		{"Madonna", "Madonna", true},
		{"Jan-Willem\tde Boer", "Jan-Willem", true},
		{"", "", false},
		{"   \t ", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := FirstName(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestParse_MapsAndTrimsFields(t *testing.T) {
	in := exportHead +
		" Anna Jansen ; Bella ;B; D-pony ; eerste wedstrijd ;0612345678 \n" +
		"Piet de Vries;Storm;L;;;\n"

	res, err := Parse(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Rows)
	assert.Zero(t, res.Skipped)
	assert.Zero(t, res.Malformed)
	require.Len(t, res.Participants, 2)

	assert.Equal(t, models.Participant{
		FullName:  "Anna Jansen",
		FirstName: "Anna",
		HorseName: "Bella",
		Class:     "B",
		Category:  "D-pony",
		Remarks:   "eerste wedstrijd",
		Phone:     "0612345678",
	}, res.Participants[0])
	assert.Equal(t, models.Participant{FullName: "Piet de Vries", FirstName: "Piet", HorseName: "Storm", Class: "L"}, res.Participants[1])
}

func TestParse_SkipsRowsWithoutIdentity(t *testing.T) {
	in := exportHead +
		";Bella;B;;;\n" + // no name
		"Anna Jansen;;B;;;\n" + // no horse
		"Kees Bakker\n" + // row too short
		"Sanne Smit;Pluis;M;;;\n"

	res, err := Parse(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, 4, res.Rows)
	assert.Equal(t, 3, res.Skipped)
	require.Len(t, res.Participants, 1)
	assert.Equal(t, "Sanne Smit", res.Participants[0].FullName)
}

func TestParse_WhitespaceOnlyName(t *testing.T) {
	in := exportHead +
		"   ;Bella;B;;;\n" +
		"Anna Jansen;   ;B;;;\n"

	res, err := Parse(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Malformed)
	assert.Zero(t, res.Skipped)
	// a blank horse cell is present, so the row is kept with an empty horse
	require.Len(t, res.Participants, 1)
	assert.Equal(t, "", res.Participants[0].HorseName)
}

func TestParse_MissingOptionalColumns(t *testing.T) {
	in := "Sport name 1;Name\nBella;Anna Jansen\n"

	res, err := Parse(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, res.Participants, 1)
	p := res.Participants[0]
	assert.Equal(t, "Anna Jansen", p.FullName)
	assert.Equal(t, "Bella", p.HorseName)
	assert.Empty(t, p.Class)
	assert.Empty(t, p.Category)
	assert.Empty(t, p.Phone)
	assert.Empty(t, p.Remarks)
	assert.False(t, p.Contacted)
	assert.Empty(t, p.Note)
}

func TestParse_MissingIdentityColumnSkipsEverything(t *testing.T) {
	in := "Name;Class\nAnna Jansen;B\nPiet de Vries;L\n"

	res, err := Parse(strings.NewReader(in))
	require.NoError(t, err)
	assert.Empty(t, res.Participants)
	assert.Equal(t, 2, res.Skipped)
}

func TestParse_BOMAndQuotedDelimiter(t *testing.T) {
	in := "\ufeff" + exportHead + `"Anna Jansen";"Bella";B;;"mag niet; vroeg starten";` + "\r\n"

	res, err := Parse(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, res.Participants, 1)
	assert.Equal(t, "Anna Jansen", res.Participants[0].FullName)
	assert.Equal(t, "mag niet; vroeg starten", res.Participants[0].Remarks)
}

func TestParse_PaddedHeader(t *testing.T) {
	in := " Name ; Sport name 1 \nAnna Jansen;Bella\n"

	res, err := Parse(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, res.Participants, 1)
}

func TestParse_EmptyInput(t *testing.T) {
	_, err := Parse(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrNoHeader)
}

func TestParse_HeaderOnly(t *testing.T) {
	res, err := Parse(strings.NewReader(exportHead))
	require.NoError(t, err)
	assert.Zero(t, res.Rows)
	assert.NotNil(t, res.Participants)
	assert.Empty(t, res.Participants)
}
