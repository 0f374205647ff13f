package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wedstrijd-bot/internal/models"
)

func newTestStore(t *testing.T) *Store {
	s, err := New(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestCompetitionID(t *testing.T) {
	tests := []struct {
		name, date, want string
	}{
		{"Zomercup", "2026-06-01", "Zomercup_2026-06-01"},
		{"Zomer cup Ede", "2026-06-01", "Zomer_cup_Ede_2026-06-01"},
		{"Tab\tname", "2026-06-01", "Tab_name_2026-06-01"},
		{"", "2026-06-01", "_2026-06-01"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, CompetitionID(tt.name, tt.date))
		})
	}
}

func TestLoad_MissingReturnsDefaultWithoutCreating(t *testing.T) {
	s := newTestStore(t)

	c, err := s.Load("Onbekend_2026-01-01")
	require.NoError(t, err)
	assert.Equal(t, "", c.Date)
	assert.NotNil(t, c.Participants)
	assert.Empty(t, c.Participants)
	assert.Nil(t, c.LastUpload)

	ids, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestLoad_CorruptFileReturnsDefault(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "Kapot_2026-01-01.json"), []byte(`{"datum": "2026-`), 0644))

	c, err := s.Load("Kapot_2026-01-01")
	require.NoError(t, err)
	assert.Equal(t, models.NewCompetition(""), c)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ts := "2026-05-01T10:00:00+02:00"
	c := models.Competition{
		Date: "2026-06-01",
		Participants: []models.Participant{
			{FullName: "Anna Jansen", FirstName: "Anna", HorseName: "Bella", Class: "B", Contacted: true, Note: "belt terug"},
			{FullName: "Piet de Vries", FirstName: "Piet", HorseName: "Storm"},
		},
		LastUpload: &ts,
	}
	require.NoError(t, s.Save("Zomercup_2026-06-01", c))

	loaded, err := s.Load("Zomercup_2026-06-01")
	require.NoError(t, err)
	assert.Equal(t, c, loaded)

	// saving what was loaded is a fixed point
	require.NoError(t, s.Save("Zomercup_2026-06-01", loaded))
	again, err := s.Load("Zomercup_2026-06-01")
	require.NoError(t, err)
	assert.Equal(t, loaded, again)
}

func TestSave_PersistedLayout(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save("Zomercup_2026-06-01", models.NewCompetition("2026-06-01")))

	data, err := os.ReadFile(filepath.Join(s.Dir(), "Zomercup_2026-06-01.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"datum": "2026-06-01", "deelnemers": [], "laatste_upload": null}`, string(data))
}

func TestSave_LeavesNoTempFiles(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save("A_2026-01-01", models.NewCompetition("2026-01-01")))

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "A_2026-01-01.json", entries[0].Name())
}

func TestCreate_IsIdempotent(t *testing.T) {
	s := newTestStore(t)

	id, err := s.Create("Zomer cup", "2026-06-01")
	require.NoError(t, err)
	assert.Equal(t, "Zomer_cup_2026-06-01", id)

	c, err := s.Load(id)
	require.NoError(t, err)
	assert.Equal(t, "2026-06-01", c.Date)

	c.Participants = append(c.Participants, models.Participant{FullName: "Anna Jansen", HorseName: "Bella", Contacted: true})
	require.NoError(t, s.Save(id, c))

	id2, err := s.Create("Zomer cup", "2026-06-01")
	require.NoError(t, err)
	assert.Equal(t, id, id2)

	after, err := s.Load(id)
	require.NoError(t, err)
	assert.Equal(t, c, after)
}

func TestListAndDelete(t *testing.T) {
	s := newTestStore(t)
	for _, name := range []string{"B", "A", "C"} {
		_, err := s.Create(name, "2026-01-01")
		require.NoError(t, err)
	}
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(s.Dir(), "sub.json"), 0755))

	ids, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"A_2026-01-01", "B_2026-01-01", "C_2026-01-01"}, ids)

	require.NoError(t, s.Delete("B_2026-01-01"))
	require.NoError(t, s.Delete("B_2026-01-01"), "deleting twice is fine")

	ids, err = s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"A_2026-01-01", "C_2026-01-01"}, ids)
}

func TestDelete_LogsOnlyRemovals(t *testing.T) {
	hook := logtest.NewGlobal()
	defer hook.Reset()
	s := newTestStore(t)
	id, err := s.Create("Zomercup", "2026-06-01")
	require.NoError(t, err)

	deleted := func() int {
		n := 0
		for _, e := range hook.AllEntries() {
			if e.Message == "competition deleted" && e.Level == logrus.InfoLevel {
				n++
			}
		}
		return n
	}

	require.NoError(t, s.Delete("Onbekend_2026-01-01"))
	assert.Equal(t, 0, deleted())
	require.NoError(t, s.Delete(id))
	assert.Equal(t, 1, deleted())
	require.NoError(t, s.Delete(id))
	assert.Equal(t, 1, deleted())
}

func TestInvalidIDs(t *testing.T) {
	s := newTestStore(t)
	for _, id := range []string{"", ".", "..", "../etc/passwd", `a\b`} {
		_, err := s.Load(id)
		assert.ErrorIs(t, err, ErrInvalidID, id)
		assert.ErrorIs(t, s.Save(id, models.NewCompetition("")), ErrInvalidID, id)
		assert.ErrorIs(t, s.Delete(id), ErrInvalidID, id)
	}

	_, err := s.Create("../x", "2026-01-01")
	assert.ErrorIs(t, err, ErrInvalidID)
}
