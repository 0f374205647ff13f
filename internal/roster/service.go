package roster

import (
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"wedstrijd-bot/internal/models"
	"wedstrijd-bot/internal/util"
)

var (
	ErrParticipantNotFound = errors.New("participant not found")
	ErrCompetitionNotFound = errors.New("competition not found")
)

// Store is the persistence the service needs; *store.Store implements it.
type Store interface {
	Load(id string) (models.Competition, error)
	Save(id string, c models.Competition) error
	Create(name, date string) (string, error)
	List() ([]string, error)
	Delete(id string) error
	Exists(id string) (bool, error)
}

type ImportReport struct {
	Rows       int
	Added      int
	Duplicates int
	Skipped    int
	Malformed  int
	Total      int // participants after the import
}

// Service runs each operation as one load, mutate, save sequence.
type Service struct {
	store Store
	now   func() string
}

func NewService(s Store) *Service {
	return &Service{store: s, now: util.NowISO}
}

func (s *Service) Create(name, date string) (string, error) { return s.store.Create(name, date) }
func (s *Service) List() ([]string, error) { return s.store.List() }
func (s *Service) Delete(id string) error { return s.store.Delete(id) }
func (s *Service) Get(id string) (models.Competition, error) { return s.store.Load(id) }

// load is Load for operations that write back: only Create makes records,
// so a missing competition is an error here.
func (s *Service) load(id string) (models.Competition, error) {
	ok, err := s.store.Exists(id)
	if err != nil {
		return models.Competition{}, err
	}
	if !ok {
		return models.Competition{}, fmt.Errorf("%w: %s", ErrCompetitionNotFound, id)
	}
	return s.store.Load(id)
}

// Import parses r and merges it into competition id. Nothing is saved when
// the file cannot be parsed.
func (s *Service) Import(id string, r io.Reader) (ImportReport, error) {
	c, err := s.load(id)
	if err != nil {
		return ImportReport{}, err
	}
	parsed, err := Parse(r)
	if err != nil {
		return ImportReport{}, fmt.Errorf("import %s: %w", id, err)
	}

	before := len(c.Participants)
	c.Participants = Merge(c.Participants, parsed.Participants)
	ts := s.now()
	c.LastUpload = &ts
	if err := s.store.Save(id, c); err != nil {
		return ImportReport{}, err
	}

	rep := ImportReport{
		Rows:      parsed.Rows,
		Added:     len(c.Participants) - before,
		Skipped:   parsed.Skipped,
		Malformed: parsed.Malformed,
		Total:     len(c.Participants),
	}
	rep.Duplicates = len(parsed.Participants) - rep.Added

	logrus.WithFields(logrus.Fields{
		"competition": id,
		"rows":        rep.Rows,
		"added":       rep.Added,
		"duplicates":  rep.Duplicates,
		"skipped":     rep.Skipped,
		"malformed":   rep.Malformed,
	}).Info("roster imported")
	return rep, nil
}

// MarkContacted sets the contacted flag. There is no way to clear it.
func (s *Service) MarkContacted(id string, k models.Key) error {
	return s.update(id, k, func(p *models.Participant) {
		p.Contacted = true
	})
}

func (s *Service) SetNote(id string, k models.Key, note string) error {
	return s.update(id, k, func(p *models.Participant) {
		p.Note = note
	})
}

func (s *Service) update(id string, k models.Key, fn func(p *models.Participant)) error {
	c, err := s.load(id)
	if err != nil {
		return err
	}
	idx := c.Find(k)
	if idx < 0 {
		return fmt.Errorf("%w: %s / %s", ErrParticipantNotFound, k.FullName, k.HorseName)
	}
	fn(&c.Participants[idx])
	return s.store.Save(id, c)
}
