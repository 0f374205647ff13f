// Package store keeps one JSON file per competition under a data directory.
//
// There is no locking: each caller does load, mutate, save in one go, and two
// processes saving the same competition race with the last writer winning.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/sirupsen/logrus"

	"wedstrijd-bot/internal/models"
)

const fileExt = ".json"

var ErrInvalidID = errors.New("invalid competition id")

type Store struct {
	dir string
}

// New creates dir if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Dir() string { return s.dir }

// CompetitionID joins name and date and turns every whitespace rune into "_".
func CompetitionID(name, date string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return '_'
		}
		return r
	}, name+"_"+date)
}

func (s *Store) path(id string) (string, error) {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) || strings.ContainsRune(id, 0) {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return filepath.Join(s.dir, id+fileExt), nil
}

// Load returns the stored competition, or a fresh empty one when there is no
// readable file. It never creates a file.
func (s *Store) Load(id string) (models.Competition, error) {
	path, err := s.path(id)
	if err != nil {
		return models.Competition{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logrus.WithFields(logrus.Fields{"competition": id, "error": err}).Warn("competition file unreadable, using empty record")
		}
		return models.NewCompetition(""), nil
	}
	var c models.Competition
	if err := json.Unmarshal(data, &c); err != nil {
		logrus.WithFields(logrus.Fields{"competition": id, "error": err}).Warn("competition file corrupt, using empty record")
		return models.NewCompetition(""), nil
	}
	if c.Participants == nil {
		c.Participants = []models.Participant{}
	}
	return c, nil
}

// Save overwrites the competition file. The data goes to a temp file first
// and is renamed into place, so readers see either the old or the new record.
func (s *Store) Save(id string, c models.Competition) error {
	path, err := s.path(id)
	if err != nil {
		return err
	}
	if c.Participants == nil {
		c.Participants = []models.Participant{}
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", id, err)
	}

	tmp, err := os.CreateTemp(s.dir, id+".*.tmp")
	if err != nil {
		return fmt.Errorf("save %s: %w", id, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("save %s: %w", id, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("save %s: %w", id, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("save %s: %w", id, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("save %s: %w", id, err)
	}
	return nil
}

func (s *Store) Exists(id string) (bool, error) {
	path, err := s.path(id)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Create stores an empty competition for name and date unless one already
// exists under the same id. Existing data is never reset.
func (s *Store) Create(name, date string) (string, error) {
	id := CompetitionID(name, date)
	exists, err := s.Exists(id)
	if err != nil {
		return "", err
	}
	if exists {
		return id, nil
	}
	if err := s.Save(id, models.NewCompetition(date)); err != nil {
		return "", err
	}
	logrus.WithFields(logrus.Fields{"competition": id}).Info("competition created")
	return id, nil
}

// List returns all stored competition ids, sorted.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list competitions: %w", err)
	}
	ids := []string{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), fileExt))
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete removes the competition file. A missing file is not an error.
func (s *Store) Delete(id string) error {
	path, err := s.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("delete %s: %w", id, err)
	}
	logrus.WithFields(logrus.Fields{"competition": id}).Info("competition deleted")
	return nil
}
