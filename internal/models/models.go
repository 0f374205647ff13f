package models

// Competition is the persisted state of one competition. The identifier is
// the storage key and is not part of the file contents.
type Competition struct {
	Date         string        `json:"datum" yaml:"datum"`
	Participants []Participant `json:"deelnemers" yaml:"deelnemers"`
	LastUpload   *string       `json:"laatste_upload" yaml:"laatste_upload"` // RFC3339, nil until first import
}

// NewCompetition returns the record used for competitions that have no file yet.
func NewCompetition(date string) Competition {
	return Competition{Date: date, Participants: []Participant{}}
}

type Participant struct {
	FullName  string `json:"naam" yaml:"naam"`
	FirstName string `json:"voornaam" yaml:"voornaam"`
	HorseName string `json:"paard" yaml:"paard"`
	Class     string `json:"klasse" yaml:"klasse"`
	Category  string `json:"categorie" yaml:"categorie"`
	Phone     string `json:"telefoon" yaml:"telefoon"`
	Remarks   string `json:"opmerkingen" yaml:"opmerkingen"`
	Contacted bool   `json:"gecontacteerd" yaml:"gecontacteerd"`
	Note      string `json:"notitie" yaml:"notitie"`
}

// Key identifies a participant across imports: same rider on the same horse.
type Key struct {
	FullName  string
	HorseName string
}

func (p Participant) Key() Key {
	return Key{FullName: p.FullName, HorseName: p.HorseName}
}

// Find returns the index of the participant with key k, or -1.
func (c Competition) Find(k Key) int {
	for i, p := range c.Participants {
		if p.Key() == k {
			return i
		}
	}
	return -1
}

// ContactedCount counts participants already reached.
func (c Competition) ContactedCount() int {
	n := 0
	for _, p := range c.Participants {
		if p.Contacted {
			n++
		}
	}
	return n
}
