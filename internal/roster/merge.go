package roster

import "wedstrijd-bot/internal/models"

// Merge appends every incoming participant whose key is not on the list yet,
// in incoming order. Existing entries keep their position and fields, so
// contacted marks and notes survive a re-import. Neither input is modified.
func Merge(existing, incoming []models.Participant) []models.Participant {
	out := make([]models.Participant, len(existing), len(existing)+len(incoming))
	copy(out, existing)

	seen := make(map[models.Key]struct{}, len(existing)+len(incoming))
	for _, p := range existing {
		seen[p.Key()] = struct{}{}
	}
	for _, p := range incoming {
		k := p.Key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, p)
	}
	return out
}
