package session

import "slices"

// UpsertArchive returns archive with s at the front. An existing entry with the
// same ID is replaced and moved to the front; otherwise s is prepended.
// The input slice is not modified.
func UpsertArchive(archive []Session, s Session) []Session {
	out := make([]Session, 0, len(archive)+1)
	out = append(out, s.Clone())
	for _, a := range archive {
		if a.ID != s.ID {
			out = append(out, a)
		}
	}
	return out
}

// RemoveFromArchive returns archive without the session id, and whether it was present.
func RemoveFromArchive(archive []Session, id string) ([]Session, bool) {
	i := slices.IndexFunc(archive, func(a Session) bool { return a.ID == id })
	if i < 0 {
		return archive, false
	}
	out := make([]Session, 0, len(archive)-1)
	out = append(out, archive[:i]...)
	out = append(out, archive[i+1:]...)
	return out, true
}

// FindInArchive returns a copy of the session id.
func FindInArchive(archive []Session, id string) (Session, bool) {
	for _, a := range archive {
		if a.ID == id {
			return a.Clone(), true
		}
	}
	return Session{}, false
}
