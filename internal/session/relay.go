package session

import "fmt"

// Author is the speaker of a turn in a persona's private history.
type Author string

const (
	// AuthorUser covers the user and every other persona.
	AuthorUser Author = "user"
	// AuthorSelf is the persona's own prior output.
	AuthorSelf Author = "self"
)

// Turn is one entry of the history sent to the model on behalf of a persona.
type Turn struct {
	Author Author
	Text   string
}

// relayFormat marks another persona's statement as background context.
const relayFormat = "[背景: %s 说]: %s"

// PrivateHistory rewrites the shared transcript from personaID's point of view.
// The persona's own messages become AuthorSelf turns, other personas' messages
// are relayed as user turns prefixed with the speaker's name. nameOf resolves a
// persona ID to its display name; unknown IDs are shown as-is.
func PrivateHistory(transcript []Message, personaID string, nameOf func(string) string) []Turn {
	turns := make([]Turn, 0, len(transcript))
	for _, m := range transcript {
		switch {
		case m.Role == RoleUser:
			turns = append(turns, Turn{Author: AuthorUser, Text: m.Text})
		case m.PersonaID == personaID:
			turns = append(turns, Turn{Author: AuthorSelf, Text: m.Text})
		default:
			name := m.PersonaID
			if nameOf != nil {
				if n := nameOf(m.PersonaID); n != "" {
					name = n
				}
			}
			turns = append(turns, Turn{Author: AuthorUser, Text: fmt.Sprintf(relayFormat, name, m.Text)})
		}
	}
	return turns
}
