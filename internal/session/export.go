package session

import (
	"fmt"
	"strings"
	"time"
)

const (
	exportTitle   = "顶级大师智囊团 - 对话记录"
	exportSelf    = "我"
	exportUnknown = "大师"
)

var (
	headerRule  = strings.Repeat("=", 48)
	messageRule = strings.Repeat("-", 48)
)

// FormatText renders a transcript as a plain-text document. Message times are
// shown in exportedAt's location. nameOf resolves persona display names.
func FormatText(problem string, transcript []Message, nameOf func(string) string, exportedAt time.Time) string {
	loc := exportedAt.Location()

	var b strings.Builder
	b.WriteString(exportTitle + "\n")
	fmt.Fprintf(&b, "时间: %s\n", exportedAt.Format(time.DateTime))
	fmt.Fprintf(&b, "问题: %s\n\n", problem)
	b.WriteString(headerRule + "\n\n")

	for _, m := range transcript {
		fmt.Fprintf(&b, "[%s] %s:\n", AuthorName(m, nameOf), time.UnixMilli(m.CreatedAt).In(loc).Format(time.TimeOnly))
		b.WriteString(m.Text)
		b.WriteString("\n\n" + messageRule + "\n\n")
	}
	return b.String()
}

// AuthorName returns the display author of m as used in exports.
func AuthorName(m Message, nameOf func(string) string) string {
	if m.Role == RoleUser {
		return exportSelf
	}
	if nameOf != nil {
		if n := nameOf(m.PersonaID); n != "" {
			return n
		}
	}
	return exportUnknown
}
