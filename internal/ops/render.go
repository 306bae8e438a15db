package ops

import (
	"bytes"
	"html/template"
	"time"

	"github.com/yuin/goldmark"

	"github.com/hpungsan/council/internal/session"
)

type htmlMessage struct {
	Author string
	Time   string
	User   bool
	Body   template.HTML
}

type htmlTranscript struct {
	Title      string
	ExportedAt string
	Problem    string
	Messages   []htmlMessage
}

var transcriptTmpl = template.Must(template.New("transcript").Parse(`<!DOCTYPE html>
<html lang="zh-CN">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; max-width: 48rem; margin: 2rem auto; line-height: 1.6; color: #222; }
header { border-bottom: 2px solid #333; margin-bottom: 1.5rem; }
.message { border-bottom: 1px solid #ddd; padding: 0.75rem 0; }
.message.user { background: #f6f6f6; padding-left: 0.75rem; }
.meta { color: #666; font-size: 0.9rem; }
</style>
</head>
<body>
<header>
<h1>{{.Title}}</h1>
<p class="meta">时间: {{.ExportedAt}}</p>
<p><strong>问题:</strong> {{.Problem}}</p>
</header>
{{range .Messages}}<section class="message{{if .User}} user{{end}}">
<p class="meta">[{{.Author}}] {{.Time}}</p>
{{.Body}}
</section>
{{end}}</body>
</html>
`))

// renderTranscriptHTML renders the transcript as a standalone HTML page.
// Persona answers are markdown; user text is shown verbatim.
func renderTranscriptHTML(problem string, transcript []session.Message, nameOf func(string) string, exportedAt time.Time) (string, error) {
	loc := exportedAt.Location()
	data := htmlTranscript{
		Title:      "顶级大师智囊团 - 对话记录",
		ExportedAt: exportedAt.Format(time.DateTime),
		Problem:    problem,
		Messages:   make([]htmlMessage, len(transcript)),
	}
	for i, m := range transcript {
		data.Messages[i] = htmlMessage{
			Author: session.AuthorName(m, nameOf),
			Time:   time.UnixMilli(m.CreatedAt).In(loc).Format(time.TimeOnly),
			User:   m.Role == session.RoleUser,
			Body:   messageHTML(m),
		}
	}

	var buf bytes.Buffer
	if err := transcriptTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func messageHTML(m session.Message) template.HTML {
	if m.Role == session.RoleUser {
		return template.HTML("<p>" + template.HTMLEscapeString(m.Text) + "</p>")
	}
	return renderMarkdown(m.Text)
}

// renderMarkdown converts markdown text to HTML using goldmark.
// goldmark omits raw HTML by default, so model output cannot inject markup.
func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return template.HTML("<p>" + template.HTMLEscapeString(md) + "</p>")
	}
	return template.HTML(buf.String())
}
