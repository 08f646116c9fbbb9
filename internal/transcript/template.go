package transcript

import "html/template"

var pageTemplate = template.Must(template.New("transcript").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { background: #313338; color: #dbdee1; font-family: sans-serif; margin: 0; padding: 24px; }
header { border-bottom: 1px solid #4e5058; margin-bottom: 16px; padding-bottom: 8px; }
.message { margin: 12px 0; }
.author { font-weight: 600; color: #f2f3f5; }
.bot { background: #5865f2; border-radius: 3px; font-size: 10px; margin-left: 4px; padding: 1px 4px; }
.time { color: #949ba4; font-size: 12px; margin-left: 8px; }
.embed { border-left: 4px solid #5865f2; background: #2b2d31; margin: 4px 0; padding: 8px 12px; }
.embed-title { font-weight: 600; }
</style>
</head>
<body>
<header>
<h1>{{.Title}}</h1>
<p>Ticket #{{.TicketID}}{{if .Category}} &middot; {{.Category}}{{end}} &middot; opened by &lt;@{{.OpenedBy}}&gt; on {{.CreatedAt}}</p>
<p>Generated {{.GeneratedAt}} &middot; {{len .Messages}} messages</p>
</header>
{{range .Messages}}<div class="message">
<div><span class="author">{{.Author}}</span>{{if .Bot}}<span class="bot">BOT</span>{{end}}<span class="time">{{.Time}}</span></div>
<div class="content">{{.Body}}</div>
{{range .Embeds}}<div class="embed">{{if .Title}}<div class="embed-title">{{.Title}}</div>{{end}}{{if .Description}}<div>{{.Description}}</div>{{end}}{{range .Fields}}<div><strong>{{.Name}}</strong>: {{.Value}}</div>{{end}}</div>
{{end}}{{range .Attachments}}<div class="attachment"><a href="{{.URL}}">{{.Filename}}</a></div>
{{end}}</div>
{{end}}</body>
</html>
`))
