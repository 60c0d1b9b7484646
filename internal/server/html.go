package server

import (
	"fmt"
	"html/template"
	"net/http"
	"strings"
)

var dashboardTmpl = template.Must(template.New("dashboard").Parse(`<!doctype html>
<html>
<head>
  <title>SignalBoard</title>
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <meta http-equiv="refresh" content="60" />
  <style>
    body { font-family: system-ui, sans-serif; margin: 24px; max-width: 900px; }
    table { border-collapse: collapse; width: 100%; }
    th, td { text-align: left; padding: 6px 10px; border-bottom: 1px solid #eee; }
    .status { font-weight: 600; text-transform: uppercase; font-size: 0.85em; }
    .ok { color: #1a7f37; }
    .warn { color: #9a6700; }
    .bad { color: #cf222e; }
    .unknown { color: #6e7781; }
    .age { color: #6e7781; white-space: nowrap; }
    .details { color: #6e7781; font-size: 0.9em; }
  </style>
</head>
<body>
  <h1>SignalBoard</h1>
  <table>
    <tr><th>Status</th><th>Signal</th><th>Value</th><th>Age</th></tr>
    {{range .Signals}}
    <tr>
      <td class="status {{.Status}}">{{.Status}}</td>
      <td>{{if .Link}}<a href="{{.Link}}">{{.Title}}</a>{{else}}{{.Title}}{{end}}
        {{if .Details}}<div class="details">{{.Details}}</div>{{end}}</td>
      <td>{{.Value}}</td>
      <td class="age">{{.Age}}</td>
    </tr>
    {{end}}
  </table>
</body>
</html>
`))

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = dashboardTmpl.Execute(w, map[string]any{"Signals": s.views()})
}

// handleTxt renders the board as fixed-width text, one signal per line.
func (s *Server) handleTxt(w http.ResponseWriter, r *http.Request) {
	var b strings.Builder
	for _, v := range s.views() {
		fmt.Fprintf(&b, "%-7s %-18.18s %4s  %s\n",
			strings.ToUpper(v.Status.String()), v.ID, v.Age, v.Value)
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(b.String()))
}
