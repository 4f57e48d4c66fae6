package gateway

import (
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
)

// dashboardView is the read-only snapshot the dashboard template renders.
// Dashboard HTML/CSS rendering itself is out of this repo's scope beyond
// naming the data it needs — this is that data.
type dashboardView struct {
	GeneratedAt string
	Services    []serviceRow
	Queues      []queueRow
}

type serviceRow struct {
	Name       string
	Domain     string
	Kind       string
	Prefix     string
	Health     string
	LastChecked string
	MemoryUsage string
	MemoryLimit string
	Schedules  []scheduleRow
}

type scheduleRow struct {
	Index      int
	Endpoint   string
	Interval   int
	Paused     bool
	LastRun    string
	LastStatus string
	LastError  string
}

type queueRow struct {
	Name         string
	Subscribers  int
	MessageCount uint64
}

var dashboardTemplate = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html>
<head><title>runner</title><meta charset="utf-8"></head>
<body>
<h1>runner</h1>
<p>generated at {{.GeneratedAt}}</p>
<h2>services</h2>
<table border="1">
<tr><th>name</th><th>domain</th><th>kind</th><th>prefix</th><th>health</th><th>last checked</th><th>memory</th><th>schedules</th></tr>
{{range .Services}}
<tr>
<td>{{.Name}}</td><td>{{.Domain}}</td><td>{{.Kind}}</td><td>{{.Prefix}}</td>
<td>{{.Health}}</td><td>{{.LastChecked}}</td><td>{{.MemoryUsage}} / {{.MemoryLimit}}</td>
<td>
{{range .Schedules}}{{.Endpoint}} (every {{.Interval}}s, paused={{.Paused}}, last_status={{.LastStatus}}, last_error={{.LastError}})<br>{{end}}
</td>
</tr>
{{end}}
</table>
<h2>queues</h2>
<table border="1">
<tr><th>name</th><th>subscribers</th><th>messages</th></tr>
{{range .Queues}}<tr><td>{{.Name}}</td><td>{{.Subscribers}}</td><td>{{.MessageCount}}</td></tr>{{end}}
</table>
</body>
</html>
`))

func (g *Gateway) handleDashboard(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	view := dashboardView{GeneratedAt: time.Now().Format(time.RFC3339)}

	for _, name := range g.sortedServiceNames() {
		svc := g.byName[name]

		healthStatus := "unknown"
		lastChecked := ""
		if rec, ok := g.health.Get(name); ok {
			healthStatus = rec.Status.String()
			if rec.LastChecked != nil {
				lastChecked = rec.LastChecked.Format(time.RFC3339)
			}
		}

		memUsage, memLimit := "n/a", "n/a"
		if snap, ok := g.memory.Get(name); ok {
			if snap.UsageBytes != nil {
				memUsage = formatBytes(*snap.UsageBytes)
			}
			if snap.LimitBytes != nil {
				memLimit = formatBytes(*snap.LimitBytes)
			}
		}

		row := serviceRow{
			Name: name, Domain: svc.Domain, Kind: string(svc.Kind), Prefix: svc.Prefix,
			Health: healthStatus, LastChecked: lastChecked,
			MemoryUsage: memUsage, MemoryLimit: memLimit,
		}

		schedStates := g.schedules.SnapshotAll(name)
		for i, sch := range svc.Schedules {
			sr := scheduleRow{Index: i, Endpoint: sch.Endpoint, Interval: sch.IntervalSeconds}
			if st, ok := schedStates[i]; ok {
				sr.Paused = st.Paused
				if st.LastRun != nil {
					sr.LastRun = st.LastRun.Format(time.RFC3339)
				}
				if st.LastStatus != nil {
					sr.LastStatus = fmt.Sprintf("%d", *st.LastStatus)
				}
				if st.LastError != nil {
					sr.LastError = *st.LastError
				}
			}
			row.Schedules = append(row.Schedules, sr)
		}

		view.Services = append(view.Services, row)
	}

	for _, q := range g.queues.Snapshot() {
		view.Queues = append(view.Queues, queueRow{Name: q.Name, Subscribers: q.SubscriberCount, MessageCount: q.MessageCount})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	dashboardTemplate.Execute(w, view)
}

// formatBytes renders n bytes in the nearest binary unit, e.g. "512.0MiB".
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
