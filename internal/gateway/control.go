package gateway

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
)

func (g *Gateway) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// handleStats serves the stats store's full snapshot.
func (g *Gateway) handleStats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	snap := g.stats.Snapshot(time.Now().Unix())
	g.writeJSON(w, http.StatusOK, snap)
}

// handleServiceLogs serves one service's concatenated log ring.
func (g *Gateway) handleServiceLogs(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	name := ps.ByName("name")
	if _, ok := g.byName[name]; !ok {
		g.writeNotFound(w)
		return
	}
	lines := g.logs.Snapshot(name)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	for _, line := range lines {
		w.Write([]byte(line))
		w.Write([]byte("\n"))
	}
}

// handleServiceOpenAPI serves a service's raw openapi.json file.
func (g *Gateway) handleServiceOpenAPI(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	name := ps.ByName("name")
	svc, ok := g.byName[name]
	if !ok {
		g.writeNotFound(w)
		return
	}

	data, err := os.ReadFile(filepath.Join(svc.Dir, "openapi.json"))
	if err != nil {
		g.writeNotFound(w)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// handleScheduleToggle flips a schedule's paused flag.
func (g *Gateway) handleScheduleToggle(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	name := ps.ByName("name")
	if _, ok := g.byName[name]; !ok {
		g.writeNotFound(w)
		return
	}

	index, err := strconv.Atoi(ps.ByName("index"))
	if err != nil {
		g.writeBadRequest(w, "schedule index must be numeric")
		return
	}

	paused, err := g.schedules.Toggle(name, index)
	if err != nil {
		g.writeNotFound(w)
		return
	}
	g.writeJSON(w, http.StatusOK, map[string]bool{"paused": paused})
}

// handleScheduleRun triggers a schedule synchronously, without resetting
// its ticking timer.
func (g *Gateway) handleScheduleRun(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	name := ps.ByName("name")
	svc, ok := g.byName[name]
	if !ok {
		g.writeNotFound(w)
		return
	}

	index, err := strconv.Atoi(ps.ByName("index"))
	if err != nil {
		g.writeBadRequest(w, "schedule index must be numeric")
		return
	}

	if err := g.schedules.RunNow(name, index, svc.BaseURL); err != nil {
		g.writeNotFound(w)
		return
	}

	st, _ := g.schedules.Snapshot(name, index)
	resp := map[string]any{}
	if st.LastStatus != nil {
		resp["status"] = *st.LastStatus
	}
	if st.LastError != nil {
		resp["error"] = *st.LastError
	}
	if st.LastRun != nil {
		resp["ran_at"] = st.LastRun.Format(time.RFC3339)
	}
	g.writeJSON(w, http.StatusOK, resp)
}

// handlePublish publishes a message body to a queue, fanning it out to
// every registered subscriber.
func (g *Gateway) handlePublish(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	queueName := strings.TrimSpace(ps.ByName("queue"))
	if queueName == "" {
		g.writeBadRequest(w, "queue name must not be empty")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		g.writeBadRequest(w, "could not read request body")
		return
	}

	result, errs := g.queues.Publish(queueName, body, r.Header.Get("Content-Type"))
	for _, deliveryErr := range errs {
		if g.access != nil {
			g.access.WriteLine("[queue:" + queueName + "] delivery failed: " + deliveryErr.Error())
		}
	}

	g.writeJSON(w, http.StatusAccepted, map[string]any{
		"queue":          result.Queue,
		"subscribers":    result.SubscriberCount,
		"message_count":  result.MessageCount,
	})
}

func (g *Gateway) writeBadRequest(w http.ResponseWriter, message string) {
	g.writeJSON(w, http.StatusBadRequest, map[string]string{"error": message})
}
