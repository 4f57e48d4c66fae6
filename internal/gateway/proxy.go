package gateway

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
)

// handleProxy implements the "/<prefix>/<endpoint...>" reverse-proxy rule.
// It never holds a store lock while making the upstream call — svc is an
// immutable record looked up by value from a plain map, and the only
// mutable state touched here (the stats store) is a single atomic-style
// Record call with no lock held across I/O.
func (g *Gateway) handleProxy(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	prefix := ps.ByName("prefix")
	rest := strings.TrimPrefix(ps.ByName("rest"), "/")

	svc, ok := g.services[prefix]
	if !ok {
		g.writeNotFound(w)
		return
	}

	if rest == "" || r.Method != http.MethodGet {
		g.writeNotFound(w)
		return
	}
	if _, allowed := svc.AllowedGetEndpoints[rest]; !allowed {
		g.writeNotFound(w)
		return
	}

	base := g.nextInstance(svc)
	target := base + "/" + rest
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}

	upstreamReq, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target, nil)
	if err != nil {
		g.stats.Record(svc.Name, rest, http.StatusBadGateway, time.Now().Unix())
		g.writeBadGateway(w)
		return
	}

	resp, err := g.client.Do(upstreamReq)
	if err != nil {
		g.stats.Record(svc.Name, rest, http.StatusBadGateway, time.Now().Unix())
		g.writeBadGateway(w)
		return
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(resp.StatusCode)
	io.Copy(w, resp.Body)

	g.stats.Record(svc.Name, rest, resp.StatusCode, time.Now().Unix())
}

func (g *Gateway) writeNotFound(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte("not found"))
}

func (g *Gateway) writeBadGateway(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusBadGateway)
	w.Write([]byte("upstream unreachable"))
}
