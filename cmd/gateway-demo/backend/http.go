// Package backend provides the two sample upstream servers gateway-demo
// proxies to: a plain HTTP backend routed with gorilla/mux and a websocket
// echo backend served by nhooyr.io/websocket.
package backend

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

// NewHTTPBackend builds the sample plain-HTTP backend: a couple of routes
// that echo back the request path and method so a demo run can visibly
// confirm the gateway preserved them.
func NewHTTPBackend() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/foo", echoHandler).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/foo/{name}", echoHandler).Methods(http.MethodGet)
	r.HandleFunc("/", echoHandler)
	return r
}

func echoHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"method": r.Method,
		"path":   r.URL.Path,
		"query":  r.URL.RawQuery,
		"vars":   vars,
	})
}
