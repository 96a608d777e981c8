package integration

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// yaleClientCredential is the Basic credential the fake token endpoint accepts.
const yaleClientCredential = "aW50ZWdyYXRpb246c2VjcmV0"

// fakeYale serves the token and panel mode endpoints of the Yale cloud API.
type fakeYale struct {
	mu sync.Mutex

	// mode is the current panel mode.
	mode string
	// commands lists the modes set through the API.
	commands []string
}

func newFakeYale(t *testing.T, mode string) (*fakeYale, string) {
	t.Helper()

	f := &fakeYale{mode: mode}

	mux := http.NewServeMux()
	mux.HandleFunc("/yapi/o/token/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Basic "+yaleClientCredential {
			w.WriteHeader(http.StatusUnauthorized)

			return
		}

		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "token", "token_type": "Bearer"})
	})
	mux.HandleFunc("/yapi/api/panel/mode/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer token" {
			w.WriteHeader(http.StatusUnauthorized)

			return
		}

		f.mu.Lock()
		defer f.mu.Unlock()

		if r.Method == http.MethodPost {
			if err := r.ParseForm(); err != nil {
				w.WriteHeader(http.StatusBadRequest)

				return
			}

			f.mode = r.PostForm.Get("mode")
			f.commands = append(f.commands, f.mode)
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"result":  true,
			"message": "OK!",
			"data":    []map[string]string{{"area": "1", "mode": f.mode}},
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return f, srv.URL + "/yapi"
}

func (f *fakeYale) Commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.commands...)
}

func (f *fakeYale) SetMode(mode string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.mode = mode
}
