package tenablesc

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

const (
	fakeUser     = "api"
	fakePassword = "s3cret"
	fakeToken    = "1234567"
	fakeCookie   = "abcdef"
)

// fakePlatform is a minimal in-process Tenable.sc.
type fakePlatform struct {
	mu sync.Mutex

	assets      []map[string]any
	policies    []map[string]any
	credentials []map[string]any
	scans       []map[string]any
	instances   []map[string]any
	archive     []byte

	lastBody  map[string]any
	lastQuery map[string]string
	calls     []string
	loggedOut bool
}

func newFakePlatform(t *testing.T) (*fakePlatform, *httptest.Server) {
	t.Helper()
	f := &fakePlatform{}

	r := chi.NewRouter()
	r.Route("/rest", func(r chi.Router) {
		r.Post("/token", f.login)
		r.Group(func(r chi.Router) {
			r.Use(f.requireSession)
			r.Delete("/token", f.logout)
			r.Get("/asset", f.list(func() []map[string]any { return f.assets }))
			r.Post("/asset", f.createAsset)
			r.Delete("/asset/{id}", f.deleteAsset)
			r.Get("/policy", f.list(func() []map[string]any { return f.policies }))
			r.Get("/credential", f.list(func() []map[string]any { return f.credentials }))
			r.Get("/scan", f.list(func() []map[string]any { return f.scans }))
			r.Post("/scan", f.createScan)
			r.Post("/scan/{id}/launch", f.launch)
			r.Get("/scanResult", f.list(func() []map[string]any { return f.instances }))
			r.Get("/scanResult/{id}", f.getInstance)
			r.Post("/scanResult/{id}/download", f.download)
		})
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return f, srv
}

func writeEnvelope(w http.ResponseWriter, status int, response any, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"type":       "regular",
		"response":   response,
		"error_code": code,
		"error_msg":  msg,
		"warnings":   []any{},
		"timestamp":  1700000000,
	})
}

func (f *fakePlatform) record(r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, r.Method+" "+r.URL.Path)
	f.lastQuery = map[string]string{}
	for k := range r.URL.Query() {
		f.lastQuery[k] = r.URL.Query().Get(k)
	}
	f.lastBody = nil
	if r.Body != nil {
		data, _ := io.ReadAll(r.Body)
		if len(data) > 0 {
			_ = json.Unmarshal(data, &f.lastBody)
		}
	}
}

func (f *fakePlatform) login(w http.ResponseWriter, r *http.Request) {
	f.record(r)
	if f.lastBody["username"] != fakeUser || f.lastBody["password"] != fakePassword {
		writeEnvelope(w, http.StatusForbidden, nil, 1, "Invalid login credentials.")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: "TNS_SESSIONID", Value: fakeCookie, Path: "/"})
	writeEnvelope(w, http.StatusOK, map[string]any{"token": 1234567}, 0, "")
}

func (f *fakePlatform) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie("TNS_SESSIONID")
		if err != nil || c.Value != fakeCookie || r.Header.Get(tokenHeader) != fakeToken {
			writeEnvelope(w, http.StatusUnauthorized, nil, 74, "Invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *fakePlatform) logout(w http.ResponseWriter, r *http.Request) {
	f.record(r)
	f.loggedOut = true
	writeEnvelope(w, http.StatusOK, nil, 0, "")
}

func (f *fakePlatform) list(items func() []map[string]any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		f.mu.Lock()
		usable := items()
		f.mu.Unlock()
		writeEnvelope(w, http.StatusOK, map[string]any{
			"usable":     usable,
			"manageable": []map[string]any{{"id": "999", "name": "manage-only"}},
		}, 0, "")
	}
}

func (f *fakePlatform) createAsset(w http.ResponseWriter, r *http.Request) {
	f.record(r)
	if f.lastBody["name"] == "bad" {
		writeEnvelope(w, http.StatusForbidden, nil, 143, "Asset name already in use")
		return
	}
	f.lastBody["id"] = "77"
	f.assets = append(f.assets, f.lastBody)
	writeEnvelope(w, http.StatusOK, f.lastBody, 0, "")
}

func (f *fakePlatform) deleteAsset(w http.ResponseWriter, r *http.Request) {
	f.record(r)
	id := chi.URLParam(r, "id")
	for i, a := range f.assets {
		if a["id"] == id {
			f.assets = append(f.assets[:i], f.assets[i+1:]...)
			writeEnvelope(w, http.StatusOK, nil, 0, "")
			return
		}
	}
	writeEnvelope(w, http.StatusNotFound, nil, 147, "Asset #"+id+" not found")
}

func (f *fakePlatform) createScan(w http.ResponseWriter, r *http.Request) {
	f.record(r)
	resp := map[string]any{"id": 42, "name": f.lastBody["name"], "createdTime": "1700000100"}
	f.scans = append(f.scans, resp)
	writeEnvelope(w, http.StatusOK, resp, 0, "")
}

func (f *fakePlatform) launch(w http.ResponseWriter, r *http.Request) {
	f.record(r)
	writeEnvelope(w, http.StatusOK, map[string]any{
		"scanID":     chi.URLParam(r, "id"),
		"scanResult": map[string]any{"id": "501", "name": "Weekly DMZ", "status": "Queued"},
	}, 0, "")
}

func (f *fakePlatform) getInstance(w http.ResponseWriter, r *http.Request) {
	f.record(r)
	id := chi.URLParam(r, "id")
	for _, i := range f.instances {
		if i["id"] == id {
			writeEnvelope(w, http.StatusOK, i, 0, "")
			return
		}
	}
	writeEnvelope(w, http.StatusNotFound, nil, 147, "Scan Result #"+id+" not found")
}

func (f *fakePlatform) download(w http.ResponseWriter, r *http.Request) {
	f.record(r)
	if f.archive == nil {
		writeEnvelope(w, http.StatusForbidden, nil, 146, "Scan Result has no data")
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	_, _ = w.Write(f.archive)
}
