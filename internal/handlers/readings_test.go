package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	rt "resin_tracker"
	"resin_tracker/internal/ingest"
	"resin_tracker/internal/service"
)

func newReadingsRouter(rd *mockReadings) http.Handler {
	return newTestRouter(&service.Service{
		Authorization: &mockAuth{parseID: 1},
		Analysis:      &mockAnalysis{workshops: testWorkshops},
		Readings:      rd,
	})
}

func multipartUpload(t *testing.T, field, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, "export.csv")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	_, _ = fw.Write([]byte(content))
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestReadingsHandler_List(t *testing.T) {
	now := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	rd := &mockReadings{resp: []rt.Event{
		{ID: "r1", Timestamp: now, Tag: "CIn_OF_Num", Value: 1042, Kind: rt.KindLotChange},
	}}
	r := newReadingsRouter(rd)

	w := httptest.NewRecorder()
	q := "/api/v1/readings?from=" + now.Format(time.RFC3339) + "&tag=X_Tag&workshop=fx2"
	r.ServeHTTP(w, authedRequest(http.MethodGet, q, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d, body=%s", w.Code, w.Body.String())
	}

	var out struct {
		Count    int        `json:"count"`
		Readings []rt.Event `json:"readings"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if out.Count != 1 || out.Readings[0].ID != "r1" {
		t.Fatalf("unexpected response: %+v", out)
	}
	if !rd.lastFilter.From.Equal(now) || !rd.lastFilter.To.IsZero() {
		t.Fatalf("unexpected range: %+v", rd.lastFilter)
	}
	if want := []string{"X_Tag", "FIn_OF_Num", "FIn_ISO_Cpt"}; !reflect.DeepEqual(rd.lastFilter.Tags, want) {
		t.Fatalf("tags=%v, want %v", rd.lastFilter.Tags, want)
	}
}

func TestReadingsHandler_ListErrors(t *testing.T) {
	cases := []struct {
		name   string
		target string
		err    error
		want   int
	}{
		{"bad to", "/api/v1/readings?to=soon", nil, http.StatusBadRequest},
		{"unknown workshop", "/api/v1/readings?workshop=FX9", nil, http.StatusNotFound},
		{"store failure", "/api/v1/readings", errors.New("disk I/O error"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			newReadingsRouter(&mockReadings{listErr: tc.err}).ServeHTTP(w, authedRequest(http.MethodGet, tc.target, nil))
			if w.Code != tc.want {
				t.Fatalf("status=%d, want %d", w.Code, tc.want)
			}
		})
	}
}

func TestReadingsHandler_Import(t *testing.T) {
	content := "TagName,Valeur,DateTime\nCIn_OF_Num,1042,2025-03-01 08:00:00\n"
	rd := &mockReadings{stats: ingest.Stats{Rows: 1, Events: 1}}
	r := newReadingsRouter(rd)

	body, ct := multipartUpload(t, "file", content)
	req := authedRequest(http.MethodPost, "/api/v1/readings/import", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status=%d, body=%s", w.Code, w.Body.String())
	}
	var stats ingest.Stats
	_ = json.Unmarshal(w.Body.Bytes(), &stats)
	if stats != (ingest.Stats{Rows: 1, Events: 1}) {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if rd.lastBody != content {
		t.Fatalf("service got %q", rd.lastBody)
	}
}

func TestReadingsHandler_ImportErrors(t *testing.T) {
	cases := []struct {
		name  string
		field string
		err   error
		want  int
	}{
		{"missing file field", "upload", nil, http.StatusBadRequest},
		{"bad header", "file", fmt.Errorf("decode readings: %w", ingest.ErrMissingColumn), http.StatusBadRequest},
		{"empty file", "file", fmt.Errorf("decode readings: %w", ingest.ErrNoHeader), http.StatusBadRequest},
		{"store failure", "file", errors.New("store readings: database is locked"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body, ct := multipartUpload(t, tc.field, "x")
			req := authedRequest(http.MethodPost, "/api/v1/readings/import", body)
			req.Header.Set("Content-Type", ct)
			w := httptest.NewRecorder()
			newReadingsRouter(&mockReadings{importErr: tc.err}).ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Fatalf("status=%d, want %d, body=%s", w.Code, tc.want, w.Body.String())
			}
		})
	}
}

func TestReadingsHandler_Fetch(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		err     error
		want    int
		wantURL string
	}{
		{"explicit url", `{"url":"http://historian/export.csv"}`, nil, http.StatusOK, "http://historian/export.csv"},
		{"configured url", "", nil, http.StatusOK, ""},
		{"no source", "", service.ErrNoSource, http.StatusBadRequest, ""},
		{"upstream failure", `{"url":"http://down/x.csv"}`, errors.New("unexpected status 503"), http.StatusBadGateway, "http://down/x.csv"},
		{"bad body", `{"url":1}`, nil, http.StatusBadRequest, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rd := &mockReadings{fetchErr: tc.err}
			req := authedRequest(http.MethodPost, "/api/v1/readings/fetch", bytes.NewBufferString(tc.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			newReadingsRouter(rd).ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Fatalf("status=%d, want %d, body=%s", w.Code, tc.want, w.Body.String())
			}
			if rd.lastURL != tc.wantURL {
				t.Fatalf("url=%q, want %q", rd.lastURL, tc.wantURL)
			}
		})
	}
}
