package handlers

import (
	"context"
	"io"
	"net/http"
	"sync"

	rt "resin_tracker"
	"resin_tracker/internal/ingest"
	"resin_tracker/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(_ context.Context, username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(_ context.Context, username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockAnalysis struct {
	mu sync.Mutex

	workshops []rt.WorkshopConfig
	report    rt.WorkshopReport
	reports   []rt.WorkshopReport
	latest    rt.ConsumptionRecord
	latestOK  bool
	breakdown []rt.LotBreakdown
	err       error

	lastName   string
	lastFilter service.RangeFilter
	calls      int
}

func (m *mockAnalysis) record(name string, f service.RangeFilter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastName, m.lastFilter = name, f
	m.calls++
}

func (m *mockAnalysis) Workshops() []rt.WorkshopConfig { return m.workshops }

func (m *mockAnalysis) AnalyzeWorkshop(_ context.Context, name string, f service.RangeFilter) (rt.WorkshopReport, error) {
	m.record(name, f)
	return m.report, m.err
}
func (m *mockAnalysis) AnalyzeAll(_ context.Context, f service.RangeFilter) ([]rt.WorkshopReport, error) {
	m.record("", f)
	return m.reports, m.err
}
func (m *mockAnalysis) LatestLot(_ context.Context, name string) (rt.ConsumptionRecord, bool, error) {
	m.record(name, service.RangeFilter{})
	return m.latest, m.latestOK, m.err
}
func (m *mockAnalysis) Breakdown(_ context.Context, name string, f service.RangeFilter) ([]rt.LotBreakdown, error) {
	m.record(name, f)
	return m.breakdown, m.err
}

func (m *mockAnalysis) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockReadings struct {
	stats     ingest.Stats
	importErr error
	fetchErr  error
	resp      []rt.Event
	listErr   error

	lastBody   string
	lastURL    string
	lastFilter service.ReadingFilter
}

func (m *mockReadings) Import(_ context.Context, r io.Reader) (ingest.Stats, error) {
	b, _ := io.ReadAll(r)
	m.lastBody = string(b)
	return m.stats, m.importErr
}
func (m *mockReadings) ImportURL(_ context.Context, url string) (ingest.Stats, error) {
	m.lastURL = url
	return m.stats, m.fetchErr
}
func (m *mockReadings) List(_ context.Context, f service.ReadingFilter) ([]rt.Event, error) {
	m.lastFilter = f
	return m.resp, m.listErr
}

// ---- Shared Test Helpers ----

var testWorkshops = []rt.WorkshopConfig{
	{Name: "FX1", LotTag: "CIn_OF_Num", CounterTags: []string{"CIn_ISO_Cpt", "CIn_PO_Cpt"}},
	{Name: "FX2", LotTag: "FIn_OF_Num", CounterTags: []string{"FIn_ISO_Cpt"}},
}

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}

func authedRequest(method, target string, body io.Reader) *http.Request {
	req, _ := http.NewRequest(method, target, body)
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	return req
}
