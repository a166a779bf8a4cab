package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// newTestServer materializes artifacts plus label files and returns a
// ready server.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	writeArtifacts(t, dataDir)

	mappingPath := filepath.Join(dir, "mapping_file.csv")
	if err := os.WriteFile(mappingPath,
		[]byte("question_code,question\nZT1,Pace is fair\nZT2,Goals are clear\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	labelsPath := filepath.Join(dir, "domain_map.csv")
	if err := os.WriteFile(labelsPath,
		[]byte("domainId;domain_name\n1;Werkdruk\n2;Autonomie\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := New(nil, Options{
		DataDir:      dataDir,
		MappingPath:  mappingPath,
		LabelsPath:   labelsPath,
		CacheEntries: 4,
	})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	return s
}

func get(t *testing.T, s *Server, path string, out any) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if out != nil && rec.Code == http.StatusOK {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("decoding %s response: %v", path, err)
		}
	}
	return rec
}

func TestMetaEndpoint(t *testing.T) {
	s := newTestServer(t)

	var meta struct {
		Teams   []string `json:"teams"`
		Domains []struct {
			ID   int    `json:"id"`
			Name string `json:"name"`
		} `json:"domains"`
		Questions map[string]string `json:"questions"`
	}
	rec := get(t, s, "/api/meta", &meta)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	if len(meta.Teams) != 2 || meta.Teams[0] != "Alpha" || meta.Teams[1] != "Beta" {
		t.Errorf("teams = %v", meta.Teams)
	}
	if len(meta.Domains) != 2 || meta.Domains[0].Name != "Werkdruk" {
		t.Errorf("domains = %+v", meta.Domains)
	}
	if meta.Questions["ZT2"] != "Goals are clear" {
		t.Errorf("questions = %v", meta.Questions)
	}
}

func TestDomainRadarMedian(t *testing.T) {
	s := newTestServer(t)

	var points []RadarPoint
	rec := get(t, s, "/api/radar/domains", &points)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(points) != 2 {
		t.Fatalf("points = %+v", points)
	}

	// Domain 1 scores are 4 and 6: median 5, IQR 1.
	d1 := points[0]
	if d1.Axis != "D1" || d1.Label != "Werkdruk" {
		t.Errorf("axis/label = %q/%q", d1.Axis, d1.Label)
	}
	if d1.Center != 5 || d1.Spread != 1 {
		t.Errorf("center/spread = %f/%f", d1.Center, d1.Spread)
	}
	if d1.Lower != 4 || d1.Upper != 6 {
		t.Errorf("band = [%f, %f]", d1.Lower, d1.Upper)
	}
}

func TestDomainRadarMeanWithSingleScore(t *testing.T) {
	s := newTestServer(t)

	var points []RadarPoint
	get(t, s, "/api/radar/domains?stat=mean", &points)

	// Domain 2 has one score (9): mean 9, std undefined -> spread 0.
	d2 := points[1]
	if d2.Center != 9 || d2.Spread != 0 {
		t.Errorf("center/spread = %f/%f", d2.Center, d2.Spread)
	}
}

func TestDomainRadarTeamFilter(t *testing.T) {
	s := newTestServer(t)

	var points []RadarPoint
	get(t, s, "/api/radar/domains?teams=Beta", &points)
	if len(points) != 1 || points[0].Axis != "D2" {
		t.Errorf("Beta-only points = %+v", points)
	}
}

func TestQuestionRadar(t *testing.T) {
	s := newTestServer(t)

	var points []RadarPoint
	rec := get(t, s, "/api/radar/questions?domain=1", &points)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(points) != 1 || points[0].Axis != "ZT1" || points[0].Label != "Pace is fair" {
		t.Errorf("points = %+v", points)
	}
	if points[0].N != 2 || points[0].Center != 5 {
		t.Errorf("stats = %+v", points[0])
	}
}

func TestQuestionRadarBadDomain(t *testing.T) {
	s := newTestServer(t)
	rec := get(t, s, "/api/radar/questions?domain=abc", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, expected 400", rec.Code)
	}
}

func TestMissingArtifactIsBlocking(t *testing.T) {
	s := newTestServer(t)
	if err := os.Remove(filepath.Join(s.opts.DataDir, "df_long.parquet")); err != nil {
		t.Fatal(err)
	}

	rec := get(t, s, "/api/radar/domains", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, expected 503", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "preprocess") {
		t.Errorf("body %q should point the user at the pipeline", rec.Body.String())
	}
}

func TestCacheBustEndpoint(t *testing.T) {
	s := newTestServer(t)

	// Warm the cache.
	get(t, s, "/api/radar/domains", nil)
	if s.cache.Len() != 1 {
		t.Fatalf("cache len = %d", s.cache.Len())
	}

	req := httptest.NewRequest(http.MethodPost, "/api/cache/bust", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if s.cache.Len() != 0 {
		t.Errorf("cache len after bust = %d", s.cache.Len())
	}

	// GET is rejected.
	rec = get(t, s, "/api/cache/bust", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET bust status = %d", rec.Code)
	}
}

func TestMethodologyRendered(t *testing.T) {
	s := newTestServer(t)
	rec := get(t, s, "/methodology", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "<h1") {
		t.Error("expected rendered HTML headings")
	}
}

func TestIndexPage(t *testing.T) {
	s := newTestServer(t)
	rec := get(t, s, "/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Radar Charts") {
		t.Error("index page missing title")
	}
}
