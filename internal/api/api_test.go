package api_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nazm-contest-api/internal/api"
	"github.com/nazm-contest-api/internal/auth"
	"github.com/nazm-contest-api/internal/config"
	"github.com/nazm-contest-api/internal/identity"
	"github.com/nazm-contest-api/internal/mocks"
	"github.com/nazm-contest-api/internal/models"
	"github.com/nazm-contest-api/internal/service"
	"github.com/nazm-contest-api/internal/storage"
	"github.com/rs/zerolog"
)

type testServer struct {
	router     *gin.Engine
	store      *mocks.Store
	adminToken string
	poetToken  string
	otherToken string
}

func setupTestRouter(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Server: config.ServerConfig{Port: "8080"},
		Upload: config.UploadConfig{
			MaxTextSize:  1024,
			MaxAudioSize: 2048,
			UploadDir:    t.TempDir(),
		},
		Auth: config.AuthConfig{
			JWTSecret: "test-secret",
			Issuer:    "nazm-test",
			TokenTTL:  time.Hour,
		},
	}

	log := zerolog.Nop()
	store := mocks.NewStore()
	blobs, err := storage.NewDiskStore(cfg.Upload.UploadDir, log)
	if err != nil {
		t.Fatalf("NewDiskStore failed: %v", err)
	}
	services := service.NewServices(store.Repositories(), blobs, cfg, log)
	resolver := identity.NewJWTResolver(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)

	issue := func(p auth.Principal) string {
		token, err := resolver.Issue(p)
		if err != nil {
			t.Fatalf("Issue failed: %v", err)
		}
		return token
	}

	return &testServer{
		router:     api.NewRouter(services, resolver, nil, cfg, log),
		store:      store,
		adminToken: issue(auth.Principal{UserID: "admin-1", Name: "Registrar", Role: auth.RoleAdmin}),
		poetToken:  issue(auth.Principal{UserID: "poet-1", Name: "Amina", Role: auth.RoleUser}),
		otherToken: issue(auth.Principal{UserID: "poet-2", Name: "Bilal", Role: auth.RoleUser}),
	}
}

func (s *testServer) do(method, url, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, url, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) doJSON(method, url, token, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	return s.do(method, url, token, r, "application/json")
}

func (s *testServer) createVerse(t *testing.T) string {
	t.Helper()
	w := s.doJSON("POST", "/v1/verses", s.adminToken, `{"text":"Hazaron khwahishen aisi","attribution":"Ghalib","language":"Urdu","day":1}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create verse: %d %s", w.Code, w.Body.String())
	}
	var v models.Verse
	json.Unmarshal(w.Body.Bytes(), &v)
	return v.ID
}

func (s *testServer) submit(t *testing.T, token, verseID string) string {
	t.Helper()
	body := `{"kind":"individual","language":"Urdu","submissionMethod":"manual","content":"dil hi to hai na sang o khisht","inspiredByVerseId":"` + verseID + `"}`
	w := s.doJSON("POST", "/v1/entries", token, body)
	if w.Code != http.StatusCreated {
		t.Fatalf("submit: %d %s", w.Code, w.Body.String())
	}
	var resp struct {
		ID string `json:"id"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp.ID
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("error body is not JSON: %s", w.Body.String())
	}
	return body
}

func TestHealthEndpoint(t *testing.T) {
	s := setupTestRouter(t)

	w := s.do("GET", "/health", "", nil, "")
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)

	if response["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got %v", response["status"])
	}
	if response["service"] != "nazm-contest-api" {
		t.Errorf("Expected service name, got %v", response["service"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := setupTestRouter(t)
	verseID := s.createVerse(t)
	s.submit(t, s.poetToken, verseID)
	s.submit(t, s.poetToken, verseID)

	w := s.do("GET", "/metrics", "", nil, "")
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)

	db := response["database"].(map[string]interface{})
	if db["entries"].(float64) != 2 || db["verses"].(float64) != 1 {
		t.Errorf("Unexpected counts %v", db)
	}
}

func TestAuthentication(t *testing.T) {
	s := setupTestRouter(t)
	verseID := s.createVerse(t)

	tests := []struct {
		name           string
		method         string
		url            string
		token          string
		body           string
		expectedStatus int
	}{
		{"public verse list", "GET", "/v1/verses", "", "", http.StatusOK},
		{"public verse get", "GET", "/v1/verses/" + verseID, "", "", http.StatusOK},
		{"garbage token", "GET", "/v1/verses", "not-a-jwt", "", http.StatusUnauthorized},
		{"anonymous submit", "POST", "/v1/entries", "", `{"kind":"individual"}`, http.StatusUnauthorized},
		{"anonymous leaderboard", "GET", "/v1/leaderboard", "", "", http.StatusUnauthorized},
		{"user creates verse", "POST", "/v1/verses", s.poetToken, `{"text":"t","attribution":"a","language":"Urdu","day":2}`, http.StatusForbidden},
		{"user exports", "GET", "/v1/exports/entries", s.poetToken, "", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.doJSON(tt.method, tt.url, tt.token, tt.body)
			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d. Body: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestRoleCheckedBeforeBody(t *testing.T) {
	s := setupTestRouter(t)
	entry := "/v1/entries/3f2b8c1e-0d4a-4a8e-9c57-6f1d2e3a4b5c"

	tests := []struct {
		name           string
		method         string
		url            string
		body           string
		contentType    string
		expectedStatus int
	}{
		{"rating without value", "PUT", entry + "/rating", `{}`, "application/json", http.StatusForbidden},
		{"unknown status", "PUT", entry + "/status", `{"status":"bogus"}`, "application/json", http.StatusForbidden},
		{"correction not json", "POST", entry + "/correction", `not json`, "application/json", http.StatusForbidden},
		{"correction multipart without file", "POST", entry + "/correction", "", "multipart/form-data; boundary=x", http.StatusForbidden},
		{"verse create not json", "POST", "/v1/verses", `not json`, "application/json", http.StatusForbidden},
		{"verse update not json", "PATCH", "/v1/verses/" + "3f2b8c1e-0d4a-4a8e-9c57-6f1d2e3a4b5c", `not json`, "application/json", http.StatusForbidden},
		{"verse import without file", "POST", "/v1/verses/import", "", "multipart/form-data; boundary=x", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(tt.method, tt.url, s.poetToken, strings.NewReader(tt.body), tt.contentType)
			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d. Body: %s", tt.expectedStatus, w.Code, w.Body.String())
			}

			w = s.do(tt.method, tt.url, "", strings.NewReader(tt.body), tt.contentType)
			if w.Code != http.StatusUnauthorized {
				t.Errorf("Anonymous: expected 401, got %d. Body: %s", w.Code, w.Body.String())
			}
		})
	}

	// submissions need any signed-in user
	w := s.do("POST", "/v1/entries", "", strings.NewReader(`not json`), "application/json")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Anonymous submit: expected 401, got %d", w.Code)
	}
	w = s.do("POST", "/v1/entries/upload", "", strings.NewReader(""), "multipart/form-data; boundary=x")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Anonymous upload: expected 401, got %d", w.Code)
	}
	w = s.do("POST", "/v1/entries", s.poetToken, strings.NewReader(`not json`), "application/json")
	if w.Code != http.StatusBadRequest {
		t.Errorf("Malformed submit from a user: expected 400, got %d", w.Code)
	}
}

func TestExpiredToken(t *testing.T) {
	s := setupTestRouter(t)
	short := identity.NewJWTResolver("test-secret", "nazm-test", -time.Minute)
	token, err := short.Issue(auth.Principal{UserID: "poet-1", Role: auth.RoleUser})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	w := s.doJSON("GET", "/v1/leaderboard", token, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for expired token, got %d", w.Code)
	}
}

func TestVerseEndpoints(t *testing.T) {
	s := setupTestRouter(t)
	verseID := s.createVerse(t)

	w := s.doJSON("POST", "/v1/verses", s.adminToken, `{"text":"t","attribution":"a","language":"Urdu","day":11}`)
	if w.Code != http.StatusConflict {
		t.Errorf("Expected 409 for day 11, got %d", w.Code)
	}

	w = s.doJSON("POST", "/v1/verses", s.adminToken, `{"text":"t","attribution":"a","language":"Latin","day":1}`)
	if w.Code != http.StatusBadRequest || decodeError(t, w)["field"] != "language" {
		t.Errorf("Expected 400 on language, got %d %s", w.Code, w.Body.String())
	}

	w = s.doJSON("PATCH", "/v1/verses/"+verseID, s.adminToken, `{"day":3}`)
	if w.Code != http.StatusOK {
		t.Fatalf("PATCH failed: %d %s", w.Code, w.Body.String())
	}

	w = s.doJSON("GET", "/v1/verses?language=Urdu&day=3", "", "")
	var list struct {
		Count int `json:"count"`
	}
	json.Unmarshal(w.Body.Bytes(), &list)
	if list.Count != 1 {
		t.Errorf("Expected 1 verse on day 3, got %d", list.Count)
	}

	w = s.doJSON("GET", "/v1/verses?day=three", "", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for non-numeric day, got %d", w.Code)
	}

	s.submit(t, s.poetToken, verseID)
	w = s.doJSON("DELETE", "/v1/verses/"+verseID, s.adminToken, "")
	if w.Code != http.StatusConflict {
		t.Errorf("Expected 409 deleting a referenced verse, got %d", w.Code)
	}

	w = s.doJSON("GET", "/v1/verses/missing", "", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}

func TestVerseImport_Multipart(t *testing.T) {
	s := setupTestRouter(t)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, _ := writer.CreateFormFile("file", "seed.toml")
	part.Write([]byte("[[verse]]\ntext = \"Dawn\"\nattribution = \"Anon\"\nlanguage = \"English\"\nday = 1\n\n[[verse]]\ntext = \"\"\nattribution = \"Anon\"\nlanguage = \"English\"\nday = 2\n"))
	writer.Close()

	w := s.do("POST", "/v1/verses/import", s.adminToken, body, writer.FormDataContentType())
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d. Body: %s", w.Code, w.Body.String())
	}

	var result models.VerseImportResult
	json.Unmarshal(w.Body.Bytes(), &result)
	if result.Inserted != 1 || result.Failed != 1 || len(result.Errors) != 1 {
		t.Errorf("Unexpected import result %+v", result)
	}

	w = s.do("POST", "/v1/verses/import?format=ndjson", s.poetToken, strings.NewReader("{}"), "application/x-ndjson")
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for non-admin import, got %d", w.Code)
	}
}

func TestReviewFlow(t *testing.T) {
	s := setupTestRouter(t)
	verseID := s.createVerse(t)
	id := s.submit(t, s.poetToken, verseID)

	w := s.doJSON("PUT", "/v1/entries/"+id+"/rating", s.adminToken, `{"rating":3.5}`)
	if w.Code != http.StatusConflict {
		t.Errorf("Rating an unapproved entry: expected 409, got %d", w.Code)
	}

	w = s.doJSON("PUT", "/v1/entries/"+id+"/approve", s.poetToken, "")
	if w.Code != http.StatusForbidden {
		t.Errorf("User approve: expected 403, got %d", w.Code)
	}

	w = s.doJSON("PUT", "/v1/entries/"+id+"/approve", s.adminToken, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Approve: %d %s", w.Code, w.Body.String())
	}

	w = s.doJSON("PUT", "/v1/entries/"+id+"/rating", s.adminToken, `{"rating":4.2}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Invalid rating: expected 400, got %d", w.Code)
	}
	w = s.doJSON("PUT", "/v1/entries/"+id+"/rating", s.adminToken, `{}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Missing rating: expected 400, got %d", w.Code)
	}

	w = s.doJSON("PUT", "/v1/entries/"+id+"/rating", s.adminToken, `{"rating":4.5}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Rate: %d %s", w.Code, w.Body.String())
	}

	w = s.doJSON("PUT", "/v1/entries/"+id+"/feature", s.adminToken, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Feature: %d %s", w.Code, w.Body.String())
	}

	w = s.doJSON("POST", "/v1/entries/"+id+"/correction", s.adminToken, `{"correctedContent":"dil hi to hai"}`)
	var entry models.Entry
	json.Unmarshal(w.Body.Bytes(), &entry)
	if w.Code != http.StatusOK || entry.Status != models.StatusCorrectionDone {
		t.Errorf("Correction: %d %s", w.Code, w.Body.String())
	}

	w = s.doJSON("PUT", "/v1/entries/"+id+"/status", s.adminToken, `{"status":"correction_pending"}`)
	json.Unmarshal(w.Body.Bytes(), &entry)
	if w.Code != http.StatusOK || entry.Status != models.StatusCorrectionPending {
		t.Errorf("Status: %d %s", w.Code, w.Body.String())
	}

	w = s.doJSON("PUT", "/v1/entries/"+id+"/status", s.adminToken, `{"status":"archived"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Unknown status: expected 400, got %d", w.Code)
	}

	w = s.doJSON("GET", "/v1/entries/featured", s.otherToken, "")
	var featured struct {
		Entry *models.Entry `json:"entry"`
	}
	json.Unmarshal(w.Body.Bytes(), &featured)
	if featured.Entry == nil || featured.Entry.ID != id {
		t.Errorf("Expected featured entry %s, got %s", id, w.Body.String())
	}

	w = s.doJSON("GET", "/v1/leaderboard?kind=individual", s.otherToken, "")
	var board struct {
		Leaderboard []models.RankEntry `json:"leaderboard"`
	}
	json.Unmarshal(w.Body.Bytes(), &board)
	if len(board.Leaderboard) != 1 || board.Leaderboard[0].TotalStars != 4.5 || board.Leaderboard[0].SubmissionCount != 1 {
		t.Errorf("Unexpected leaderboard %s", w.Body.String())
	}

	w = s.doJSON("GET", "/v1/leaderboard?kind=epic", s.otherToken, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("Unknown kind: expected 400, got %d", w.Code)
	}

	w = s.doJSON("GET", "/v1/leaderboard", s.otherToken, "")
	if w.Code != http.StatusBadRequest || decodeError(t, w)["field"] != "kind" {
		t.Errorf("Missing kind: expected 400 on kind, got %d %s", w.Code, w.Body.String())
	}

	w = s.doJSON("DELETE", "/v1/entries/"+id+"/feature", s.adminToken, "")
	if w.Code != http.StatusOK {
		t.Errorf("Unfeature: %d", w.Code)
	}

	w = s.doJSON("DELETE", "/v1/entries/"+id, s.adminToken, "")
	if w.Code != http.StatusOK {
		t.Errorf("Reject: %d", w.Code)
	}
	w = s.doJSON("GET", "/v1/entries/"+id, s.adminToken, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after reject, got %d", w.Code)
	}
}

func TestEntryQueries(t *testing.T) {
	s := setupTestRouter(t)
	verseID := s.createVerse(t)
	mine := s.submit(t, s.poetToken, verseID)
	s.submit(t, s.otherToken, verseID)

	w := s.doJSON("GET", "/v1/entries/"+mine, s.otherToken, "")
	if w.Code != http.StatusForbidden {
		t.Errorf("Foreign entry: expected 403, got %d", w.Code)
	}

	w = s.doJSON("GET", "/v1/entries?approved=true", s.adminToken, "")
	var page models.EntryPage
	json.Unmarshal(w.Body.Bytes(), &page)
	if page.Total != 0 {
		t.Errorf("Admin approved=true: expected 0, got %d", page.Total)
	}

	w = s.doJSON("GET", "/v1/entries?approved=true&perPage=1", s.poetToken, "")
	json.Unmarshal(w.Body.Bytes(), &page)
	if page.Total != 2 || len(page.Entries) != 1 || page.PerPage != 1 {
		t.Errorf("User listing: %s", w.Body.String())
	}

	for _, url := range []string{"/v1/entries?approved=maybe", "/v1/entries?page=x", "/v1/entries?sort=random", "/v1/entries/best?limit=ten"} {
		w = s.doJSON("GET", url, s.adminToken, "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", url, w.Code)
		}
	}

	w = s.doJSON("GET", "/v1/entries/best", s.poetToken, "")
	if w.Code != http.StatusOK {
		t.Errorf("Best: %d", w.Code)
	}

	w = s.doJSON("GET", "/v1/entries/"+mine+"/file", s.poetToken, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Manual entry has no file: expected 404, got %d", w.Code)
	}
}

func TestSubmitUploadAndDownload(t *testing.T) {
	s := setupTestRouter(t)
	verseID := s.createVerse(t)

	upload := func(filename, method, kind string, data []byte) *httptest.ResponseRecorder {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		writer.WriteField("kind", kind)
		writer.WriteField("language", "Urdu")
		writer.WriteField("submissionMethod", method)
		writer.WriteField("inspiredByVerseId", verseID)
		part, _ := writer.CreateFormFile("file", filename)
		part.Write(data)
		writer.Close()
		return s.do("POST", "/v1/entries/upload", s.poetToken, body, writer.FormDataContentType())
	}

	w := upload("ghazal.docx", "upload", "full", []byte("PK\x03\x04 ghazal"))
	if w.Code != http.StatusCreated {
		t.Fatalf("Upload: %d %s", w.Code, w.Body.String())
	}
	var resp struct {
		ID string `json:"id"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)

	w = s.doJSON("GET", "/v1/entries/"+resp.ID+"/file", s.poetToken, "")
	if w.Code != http.StatusOK || w.Body.String() != "PK\x03\x04 ghazal" {
		t.Errorf("Download: %d %q", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Header().Get("Content-Disposition"), "attachment") {
		t.Errorf("Expected attachment disposition, got %q", w.Header().Get("Content-Disposition"))
	}

	w = s.doJSON("GET", "/v1/entries/"+resp.ID+"/file", s.otherToken, "")
	if w.Code != http.StatusForbidden {
		t.Errorf("Foreign download: expected 403, got %d", w.Code)
	}

	tests := []struct {
		name     string
		filename string
		method   string
		kind     string
		size     int
	}{
		{"bad extension", "ghazal.exe", "upload", "full", 10},
		{"too large", "ghazal.pdf", "upload", "full", 2000},
		{"recording of full work", "recital.mp3", "recording", "full", 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := upload(tt.filename, tt.method, tt.kind, bytes.Repeat([]byte("x"), tt.size))
			if w.Code != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d. Body: %s", w.Code, w.Body.String())
			}
		})
	}

	w = s.do("POST", "/v1/entries/upload", s.poetToken, strings.NewReader("{}"), "application/json")
	if w.Code != http.StatusBadRequest {
		t.Errorf("Missing file: expected 400, got %d", w.Code)
	}
}

func TestExports(t *testing.T) {
	s := setupTestRouter(t)
	verseID := s.createVerse(t)
	id := s.submit(t, s.poetToken, verseID)
	s.doJSON("PUT", "/v1/entries/"+id+"/approve", s.adminToken, "")
	s.doJSON("PUT", "/v1/entries/"+id+"/rating", s.adminToken, `{"rating":5}`)

	w := s.doJSON("GET", "/v1/exports/entries?format=csv", s.adminToken, "")
	if w.Code != http.StatusOK {
		t.Fatalf("CSV export: %d", w.Code)
	}
	if w.Header().Get("Content-Type") != "text/csv" {
		t.Errorf("Expected text/csv, got %s", w.Header().Get("Content-Type"))
	}
	if !bytes.Contains(w.Body.Bytes(), []byte(id)) {
		t.Errorf("CSV should contain the entry, got: %s", w.Body.String())
	}

	w = s.doJSON("GET", "/v1/exports/leaderboard?kind=individual", s.adminToken, "")
	if !strings.HasPrefix(w.Body.String(), "rank,author_id,author_name,total_stars,submission_count\n1,poet-1,Amina,5.0,1") {
		t.Errorf("Unexpected leaderboard CSV: %s", w.Body.String())
	}

	w = s.doJSON("GET", "/v1/exports/entries?format=xml", s.adminToken, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("Invalid format: expected 400, got %d", w.Code)
	}
	if !strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		t.Errorf("Error should be JSON, got %s", w.Header().Get("Content-Type"))
	}
}

func TestStoreFailureIs503(t *testing.T) {
	s := setupTestRouter(t)
	s.store.FailWith(errors.New("connection reset"))

	w := s.doJSON("GET", "/v1/leaderboard?kind=individual", s.poetToken, "")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", w.Code)
	}
	if decodeError(t, w)["kind"] != "transport" {
		t.Errorf("Expected transport kind, got %s", w.Body.String())
	}
}

func TestCORSHeaders(t *testing.T) {
	s := setupTestRouter(t)

	w := s.do("OPTIONS", "/v1/entries", "", nil, "")
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected status 204 for OPTIONS, got %d", w.Code)
	}

	allowOrigin := w.Header().Get("Access-Control-Allow-Origin")
	if allowOrigin != "*" {
		t.Errorf("Expected Access-Control-Allow-Origin '*', got '%s'", allowOrigin)
	}

	if !strings.Contains(w.Header().Get("Access-Control-Allow-Headers"), "Authorization") {
		t.Error("Expected Authorization in Access-Control-Allow-Headers")
	}
}
