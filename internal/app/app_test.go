package app

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/golang-jwt/jwt/v5"

	"github.com/jun/homeworklink/internal/adapter"
	"github.com/jun/homeworklink/internal/adapter/googleclassroom"
	"github.com/jun/homeworklink/internal/adapter/memory"
	"github.com/jun/homeworklink/internal/auth"
	"github.com/jun/homeworklink/internal/config"
	"github.com/jun/homeworklink/internal/crypto"
	"github.com/jun/homeworklink/internal/handler"
	"github.com/jun/homeworklink/internal/model"
)

const (
	testOrigin = "https://parents.example"
	testDomain = "school.example"
	testSecret = "s3cret"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	return &config.Config{
		ClientOrigin:       testOrigin,
		PathSecret:         testSecret,
		EncryptionKey:      []byte("01234567890123456789012345678901"),
		EncryptionIV:       []byte("abcdefghijklmnop"),
		StudentEmailDomain: testDomain,
		CourseSuffix:       "*",
		Location:           time.UTC,
		UpstreamTimeout:    2 * time.Second,
	}
}

func newTestApp(t *testing.T, cfg *config.Config, provider adapter.ClassroomProvider) *App {
	t.Helper()
	app, err := New(cfg, provider, discardLogger())
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	return app
}

func tokenFor(t *testing.T, cfg *config.Config, id string) string {
	t.Helper()
	codec, err := crypto.NewCodec(cfg.EncryptionKey, cfg.EncryptionIV)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	return codec.Encode(id)
}

func get(path string) events.APIGatewayProxyRequest {
	return events.APIGatewayProxyRequest{HTTPMethod: http.MethodGet, Path: path, Headers: map[string]string{}}
}

func do(t *testing.T, app *App, req events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	t.Helper()
	resp, err := app.HandleRequest(context.Background(), req)
	if err != nil {
		t.Fatalf("HandleRequest returned error: %v", err)
	}
	return resp
}

func assertCORS(t *testing.T, resp events.APIGatewayProxyResponse) {
	t.Helper()
	want := map[string]string{
		"Access-Control-Allow-Origin":  testOrigin,
		"Access-Control-Allow-Methods": "GET,OPTIONS",
		"Access-Control-Max-Age":       "86400",
	}
	for k, v := range want {
		if got := resp.Headers[k]; got != v {
			t.Errorf("header %s = %q, want %q", k, got, v)
		}
	}
}

func dueIn(days int) *model.DueDate {
	d := time.Now().UTC().AddDate(0, 0, days)
	return &model.DueDate{Year: d.Year(), Month: int(d.Month()), Day: d.Day()}
}

func TestGenerateSecrets(t *testing.T) {
	for name, app := range map[string]*App{
		"configured":   newTestApp(t, testConfig(), memory.NewProvider()),
		"unconfigured": NewBootstrapApp(discardLogger()),
	} {
		t.Run(name, func(t *testing.T) {
			resp := do(t, app, get("/generatesecrets"))
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d, want 200", resp.StatusCode)
			}
			lines := strings.Split(resp.Body, "\n")
			if len(lines) != 3 {
				t.Fatalf("got %d lines: %q", len(lines), resp.Body)
			}
			for i, prefix := range []string{"PATH_SECRET: ", "ENCRYPTION_KEY: ", "ENCRYPTION_IV: "} {
				if !strings.HasPrefix(lines[i], prefix) {
					t.Errorf("line %d = %q, want prefix %q", i, lines[i], prefix)
				}
			}
			if _, ok := resp.Headers["Access-Control-Allow-Origin"]; ok {
				t.Error("bootstrap route must not carry CORS headers")
			}
		})
	}
}

func TestUnconfigured(t *testing.T) {
	app := NewBootstrapApp(discardLogger())
	for _, req := range []events.APIGatewayProxyRequest{
		get("/homework/abc"),
		get("/encrypt/x/y"),
		{HTTPMethod: http.MethodOptions, Path: "/homework/abc"},
		{HTTPMethod: http.MethodPost, Path: "/generatesecrets"},
	} {
		resp := do(t, app, req)
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("%s %s: status = %d, want 503", req.HTTPMethod, req.Path, resp.StatusCode)
		}
	}
}

func TestPreflight(t *testing.T) {
	app := newTestApp(t, testConfig(), memory.NewProvider())

	full := map[string]string{
		"Origin":                         testOrigin,
		"Access-Control-Request-Method":  "GET",
		"Access-Control-Request-Headers": "content-type, x-requested-with",
	}

	resp := do(t, app, events.APIGatewayProxyRequest{HTTPMethod: http.MethodOptions, Path: "/homework/abc", Headers: full})
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	assertCORS(t, resp)
	if got := resp.Headers["Access-Control-Allow-Headers"]; got != "content-type, x-requested-with" {
		t.Errorf("Access-Control-Allow-Headers = %q", got)
	}

	for missing := range full {
		t.Run("without "+missing, func(t *testing.T) {
			headers := make(map[string]string)
			for k, v := range full {
				if k != missing {
					headers[k] = v
				}
			}
			resp := do(t, app, events.APIGatewayProxyRequest{HTTPMethod: http.MethodOptions, Path: "/", Headers: headers})
			if got := resp.Headers["Allow"]; got != "GET, OPTIONS" {
				t.Errorf("Allow = %q", got)
			}
			if len(resp.Headers) != 1 {
				t.Errorf("headers = %v, want only Allow", resp.Headers)
			}
		})
	}
}

func TestPreflight_LowercaseHeaders(t *testing.T) {
	app := newTestApp(t, testConfig(), memory.NewProvider())
	resp := do(t, app, events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodOptions,
		Path:       "/homework/abc",
		Headers: map[string]string{
			"origin":                         testOrigin,
			"access-control-request-method":  "GET",
			"access-control-request-headers": "accept",
		},
	})
	if got := resp.Headers["Access-Control-Allow-Headers"]; got != "accept" {
		t.Errorf("Access-Control-Allow-Headers = %q", got)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	app := newTestApp(t, testConfig(), memory.NewProvider())
	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch} {
		resp := do(t, app, events.APIGatewayProxyRequest{HTTPMethod: method, Path: "/homework/abc"})
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("%s: status = %d, want 405", method, resp.StatusCode)
		}
		assertCORS(t, resp)
	}
}

func TestEncryptRoute(t *testing.T) {
	cfg := testConfig()
	app := newTestApp(t, cfg, memory.NewProvider())

	tests := []struct {
		name   string
		path   string
		status int
		body   string
	}{
		{"valid identity", "/encrypt/" + testSecret + "/jdoe", http.StatusOK, tokenFor(t, cfg, "jdoe")},
		{"apostrophe identity", "/encrypt/" + testSecret + "/o'neill.k", http.StatusOK, tokenFor(t, cfg, "o'neill.k")},
		{"invalid identity", "/encrypt/" + testSecret + "/j doe", http.StatusBadRequest, "Bad Request"},
		{"identity with slash", "/encrypt/" + testSecret + "/a/b", http.StatusBadRequest, "Bad Request"},
		{"empty identity", "/encrypt/" + testSecret + "/", http.StatusBadRequest, "Bad Request"},
		{"too long", "/encrypt/" + testSecret + "/" + strings.Repeat("a", 51), http.StatusBadRequest, "Bad Request"},
		{"wrong secret", "/encrypt/nope/jdoe", http.StatusNotFound, "Not Found"},
		{"secret prefix", "/encrypt/" + testSecret[:3] + "/jdoe", http.StatusNotFound, "Not Found"},
		{"no identity segment", "/encrypt/" + testSecret, http.StatusNotFound, "Not Found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, app, get(tt.path))
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if resp.Body != tt.body {
				t.Errorf("body = %q, want %q", resp.Body, tt.body)
			}
			assertCORS(t, resp)
		})
	}
}

func TestNotFound(t *testing.T) {
	app := newTestApp(t, testConfig(), memory.NewProvider())
	for _, path := range []string{"/", "/homework", "/encrypt", "/generatesecrets/x", "/favicon.ico"} {
		resp := do(t, app, get(path))
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("%s: status = %d, want 404", path, resp.StatusCode)
		}
		assertCORS(t, resp)
	}
}

func TestHomeworkRoute_Memory(t *testing.T) {
	cfg := testConfig()
	p := memory.NewProvider()
	email := "jdoe@" + testDomain
	p.AddCourse(email, model.Course{ID: "m", Name: "10Ma1"},
		model.CourseWork{Title: "Later", DueDate: dueIn(5)},
		model.CourseWork{Title: "Sooner", DueDate: dueIn(1)},
	)
	p.AddCourse(email, model.Course{ID: "x", Name: "10En2"})
	p.FailCourse("x", errors.New("boom"))
	app := newTestApp(t, cfg, p)

	resp := do(t, app, get("/homework/"+tokenFor(t, cfg, "jdoe")))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %q", resp.StatusCode, resp.Body)
	}
	assertCORS(t, resp)
	if got := resp.Headers[handler.FailedCoursesHeader]; got != "1" {
		t.Errorf("%s = %q, want 1", handler.FailedCoursesHeader, got)
	}
	if got := resp.Headers["Access-Control-Expose-Headers"]; got != handler.FailedCoursesHeader {
		t.Errorf("Access-Control-Expose-Headers = %q", got)
	}

	var items []struct {
		Title   string `json:"title"`
		Subject string `json:"subject"`
	}
	if err := json.Unmarshal([]byte(resp.Body), &items); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if len(items) != 2 || items[0].Title != "Sooner" || items[1].Title != "Later" {
		t.Errorf("items = %+v", items)
	}
	if items[0].Subject != "Maths" {
		t.Errorf("subject = %q, want Maths", items[0].Subject)
	}
}

func TestHomeworkRoute_BadTokens(t *testing.T) {
	cfg := testConfig()
	app := newTestApp(t, cfg, memory.NewProvider())

	for name, token := range map[string]string{
		"garbage":          "not-a-token",
		"empty":            "",
		"with slash":       tokenFor(t, cfg, "jdoe") + "/x",
		"invalid identity": tokenFor(t, cfg, "j doe"),
	} {
		t.Run(name, func(t *testing.T) {
			resp := do(t, app, get("/homework/"+token))
			if resp.StatusCode != http.StatusNotFound || resp.Body != "Not Found" {
				t.Errorf("got %d %q, want 404 Not Found", resp.StatusCode, resp.Body)
			}
			assertCORS(t, resp)
		})
	}
}

func TestRedactPath(t *testing.T) {
	tests := []struct{ in, want string }{
		{"/encrypt/s3cret/jdoe", "/encrypt/[redacted]"},
		{"/homework/abcdef", "/homework/[redacted]"},
		{"/generatesecrets", "/generatesecrets"},
		{"/other", "/other"},
	}
	for _, tt := range tests {
		if got := redactPath(tt.in); got != tt.want {
			t.Errorf("redactPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// googleFake stands in for the Google token endpoint and the Classroom API.
type googleFake struct {
	mu       sync.Mutex
	subjects []string
	paths    []string
	tokenErr bool
}

func (g *googleFake) token(w http.ResponseWriter, r *http.Request) {
	r.ParseForm()
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(r.PostForm.Get("assertion"), claims); err == nil {
		g.mu.Lock()
		g.subjects = append(g.subjects, claims["sub"].(string))
		g.mu.Unlock()
	}
	w.Header().Set("Content-Type", "application/json")
	if g.tokenErr {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"unauthorized_client"}`))
		return
	}
	w.Write([]byte(`{"access_token":"ya29.e2e","token_type":"Bearer","expires_in":3600}`))
}

func (g *googleFake) classroom(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	g.paths = append(g.paths, r.URL.Path)
	g.mu.Unlock()

	if r.Header.Get("Authorization") != "Bearer ya29.e2e" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/v1/courses":
		w.Write([]byte(`{"courses":[{"id":"101","name":"10Ma1 2026"},{"id":"102","name":"10En2 2025"}]}`))
	case "/v1/courses/101/courseWork":
		body, _ := json.Marshal(map[string]any{"courseWork": []map[string]any{
			{"title": "Too far ahead", "dueDate": dateJSON(30)},
			{"title": " Worksheet ", "description": " pages 4-6 ", "dueDate": dateJSON(3)},
			{"title": "Yesterday", "dueDate": dateJSON(-1)},
			{"title": "Long gone", "dueDate": dateJSON(-20)},
			{"title": "Never reached", "dueDate": dateJSON(2)},
		}})
		w.Write(body)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func dateJSON(days int) map[string]int {
	d := dueIn(days)
	return map[string]int{"year": d.Year, "month": d.Month, "day": d.Day}
}

func newGoogleApp(t *testing.T, fake *googleFake) *App {
	t.Helper()
	tokenSrv := httptest.NewServer(http.HandlerFunc(fake.token))
	t.Cleanup(tokenSrv.Close)
	classroomSrv := httptest.NewServer(http.HandlerFunc(fake.classroom))
	t.Cleanup(classroomSrv.Close)

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}
	cfg := testConfig()
	cfg.CourseSuffix = " 2026"
	cfg.ServiceAccountEmail = "reader@project.iam.gserviceaccount.com"
	cfg.ServiceAccountKey = key
	cfg.TokenURL = tokenSrv.URL

	sa := auth.NewServiceAccount(cfg.ServiceAccountEmail, key, cfg.TokenURL, nil)
	return newTestApp(t, cfg, googleclassroom.NewProvider(sa, classroomSrv.URL+"/"))
}

func TestHomeworkRoute_EndToEnd(t *testing.T) {
	fake := &googleFake{}
	app := newGoogleApp(t, fake)

	resp := do(t, app, get("/homework/"+tokenFor(t, app.cfg, "jdoe")))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %q", resp.StatusCode, resp.Body)
	}
	assertCORS(t, resp)
	if ct := resp.Headers["Content-Type"]; ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if _, ok := resp.Headers[handler.FailedCoursesHeader]; ok {
		t.Error("no course failed, header should be absent")
	}

	var items []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		DueDate     int64  `json:"dueDate"`
		Subject     string `json:"subject"`
	}
	if err := json.Unmarshal([]byte(resp.Body), &items); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2: %s", len(items), resp.Body)
	}
	if items[0].Title != "Yesterday" || items[1].Title != "Worksheet" {
		t.Errorf("order = %q, %q", items[0].Title, items[1].Title)
	}
	if items[1].Description != "pages 4-6" {
		t.Errorf("description = %q", items[1].Description)
	}
	if items[0].DueDate >= items[1].DueDate {
		t.Errorf("dueDate not ascending: %d, %d", items[0].DueDate, items[1].DueDate)
	}
	for _, it := range items {
		if it.Subject != "Maths" {
			t.Errorf("subject = %q, want Maths", it.Subject)
		}
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if len(fake.subjects) != 1 || fake.subjects[0] != "jdoe@"+testDomain {
		t.Errorf("impersonated subjects = %v", fake.subjects)
	}
	for _, p := range fake.paths {
		if p == "/v1/courses/102/courseWork" {
			t.Error("coursework fetched for a course filtered out by suffix")
		}
	}
}

func TestHomeworkRoute_AuthFailure(t *testing.T) {
	fake := &googleFake{tokenErr: true}
	app := newGoogleApp(t, fake)

	resp := do(t, app, get("/homework/"+tokenFor(t, app.cfg, "jdoe")))
	if resp.StatusCode != http.StatusBadGateway || resp.Body != "Bad Gateway" {
		t.Errorf("got %d %q, want 502 Bad Gateway", resp.StatusCode, resp.Body)
	}
	assertCORS(t, resp)
	if strings.Contains(resp.Body, "unauthorized_client") {
		t.Error("upstream detail leaked into response")
	}
}
