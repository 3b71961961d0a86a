package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/example/study-scheduler/internal/application"
	"github.com/example/study-scheduler/internal/config"
	"github.com/example/study-scheduler/internal/testfixtures"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(dsn string) config.Config {
	return config.Config{
		HTTPAddr:        "127.0.0.1:0",
		LogLevel:        slog.LevelInfo,
		TokenTTL:        time.Hour,
		SnapshotDSN:     dsn,
		ShutdownTimeout: 5 * time.Second,
	}
}

func cheapOptions() appOptions {
	return appOptions{hashPassword: application.NewArgon2idHasher(testfixtures.CheapArgon2idParams)}
}

func TestApp_HandlerServesAPI(t *testing.T) {
	t.Parallel()

	a, err := newApp(context.Background(), testConfig(""), testLogger(), cheapOptions())
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	server := httptest.NewServer(a.handler())
	t.Cleanup(server.Close)

	resp, err := http.Post(server.URL+"/users", "application/json", strings.NewReader(`{"username":"alice","password":"pw"}`))
	if err != nil {
		t.Fatalf("POST /users: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	resp, err = http.Post(server.URL+"/login", "application/json", strings.NewReader(`{"username":"alice","password":"pw"}`))
	if err != nil {
		t.Fatalf("POST /login: %v", err)
	}
	var login struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&login); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	resp.Body.Close()
	if login.Token == "" {
		t.Fatalf("expected a login token")
	}

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/me/courses", nil)
	req.Header.Set("Authorization", "Bearer "+login.Token)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /me/courses: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	resp, err = http.Get(server.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "go_goroutines") {
		t.Fatalf("expected runtime collectors in /metrics output")
	}
}

func TestApp_SnapshotSurvivesRestart(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := testConfig(filepath.Join(t.TempDir(), "state.db"))

	first, err := newApp(ctx, cfg, testLogger(), cheapOptions())
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	for _, name := range []string{"alice", "bob"} {
		if _, err := first.auth.Register(ctx, application.RegisterParams{Username: name, Password: "pw"}); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}
	alice := application.Principal{Username: "alice"}
	if err := first.profiles.AddCourse(ctx, alice, "CS101"); err != nil {
		t.Fatalf("AddCourse: %v", err)
	}
	if _, err := first.sessions.Propose(ctx, application.ProposeSessionParams{Principal: alice, With: "bob", Date: "2024-01-10", Start: "10:00", End: "11:00"}); err != nil {
		t.Fatalf("Propose: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second, err := newApp(ctx, cfg, testLogger(), cheapOptions())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { _ = second.Close() })

	if _, err := second.auth.Authenticate(ctx, application.AuthenticateParams{Username: "alice", Password: "pw"}); err != nil {
		t.Fatalf("password hash must survive restart: %v", err)
	}
	courses, err := second.profiles.ListCourses(ctx, alice)
	if err != nil || len(courses) != 1 || courses[0] != "CS101" {
		t.Fatalf("ListCourses = %v, %v", courses, err)
	}
	next, err := second.sessions.Propose(ctx, application.ProposeSessionParams{Principal: alice, With: "bob", Date: "2024-01-11", Start: "10:00", End: "11:00"})
	if err != nil {
		t.Fatalf("Propose after restart: %v", err)
	}
	if next.ID != 2 {
		t.Fatalf("expected session ids to continue at 2, got %d", next.ID)
	}
}

func TestRunServe_StopsOnCancel(t *testing.T) {
	t.Parallel()

	a, err := newApp(context.Background(), testConfig(""), testLogger(), cheapOptions())
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runServe(ctx, a) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("runServe: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("runServe did not stop after cancellation")
	}
}

func TestShellCommand_RunsScript(t *testing.T) {
	t.Setenv("STUDYSCHED_SNAPSHOT_DSN", "")
	t.Setenv("STUDYSCHED_LOG_LEVEL", "error")

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetArgs([]string{"shell", "--env-file", filepath.Join(t.TempDir(), "missing.env")})
	cmd.SetIn(strings.NewReader("register alice pw\nlogin alice pw\nadd_course CS101\nlist_courses\nexit\n"))
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	for _, want := range []string{"User registered successfully.", "Logged in as alice", "Courses for alice:\n- CS101\n", "Goodbye!"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestRootCommand_RejectsInvalidConfig(t *testing.T) {
	t.Setenv("STUDYSCHED_TOKEN_TTL", "soon")

	cmd := newRootCommand()
	cmd.SetArgs([]string{"shell", "--env-file", ""})
	cmd.SetIn(strings.NewReader(""))
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	err := cmd.ExecuteContext(context.Background())
	if err == nil || !strings.Contains(err.Error(), "STUDYSCHED_TOKEN_TTL") {
		t.Fatalf("expected invalid token ttl error, got %v", err)
	}
}
