//go:build e2e
// +build e2e

package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

const (
	baseURL            = "http://localhost:8080"
	expectedFakePrice  = 189.84
	composeUpTimeout   = 3 * time.Minute
	composeDownTimeout = 1 * time.Minute
	readyTimeout       = 30 * time.Second
	readyPollInterval  = 250 * time.Millisecond
)

type quoteResponse struct {
	Current   *float64 `json:"c"`
	High      *float64 `json:"h"`
	Low       *float64 `json:"l"`
	Open      *float64 `json:"o"`
	PrevClose *float64 `json:"pc"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func TestE2E_PGProfile(t *testing.T) {
	if !isE2EEnabled(t) {
		t.Skip("E2E_PROFILES not enabled or docker compose unavailable")
	}
	cleanup := startProfile(t, "pg")
	defer cleanup()

	waitForReady(t, baseURL)
	exerciseAPI(t, baseURL)
}

func TestE2E_SQLiteProfile(t *testing.T) {
	if !isE2EEnabled(t) {
		t.Skip("E2E_PROFILES not enabled or docker compose unavailable")
	}
	cleanup := startProfile(t, "sqlite")
	defer cleanup()

	waitForReady(t, baseURL)
	exerciseAPI(t, baseURL)
}

func exerciseAPI(t *testing.T, baseURL string) {
	t.Helper()
	for i := 0; i < 2; i++ {
		price := getQuote(t, baseURL, "AAPL")
		assertApproxEqual(t, price, expectedFakePrice, 1e-4)
	}

	var countries []map[string]any
	getJSON(t, baseURL+"/economic/countries", http.StatusOK, &countries)
	if len(countries) == 0 {
		t.Fatalf("expected countries in response")
	}

	var calendar []map[string]any
	getJSON(t, baseURL+"/calendar/earnings?from=2025-01-01&to=2025-03-31", http.StatusOK, &calendar)
	if len(calendar) == 0 {
		t.Fatalf("expected earnings rows in response")
	}

	var bad errorResponse
	getJSON(t, baseURL+"/market/quote", http.StatusBadRequest, &bad)
	if bad.Detail == "" {
		t.Fatalf("missing detail in 400 response")
	}
}

func isE2EEnabled(t *testing.T) bool {
	t.Helper()
	if os.Getenv("E2E_PROFILES") != "1" {
		return false
	}
	if _, err := exec.LookPath("docker"); err != nil {
		return false
	}
	// Check docker compose (v2)
	cmd := exec.Command("docker", "compose", "version")
	if err := cmd.Run(); err != nil {
		return false
	}
	return true
}

func startProfile(t *testing.T, profile string) func() {
	t.Helper()
	composeFile := repoPath(t, "ops", "docker", "docker-compose.yml")

	// Ensure clean slate (best-effort)
	_ = runCompose(t, composeDownTimeout, "down -v", profile, composeFile)

	if err := runCompose(t, composeUpTimeout, "up -d --build", profile, composeFile); err != nil {
		t.Fatalf("failed to start profile %q: %v", profile, err)
	}
	return func() {
		_ = runCompose(t, composeDownTimeout, "down -v", profile, composeFile)
	}
}

func runCompose(t *testing.T, timeout time.Duration, action, profile, composeFile string) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	args := []string{"compose", "-f", composeFile, "--profile", profile}
	args = append(args, strings.Split(action, " ")...)
	cmd := exec.CommandContext(ctx, "docker", args...)
	// Canned upstream payloads keep assertions deterministic
	cmd.Env = append(os.Environ(), "PROVIDER=fake")
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("docker %s failed: %w\nOutput:\n%s", strings.Join(args, " "), err, string(out))
	}
	return nil
}

func waitForReady(t *testing.T, baseURL string) {
	t.Helper()
	deadline := time.Now().Add(readyTimeout)
	client := &http.Client{Timeout: 2 * time.Second}
	for time.Now().Before(deadline) {
		resp, err := client.Get(baseURL + "/readyz")
		if err == nil && resp.StatusCode == http.StatusOK {
			_ = resp.Body.Close()
			return
		}
		if resp != nil {
			_ = resp.Body.Close()
		}
		time.Sleep(readyPollInterval)
	}
	t.Fatalf("API did not become ready within %s", readyTimeout)
}

func getJSON(t *testing.T, url string, wantStatus int, out any) {
	t.Helper()
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		t.Fatalf("unexpected status for GET %s: got %d, want %d", url, resp.StatusCode, wantStatus)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatalf("missing X-Request-ID on GET %s", url)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("failed to decode GET %s: %v", url, err)
	}
}

func getQuote(t *testing.T, baseURL, symbol string) float64 {
	t.Helper()
	var out quoteResponse
	getJSON(t, baseURL+"/market/quote?symbol="+symbol, http.StatusOK, &out)
	if out.Current == nil {
		t.Fatalf("missing current price in quote response")
	}
	return *out.Current
}

func assertApproxEqual(t *testing.T, got, want, tol float64) {
	t.Helper()
	if got > want+tol || got < want-tol {
		t.Fatalf("unexpected price: got %.6f, want %.6f (tolerance %.6f)", got, want, tol)
	}
}

func repoPath(t *testing.T, parts ...string) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatalf("failed to determine caller")
	}
	// internal/integration -> internal -> repo root
	dir := filepath.Dir(file)
	parent := filepath.Dir(dir)
	root := filepath.Dir(parent)
	return filepath.Join(root, filepath.Join(parts...))
}
