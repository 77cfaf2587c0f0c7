package app

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewRootCmd_RegistersSubcommands(t *testing.T) {
	root := NewRootCmd(&bytes.Buffer{})

	for _, name := range []string{"serve", "migrate", "seed", "healthcheck"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q is not registered", name)
		}
	}

	for _, path := range [][]string{{"migrate", "down"}, {"migrate", "version"}} {
		cmd, _, err := root.Find(path)
		if err != nil || cmd.Name() != path[1] {
			t.Errorf("subcommand %v is not registered", path)
		}
	}
}

func TestMigrateDown_DefaultSteps(t *testing.T) {
	root := NewRootCmd(&bytes.Buffer{})
	cmd, _, err := root.Find([]string{"migrate", "down"})
	if err != nil {
		t.Fatalf("Find returned error: %v", err)
	}
	if got := cmd.Flags().Lookup("steps").DefValue; got != "1" {
		t.Errorf("--steps default = %q, want %q", got, "1")
	}
}

func TestRun_WithMissingEnv_ReturnsError(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SESSION_SECRET", "")

	for _, args := range [][]string{{}, {"serve"}, {"migrate"}, {"seed"}} {
		var buf bytes.Buffer
		if err := Run(&buf, args); err == nil {
			t.Errorf("Run(%v) with missing env should return error", args)
		}
	}
}

// TestRun_ServeCommand_UnreachableDB はDBに到達できない場合にserveがエラーで終了することを検証する。
func TestRun_ServeCommand_UnreachableDB(t *testing.T) {
	setTestEnv(t)

	var buf bytes.Buffer
	if err := Run(&buf, []string{"serve"}); err == nil {
		t.Fatal("Run(serve) should fail when the database is unreachable")
	}
}

func TestRun_UnknownCommand_ReturnsError(t *testing.T) {
	var buf bytes.Buffer
	if err := Run(&buf, []string{"worker"}); err == nil {
		t.Fatal("unknown subcommand should return error")
	}
}

func TestHealthcheck(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"正常", http.StatusOK, false},
		{"異常", http.StatusServiceUnavailable, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/health" {
					http.NotFound(w, r)
					return
				}
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			err := runHealthcheck(context.Background(), server.URL)
			if (err != nil) != tt.wantErr {
				t.Errorf("runHealthcheck() error = %v, wantErr %v", err, tt.wantErr)
			}

			var buf bytes.Buffer
			err = Run(&buf, []string{"healthcheck", "--url", server.URL})
			if (err != nil) != tt.wantErr {
				t.Errorf("Run(healthcheck) error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
