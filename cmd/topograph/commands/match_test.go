package commands

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/haivivi/topograph/pkg/match"
	"github.com/haivivi/topograph/pkg/rca"
)

func TestMatchByName(t *testing.T) {
	setupTestEnv(t)
	graphPath, tplDir := fixtures(t)

	var results []match.Result
	decodeJSON(t, &results, "match", "-g", graphPath, "--templates", tplDir,
		"-t", "alarm_on_host", "--seed", "alarm=a1")
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if got, want := results[0].Key(), "alarm=a1,host=h1,alarm_on_host=a1-h1"; got != want {
		t.Fatalf("key = %s, want %s", got, want)
	}
}

func TestMatchTemplateFile(t *testing.T) {
	setupTestEnv(t)
	graphPath, tplDir := fixtures(t)
	file := filepath.Join(tplDir, "cluster_alarm.yaml")

	var results []match.Result
	decodeJSON(t, &results, "match", "-g", graphPath, "--template-file", file, "--seed", "cluster=c1")
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1 (only a1 is critical)", len(results))
	}
	if eid, _ := results[0].Vertex("alarm"); eid != "a1" {
		t.Fatalf("alarm = %s, want a1", eid)
	}

	// An edge seed pins the relationship.
	decodeJSON(t, &results, "match", "-g", graphPath, "--template-file", file,
		"--seed-edge", "cluster_contains_host=c1-h2", "--validate")
	if len(results) != 0 {
		t.Fatalf("h2 has no critical alarm, got %d results", len(results))
	}
}

func TestMatchTable(t *testing.T) {
	setupTestEnv(t)
	graphPath, tplDir := fixtures(t)

	out := mustRun(t, "match", "-g", graphPath, "--templates", tplDir,
		"-t", "alarm_on_host", "--seed", "host=h2", "--format", "table")
	if !strings.Contains(out, "alarm=a2,host=h2") {
		t.Fatalf("table missing the assignment:\n%s", out)
	}
}

func TestMatchErrors(t *testing.T) {
	setupTestEnv(t)
	graphPath, tplDir := fixtures(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no template", []string{"match", "-g", graphPath}, "no template"},
		{"both templates", []string{"match", "-g", graphPath, "-t", "x", "--template-file", "y"}, "either"},
		{"unknown template", []string{"match", "-g", graphPath, "--templates", tplDir, "-t", "nope"}, "not found"},
		{"bad seed", []string{"match", "-g", graphPath, "--templates", tplDir, "-t", "alarm_on_host", "--seed", "alarm"}, "invalid seed"},
		{"unknown element", []string{"match", "-g", graphPath, "--templates", tplDir, "-t", "alarm_on_host", "--seed", "switch=h1"}, "unknown template element"},
		{"no seeds", []string{"match", "-g", graphPath, "--templates", tplDir, "-t", "alarm_on_host"}, "unreachable from seeds"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stderr, code := runCmd(t, tt.args...)
			if code == 0 {
				t.Fatal("expected non-zero exit")
			}
			if !strings.Contains(stderr, tt.want) {
				t.Fatalf("expected %q in error, got: %s", tt.want, stderr)
			}
		})
	}
}

func TestChanged(t *testing.T) {
	setupTestEnv(t)
	graphPath, tplDir := fixtures(t)

	var findings []rca.Finding
	decodeJSON(t, &findings, "changed", "-g", graphPath, "--templates", tplDir, "--vertex", "h1")
	if len(findings) != 2 {
		t.Fatalf("got %d findings, want 2: %+v", len(findings), findings)
	}
	if findings[0].Template != "alarm_on_host" || findings[1].Template != "cluster_alarm" {
		t.Fatalf("findings out of order: %s, %s", findings[0].Template, findings[1].Template)
	}
	if findings[0].Trigger != "h1" {
		t.Fatalf("trigger = %q", findings[0].Trigger)
	}

	decodeJSON(t, &findings, "changed", "-g", graphPath, "--templates", tplDir, "--edge", "a2-h2")
	if len(findings) != 1 || findings[0].Result.Key() != "alarm=a2,host=h2,alarm_on_host=a2-h2" {
		t.Fatalf("edge findings = %+v", findings)
	}
}

func TestChangedErrors(t *testing.T) {
	setupTestEnv(t)
	graphPath, tplDir := fixtures(t)

	_, stderr, code := runCmd(t, "changed", "-g", graphPath, "--templates", tplDir)
	if code == 0 || !strings.Contains(stderr, "exactly one") {
		t.Fatalf("expected a usage error, got %d: %s", code, stderr)
	}
	_, stderr, code = runCmd(t, "changed", "-g", graphPath, "--templates", tplDir, "--vertex", "nope")
	if code == 0 || !strings.Contains(stderr, "not found") {
		t.Fatalf("expected not found, got %d: %s", code, stderr)
	}
}
