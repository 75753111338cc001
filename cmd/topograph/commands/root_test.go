package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const testGraph = `
vertices:
  - {id: c1, category: RESOURCE, type: cluster}
  - {id: h1, category: RESOURCE, type: host}
  - {id: h2, category: RESOURCE, type: host}
  - {id: vm1, category: RESOURCE, type: instance}
  - {id: a1, category: ALARM, type: nagios, props: {severity: critical}}
  - {id: a2, category: ALARM, type: nagios, props: {severity: warning}}
edges:
  - {id: c1-h1, source: c1, target: h1, label: contains}
  - {id: c1-h2, source: c1, target: h2, label: contains}
  - {id: h1-vm1, source: h1, target: vm1, label: contains}
  - {id: a1-h1, source: a1, target: h1, label: "on"}
  - {id: a2-h2, source: a2, target: h2, label: "on"}
`

const alarmOnHost = `
name: alarm_on_host
description: an alarm raised on a host
entities:
  - {id: alarm, category: ALARM}
  - {id: host, type: host}
relationships:
  - {id: alarm_on_host, source: alarm, target: host, label: "on"}
`

const clusterAlarm = `
name: cluster_alarm
entities:
  - {id: cluster, type: cluster}
  - {id: host, type: host}
  - {id: alarm, category: ALARM, props: {severity: critical}}
relationships:
  - {id: cluster_contains_host, source: cluster, target: host, label: contains}
  - {id: alarm_on_host, source: alarm, target: host, label: "on"}
`

// setupTestEnv points the config and the template cache at a fresh home
// directory.
func setupTestEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func runCmd(t *testing.T, args ...string) (stdout, stderr string, exitCode int) {
	t.Helper()

	oldStdout := os.Stdout
	oldStderr := os.Stderr

	rOut, wOut, _ := os.Pipe()
	rErr, wErr, _ := os.Pipe()
	os.Stdout = wOut
	os.Stderr = wErr

	cfgFile = ""
	contextName = ""
	outputFile = ""
	formatOutput = "yaml"
	verbose = false

	rootCmd.SetArgs(args)
	err := rootCmd.Execute()

	wOut.Close()
	wErr.Close()
	os.Stdout = oldStdout
	os.Stderr = oldStderr

	var outBuf, errBuf bytes.Buffer
	outBuf.ReadFrom(rOut)
	errBuf.ReadFrom(rErr)

	stdout = outBuf.String()
	stderr = errBuf.String()
	if err != nil {
		exitCode = 1
		stderr += err.Error()
	}

	resetFlags(rootCmd)
	return
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			sv.Replace(nil)
		} else {
			f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

// writeTestFile writes content to dir/name and returns the path.
func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// fixtures writes the test graph and a template directory.
func fixtures(t *testing.T) (graphPath, templateDir string) {
	t.Helper()
	dir := t.TempDir()
	graphPath = writeTestFile(t, dir, "graph.yaml", testGraph)
	templateDir = filepath.Join(dir, "templates")
	if err := os.Mkdir(templateDir, 0755); err != nil {
		t.Fatal(err)
	}
	writeTestFile(t, templateDir, "alarm_on_host.yaml", alarmOnHost)
	writeTestFile(t, templateDir, "cluster_alarm.yaml", clusterAlarm)
	return graphPath, templateDir
}

// mustRun runs the command and fails the test on a non-zero exit.
func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	stdout, stderr, code := runCmd(t, args...)
	if code != 0 {
		t.Fatalf("%v: exit %d: %s", args, code, stderr)
	}
	return stdout
}

// decodeJSON runs the command with --format json and decodes its output.
func decodeJSON(t *testing.T, v any, args ...string) {
	t.Helper()
	out := mustRun(t, append(args, "--format", "json")...)
	if err := json.Unmarshal([]byte(out), v); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, out)
	}
}
