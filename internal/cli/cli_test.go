package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/telhawk-systems/lognorm/internal/history"
	"github.com/telhawk-systems/lognorm/internal/model"
	"github.com/telhawk-systems/lognorm/pkg/color"
)

const webLine = `192.168.1.5 - - [10/Jan/2024:13:55:36] "GET /login HTTP/1.1" 401 512 "-" "curl/7.68.0"`

type cliEnv struct {
	t       *testing.T
	dir     string
	cfgPath string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	old := color.NoColor
	t.Cleanup(func() { color.NoColor = old })

	dir := t.TempDir()
	return &cliEnv{t: t, dir: dir, cfgPath: filepath.Join(dir, "config.yaml")}
}

func (e *cliEnv) run(stdin string, args ...string) (string, string, error) {
	e.t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCmd(strings.NewReader(stdin), &out, &errOut)
	root.SetArgs(append([]string{"--config", e.cfgPath, "--no-color", "--log-level", "error"}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func (e *cliEnv) writeFile(name, content string) string {
	e.t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(e.t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestCommandsRegistered(t *testing.T) {
	root := NewRootCmd(strings.NewReader(""), &bytes.Buffer{}, &bytes.Buffer{})

	expected := map[string]bool{"parse": false, "formats": false, "history": false, "config": false}
	for _, cmd := range root.Commands() {
		name := strings.Fields(cmd.Use)[0]
		if _, ok := expected[name]; ok {
			expected[name] = true
		}
	}
	for name, found := range expected {
		assert.True(t, found, "expected command %q to be registered", name)
	}
}

func TestParse_WebFromStdin(t *testing.T) {
	env := newCLIEnv(t)

	out, _, err := env.run(webLine+"\n", "parse", "--format", "web", "-o", "json")
	require.NoError(t, err)

	var res parseResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))

	assert.Equal(t, 1, res.Batch.Records)
	require.Len(t, res.Page.Records, 1)
	rec := res.Page.Records[0]
	assert.Equal(t, "192.168.1.5", rec.Source)
	assert.Equal(t, model.EventFirewall, rec.EventType)
	assert.Equal(t, model.SeverityMedium, rec.Severity)
	require.NotNil(t, rec.StatusCode)
	assert.Equal(t, 401, *rec.StatusCode)
	require.NotNil(t, rec.Bytes)
	assert.Equal(t, int64(512), *rec.Bytes)
	assert.True(t, rec.IsUploaded)
}

func TestParse_FilesWithFilters(t *testing.T) {
	env := newCLIEnv(t)
	path := env.writeFile("events.jsonl", strings.Join([]string{
		`{"timestamp":"2024-01-10T10:00:00Z","eventType":"login","severity":"high","source":"10.0.0.1","description":"brute force login"}`,
		`{"timestamp":"2024-01-11T10:00:00Z","eventType":"malware","severity":"high","source":"10.0.0.2","description":"trojan found"}`,
		`{"timestamp":"2024-01-12T10:00:00Z","eventType":"system","severity":"info","source":"db","description":"backup done"}`,
	}, "\n"))

	out, _, err := env.run("", "parse", "-f", "json", "--severity", "high", "--search", "LOGIN", path)
	require.NoError(t, err)

	assert.Contains(t, out, "Parsed 3 records from 3 lines (0 dropped)")
	assert.Contains(t, out, "brute force login")
	assert.NotContains(t, out, "trojan found")
	assert.NotContains(t, out, "backup done")
	assert.Contains(t, out, "Page 1 of 1 (1 matching records)")
}

func TestParse_TimeRangeAndPaging(t *testing.T) {
	env := newCLIEnv(t)
	var lines []string
	for i := 0; i < 15; i++ {
		lines = append(lines, "2024-01-10 10:00:00 info line from 10.0.0.1")
	}
	lines = append(lines, "2024-02-01 10:00:00 late line")
	path := env.writeFile("app.log", strings.Join(lines, "\n"))

	out, _, err := env.run("", "parse", "--since", "2024-01-10", "--until", "2024-01-10", "--page", "2", "-o", "json", path)
	require.NoError(t, err)

	var res parseResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 16, res.Batch.Records)
	assert.Equal(t, 15, res.Page.Total)
	assert.Equal(t, 2, res.Page.TotalPages)
	assert.Len(t, res.Page.Records, 5)
}

func TestParse_SummaryYAML(t *testing.T) {
	env := newCLIEnv(t)

	input := "critical error in kernel\nwarning: disk\nnotice: started\n"
	out, _, err := env.run(input, "parse", "--summary", "-o", "yaml")
	require.NoError(t, err)

	var res struct {
		Summary struct {
			Total      int            `yaml:"total"`
			BySeverity map[string]int `yaml:"by_severity"`
		} `yaml:"summary"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &res))
	assert.Equal(t, 3, res.Summary.Total)
	assert.Equal(t, 1, res.Summary.BySeverity["high"])
	assert.Equal(t, 1, res.Summary.BySeverity["medium"])
	assert.Equal(t, 1, res.Summary.BySeverity["info"])
}

func TestParse_MissingFile(t *testing.T) {
	env := newCLIEnv(t)
	good := env.writeFile("good.log", "hello\n")
	missing := filepath.Join(env.dir, "nope.log")

	_, _, err := env.run("", "parse", good, missing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), missing)
}

func TestParse_InvalidFlags(t *testing.T) {
	env := newCLIEnv(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "severity", args: []string{"parse", "--severity", "urgent"}, want: "invalid --severity"},
		{name: "event type", args: []string{"parse", "--event-type", "phishing"}, want: "invalid --event-type"},
		{name: "since", args: []string{"parse", "--since", "yesterday"}, want: "invalid --since"},
		{name: "output", args: []string{"parse", "-o", "xml"}, want: "unsupported output format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := env.run("", tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParse_MetricsTextfile(t *testing.T) {
	env := newCLIEnv(t)
	promFile := filepath.Join(env.dir, "lognorm.prom")

	_, _, err := env.run("one\ntwo\n", "parse", "--metrics-textfile", promFile)
	require.NoError(t, err)

	data, err := os.ReadFile(promFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "lognorm_lines_total")
	assert.Contains(t, string(data), "lognorm_batches_total")
}

func TestParse_PublishUnreachable(t *testing.T) {
	env := newCLIEnv(t)
	t.Setenv("LOGNORM_NATS_URL", "nats://127.0.0.1:1")
	t.Setenv("LOGNORM_NATS_TIMEOUT", "200ms")

	_, _, err := env.run("line\n", "parse", "--publish")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to NATS")
}

func TestParse_IndexIntoOpenSearch(t *testing.T) {
	var indexed atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/":
			w.Write([]byte(`{"version":{"number":"2.11.0","distribution":"opensearch"}}`))
		case r.Method == http.MethodHead:
			w.WriteHeader(http.StatusOK)
		case strings.HasSuffix(r.URL.Path, "/_bulk"):
			var items []map[string]interface{}
			scanner := bufio.NewScanner(r.Body)
			for scanner.Scan() {
				var action map[string]map[string]interface{}
				if json.Unmarshal(scanner.Bytes(), &action) != nil || action["index"] == nil {
					continue
				}
				scanner.Scan()
				indexed.Add(1)
				items = append(items, map[string]interface{}{"index": map[string]interface{}{"_id": action["index"]["_id"], "status": 201}})
			}
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"took": 1, "errors": false, "items": items})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	env := newCLIEnv(t)
	t.Setenv("LOGNORM_OPENSEARCH_URL", server.URL)

	_, _, err := env.run(webLine+"\n"+webLine+"\n", "parse", "-f", "web", "--index")
	require.NoError(t, err)
	assert.Equal(t, int64(2), indexed.Load())
}

func TestFormats(t *testing.T) {
	env := newCLIEnv(t)

	out, _, err := env.run("", "formats", "-o", "json")
	require.NoError(t, err)

	var infos []formatInfo
	require.NoError(t, json.Unmarshal([]byte(out), &infos))
	require.Len(t, infos, len(model.Formats))
	assert.Equal(t, model.FormatJSON, infos[0].Name)
}

func TestHistory_FileBackend(t *testing.T) {
	env := newCLIEnv(t)

	out, _, err := env.run("", "history", "add", "https://example.com", "--check", "HTTPS:pass:100", "--check", "Headers:60", "-o", "json")
	require.NoError(t, err)

	var rec history.ScanRecord
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, 80, rec.OverallScore)
	require.Len(t, rec.Results, 2)
	assert.Equal(t, "warn", rec.Results[1].Status)

	_, err = os.Stat(filepath.Join(env.dir, "history.json"))
	require.NoError(t, err)

	out, _, err = env.run("", "history", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "https://example.com")
	assert.Contains(t, out, "Good")

	out, _, err = env.run("", "history", "show", rec.ID[:8])
	require.NoError(t, err)
	assert.Contains(t, out, "Overall score: 80 (Good)")
	assert.Contains(t, out, "Headers")

	out, _, err = env.run("", "history", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Scan history cleared")

	out, _, err = env.run("", "history", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No scans recorded")
}

func TestHistory_RollsOverAtCapacity(t *testing.T) {
	env := newCLIEnv(t)
	t.Setenv("LOGNORM_HISTORY_CAPACITY", "2")

	for _, u := range []string{"https://a.example.com", "https://b.example.com", "https://c.example.com"} {
		_, _, err := env.run("", "history", "add", u)
		require.NoError(t, err)
	}

	out, _, err := env.run("", "history", "list", "-o", "json")
	require.NoError(t, err)

	var scans []history.ScanRecord
	require.NoError(t, json.Unmarshal([]byte(out), &scans))
	require.Len(t, scans, 2)
	assert.Equal(t, "https://c.example.com", scans[0].URL)
	assert.Equal(t, "https://b.example.com", scans[1].URL)
}

func TestHistory_RedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	env := newCLIEnv(t)
	t.Setenv("LOGNORM_HISTORY_BACKEND", "redis")
	t.Setenv("LOGNORM_REDIS_URL", "redis://"+mr.Addr()+"/0")

	_, _, err := env.run("", "history", "add", "https://example.com", "--check", "TLS:90")
	require.NoError(t, err)
	assert.True(t, mr.Exists("lognorm:history"))

	out, _, err := env.run("", "history", "list", "-o", "json")
	require.NoError(t, err)

	var scans []history.ScanRecord
	require.NoError(t, json.Unmarshal([]byte(out), &scans))
	require.Len(t, scans, 1)
	assert.Equal(t, 90, scans[0].OverallScore)
}

func TestHistory_AddInvalidURL(t *testing.T) {
	env := newCLIEnv(t)

	_, _, err := env.run("", "history", "add", "example.com")
	assert.ErrorIs(t, err, history.ErrInvalidURL)
}

func TestHistory_ShowMissing(t *testing.T) {
	env := newCLIEnv(t)

	_, _, err := env.run("", "history", "show", "deadbeef")
	assert.ErrorIs(t, err, history.ErrScanNotFound)
}

func TestConfig_SetGetPath(t *testing.T) {
	env := newCLIEnv(t)

	out, _, err := env.run("", "config", "set", "parse.page_size", "25")
	require.NoError(t, err)
	assert.Contains(t, out, "Set parse.page_size = 25")

	out, _, err = env.run("", "config", "get", "parse.page_size")
	require.NoError(t, err)
	assert.Equal(t, "25\n", out)

	out, _, err = env.run("", "config", "path")
	require.NoError(t, err)
	assert.Equal(t, env.cfgPath+"\n", out)

	out, _, err = env.run("", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "parse.page_size")

	_, _, err = env.run("", "config", "set", "no.such.key", "1")
	assert.Error(t, err)
}

func TestParseCheck(t *testing.T) {
	tests := []struct {
		input   string
		want    history.CheckResult
		wantErr bool
	}{
		{input: "HTTPS:100", want: history.CheckResult{Title: "HTTPS", Status: "pass", Score: 100}},
		{input: "Headers:warn:70", want: history.CheckResult{Title: "Headers", Status: "warn", Score: 70}},
		{input: "CSP: default-src:fail:10", want: history.CheckResult{Title: "CSP: default-src", Status: "fail", Score: 10}},
		{input: "Cookies:45", want: history.CheckResult{Title: "Cookies", Status: "fail", Score: 45}},
		{input: "no-score", wantErr: true},
		{input: "HTTPS:high", wantErr: true},
		{input: ":50", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseCheck(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTimeFlag(t *testing.T) {
	start, err := parseTimeFlag("since", "2024-01-10", false)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-10T00:00:00Z", start.Format("2006-01-02T15:04:05Z07:00"))

	end, err := parseTimeFlag("until", "2024-01-10", true)
	require.NoError(t, err)
	assert.Equal(t, 10, end.Day())
	assert.Equal(t, 23, end.Hour())

	exact, err := parseTimeFlag("since", "2024-01-10T13:55:36+02:00", false)
	require.NoError(t, err)
	assert.Equal(t, 11, exact.UTC().Hour())

	zero, err := parseTimeFlag("since", "", false)
	require.NoError(t, err)
	assert.True(t, zero.IsZero())
}
