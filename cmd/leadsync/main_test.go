package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hazyhaar/leadsync/schema"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("LEADSYNC_SCHEMA_DB", filepath.Join(dir, "schemas.db"))
	t.Setenv("LEADSYNC_STATE_DB", filepath.Join(dir, "state.db"))
	return executeKeepEnv(t, args...)
}

func executeKeepEnv(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})
	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestClassifyCommand(t *testing.T) {
	out, err := execute(t, "classify", "https://www.linkedin.com/in/jane-doe/")
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output %q: %v", out, err)
	}
	if got["platform"] != "linkedin" || got["type"] != "profile" || got["platform_id"] != "jane-doe" {
		t.Errorf("got %v", got)
	}
}

func TestSelectorTestCommand(t *testing.T) {
	page := filepath.Join(t.TempDir(), "page.html")
	os.WriteFile(page, []byte(`<div class="post"></div><div class="post"></div>`), 0o600)

	out, err := execute(t, "selector", "test", "--html", page, "--css", "div.post")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"match_count": 2`) {
		t.Errorf("output = %s", out)
	}
}

func TestSchemaImportExportCommands(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LEADSYNC_SCHEMA_DB", filepath.Join(dir, "schemas.db"))
	t.Setenv("LEADSYNC_STATE_DB", filepath.Join(dir, "state.db"))

	doc := schema.Document{
		Platform: "x",
		PageType: "search_list",
		Version:  "3.0.0",
		Elements: []schema.DocumentElement{
			{ElementType: "post_wrapper", CSSSelector: `article[data-testid="tweet"]`, Multiple: true},
		},
	}
	b, _ := json.Marshal(doc)
	file := filepath.Join(dir, "x.json")
	os.WriteFile(file, b, 0o600)

	if _, err := executeKeepEnv(t, "schema", "import", file, "--actor", "cli-user"); err != nil {
		t.Fatal(err)
	}
	out, err := executeKeepEnv(t, "schema", "export", "x", "search_list")
	if err != nil {
		t.Fatal(err)
	}
	var got schema.Document
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output %q: %v", out, err)
	}
	if got.Version != "3.0.0" || len(got.Elements) != 1 {
		t.Errorf("export = %+v", got)
	}

	out, err = executeKeepEnv(t, "schema", "history", "x", "search_list")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"actor": "cli-user"`) {
		t.Errorf("history = %s", out)
	}

	if _, err := executeKeepEnv(t, "schema", "export", "myspace", "search_list"); err == nil {
		t.Error("unknown platform accepted")
	}
}

func TestSyncStartRequiresPlatform(t *testing.T) {
	syncPlatform = ""
	t.Cleanup(func() { syncPlatform = ""; syncCampaign = 0 })
	_, err := execute(t, "sync", "start", "--platform", "myspace", "--campaign", "1")
	if err == nil || !strings.Contains(err.Error(), "unknown platform") {
		t.Fatalf("err = %v", err)
	}
}
