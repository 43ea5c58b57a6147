package compile

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"vstyle/config"
	"vstyle/sfc"
	"vstyle/state"
)

// setupTestEnv creates a test environment with proper context and logger
func setupTestEnv(t *testing.T, production bool) (context.Context, *state.LocalEnv) {
	t.Helper()
	t.Setenv(config.EnvMode, "")

	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	ctx := state.ContextWithEnv(context.Background())
	env := state.EnvFromContext(ctx)
	env.Log = zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1)))
	env.Cfg = cfg
	if err := env.PrepareRewriter(production); err != nil {
		t.Fatalf("prepare rewriter: %v", err)
	}
	return ctx, env
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected output %s: %v", path, err)
	}
	return string(data)
}

const componentSource = `<template><div class="card"></div></template>
<style scoped>
.card .title:hover { color: red }
</style>
<style lang="less">
@c: red;
</style>
<style>
body { margin: 0 }
</style>
`

func TestProcess_SingleFileToStdout(t *testing.T) {
	ctx, env := setupTestEnv(t, false)
	env.Scoped, env.ScopeID = true, "data-v-x"

	src := filepath.Join(t.TempDir(), "button.css")
	writeFile(t, src, []byte(".btn:hover { user-select: none }"))

	var stdout bytes.Buffer
	if err := process(ctx, src, "", &stdout, env.Log); err != nil {
		t.Fatalf("process() error = %v", err)
	}
	out := stdout.String()
	if !strings.Contains(out, ".btn[data-v-x]:hover {") || !strings.Contains(out, "-webkit-user-select: none;") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestProcess_SingleFileToDirectory(t *testing.T) {
	ctx, env := setupTestEnv(t, true)

	src := filepath.Join(t.TempDir(), "My Card.vue")
	writeFile(t, src, []byte(componentSource))
	dst := t.TempDir()

	if err := process(ctx, src, dst, nil, env.Log); err != nil {
		t.Fatalf("process() error = %v", err)
	}
	out := readFile(t, filepath.Join(dst, "my-card.css"))

	id := sfc.ScopeID("My Card.vue")
	if !strings.Contains(out, ".card .title["+id+"]:hover{color:red}") {
		t.Errorf("scoped block is not scoped with %s: %s", id, out)
	}
	if !strings.Contains(out, "body{margin:0}") || strings.Contains(out, "body[") {
		t.Errorf("unscoped block is wrong: %s", out)
	}
	if strings.Contains(out, "@c") {
		t.Errorf("less block must be skipped: %s", out)
	}
}

func TestProcessDir(t *testing.T) {
	ctx, env := setupTestEnv(t, false)

	src := t.TempDir()
	writeFile(t, filepath.Join(src, "a.css"), []byte("a { color: red }"))
	writeFile(t, filepath.Join(src, "nested", "Card.vue"), []byte(componentSource))
	writeFile(t, filepath.Join(src, "nested", "card.css"), []byte(".x { color: blue }"))
	writeFile(t, filepath.Join(src, "notes.txt"), []byte("not a style"))
	dst := t.TempDir()

	if err := processDir(ctx, src, dst, env.Log); err != nil {
		t.Fatalf("processDir() error = %v", err)
	}

	if out := readFile(t, filepath.Join(dst, "a.css")); !strings.Contains(out, "a {\n  color: red;\n}") {
		t.Errorf("unexpected a.css:\n%s", out)
	}
	// natural order puts Card.vue first, card.css gets suffix
	card := readFile(t, filepath.Join(dst, "nested", "card.css"))
	if !strings.Contains(card, "["+sfc.ScopeID(filepath.Join("nested", "Card.vue"))+"]") {
		t.Errorf("unexpected nested/card.css:\n%s", card)
	}
	if out := readFile(t, filepath.Join(dst, "nested", "card-2.css")); !strings.Contains(out, ".x {") {
		t.Errorf("unexpected nested/card-2.css:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(dst, "notes.css")); !os.IsNotExist(err) {
		t.Errorf("unrecognized files must be skipped")
	}
}

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	w := zip.NewWriter(f)
	for name, content := range files {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProcess_Archive(t *testing.T) {
	ctx, env := setupTestEnv(t, false)
	env.Scoped, env.ScopeID = true, "data-v-zip"

	src := filepath.Join(t.TempDir(), "styles.zip")
	writeZip(t, src, map[string]string{
		"base.css":             "a { color: red }",
		"components/Card.vue":  componentSource,
		"components/notes.txt": "not a style",
	})

	dst := t.TempDir()
	if err := process(ctx, src, dst, nil, env.Log); err != nil {
		t.Fatalf("process() error = %v", err)
	}
	if out := readFile(t, filepath.Join(dst, "base.css")); !strings.Contains(out, "a[data-v-zip] {") {
		t.Errorf("unexpected base.css:\n%s", out)
	}
	if out := readFile(t, filepath.Join(dst, "components", "card.css")); !strings.Contains(out, "body[data-v-zip] {") {
		t.Errorf("unexpected components/card.css:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(dst, "components", "notes.css")); !os.IsNotExist(err) {
		t.Errorf("unrecognized entries must be skipped")
	}
}

func TestProcessArchive_MoreEntriesThanWorkers(t *testing.T) {
	ctx, env := setupTestEnv(t, false)
	env.Cfg.Compile.Workers = 2

	const entries = 12
	files := make(map[string]string, entries)
	for i := range entries {
		files[fmt.Sprintf("part%d/s%d.css", i%3, i)] = fmt.Sprintf(".s%d { order: %d }", i, i)
	}
	src := filepath.Join(t.TempDir(), "many.zip")
	writeZip(t, src, files)

	dst := t.TempDir()
	if err := processArchive(ctx, src, dst, env.Log); err != nil {
		t.Fatalf("processArchive() error = %v", err)
	}
	for i := range entries {
		out := readFile(t, filepath.Join(dst, fmt.Sprintf("part%d", i%3), fmt.Sprintf("s%d.css", i)))
		if !strings.Contains(out, fmt.Sprintf("order: %d;", i)) {
			t.Errorf("unexpected output for entry %d:\n%s", i, out)
		}
	}
}

func TestProcessArchive_Unsafe(t *testing.T) {
	ctx, env := setupTestEnv(t, false)

	src := filepath.Join(t.TempDir(), "evil.zip")
	writeZip(t, src, map[string]string{"../evil.css": "a { color: red }"})

	err := processArchive(ctx, src, t.TempDir(), env.Log)
	if err == nil || !strings.Contains(err.Error(), "unsafe path") {
		t.Errorf("processArchive() error = %v, want unsafe path", err)
	}
}

func TestProcessDir_FailedFilesDoNotStopOthers(t *testing.T) {
	ctx, env := setupTestEnv(t, false)

	src := t.TempDir()
	writeFile(t, filepath.Join(src, "bad.css"), []byte("a { color red }"))
	writeFile(t, filepath.Join(src, "good.css"), []byte("a { color: red }"))
	dst := t.TempDir()

	err := processDir(ctx, src, dst, env.Log)
	if err == nil || !strings.Contains(err.Error(), "1 of 2") {
		t.Errorf("processDir() error = %v, want failure count", err)
	}
	readFile(t, filepath.Join(dst, "good.css"))
	if _, err := os.Stat(filepath.Join(dst, "bad.css")); !os.IsNotExist(err) {
		t.Errorf("failed file must not produce output")
	}
}

func TestProcess_Charset(t *testing.T) {
	ctx, env := setupTestEnv(t, false)
	if err := env.SetCharset("windows-1251"); err != nil {
		t.Fatalf("SetCharset() error = %v", err)
	}

	encoded, err := charmap.Windows1251.NewEncoder().String(`p::before { content: "Привет" }`)
	if err != nil {
		t.Fatal(err)
	}
	src := filepath.Join(t.TempDir(), "ru.css")
	writeFile(t, src, []byte(encoded))

	var stdout bytes.Buffer
	if err := process(ctx, src, "", &stdout, env.Log); err != nil {
		t.Fatalf("process() error = %v", err)
	}
	if !strings.Contains(stdout.String(), `"Привет"`) {
		t.Errorf("input was not decoded:\n%s", stdout.String())
	}
}

func TestProcess_ByteOrderMark(t *testing.T) {
	ctx, env := setupTestEnv(t, false)

	encoded, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().String("a { color: red }")
	if err != nil {
		t.Fatal(err)
	}
	src := filepath.Join(t.TempDir(), "utf16.css")
	writeFile(t, src, []byte(encoded))

	var stdout bytes.Buffer
	if err := process(ctx, src, "", &stdout, env.Log); err != nil {
		t.Fatalf("process() error = %v", err)
	}
	if stdout.String() != "a {\n  color: red;\n}\n" {
		t.Errorf("unexpected output %q", stdout.String())
	}
}

func TestProcess_Errors(t *testing.T) {
	ctx, env := setupTestEnv(t, false)
	dir := t.TempDir()
	unknown := filepath.Join(dir, "style.scss")
	writeFile(t, unknown, []byte("a{}"))
	broken := filepath.Join(dir, "broken.css")
	writeFile(t, broken, []byte("a { color red }"))

	for _, src := range []string{filepath.Join(dir, "missing.css"), unknown, broken} {
		if err := process(ctx, src, "", &bytes.Buffer{}, env.Log); err == nil {
			t.Errorf("process(%s) expected error", filepath.Base(src))
		}
	}
}

func TestOutputNames(t *testing.T) {
	names := outputNames([]string{
		"Button.vue",
		"button.css",
		"Привет Мир.css",
		filepath.Join("sub", "Button.vue"),
		"!!!.css",
	}, ".css")

	want := map[string]string{
		"Button.vue":                       "button.css",
		"button.css":                       "button-2.css",
		"Привет Мир.css":                   "privet-mir.css",
		filepath.Join("sub", "Button.vue"): filepath.Join("sub", "button.css"),
		"!!!.css":                          "style.css",
	}
	for src, w := range want {
		if names[src] != w {
			t.Errorf("outputNames()[%q] = %q, want %q", src, names[src], w)
		}
	}
}
