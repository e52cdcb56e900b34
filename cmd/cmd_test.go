package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"multisource/internal/camera"
	"multisource/internal/testutil"
)

// writeConfig は画像ディレクトリとURLを参照する設定ファイルを作成する
func writeConfig(t *testing.T, server *testutil.ImageServer) string {
	t.Helper()

	dir := t.TempDir()
	images := filepath.Join(dir, "images")
	if err := os.MkdirAll(images, 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	for _, name := range []string{"a.jpg", "b.jpg"} {
		if err := os.WriteFile(filepath.Join(images, name), []byte("image "+name), 0o644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
	}

	data := fmt.Sprintf(`
fetch:
  timeout: 2s
feeds:
  - name: local
    selection: round_robin
    images: %s
  - name: remote
    images:
      - %s
      - %s
`, images, server.ImageURL("cam.jpg"), server.StatusURL(404))

	path := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
		configPath = ""
	})

	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestSnapshot(t *testing.T) {
	server := testutil.NewImageServer()
	defer server.Close()
	server.SetImage("cam.jpg", []byte("remote frame"))

	path := writeConfig(t, server)

	// ラウンドロビンの最初の画像はディレクトリの先頭
	stdout, stderr, err := execute(t, "snapshot", "local", "--config", path)
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}
	if stdout != "image a.jpg" {
		t.Errorf("stdout = %q, want first image", stdout)
	}
	if !strings.Contains(stderr, "local:") {
		t.Errorf("stderr = %q, want frame summary", stderr)
	}

	// 404のURLはスキップされ、取得できた画像だけが残る
	stdout, _, err = execute(t, "snapshot", "remote", "--config", path)
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}
	if stdout != "remote frame" {
		t.Errorf("stdout = %q, want remote frame", stdout)
	}

	_, _, err = execute(t, "snapshot", "missing", "--config", path)
	if !errors.Is(err, camera.ErrFeedNotFound) {
		t.Errorf("expected ErrFeedNotFound, got %v", err)
	}
}

func TestSources(t *testing.T) {
	server := testutil.NewImageServer()
	defer server.Close()
	server.SetImage("cam.jpg", []byte("remote frame"))

	path := writeConfig(t, server)

	stdout, _, err := execute(t, "sources", "--config", path)
	if err != nil {
		t.Fatalf("sources failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	// ヘッダー2行 + local 1行 + remote 2行
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d:\n%s", len(lines), stdout)
	}
	for _, want := range []string{"directory", "url", server.ImageURL("cam.jpg")} {
		if !strings.Contains(stdout, want) {
			t.Errorf("output missing %q:\n%s", want, stdout)
		}
	}
	fields := strings.Fields(lines[2])
	if fields[0] != "local" || fields[3] != "2" {
		t.Errorf("local row = %v, want 2 images", fields)
	}
	fields = strings.Fields(lines[4])
	if fields[len(fields)-1] != "1" {
		t.Errorf("404 row = %v, want 1 skipped", fields)
	}

	// 名前で絞り込む
	stdout, _, err = execute(t, "sources", "remote", "--config", path)
	if err != nil {
		t.Fatalf("sources failed: %v", err)
	}
	if strings.Contains(stdout, "local") {
		t.Errorf("output should only contain remote:\n%s", stdout)
	}

	if _, _, err := execute(t, "sources", "nope", "--config", path); !errors.Is(err, camera.ErrFeedNotFound) {
		t.Errorf("expected ErrFeedNotFound, got %v", err)
	}
}

func TestLoadConfig_Missing(t *testing.T) {
	_, _, err := execute(t, "sources", "--config", filepath.Join(t.TempDir(), "none.yml"))
	if err == nil {
		t.Fatal("expected error for missing config")
	}
}
