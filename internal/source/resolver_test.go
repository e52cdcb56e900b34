package source_test

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"testing"
	"time"

	"multisource/internal/source"
	"multisource/internal/testutil"

	"github.com/spf13/afero"
)

func newTestResolver(t *testing.T, fs afero.Fs, opts ...source.Option) (*source.Resolver, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	base := []source.Option{
		source.WithFs(fs),
		source.WithLogger(log.New(&buf, "", 0)),
	}
	return source.NewResolver(append(base, opts...)...), &buf
}

func payloadStrings(payloads []source.Payload) []string {
	out := make([]string, 0, len(payloads))
	for _, p := range payloads {
		out = append(out, string(p))
	}
	return out
}

func TestResolver_DirectorySkipsUnreadableEntry(t *testing.T) {
	mem := afero.NewMemMapFs()
	if err := testutil.WriteFiles(mem, map[string]string{
		"/images/a.jpg": "A",
		"/images/b.jpg": "B",
		"/images/c.jpg": "C",
		"/images/d.jpg": "D",
	}); err != nil {
		t.Fatalf("WriteFiles failed: %v", err)
	}
	fs := testutil.NewFailingFs(mem, "/images/c.jpg")

	resolver, logs := newTestResolver(t, fs)
	result, err := resolver.Resolve(context.Background(), source.Descriptors("/images/"))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	got := payloadStrings(result.Payloads)
	want := []string{"A", "B", "D"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("payloads = %v, want %v", got, want)
	}

	if result.Skipped() != 1 {
		t.Errorf("Skipped() = %d, want 1", result.Skipped())
	}
	if n := strings.Count(logs.String(), "ソースをスキップ"); n != 1 {
		t.Errorf("skip log lines = %d, want 1\n%s", n, logs.String())
	}

	report := result.Sources[0]
	if report.Kind != source.KindDirectory {
		t.Errorf("Kind = %s, want %s", report.Kind, source.KindDirectory)
	}
	if report.Payloads != 3 || report.Bytes != 3 {
		t.Errorf("report = %+v, want 3 payloads / 3 bytes", report)
	}
	if !errors.Is(report.Errors[0], source.ErrSourceUnavailable) {
		t.Errorf("skip error should wrap ErrSourceUnavailable: %v", report.Errors[0])
	}
	if !errors.Is(report.Errors[0], testutil.ErrInjected) {
		t.Errorf("skip error should wrap the read error: %v", report.Errors[0])
	}
}

func TestResolver_DirectoryIsNotRecursive(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := testutil.WriteFiles(fs, map[string]string{
		"/pics/1.png":        "one",
		"/pics/nested/2.png": "two",
		"/pics/empty.png":    "",
	}); err != nil {
		t.Fatalf("WriteFiles failed: %v", err)
	}

	resolver, _ := newTestResolver(t, fs)
	result, err := resolver.Resolve(context.Background(), source.Descriptors("/pics"))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if got := payloadStrings(result.Payloads); len(got) != 1 || got[0] != "one" {
		t.Errorf("payloads = %v, want [one]", got)
	}
	// 空ファイルとサブディレクトリ
	if result.Skipped() != 2 {
		t.Errorf("Skipped() = %d, want 2", result.Skipped())
	}
}

func TestResolver_EmptySingleSourcesAreKept(t *testing.T) {
	server := testutil.NewImageServer()
	defer server.Close()

	fs := afero.NewMemMapFs()
	if err := testutil.WriteFiles(fs, map[string]string{"/empty.jpg": ""}); err != nil {
		t.Fatalf("WriteFiles failed: %v", err)
	}

	resolver, _ := newTestResolver(t, fs, source.WithFetcher(source.NewHTTPFetcher(time.Second)))
	result, err := resolver.Resolve(context.Background(), source.Descriptors(
		"/empty.jpg",
		server.StatusURL(204),
	))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	// 単体のファイルと2xxのボディは空でもそのまま1件になる
	if len(result.Payloads) != 2 || result.Skipped() != 0 {
		t.Fatalf("payloads = %d, skipped = %d, want 2 and 0", len(result.Payloads), result.Skipped())
	}
	for i, p := range result.Payloads {
		if p == nil || len(p) != 0 {
			t.Errorf("Payloads[%d] = %v, want empty non-nil payload", i, p)
		}
	}
}

func TestResolver_PreservesInputOrder(t *testing.T) {
	server := testutil.NewImageServer()
	defer server.Close()
	server.SetImage("remote.jpg", []byte("remote"))
	// 先頭のURLを遅らせても順序は入力順のまま
	server.SetDelay("remote.jpg", 50*time.Millisecond)

	fs := afero.NewMemMapFs()
	if err := testutil.WriteFiles(fs, map[string]string{
		"/single.jpg":  "single",
		"/dir/x.jpg":   "x",
		"/dir/y.jpg":   "y",
		"/another.jpg": "another",
	}); err != nil {
		t.Fatalf("WriteFiles failed: %v", err)
	}

	resolver, _ := newTestResolver(t, fs, source.WithConcurrency(4))
	result, err := resolver.Resolve(context.Background(), source.Descriptors(
		server.ImageURL("remote.jpg"),
		"/single.jpg",
		"/dir",
		"/another.jpg",
	))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	got := strings.Join(payloadStrings(result.Payloads), ",")
	want := "remote,single,x,y,another"
	if got != want {
		t.Errorf("payloads = %s, want %s", got, want)
	}

	kinds := []source.Kind{source.KindURL, source.KindFile, source.KindDirectory, source.KindFile}
	for i, k := range kinds {
		if result.Sources[i].Kind != k {
			t.Errorf("Sources[%d].Kind = %s, want %s", i, result.Sources[i].Kind, k)
		}
	}
	if result.Bytes() != int64(len("remotesinglexyanother")) {
		t.Errorf("Bytes() = %d", result.Bytes())
	}
}

func TestResolver_URLFailuresAreSkipped(t *testing.T) {
	server := testutil.NewImageServer()
	defer server.Close()
	server.SetImage("slow.jpg", []byte("slow"))
	server.SetDelay("slow.jpg", 2*time.Second)
	server.SetImage("ok.jpg", []byte("ok"))

	fetcher := source.NewHTTPFetcher(100 * time.Millisecond)
	resolver, _ := newTestResolver(t, afero.NewMemMapFs(),
		source.WithFetcher(fetcher),
		source.WithConcurrency(1),
	)

	start := time.Now()
	result, err := resolver.Resolve(context.Background(), source.Descriptors(
		server.StatusURL(404),
		server.ImageURL("missing.jpg"),
		server.ImageURL("slow.jpg"),
		server.ImageURL("ok.jpg"),
	))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 1500*time.Millisecond {
		t.Errorf("resolution took %s, timeout was not applied", elapsed)
	}

	if got := payloadStrings(result.Payloads); len(got) != 1 || got[0] != "ok" {
		t.Errorf("payloads = %v, want [ok]", got)
	}
	for i := 0; i < 3; i++ {
		if result.Sources[i].Payloads != 0 || result.Sources[i].Skipped() != 1 {
			t.Errorf("Sources[%d] = %+v, want 0 payloads and 1 skip", i, result.Sources[i])
		}
	}
	if !errors.Is(result.Sources[2].Errors[0], context.DeadlineExceeded) {
		t.Errorf("timeout should wrap context.DeadlineExceeded: %v", result.Sources[2].Errors[0])
	}
}

func TestResolver_ConfigurationErrors(t *testing.T) {
	resolver, _ := newTestResolver(t, afero.NewMemMapFs())

	testCases := []struct {
		name        string
		descriptors []source.Descriptor
		wantErr     error
	}{
		{"記述子なし", nil, source.ErrNoSources},
		{"空リスト", []source.Descriptor{}, source.ErrNoSources},
		{"空文字を含む", source.Descriptors("/a.jpg", "  "), source.ErrInvalidDescriptor},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := resolver.Resolve(context.Background(), tc.descriptors)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("err = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestResolver_Classify(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := testutil.WriteFiles(fs, map[string]string{"/srv/img/a.jpg": "a"}); err != nil {
		t.Fatalf("WriteFiles failed: %v", err)
	}
	resolver, _ := newTestResolver(t, fs)

	testCases := []struct {
		descriptor string
		want       source.Kind
	}{
		{"/srv/img", source.KindDirectory},
		{"/srv/img/a.jpg", source.KindFile},
		{"http://camera.local/snapshot.jpg", source.KindURL},
		{"HTTPS://example.com/x.png", source.KindURL},
		{"/srv/img/missing.jpg", source.KindInvalid},
		{"ftp://example.com/x.png", source.KindInvalid},
		{"not a url", source.KindInvalid},
	}

	for _, tc := range testCases {
		t.Run(tc.descriptor, func(t *testing.T) {
			if got := resolver.Classify(source.Descriptor(tc.descriptor)); got != tc.want {
				t.Errorf("Classify(%q) = %s, want %s", tc.descriptor, got, tc.want)
			}
		})
	}
}

func TestResolver_InvalidDescriptorIsSkipped(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := testutil.WriteFiles(fs, map[string]string{"/a.jpg": "a"}); err != nil {
		t.Fatalf("WriteFiles failed: %v", err)
	}
	resolver, _ := newTestResolver(t, fs)

	result, err := resolver.Resolve(context.Background(), source.Descriptors("/gone.jpg", "/a.jpg"))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(result.Payloads) != 1 {
		t.Errorf("len(Payloads) = %d, want 1", len(result.Payloads))
	}
	if result.Sources[0].Kind != source.KindInvalid || result.Sources[0].Skipped() != 1 {
		t.Errorf("Sources[0] = %+v, want invalid with 1 skip", result.Sources[0])
	}
}

func TestResolver_RereadsSourcesEveryCall(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := testutil.WriteFiles(fs, map[string]string{"/a.jpg": "v1"}); err != nil {
		t.Fatalf("WriteFiles failed: %v", err)
	}
	resolver, _ := newTestResolver(t, fs)

	first, err := resolver.Resolve(context.Background(), source.Descriptors("/a.jpg"))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if err := afero.WriteFile(fs, "/a.jpg", []byte("v2"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	second, err := resolver.Resolve(context.Background(), source.Descriptors("/a.jpg"))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if string(first.Payloads[0]) != "v1" || string(second.Payloads[0]) != "v2" {
		t.Errorf("got %q then %q, want v1 then v2", first.Payloads[0], second.Payloads[0])
	}
}
