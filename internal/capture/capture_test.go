package capture

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"agentshim/internal/advisory"
	apperrors "agentshim/internal/errors"
)

func newTestCapturer(t *testing.T, input string, piped bool) (*Capturer, *bytes.Buffer) {
	t.Helper()
	var stderr bytes.Buffer
	c := New(filepath.Join(t.TempDir(), "outputs"), advisory.NewWriter(&stderr))
	c.Stdin = strings.NewReader(input)
	c.IsPipe = func() bool { return piped }
	return c, &stderr
}

func sequence(values ...uint32) func() uint32 {
	i := 0
	return func() uint32 {
		v := values[i%len(values)]
		i++
		return v
	}
}

func TestCaptureWritesPipedBytesVerbatim(t *testing.T) {
	input := "line one\nline two\n\x00binary\n"
	c, stderr := newTestCapturer(t, input, true)

	path, err := c.Capture("grep_input")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path == "" {
		t.Fatal("expected a capture path")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read capture: %v", err)
	}
	if string(data) != input {
		t.Fatalf("expected %q, got %q", input, string(data))
	}

	entries, err := os.ReadDir(c.Dir)
	if err != nil {
		t.Fatalf("failed to list capture dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly one capture file, got %d", len(entries))
	}
	if !strings.Contains(stderr.String(), path) {
		t.Fatalf("expected advisory naming %s, got %q", path, stderr.String())
	}
}

func TestCaptureEmptyPipe(t *testing.T) {
	c, stderr := newTestCapturer(t, "", true)

	path, err := c.Capture("tail_input")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "" {
		t.Fatalf("expected no capture path, got %s", path)
	}
	if _, err := os.Stat(c.Dir); !os.IsNotExist(err) {
		t.Fatalf("expected capture dir to stay absent, got %v", err)
	}
	if stderr.Len() != 0 {
		t.Fatalf("expected no advisory, got %q", stderr.String())
	}
}

func TestCaptureTerminalIsNotRead(t *testing.T) {
	c, _ := newTestCapturer(t, "should stay unread", false)

	path, err := c.Capture("grep_input")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "" {
		t.Fatalf("expected no capture for a terminal, got %s", path)
	}
	rest, _ := c.Stdin.(*strings.Reader)
	if rest.Len() == 0 {
		t.Fatal("expected stdin to stay unread")
	}
}

func TestCaptureFileName(t *testing.T) {
	c, _ := newTestCapturer(t, "data", true)
	c.PID = 4242
	c.Now = func() time.Time { return time.Date(2025, 3, 9, 14, 5, 7, 0, time.Local) }
	c.Rand = sequence(0xbeef)

	path, err := c.Capture("grep_input")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := filepath.Join(c.Dir, "grep_input_4242_20250309_140507_0000beef.txt")
	if path != want {
		t.Fatalf("expected %s, got %s", want, path)
	}
}

func TestUniqueNameFormat(t *testing.T) {
	c, _ := newTestCapturer(t, "", true)
	name := filepath.Base(c.UniqueName("tail_input"))
	pattern := regexp.MustCompile(`^tail_input_\d+_\d{8}_\d{6}_[0-9a-f]{8}\.txt$`)
	if !pattern.MatchString(name) {
		t.Fatalf("unexpected file name %s", name)
	}
}

func TestUniqueNameSkipsExisting(t *testing.T) {
	c, _ := newTestCapturer(t, "", true)
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	c.Now = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.Local) }
	c.Rand = sequence(1, 1, 2)

	first := c.UniqueName("test")
	if err := os.WriteFile(first, []byte("test"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	second := c.UniqueName("test")
	if second == first {
		t.Fatal("expected a different name once the first exists")
	}
	if !strings.HasSuffix(second, "_00000002.txt") {
		t.Fatalf("expected retry to use the next random value, got %s", second)
	}
}

func TestUniqueNameNeverReturnsExisting(t *testing.T) {
	c, _ := newTestCapturer(t, "", true)
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}

	seen := make(map[string]bool, 100)
	for i := 0; i < 100; i++ {
		name := c.UniqueName("batch")
		if _, err := os.Stat(name); err == nil {
			t.Fatalf("generated name %s already exists", name)
		}
		if err := os.WriteFile(name, []byte("test"), 0o644); err != nil {
			t.Fatalf("failed to write file: %v", err)
		}
		seen[name] = true
	}
	if len(seen) != 100 {
		t.Fatalf("expected 100 unique names, got %d", len(seen))
	}
}

func TestCaptureSkipsExistingFile(t *testing.T) {
	c, _ := newTestCapturer(t, "fresh", true)
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	c.Now = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.Local) }
	c.Rand = sequence(7, 8)

	taken := c.candidate("grep_input")
	if err := os.WriteFile(taken, []byte("old"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	c.Rand = sequence(7, 8)

	path, err := c.Capture("grep_input")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path == taken {
		t.Fatal("expected capture to avoid the existing file")
	}
	old, _ := os.ReadFile(taken)
	if string(old) != "old" {
		t.Fatalf("expected existing file to be untouched, got %q", string(old))
	}
}

func TestCaptureDirectoryError(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	c, _ := newTestCapturer(t, "data", true)
	c.Dir = filepath.Join(blocker, "outputs")

	_, err := c.Capture("grep_input")
	if err == nil {
		t.Fatal("expected error when the capture dir cannot be created")
	}
	if !apperrors.HasCode(err, apperrors.CodeCapture) {
		t.Fatalf("expected capture error code, got %v", err)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("broken pipe")
}

func TestDrainReadError(t *testing.T) {
	c, _ := newTestCapturer(t, "", true)
	c.Stdin = failingReader{}
	if _, err := c.Drain(); err == nil {
		t.Fatal("expected read error")
	}
	if _, err := c.Capture("grep_input"); err == nil {
		t.Fatal("expected capture to fail on read error")
	}
}

func TestDrain(t *testing.T) {
	c, _ := newTestCapturer(t, "payload", true)
	data, err := c.Drain()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "payload" {
		t.Fatalf("expected payload, got %q", string(data))
	}
	if _, err := os.Stat(c.Dir); !os.IsNotExist(err) {
		t.Fatalf("expected drain to leave the filesystem alone, got %v", err)
	}
}

func TestNewDefaults(t *testing.T) {
	c := New("", nil)
	if c.Dir != DefaultDir {
		t.Fatalf("expected default dir %s, got %s", DefaultDir, c.Dir)
	}
	if c.PID != os.Getpid() {
		t.Fatalf("expected pid %d, got %d", os.Getpid(), c.PID)
	}
	if c.IsPipe == nil || c.Now == nil || c.Rand == nil {
		t.Fatal("expected default hooks to be set")
	}
}

func TestFileIsPipeDetectsPipe(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	defer r.Close()
	defer w.Close()

	if !FileIsPipe(r)() {
		t.Fatal("expected a pipe to be reported as piped")
	}

	f, err := os.Create(filepath.Join(t.TempDir(), "redirect"))
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	defer f.Close()
	if !FileIsPipe(f)() {
		t.Fatal("expected a redirected file to be reported as piped")
	}
}
