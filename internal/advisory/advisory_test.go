package advisory

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestCaptureSaved(t *testing.T) {
	var buf bytes.Buffer
	NewWriter(&buf).CaptureSaved("/tmp/cursor_outputs/grep_input_1.txt", 2048)

	out := buf.String()
	if !strings.Contains(out, "/tmp/cursor_outputs/grep_input_1.txt") {
		t.Fatalf("expected path in advisory, got %q", out)
	}
	if !strings.Contains(out, "2.0 kB") {
		t.Fatalf("expected humanized size in advisory, got %q", out)
	}
	if !strings.Contains(out, "re-running") {
		t.Fatalf("expected reuse hint in advisory, got %q", out)
	}
}

func TestEnforcedIsBracketed(t *testing.T) {
	var buf bytes.Buffer
	NewWriter(&buf).Enforced("tail -n 50", "tail -n 100", "50 → 100")

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) < 3 {
		t.Fatalf("expected at least three lines, got %q", buf.String())
	}
	if lines[0] != separator || lines[len(lines)-1] != separator {
		t.Fatalf("expected separator lines around advisory, got %q", buf.String())
	}
	if !strings.Contains(lines[1], "tail -n 50") || !strings.Contains(lines[1], "tail -n 100") {
		t.Fatalf("expected both commands in advisory, got %q", lines[1])
	}
	if !strings.Contains(lines[1], "50 → 100") {
		t.Fatalf("expected before/after detail in advisory, got %q", lines[1])
	}
}

func TestEnforcedWithoutDetail(t *testing.T) {
	var buf bytes.Buffer
	NewWriter(&buf).Enforced("grep", "grep -C 20", "")
	if strings.Contains(buf.String(), "()") {
		t.Fatalf("expected no empty detail, got %q", buf.String())
	}
	if !strings.Contains(buf.String(), "grep -C 20") {
		t.Fatalf("expected enforced command, got %q", buf.String())
	}
}

func TestFailure(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Failure("cannot save piped input", errors.New("disk full"))
	w.Failure("cannot run /usr/bin/grep", nil)

	out := buf.String()
	if !strings.Contains(out, "cannot save piped input: disk full") {
		t.Fatalf("expected wrapped failure, got %q", out)
	}
	if !strings.Contains(out, "cannot run /usr/bin/grep\n") {
		t.Fatalf("expected bare failure, got %q", out)
	}
}

func TestWarning(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Warning("ignoring invalid agentshim configuration", errors.New("bad debug value"))
	w.Warning("logging disabled", nil)

	out := buf.String()
	if !strings.Contains(out, "ignoring invalid agentshim configuration: bad debug value\n") {
		t.Fatalf("expected wrapped warning, got %q", out)
	}
	if !strings.Contains(out, "logging disabled\n") {
		t.Fatalf("expected bare warning, got %q", out)
	}
	if strings.Contains(out, "❌") || strings.Contains(out, separator) {
		t.Fatalf("expected a single unbracketed warning line, got %q", out)
	}
}

func TestNilWriterDiscards(t *testing.T) {
	w := NewWriter(nil)
	w.Enforced("grep", "grep -C 20", "")
}

func TestSeparatorWidth(t *testing.T) {
	if n := len([]rune(separator)); n != separatorWidth {
		t.Fatalf("expected separator of %d runes, got %d", separatorWidth, n)
	}
}
