package policy

import (
	"reflect"
	"strings"
	"testing"
)

func countContextInsertions(args []string) int {
	count := 0
	for i := 0; i+1 < len(args); i++ {
		if args[i] == "-C" && args[i+1] == "20" {
			count++
		}
	}
	return count
}

func TestHasContextFlag(t *testing.T) {
	tests := []struct {
		args []string
		want bool
	}{
		{args: []string{"-C", "5", "pattern"}, want: true},
		{args: []string{"-C5", "pattern"}, want: true},
		{args: []string{"-A", "3", "pattern"}, want: true},
		{args: []string{"-B2", "pattern"}, want: true},
		{args: []string{"--context=4", "pattern"}, want: true},
		{args: []string{"--after-context=3", "pattern"}, want: true},
		{args: []string{"--before-context", "1", "pattern"}, want: true},
		{args: []string{"-rn", "pattern", "."}, want: false},
		{args: []string{"-i", "--color=never", "pattern"}, want: false},
		{args: nil, want: false},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			if got := HasContextFlag(tt.args); got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestSearchRewriteKeepsExistingContext(t *testing.T) {
	p := DefaultSearchPolicy()
	for _, args := range [][]string{
		{"-C", "5", "pattern", "file.go"},
		{"--after-context=3", "pattern"},
		{"-B", "1", "-A", "1", "pattern"},
	} {
		result := p.Rewrite(args, "")
		if len(result.Notices) != 0 {
			t.Fatalf("expected no notices for %v, got %v", args, result.Notices)
		}
		if countContextInsertions(result.Args) != 0 {
			t.Fatalf("expected no default context for %v, got %v", args, result.Args)
		}
		tail := result.Args[len(result.Args)-len(args):]
		if !reflect.DeepEqual(tail, args) {
			t.Fatalf("expected user args %v to close the list, got %v", args, result.Args)
		}
	}
}

func TestSearchRewriteInsertsDefaultContextOnce(t *testing.T) {
	p := DefaultSearchPolicy()
	result := p.Rewrite([]string{"-rn", "TODO", "."}, "")

	if countContextInsertions(result.Args) != 1 {
		t.Fatalf("expected exactly one -C 20, got %v", result.Args)
	}
	if len(result.Notices) != 1 {
		t.Fatalf("expected one notice, got %v", result.Notices)
	}
	if !strings.Contains(result.Notices[0].Enforced, "-C 20") {
		t.Fatalf("expected notice to mention -C 20, got %q", result.Notices[0].Enforced)
	}
}

func TestSearchRewriteCapturedPipe(t *testing.T) {
	p := DefaultSearchPolicy()
	result := p.Rewrite([]string{"pattern"}, "/tmp/cursor_outputs/grep_input_1_x_00000000.txt")

	want := []string{
		"--color=auto",
		"--exclude-dir=.bzr",
		"--exclude-dir=CVS",
		"--exclude-dir=.git",
		"--exclude-dir=.hg",
		"--exclude-dir=.svn",
		"--exclude-dir=.idea",
		"--exclude-dir=.tox",
		"--exclude-dir=.venv",
		"--exclude-dir=venv",
		"-C", "20",
		"pattern",
		"/tmp/cursor_outputs/grep_input_1_x_00000000.txt",
	}
	if !reflect.DeepEqual(result.Args, want) {
		t.Fatalf("expected %v, got %v", want, result.Args)
	}
}

func TestSearchRewriteCustomPolicy(t *testing.T) {
	p := SearchPolicy{ContextLines: 3, ExtraArgs: []string{"-I"}, ExcludeDirs: []string{"node_modules"}}
	result := p.Rewrite([]string{"needle"}, "")

	want := []string{"-I", "--exclude-dir=node_modules", "-C", "3", "needle"}
	if !reflect.DeepEqual(result.Args, want) {
		t.Fatalf("expected %v, got %v", want, result.Args)
	}
	if result.Notices[0].Enforced != "grep -C 3" {
		t.Fatalf("expected enforced grep -C 3, got %q", result.Notices[0].Enforced)
	}
}

func TestSearchRewriteZeroContextFallsBackToDefault(t *testing.T) {
	p := SearchPolicy{}
	result := p.Rewrite([]string{"needle"}, "")
	want := []string{"-C", "20", "needle"}
	if !reflect.DeepEqual(result.Args, want) {
		t.Fatalf("expected %v, got %v", want, result.Args)
	}
}

func TestSearchRewriteDoesNotMutateInput(t *testing.T) {
	args := []string{"needle", "file"}
	before := append([]string{}, args...)
	DefaultSearchPolicy().Rewrite(args, "/tmp/x")
	if !reflect.DeepEqual(args, before) {
		t.Fatalf("expected input to stay %v, got %v", before, args)
	}
}
