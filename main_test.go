package main

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

const sampleSource = `use ctypes::{c_char, c_int};
use shared::minwindef::{BOOL, DWORD};
use shared::windef::HWND;

pub const MB_OK: UINT = 0x00000000;
pub type LPCSTR = *const c_char;

DECLARE_HANDLE!(HMENU, HMENU__);

STRUCT!{struct POINT {
    x: c_int,
    y: c_int,
}}

extern "system" {
    pub fn MessageBoxA(
        hWnd: HWND,
        lpText: LPCSTR,
        lpCaption: LPCSTR,
        uType: UINT,
    ) -> c_int;
}

pub fn helper() {}
`

const sampleOutput = `
const shared = @import("shared.zig");
const BOOL = shared.minwindef.BOOL;
const DWORD = shared.minwindef.DWORD;
const HWND = shared.windef.HWND;
pub const MB_OK = 0x00000000;
pub const LPCSTR = ?*const i8;
pub const HMENU__ = @Type(.Opaque);
pub const HMENU = ?*HMENU__;
pub const POINT = extern struct {
    x: c_int,
    y: c_int,
};
pub extern "user32" fn MessageBoxA (
    hWnd: HWND,
    lpText: LPCSTR,
    lpCaption: LPCSTR,
    uType: UINT,
) callconv(.Stdcall) c_int;
// Unhandled item: helper
`

func writeTestFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	// Age sources so freshly written outputs are strictly newer.
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunFile(t *testing.T) {
	t.Parallel()
	path := writeTestFile(t, t.TempDir(), "winuser.rs", sampleSource)

	var stdout, stderr bytes.Buffer
	if err := run([]string{path}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}
	if got := stdout.String(); got != sampleOutput {
		t.Errorf("output mismatch:\n--- got ---\n%s\n--- want ---\n%s", got, sampleOutput)
	}
}

func TestRunFileLinkName(t *testing.T) {
	t.Parallel()
	path := writeTestFile(t, t.TempDir(), "k.rs", "extern \"system\" { pub fn GetTickCount() -> DWORD; }\n")

	var stdout, stderr bytes.Buffer
	if err := run([]string{path, "-link", "kernel32"}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(stdout.String(), `pub extern "kernel32" fn GetTickCount (`) {
		t.Errorf("link name not applied:\n%s", stdout.String())
	}
}

func TestRunFileOutputFlag(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeTestFile(t, dir, "a.rs", "pub const A: u32 = 1;\n")
	out := filepath.Join(dir, "a.zig")

	var stdout, stderr bytes.Buffer
	if err := run([]string{"-o", out, path}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	if stdout.Len() != 0 {
		t.Errorf("stdout should be empty, got %q", stdout.String())
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "pub const A = 1;\n" {
		t.Errorf("output = %q", data)
	}
}

func TestRunFileHardFailureKeepsPartialOutput(t *testing.T) {
	t.Parallel()
	path := writeTestFile(t, t.TempDir(), "bad.rs", "pub const A: u32 = 1;\npub type BUF = [u8; 4];\npub const B: u32 = 2;\n")

	var stdout, stderr bytes.Buffer
	err := run([]string{path}, &stdout, &stderr)
	if err == nil {
		t.Fatal("expected error for unsupported type")
	}
	if !strings.Contains(err.Error(), "unsupported type") || !strings.Contains(err.Error(), "line 2") {
		t.Errorf("unexpected error: %v", err)
	}
	if stdout.String() != "pub const A = 1;\n" {
		t.Errorf("partial output = %q", stdout.String())
	}
}

func TestRunFileSyntaxError(t *testing.T) {
	t.Parallel()
	path := writeTestFile(t, t.TempDir(), "broken.rs", "pub const = ;\n")

	var stdout, stderr bytes.Buffer
	err := run([]string{path}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "syntax error") {
		t.Fatalf("expected syntax error, got %v", err)
	}
	if stdout.Len() != 0 {
		t.Errorf("nothing should be translated, got %q", stdout.String())
	}
}

func TestRunVerboseLogsSkips(t *testing.T) {
	t.Parallel()
	path := writeTestFile(t, t.TempDir(), "f.rs", "fn helper() {}\n")

	var stdout, stderr bytes.Buffer
	if err := run([]string{"-v", path}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(stderr.String(), "skipping item") || !strings.Contains(stderr.String(), "name=helper") {
		t.Errorf("expected debug log, got %q", stderr.String())
	}
}

func TestRunDir(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeTestFile(t, root, "um/winuser.rs", sampleSource)
	writeTestFile(t, root, "shared.rs", "pub type BOOL = c_int;\n")
	out := filepath.Join(t.TempDir(), "zig")

	var stdout, stderr bytes.Buffer
	if err := run([]string{root, "-o", out, "-report"}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}

	data, err := os.ReadFile(filepath.Join(out, "um", "winuser.zig"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != sampleOutput {
		t.Errorf("winuser.zig mismatch:\n%s", data)
	}
	data, err = os.ReadFile(filepath.Join(out, "shared.zig"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "pub const BOOL = c_int;\n" {
		t.Errorf("shared.zig = %q", data)
	}

	report := stdout.String()
	if !strings.Contains(report, "files[2]{path,output,status,items,skipped}:") {
		t.Errorf("missing files table:\n%s", report)
	}
	if !strings.Contains(report, "imports[1]{source,target,symbols}:") {
		t.Errorf("missing imports table:\n%s", report)
	}
	if !strings.Contains(report, "um/winuser.rs,shared.rs,BOOL DWORD HWND") {
		t.Errorf("import edge should resolve to shared.rs:\n%s", report)
	}
}

func TestRunDirSkipsFreshOutputs(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeTestFile(t, root, "a.rs", "pub const A: u32 = 1;\n")
	out := t.TempDir()

	var stdout, stderr bytes.Buffer
	if err := run([]string{"-o", out, root}, &stdout, &stderr); err != nil {
		t.Fatalf("first run: %v", err)
	}

	stdout.Reset()
	if err := run([]string{"-o", out, "-report", root}, &stdout, &stderr); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !strings.Contains(stdout.String(), ",fresh,") {
		t.Errorf("expected fresh status:\n%s", stdout.String())
	}

	stdout.Reset()
	if err := run([]string{"-o", out, "-report", "-force", root}, &stdout, &stderr); err != nil {
		t.Fatalf("forced run: %v", err)
	}
	if !strings.Contains(stdout.String(), ",translated,") {
		t.Errorf("expected translated status with -force:\n%s", stdout.String())
	}
}

func TestRunDirRelinksOnLinkChange(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeTestFile(t, root, "a.rs", "extern \"system\" { pub fn F(); }\n")
	out := t.TempDir()
	zig := filepath.Join(out, "a.zig")

	var stdout, stderr bytes.Buffer
	if err := run([]string{"-o", out, root}, &stdout, &stderr); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := run([]string{"-o", out, "-link", "kernel32", "-report", root}, &stdout, &stderr); err != nil {
		t.Fatalf("relink run: %v", err)
	}
	data, err := os.ReadFile(zig)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `pub extern "kernel32" fn F (`) {
		t.Errorf("output not rewritten for the new link name:\n%s", data)
	}
	if !strings.Contains(stdout.String(), ",translated,") {
		t.Errorf("expected translated status after link change:\n%s", stdout.String())
	}

	// Same link again: nothing to do.
	stdout.Reset()
	if err := run([]string{"-o", out, "-link", "kernel32", "-report", root}, &stdout, &stderr); err != nil {
		t.Fatalf("third run: %v", err)
	}
	if !strings.Contains(stdout.String(), ",fresh,") {
		t.Errorf("expected fresh status:\n%s", stdout.String())
	}
}

func TestRunDirReportStableAcrossRuns(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeTestFile(t, root, "um/winuser.rs", sampleSource)
	writeTestFile(t, root, "shared.rs", "pub type BOOL = c_int;\n")
	out := t.TempDir()

	var first, second, stderr bytes.Buffer
	if err := run([]string{"-o", out, "-report", root}, &first, &stderr); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := run([]string{"-o", out, "-report", root}, &second, &stderr); err != nil {
		t.Fatalf("second run: %v", err)
	}

	if !strings.Contains(second.String(), "imports[1]{source,target,symbols}:") {
		t.Errorf("fresh run lost its imports:\n%s", second.String())
	}
	want := strings.ReplaceAll(first.String(), ",translated,", ",fresh,")
	if diff := cmp.Diff(want, second.String()); diff != "" {
		t.Errorf("report of fresh run differs (-want +got):\n%s", diff)
	}
}

func TestRunDirSkipsLargeFiles(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeTestFile(t, root, "big.rs", "pub const A: u32 = 1;\npub const B: u32 = 2;\n")
	writeTestFile(t, root, "small.rs", "const C: u8 = 3;\n")
	out := t.TempDir()

	var stdout, stderr bytes.Buffer
	if err := run([]string{"-o", out, "-max-file-size", "20", root}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(stderr.String(), "Warning: big.rs: skipped (>20 bytes)") {
		t.Errorf("expected size warning, got %q", stderr.String())
	}
	if _, err := os.Stat(filepath.Join(out, "big.zig")); !os.IsNotExist(err) {
		t.Errorf("big.zig should not be written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "small.zig")); err != nil {
		t.Errorf("small.zig should be written: %v", err)
	}

	err := run([]string{"-o", out, "-max-file-size", "1", root}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "all exceeded size limit") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestWriteOutput(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	path := filepath.Join(dir, "partial.zig")
	err := writeOutput(path, func(w io.Writer) error {
		_, _ = io.WriteString(w, "pub const A = 1;\n")
		return errors.New("line 2: unsupported type")
	})
	if err == nil || !strings.Contains(err.Error(), "unsupported type") {
		t.Fatalf("write error not returned: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "pub const A = 1;\n" {
		t.Errorf("partial output = %q", data)
	}

	err = writeOutput(filepath.Join(dir, "missing", "a.zig"), func(io.Writer) error { return nil })
	if err == nil || !strings.Contains(err.Error(), "creating output") {
		t.Errorf("expected create error, got %v", err)
	}
}

func TestRunDirFailureContinues(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeTestFile(t, root, "bad.rs", "use shared::*;\n")
	writeTestFile(t, root, "good.rs", "pub const A: u32 = 1;\n")
	out := t.TempDir()

	var stdout, stderr bytes.Buffer
	err := run([]string{"-o", out, "-report", root}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "1 of 2 files failed") {
		t.Fatalf("expected failure summary, got %v", err)
	}
	if !strings.Contains(stderr.String(), "Warning: bad.rs") {
		t.Errorf("expected warning for bad.rs, got %q", stderr.String())
	}
	if _, err := os.Stat(filepath.Join(out, "good.zig")); err != nil {
		t.Errorf("good.zig should still be written: %v", err)
	}
	if !strings.Contains(stdout.String(), "errors[1]{path,error}:") {
		t.Errorf("missing errors table:\n%s", stdout.String())
	}

	// The failed output is retried on the next run.
	stdout.Reset()
	_ = run([]string{"-o", out, "-report", root}, &stdout, &stderr)
	if !strings.Contains(stdout.String(), "bad.rs") || !strings.Contains(stdout.String(), ",failed,") {
		t.Errorf("failed file should be retried:\n%s", stdout.String())
	}
}

func TestRunDirRequiresOutput(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	err := run([]string{t.TempDir()}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "-o is required") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunDirNoFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTestFile(t, dir, "readme.txt", "nothing here")

	var stdout, stderr bytes.Buffer
	err := run([]string{"-o", t.TempDir(), dir}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "no translatable files") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunReportRequiresDir(t *testing.T) {
	t.Parallel()
	path := writeTestFile(t, t.TempDir(), "a.rs", "")

	var stdout, stderr bytes.Buffer
	err := run([]string{"-report", path}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "requires a directory") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunUsage(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	err := run(nil, &stdout, &stderr)
	if err == nil {
		t.Fatal("expected usage error")
	}
	if !strings.Contains(stderr.String(), "Usage: rs2zig") {
		t.Errorf("usage not printed: %q", stderr.String())
	}
}

func TestRunVersion(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	err := run([]string{"-V"}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(stdout.String(), "rs2zig") {
		t.Errorf("version output: %q", stdout.String())
	}
}

func TestReorderArgs(t *testing.T) {
	t.Parallel()

	got := reorderArgs([]string{"in.rs", "-link", "gdi32", "-max-file-size", "10", "-v", "--", "-odd.rs"})
	want := []string{"-link", "gdi32", "-max-file-size", "10", "-v", "in.rs", "-odd.rs"}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("reorderArgs = %v, want %v", got, want)
	}
}
