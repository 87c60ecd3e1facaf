package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeICS(t *testing.T, dir, name string, events ...string) string {
	t.Helper()
	parts := []string{"BEGIN:VCALENDAR", "VERSION:2.0", "PRODID:-//test//test//EN"}
	parts = append(parts, events...)
	parts = append(parts, "END:VCALENDAR")
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(strings.Join(parts, "\r\n")+"\r\n"), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func vevent(uid, summary, date string) string {
	return strings.Join([]string{
		"BEGIN:VEVENT",
		"UID:" + uid,
		"SUMMARY:" + summary,
		"DTSTART;VALUE=DATE:" + date,
		"DTSTAMP:20240101T000000Z",
		"END:VEVENT",
	}, "\r\n")
}

func runCompare(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	flagConfig, flagRegion, flagProfile, flagNoColor, flagFormat = "", "", "", true, ""

	cmd := compareCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestCompareCommand(t *testing.T) {
	dir := t.TempDir()
	oldPath := writeICS(t, dir, "old.ics", vevent("u1", "a", "20250101"))
	newPath := writeICS(t, dir, "new.ics",
		vevent("u1", "a", "20250101"),
		vevent("u2", "b", "20250301"))

	stdout, stderr, err := runCompare(t, oldPath, newPath)
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if !strings.Contains(stdout, "+ added: 1 events") {
		t.Errorf("stdout missing added count:\n%s", stdout)
	}
	if !strings.Contains(stdout, oldPath) || !strings.Contains(stdout, newPath) {
		t.Errorf("stdout does not name both files:\n%s", stdout)
	}
	if stderr != "" {
		t.Errorf("unexpected stderr: %q", stderr)
	}
}

func TestCompareCommandBrokenFileIsFatal(t *testing.T) {
	dir := t.TempDir()
	okPath := writeICS(t, dir, "ok.ics", vevent("u1", "a", "20250101"))
	badPath := filepath.Join(dir, "bad.ics")
	if err := os.WriteFile(badPath, []byte("BEGIN:VCALENDAR\r\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, _, err := runCompare(t, badPath, okPath)
	if err == nil {
		t.Fatal("compare succeeded on a truncated calendar")
	}
	if !strings.Contains(err.Error(), "comparison could not run") {
		t.Errorf("error = %v, want fatal wording", err)
	}
	if !strings.Contains(err.Error(), "bad.ics") {
		t.Errorf("error does not name the file: %v", err)
	}
}

func TestCompareCommandDiagnosticsGoToStderr(t *testing.T) {
	dir := t.TempDir()
	// The defective event is dropped with a warning; the run still works.
	withDefect := writeICS(t, dir, "defect.ics",
		vevent("u1", "a", "20250101"),
		strings.Join([]string{
			"BEGIN:VEVENT",
			"UID:no-start",
			"SUMMARY:missing dtstart",
			"DTSTAMP:20240101T000000Z",
			"END:VEVENT",
		}, "\r\n"))
	clean := writeICS(t, dir, "clean.ics", vevent("u1", "a", "20250101"))

	stdout, stderr, err := runCompare(t, withDefect, clean)
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if !strings.Contains(stderr, "missing DTSTART") {
		t.Errorf("stderr missing diagnostic: %q", stderr)
	}
	if !strings.Contains(stderr, "comparison ran with 1 skipped event(s)") {
		t.Errorf("stderr missing skip summary: %q", stderr)
	}
	if strings.Contains(stdout, "missing DTSTART") {
		t.Error("diagnostics leaked to stdout")
	}
}
