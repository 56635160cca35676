package formatter

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/tunedeck/internal/models"
	"github.com/desertthunder/tunedeck/internal/search"
	"github.com/desertthunder/tunedeck/internal/shared"
	th "github.com/desertthunder/tunedeck/internal/testing"
)

func sampleResults() search.ResultSet {
	return search.Normalize([]any{
		map[string]any{"resultType": "artist", "artist": "Daft Punk", "browseId": "UC1"},
		map[string]any{"browseId": "MPRE1", "title": "Discovery", "year": "2001", "artists": []any{map[string]any{"name": "Daft Punk"}}},
		map[string]any{"videoId": "v1", "title": "One More Time", "duration_seconds": 320.0, "artists": []any{map[string]any{"name": "Daft Punk"}}},
		map[string]any{"videoId": "v2", "title": "Aerodynamic, Pt. 1", "duration": "3:27"},
	})
}

func TestResults(t *testing.T) {
	t.Run("ResultsToCSV", func(t *testing.T) {
		data, err := ResultsToCSV(sampleResults())
		if err != nil {
			t.Fatalf("ResultsToCSV failed: %v", err)
		}

		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		if lines[0] != "Kind,ID,Title,Artists,Year,Duration" {
			t.Errorf("CSV missing headers, got: %s", lines[0])
		}
		if len(lines) != 5 {
			t.Fatalf("expected header plus 4 rows, got %d", len(lines))
		}
		if !strings.HasPrefix(lines[1], "artist,UC1,Daft Punk") {
			t.Errorf("expected artists first, got %s", lines[1])
		}
		if lines[3] != "track,v1,One More Time,Daft Punk,,320" {
			t.Errorf("unexpected track row %s", lines[3])
		}
		if !strings.Contains(lines[4], `"Aerodynamic, Pt. 1"`) {
			t.Errorf("expected quoted title, got %s", lines[4])
		}
	})

	t.Run("ResultsToMarkdown", func(t *testing.T) {
		data, err := ResultsToMarkdown(sampleResults(), "daft punk")
		if err != nil {
			t.Fatalf("ResultsToMarkdown failed: %v", err)
		}
		output := string(data)

		for _, want := range []string{
			`# Results for "daft punk"`,
			"**Artists**: 1 | **Albums**: 1 | **Tracks**: 2",
			"## Albums",
			"1. Daft Punk - **Discovery** (2001)",
			"1. Daft Punk - **One More Time** [5:20]",
			"2. **Aerodynamic, Pt. 1** [3:27]",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("Markdown missing %q, got:\n%s", want, output)
			}
		}
	})

	t.Run("ResultsToMarkdown skips empty buckets", func(t *testing.T) {
		data, _ := ResultsToMarkdown(search.ResultSet{}, "")
		if strings.Contains(string(data), "##") || strings.Contains(string(data), "# Results") {
			t.Errorf("expected only the summary line, got:\n%s", data)
		}
	})

	t.Run("ResultsToText", func(t *testing.T) {
		data, err := ResultsToText(sampleResults())
		if err != nil {
			t.Fatalf("ResultsToText failed: %v", err)
		}
		output := string(data)

		if !strings.Contains(output, "Artists (1)\n  Daft Punk\n") {
			t.Errorf("artist should be listed by name only, got:\n%s", output)
		}
		if !strings.Contains(output, "Tracks (2)") {
			t.Errorf("missing track section, got:\n%s", output)
		}
	})

	t.Run("ResultsToText empty", func(t *testing.T) {
		data, _ := ResultsToText(search.ResultSet{})
		if string(data) != "No results.\n" {
			t.Errorf("unexpected output %q", data)
		}
	})

	t.Run("Results dispatch", func(t *testing.T) {
		for _, format := range []string{"", "text", "markdown", "md", "CSV"} {
			if _, err := Results(sampleResults(), format, "q"); err != nil {
				t.Errorf("format %q: unexpected error %v", format, err)
			}
		}
		if _, err := Results(sampleResults(), "xml", "q"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestJobs(t *testing.T) {
	t.Run("JobToText", func(t *testing.T) {
		started := models.Timestamp{Time: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
		reason := "upstream timeout"
		job := &models.Job{
			ID: 42, Type: "import", Status: models.JobFailed, Attempts: 3, MaxAttempts: 3,
			LastError: &reason, StartedAt: &started,
		}

		output := string(JobToText(job, started.Add(75*time.Second)))
		for _, want := range []string{"Job #42 (import)", "Status: failed", "Attempts: 3/3", "Elapsed: 1:15", "Error: upstream timeout"} {
			if !strings.Contains(output, want) {
				t.Errorf("missing %q, got:\n%s", want, output)
			}
		}
		if strings.Contains(output, "Result:") {
			t.Error("expected no result line")
		}
	})

	t.Run("JobToText with result", func(t *testing.T) {
		job := &models.Job{ID: 1, Type: "sync", Status: models.JobDone, Result: []byte(`{"ok":true}`)}
		if !strings.Contains(string(JobToText(job, time.Now())), `Result: {"ok":true}`) {
			t.Error("expected result line")
		}
	})

	t.Run("HistoryToText", func(t *testing.T) {
		at := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
		records := []*models.JobRecord{
			models.RestoreJobRecord("a", 2, 8, "sync", models.JobFailed, 1, 3, "boom", at, nil),
			models.RestoreJobRecord("b", 1, 7, "sync", models.JobDone, 1, 3, "", at, nil),
		}

		lines := strings.Split(strings.TrimSpace(string(HistoryToText(records))), "\n")
		if len(lines) != 2 {
			t.Fatalf("expected 2 lines, got %d", len(lines))
		}
		if !strings.HasPrefix(lines[0], "#8") || !strings.HasSuffix(lines[0], "boom") || !strings.Contains(lines[0], "2025-03-04 05:06:07") {
			t.Errorf("unexpected line %q", lines[0])
		}
		if string(HistoryToText(nil)) != "No jobs recorded.\n" {
			t.Error("expected empty message")
		}
	})
}

func TestWriteResults(t *testing.T) {
	t.Run("Writes File", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.md")

		written, err := WriteResults(sampleResults(), "markdown", "daft punk", path)
		if err != nil {
			t.Fatalf("WriteResults failed: %v", err)
		}
		if written != path {
			t.Errorf("expected %s, got %s", path, written)
		}
		th.AssertFileExists(t, path)
		if !strings.Contains(th.MustReadFile(t, path), "## Tracks") {
			t.Error("file missing track section")
		}
	})

	t.Run("Default Filename", func(t *testing.T) {
		t.Chdir(t.TempDir())

		written, err := WriteResults(sampleResults(), "csv", "", "")
		if err != nil {
			t.Fatalf("WriteResults failed: %v", err)
		}
		if written != "results.csv" {
			t.Errorf("expected results.csv, got %s", written)
		}
	})

	t.Run("Unknown Format", func(t *testing.T) {
		if _, err := WriteResults(sampleResults(), "xml", "", filepath.Join(t.TempDir(), "x")); err == nil {
			t.Error("expected error")
		}
	})
}
