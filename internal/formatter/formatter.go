// package formatter renders search results and job state as plain text, Markdown or CSV
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/tunedeck/internal/models"
	"github.com/desertthunder/tunedeck/internal/search"
	"github.com/desertthunder/tunedeck/internal/shared"
)

const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatCSV      = "csv"
)

var sections = []struct {
	kind  search.Kind
	title string
}{
	{search.Artist, "Artists"},
	{search.Album, "Albums"},
	{search.Track, "Tracks"},
}

// Results renders set in the named format. query is used as the Markdown heading.
func Results(set search.ResultSet, format, query string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "", FormatText:
		return ResultsToText(set)
	case FormatMarkdown, "md":
		return ResultsToMarkdown(set, query)
	case FormatCSV:
		return ResultsToCSV(set)
	default:
		return nil, fmt.Errorf("%w: unknown format %q (want text, markdown or csv)", shared.ErrInvalidArgument, format)
	}
}

// ResultsToCSV writes one row per item with columns: Kind, ID, Title, Artists, Year, Duration
func ResultsToCSV(set search.ResultSet) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Kind", "ID", "Title", "Artists", "Year", "Duration"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, section := range sections {
		for _, item := range set.Bucket(section.kind) {
			duration := ""
			if secs := item.DurationSeconds(); secs > 0 {
				duration = strconv.Itoa(secs)
			}
			record := []string{
				item.Kind.String(),
				item.ID(),
				item.Title(),
				strings.Join(item.ArtistNames(), "; "),
				item.Year(),
				duration,
			}
			if err := writer.Write(record); err != nil {
				return nil, fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ResultsToMarkdown writes a heading per non-empty bucket with a numbered list of items
func ResultsToMarkdown(set search.ResultSet, query string) ([]byte, error) {
	var buf bytes.Buffer

	if query != "" {
		fmt.Fprintf(&buf, "# Results for %q\n\n", query)
	}
	fmt.Fprintf(&buf, "**Artists**: %d | **Albums**: %d | **Tracks**: %d\n", len(set.Artists), len(set.Albums), len(set.Tracks))

	for _, section := range sections {
		items := set.Bucket(section.kind)
		if len(items) == 0 {
			continue
		}

		fmt.Fprintf(&buf, "\n## %s\n\n", section.title)
		for i, item := range items {
			fmt.Fprintf(&buf, "%d. %s\n", i+1, describe(item, true))
		}
	}

	return buf.Bytes(), nil
}

// ResultsToText writes each bucket as an indented list
func ResultsToText(set search.ResultSet) ([]byte, error) {
	var buf bytes.Buffer

	if set.Len() == 0 {
		buf.WriteString("No results.\n")
		return buf.Bytes(), nil
	}

	for _, section := range sections {
		items := set.Bucket(section.kind)
		if len(items) == 0 {
			continue
		}

		fmt.Fprintf(&buf, "%s (%d)\n", section.title, len(items))
		for _, item := range items {
			fmt.Fprintf(&buf, "  %s\n", describe(item, false))
		}
	}

	return buf.Bytes(), nil
}

// describe renders "Artist - Title (Year) [m:ss]", dropping the parts an item lacks
func describe(item search.Item, markdown bool) string {
	title := item.Title()
	if title == "" {
		title = "(untitled)"
	}
	if markdown {
		title = "**" + title + "**"
	}

	line := title
	if artists := item.ArtistNames(); len(artists) > 0 && item.Kind != search.Artist {
		line = strings.Join(artists, ", ") + " - " + line
	}
	if year := item.Year(); year != "" {
		line += " (" + year + ")"
	}
	if secs := item.DurationSeconds(); secs > 0 {
		line += " [" + shared.FormatDuration(secs) + "]"
	}
	return line
}

// JobToText renders the current state of a job
func JobToText(job *models.Job, now time.Time) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Job #%d (%s)\n", job.ID, job.Type)
	fmt.Fprintf(&buf, "Status: %s\n", job.Status)
	fmt.Fprintf(&buf, "Attempts: %d/%d\n", job.Attempts, job.MaxAttempts)
	if elapsed := job.Elapsed(now); elapsed > 0 {
		fmt.Fprintf(&buf, "Elapsed: %s\n", shared.FormatDuration(int(elapsed.Seconds())))
	}
	if msg := job.ErrorMessage(); msg != "" {
		fmt.Fprintf(&buf, "Error: %s\n", msg)
	}
	if len(job.Result) > 0 && string(job.Result) != "null" {
		fmt.Fprintf(&buf, "Result: %s\n", job.Result)
	}

	return buf.Bytes()
}

// HistoryToText renders locally recorded jobs, one per line
func HistoryToText(records []*models.JobRecord) []byte {
	var buf bytes.Buffer

	if len(records) == 0 {
		buf.WriteString("No jobs recorded.\n")
		return buf.Bytes()
	}

	for _, r := range records {
		fmt.Fprintf(&buf, "#%-6d %-10s %-20s %s", r.JobID(), r.Status(), r.Type(), r.ObservedAt().Format(time.DateTime))
		if msg := r.LastError(); msg != "" {
			fmt.Fprintf(&buf, "  %s", msg)
		}
		buf.WriteString("\n")
	}

	return buf.Bytes()
}

// WriteResults renders set and writes it to path, returning the path written.
//
// Defaults to results.{ext} in the working directory.
func WriteResults(set search.ResultSet, format, query, path string) (string, error) {
	data, err := Results(set, format, query)
	if err != nil {
		return "", err
	}

	if path == "" {
		path = "results." + extension(format)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write results file: %w", err)
	}

	return path, nil
}

func extension(format string) string {
	switch strings.ToLower(format) {
	case FormatMarkdown, "md":
		return "md"
	case FormatCSV:
		return "csv"
	default:
		return "txt"
	}
}
