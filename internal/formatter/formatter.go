// package formatter provides functions to export action reports to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/desertthunder/ytb/internal/models"
)

// ExportToCSV converts an ActionSummary to CSV format with one row per targeted item.
func ExportToCSV(summary *models.ActionSummary) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Position", "Status", "VideoID", "SourceItemID", "TargetItemID", "Error"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, item := range summary.Items {
		record := []string{
			strconv.Itoa(item.Position),
			string(item.Status),
			item.VideoID,
			item.SourcePlaylistItemID,
			item.TargetPlaylistItemID,
			item.ErrorMessage,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts an ActionSummary to a Markdown report.
func ExportToMarkdown(summary *models.ActionSummary) ([]byte, error) {
	var buf bytes.Buffer

	action := summary.Action
	buf.WriteString(fmt.Sprintf("# %s action %s\n\n", action.Type, action.ID))
	buf.WriteString(fmt.Sprintf("**Status**: %s\n", action.Status))
	buf.WriteString(fmt.Sprintf("**User**: %s\n", action.UserID))
	buf.WriteString(fmt.Sprintf("**Recorded**: %s\n", action.CreatedAt.Format(time.RFC3339)))
	buf.WriteString(fmt.Sprintf("**Items**: %d\n\n", len(summary.Items)))

	buf.WriteString("## Items\n\n")
	buf.WriteString("| # | Status | Video | Source | Target | Error |\n")
	buf.WriteString("|---|--------|-------|--------|--------|-------|\n")
	for _, item := range summary.Items {
		buf.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s | %s |\n",
			item.Position, item.Status, item.VideoID,
			item.SourcePlaylistItemID, item.TargetPlaylistItemID, item.ErrorMessage))
	}

	return buf.Bytes(), nil
}

// ExportToText converts an ActionSummary to plain text format
func ExportToText(summary *models.ActionSummary) ([]byte, error) {
	var buf bytes.Buffer

	action := summary.Action
	buf.WriteString(fmt.Sprintf("Action: %s (%s)\n", action.ID, action.Type))
	buf.WriteString(fmt.Sprintf("Status: %s\n", action.Status))
	buf.WriteString(fmt.Sprintf("Items: %d\n\n", len(summary.Items)))

	for _, item := range summary.Items {
		line := fmt.Sprintf("%d. [%s]", item.Position+1, item.Status)
		if item.VideoID != "" {
			line += " video " + item.VideoID
		}
		if item.SourcePlaylistItemID != "" {
			line += " from " + item.SourcePlaylistItemID
		}
		if item.TargetPlaylistItemID != "" {
			line += " to " + item.TargetPlaylistItemID
		}
		if item.ErrorMessage != "" {
			line += " (" + item.ErrorMessage + ")"
		}
		buf.WriteString(line + "\n")
	}

	return buf.Bytes(), nil
}

// WriteExport renders an ActionSummary in the given format and writes it to path.
//
// Format is one of "csv", "md", or "text". Path defaults to the action ID with
// a format-appropriate extension.
func WriteExport(summary *models.ActionSummary, format, path string) (string, error) {
	var data []byte
	var err error
	var ext string

	switch format {
	case "csv":
		data, err = ExportToCSV(summary)
		ext = ".csv"
	case "md", "markdown":
		data, err = ExportToMarkdown(summary)
		ext = ".md"
	case "text", "txt":
		data, err = ExportToText(summary)
		ext = ".txt"
	default:
		return "", fmt.Errorf("unsupported export format: %s", format)
	}
	if err != nil {
		return "", err
	}

	if path == "" {
		path = summary.Action.ID + ext
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	return path, nil
}
