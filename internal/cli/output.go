// Package cli provides the HTTP client and output formatting used by the blockdex commands.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/hyperjump/blockdex/internal/models"
	"github.com/hyperjump/blockdex/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is the API's JSON, indented, for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat accepts "text", "json" or "" (text).
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputText, "":
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q (supported: text, json)", s)
}

// previewLen bounds block content in text output.
const previewLen = 200

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteNearest writes a similarity search result.
func WriteNearest(w io.Writer, res *models.NearestBlocks, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, res)
	}
	fmt.Fprintf(w, "Nearest:\n%s\n\n", utils.Truncate(res.Nearest, previewLen))
	fmt.Fprintf(w, "Top %d:\n", len(res.KNearest))
	for i, text := range res.KNearest {
		fmt.Fprintln(w, "─────────────────────────────────────────────────────────")
		fmt.Fprintf(w, "[%d]\n%s\n", i+1, utils.Truncate(text, previewLen))
	}
	return nil
}

// WriteBlocks writes code blocks. In text format each block is summarized on one header line.
func WriteBlocks(w io.Writer, blocks []models.CodeBlock, format OutputFormat) error {
	if format == OutputJSON {
		if blocks == nil {
			blocks = []models.CodeBlock{}
		}
		return writeJSON(w, blocks)
	}
	fmt.Fprintf(w, "Found %d blocks\n", len(blocks))
	for _, b := range blocks {
		fmt.Fprintln(w, "─────────────────────────────────────────────────────────")
		fmt.Fprintf(w, "%s [%s]", b.NodeKey, b.BlockType)
		if b.ClassName != nil {
			fmt.Fprintf(w, " class=%s", *b.ClassName)
		}
		if b.FunctionName != nil {
			fmt.Fprintf(w, " function=%s", *b.FunctionName)
		}
		fmt.Fprintln(w)
		if len(b.OutgoingCalls) > 0 {
			fmt.Fprintf(w, "calls: %v\n", b.OutgoingCalls)
		}
		fmt.Fprintf(w, "\n%s\n\n", utils.Truncate(b.Content, previewLen))
	}
	return nil
}

// WriteProjectInfo writes a project's summary.
func WriteProjectInfo(w io.Writer, info *models.ProjectInfo, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, info)
	}
	fmt.Fprintf(w, "Project: %s\nCode blocks: %d\n", info.Name, info.TotalCodeBlocks)
	return nil
}

// WriteProjects writes project names, one per line in text format.
func WriteProjects(w io.Writer, names []string, format OutputFormat) error {
	if format == OutputJSON {
		if names == nil {
			names = []string{}
		}
		return writeJSON(w, map[string][]string{"projects": names})
	}
	for _, n := range names {
		fmt.Fprintln(w, n)
	}
	return nil
}

// WriteMessage writes a {"message"} style response.
func WriteMessage(w io.Writer, msg string, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, map[string]string{"message": msg})
	}
	_, err := fmt.Fprintln(w, msg)
	return err
}

// BlockSummary renders a block as a single line: node key and the first line of its content.
func BlockSummary(b models.CodeBlock) string {
	line, more := utils.FirstLine(b.Content)
	if more {
		line += " ..."
	}
	return fmt.Sprintf("%s  %s", b.NodeKey, utils.Truncate(line, 80))
}
