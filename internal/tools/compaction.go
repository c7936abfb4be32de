// Package tools keeps oversized tool output out of the conversational
// context window, storing the full result for later reference.
package tools

import (
	"fmt"
	"strings"

	"agentcore/internal/store"
)

// Default thresholds for tool output compaction. A result under
// maxContextChars passes through untouched; above summarizeThreshold it
// is summarized rather than merely truncated.
const (
	defaultMaxContextChars    = 2000
	defaultSummarizeThreshold = 5000
)

// importantLineMarkers flags lines worth surfacing in a summary: counts,
// errors, and outcomes tend to carry the signal in tool output.
var importantLineMarkers = []string{
	"total:", "count:", "error:", "found:", "result:", "success", "failed",
}

// CompactResult is what a caller folds back into the conversational
// context in place of a tool's raw output.
type CompactResult struct {
	ContextVersion string // what goes in the context window
	FullOutputID   string // store.ToolOutputBlob.ID, empty if not compacted
	Truncated      bool
}

// Compactor keeps oversized tool results out of the context window,
// storing the full output in the blob store and handing back a bounded
// summary that ends with a ref://<id> pointer for later retrieval.
type Compactor struct {
	store              *store.Store
	maxContextChars    int
	summarizeThreshold int
}

// NewCompactor returns a Compactor with the default thresholds. A nil
// store disables persistence: oversized output is still truncated in
// context, but no ref:// pointer is produced.
func NewCompactor(s *store.Store) *Compactor {
	return &Compactor{
		store:              s,
		maxContextChars:    defaultMaxContextChars,
		summarizeThreshold: defaultSummarizeThreshold,
	}
}

// ProcessToolResult compacts a single tool result for context storage.
// Results at or under the context limit pass through unchanged.
func (c *Compactor) ProcessToolResult(toolName, result, sessionKey string) (CompactResult, error) {
	if len(result) <= c.maxContextChars {
		return CompactResult{ContextVersion: result}, nil
	}

	var fullOutputID string
	if c.store != nil {
		blob := &store.ToolOutputBlob{
			ToolName:       toolName,
			FullOutput:     result,
			ContextSummary: c.summarize(result, c.maxContextChars),
			SessionKey:     sessionKey,
		}
		if err := c.store.SaveToolOutputBlob(blob); err != nil {
			return CompactResult{}, fmt.Errorf("tools: compact %s output: %w", toolName, err)
		}
		fullOutputID = blob.ID
	}

	var suffix string
	if fullOutputID != "" {
		suffix = fmt.Sprintf("\n[Full output: ref://%s]", fullOutputID)
	}
	bodyBudget := c.maxContextChars - len(suffix)
	if bodyBudget < 0 {
		bodyBudget = 0
	}

	var body string
	if len(result) > c.summarizeThreshold {
		body = c.summarize(result, bodyBudget)
	} else {
		cut := result
		noticeBudget := bodyBudget - len(fmt.Sprintf("\n...[truncated %d chars]", len(result)))
		if noticeBudget < 0 {
			noticeBudget = 0
		}
		if len(cut) > noticeBudget {
			cut = cut[:noticeBudget]
		}
		body = fmt.Sprintf("%s\n...[truncated %d chars]", cut, len(result)-len(cut))
	}

	contextVersion := body + suffix
	return CompactResult{ContextVersion: contextVersion, FullOutputID: fullOutputID, Truncated: true}, nil
}

// Fetch returns the full output previously stored for a ref://<id>
// pointer, incrementing its access counter. id may be passed either
// bare or with the ref:// prefix.
func (c *Compactor) Fetch(ref string) (*store.ToolOutputBlob, error) {
	if c.store == nil {
		return nil, fmt.Errorf("tools: no blob store configured")
	}
	return c.store.GetToolOutputBlob(strings.TrimPrefix(ref, "ref://"))
}

// summarize extracts the first handful of signal-bearing lines from
// text and bounds the result to maxChars.
func (c *Compactor) summarize(text string, maxChars int) string {
	lines := strings.Split(text, "\n")
	scanLimit := len(lines)
	if scanLimit > 50 {
		scanLimit = 50
	}

	var important []string
	for _, line := range lines[:scanLimit] {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		lower := strings.ToLower(trimmed)
		for _, marker := range importantLineMarkers {
			if strings.Contains(lower, marker) {
				important = append(important, trimmed)
				break
			}
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Output (%d chars, %d lines)", len(text), len(lines))
	if len(important) > 0 {
		b.WriteString("\nKey points:")
		if len(important) > 5 {
			important = important[:5]
		}
		for _, line := range important {
			display := line
			if len(display) > 80 {
				display = display[:80] + "..."
			}
			fmt.Fprintf(&b, "\n  - %s", display)
		}
	}

	summary := b.String()
	if len(summary) > maxChars {
		summary = summary[:maxChars-3] + "..."
	}
	return summary
}
