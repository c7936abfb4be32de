package tools

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"agentcore/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := store.Open(path, 30*time.Second, 100)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestProcessToolResultPassesThroughSmallOutput(t *testing.T) {
	c := NewCompactor(newTestStore(t))
	result, err := c.ProcessToolResult("search", "short result", "sess-1")
	if err != nil {
		t.Fatalf("ProcessToolResult: %v", err)
	}
	if result.Truncated || result.FullOutputID != "" {
		t.Errorf("expected no compaction for small output, got %+v", result)
	}
	if result.ContextVersion != "short result" {
		t.Errorf("expected output unchanged, got %q", result.ContextVersion)
	}
}

// TestProcessToolResultCompactsLargeOutput exercises the documented
// scenario: a 50,000-character tool result in one session yields a
// context summary of at most 2,000 characters ending with a
// ref://<uuid> pointer, and fetching that pointer returns the full
// 50,000 characters with the access counter at 1.
func TestProcessToolResultCompactsLargeOutput(t *testing.T) {
	s := newTestStore(t)
	c := NewCompactor(s)

	var b strings.Builder
	b.WriteString("total: 50000 matching records\n")
	for b.Len() < 50000 {
		b.WriteString("result: row data filler content here\n")
	}
	full := b.String()[:50000]

	result, err := c.ProcessToolResult("search", full, "sess-1")
	if err != nil {
		t.Fatalf("ProcessToolResult: %v", err)
	}
	if !result.Truncated {
		t.Fatal("expected a 50,000 char output to be compacted")
	}
	if len(result.ContextVersion) > 2000 {
		t.Errorf("expected context summary <= 2000 chars, got %d", len(result.ContextVersion))
	}
	if result.FullOutputID == "" {
		t.Fatal("expected a stored blob id")
	}
	wantSuffix := "[Full output: ref://" + result.FullOutputID + "]"
	if !strings.HasSuffix(result.ContextVersion, wantSuffix) {
		t.Errorf("expected context summary to end with %q, got %q", wantSuffix, result.ContextVersion)
	}

	blob, err := c.Fetch(result.FullOutputID)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if blob == nil {
		t.Fatal("expected blob to be found")
	}
	if len(blob.FullOutput) != 50000 {
		t.Errorf("expected full output of 50000 chars, got %d", len(blob.FullOutput))
	}
	if blob.AccessCount != 1 {
		t.Errorf("expected access count 1 after first fetch, got %d", blob.AccessCount)
	}
}

func TestFetchAcceptsBareIDOrRefPrefix(t *testing.T) {
	s := newTestStore(t)
	c := NewCompactor(s)
	blob := &store.ToolOutputBlob{ToolName: "search", FullOutput: strings.Repeat("x", 10000), ContextSummary: "summary"}
	if err := s.SaveToolOutputBlob(blob); err != nil {
		t.Fatalf("SaveToolOutputBlob: %v", err)
	}

	bare, err := c.Fetch(blob.ID)
	if err != nil || bare == nil {
		t.Fatalf("Fetch(bare): %v %+v", err, bare)
	}
	prefixed, err := c.Fetch("ref://" + blob.ID)
	if err != nil || prefixed == nil {
		t.Fatalf("Fetch(ref://): %v %+v", err, prefixed)
	}
}

func TestProcessToolResultWithoutStoreStillTruncates(t *testing.T) {
	c := NewCompactor(nil)
	result, err := c.ProcessToolResult("search", strings.Repeat("y", 10000), "sess-1")
	if err != nil {
		t.Fatalf("ProcessToolResult: %v", err)
	}
	if !result.Truncated || result.FullOutputID != "" {
		t.Errorf("expected truncation without a ref pointer, got %+v", result)
	}
	if strings.Contains(result.ContextVersion, "ref://") {
		t.Errorf("did not expect a ref pointer without a store, got %q", result.ContextVersion)
	}
}

func TestProcessToolResultJustOverThresholdTruncatesWithNotice(t *testing.T) {
	c := NewCompactor(newTestStore(t))
	result, err := c.ProcessToolResult("search", strings.Repeat("z", 3000), "sess-1")
	if err != nil {
		t.Fatalf("ProcessToolResult: %v", err)
	}
	if !strings.Contains(result.ContextVersion, "...[truncated") {
		t.Errorf("expected a truncation notice, got %q", result.ContextVersion)
	}
	if len(result.ContextVersion) > 2000 {
		t.Errorf("expected context summary <= 2000 chars, got %d", len(result.ContextVersion))
	}
}
