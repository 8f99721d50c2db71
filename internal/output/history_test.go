package output_test

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ZhuoyueLian/checkoutload/internal/output"
)

func TestAppendHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")
	entry := output.HistoryEntry{Report: output.NewReport(sampleSummary(), nil), BaseURL: "http://localhost:8080"}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := output.AppendHistory(path, entry); err != nil {
				t.Errorf("AppendHistory() error = %v", err)
			}
		}()
	}
	wg.Wait()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	defer f.Close()

	lines := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		var decoded map[string]interface{}
		if err := json.Unmarshal(scanner.Bytes(), &decoded); err != nil {
			t.Fatalf("line %d is not JSON: %v", lines, err)
		}
		if decoded["base_url"] != "http://localhost:8080" || decoded["run_id"] == nil {
			t.Fatalf("line %d = %v", lines, decoded)
		}
		lines++
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if lines != 8 {
		t.Fatalf("history has %d lines, want 8", lines)
	}
}

func TestAppendHistoryBadPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "history.jsonl")
	if err := output.AppendHistory(path, output.HistoryEntry{}); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
