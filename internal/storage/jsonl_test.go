package storage

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"cpamm/internal/model"
)

func TestJSONLJournalAppendAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "events.jsonl")
	journal := NewJSONLJournal(path)

	first := []model.LogRecord{
		{ID: "a", Address: "0x1111111111111111111111111111111111111111", EventName: "PoolInitialized", Topics: []string{"0xaaa"}, Data: "0x01", Timestamp: 1},
	}
	second := []model.LogRecord{
		{ID: "b", Address: "0x1111111111111111111111111111111111111111", EventName: "Deposit", Topics: []string{"0xbbb", "0xccc"}, Data: "0x02", Timestamp: 2},
	}
	if err := journal.Append(first); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := journal.Append(nil); err != nil {
		t.Fatalf("append empty: %v", err)
	}
	if err := journal.Append(second); err != nil {
		t.Fatalf("append: %v", err)
	}

	var got []model.LogRecord
	if err := ReadJSONL(path, func(r model.LogRecord) error {
		got = append(got, r)
		return nil
	}); err != nil {
		t.Fatalf("read: %v", err)
	}

	want := append(first, second...)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("records mismatch: %+v != %+v", got, want)
	}
}

func TestReadJSONLMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	if err := os.WriteFile(path, []byte("{\"id\":\"a\"}\n\nnot-json\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	count := 0
	err := ReadJSONL(path, func(model.LogRecord) error {
		count++
		return nil
	})
	if err == nil {
		t.Fatalf("expected parse error")
	}
	if count != 1 {
		t.Fatalf("expected one record before the error, got %d", count)
	}
}
