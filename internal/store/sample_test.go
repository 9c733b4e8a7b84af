package store

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestSampleRepository_CreateAndGet(t *testing.T) {
	s := newTestStore(t)
	repo := s.Samples()

	total, err := repo.Create("hello", []json.RawMessage{
		json.RawMessage(`{"frames":[[1]]}`),
		json.RawMessage(`{"frames":[[2]]}`),
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if total != 2 {
		t.Errorf("Create() total = %d, want 2", total)
	}

	// A second batch continues the index sequence.
	total, err = repo.Create("hello", []json.RawMessage{json.RawMessage(`{"frames":[[3]]}`)})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if total != 3 {
		t.Errorf("Create() total = %d, want 3", total)
	}

	samples, err := repo.GetBySign("hello")
	if err != nil {
		t.Fatalf("GetBySign() error = %v", err)
	}
	if len(samples) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(samples))
	}
	for i, sample := range samples {
		if sample.SampleIndex != i {
			t.Errorf("sample %d has index %d", i, sample.SampleIndex)
		}
		if sample.Sign != "hello" {
			t.Errorf("sample %d has sign %q", i, sample.Sign)
		}
	}
	if string(samples[2].Data) != `{"frames":[[3]]}` {
		t.Errorf("unexpected data %s", samples[2].Data)
	}
}

func TestSampleRepository_CountAndDelete(t *testing.T) {
	s := newTestStore(t)
	repo := s.Samples()

	repo.Create("a", []json.RawMessage{json.RawMessage(`{}`)})
	repo.Create("b", []json.RawMessage{json.RawMessage(`{}`), json.RawMessage(`{}`)})

	n, err := repo.Count("b")
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Count(b) = %d, want 2", n)
	}

	if err := repo.DeleteBySign("b"); err != nil {
		t.Fatalf("DeleteBySign() error = %v", err)
	}

	if n, _ := repo.Count("b"); n != 0 {
		t.Errorf("Count(b) after delete = %d, want 0", n)
	}
	if n, _ := repo.Count("a"); n != 1 {
		t.Errorf("Count(a) = %d, want 1", n)
	}
}

func TestSampleRepository_EmptySign(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Samples().Create("", []json.RawMessage{json.RawMessage(`{}`)}); !errors.Is(err, ErrEmptyKey) {
		t.Errorf("Create(\"\") error = %v, want ErrEmptyKey", err)
	}
}
