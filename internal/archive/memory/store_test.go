package memory

import (
	"context"
	"io"
	"strings"
	"testing"

	"carecore/internal/archive"
)

func TestMemoryStore(t *testing.T) {
	s := New()
	ctx := context.Background()

	if s.Driver() != archive.DriverMemory {
		t.Fatalf("driver = %s", s.Driver())
	}

	info, err := s.Put(ctx, "audit.json", strings.NewReader("[]"), archive.PutOptions{ContentType: "application/json"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != 2 {
		t.Fatalf("size = %d", info.Size)
	}
	if _, err := s.Put(ctx, "audit.json", strings.NewReader("[]"), archive.PutOptions{}); err == nil {
		t.Fatalf("duplicate put must fail")
	}

	_, rc, err := s.Get(ctx, "audit.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "[]" {
		t.Fatalf("body = %q", body)
	}

	if _, err := s.Head(ctx, "missing"); err == nil {
		t.Fatalf("head of missing key must fail")
	}

	infos, err := s.List(ctx, "")
	if err != nil || len(infos) != 1 {
		t.Fatalf("list: %v, %d entries", err, len(infos))
	}

	existed, err := s.Delete(ctx, "audit.json")
	if err != nil || !existed {
		t.Fatalf("delete: %v existed=%v", err, existed)
	}
}
