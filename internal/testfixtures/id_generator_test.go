package testfixtures

import "testing"

func TestIDGeneratorProducesSequentialIDs(t *testing.T) {
	gen := NewIDGenerator("")

	first := gen.Next()
	second := gen.Next()

	if first != "token-1" || second != "token-2" {
		t.Fatalf("unexpected identifiers: %q, %q", first, second)
	}
	if gen.Issued() != 2 {
		t.Fatalf("expected 2 issued, got %d", gen.Issued())
	}
}

func TestIDGeneratorNilFuncFallsBack(t *testing.T) {
	var gen *IDGenerator
	if gen.NextFunc() != nil {
		t.Fatalf("nil generator must yield a nil func so services pick their default")
	}
}
