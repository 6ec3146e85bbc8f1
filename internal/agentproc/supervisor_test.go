package agentproc

import (
	"context"
	"testing"
)

func TestClientFor_MissingBinaryIsFatal(t *testing.T) {
	s := NewSupervisor("definitely-not-a-real-binary-xyz", 40000, 40010)
	_, err := s.ClientFor(context.Background(), "/tmp", "app-1")
	if err == nil {
		t.Fatalf("expected error for missing binary")
	}
	if _, ok := err.(*ErrAgentBinaryMissing); !ok {
		t.Fatalf("error = %T, want *ErrAgentBinaryMissing", err)
	}
}

func TestAllocatePort_StaysWithinRange(t *testing.T) {
	s := NewSupervisor("sh", 40000, 40002)
	seen := map[int]bool{}
	for i := 0; i < 3; i++ {
		p := s.allocatePort()
		if p < 40000 || p > 40002 {
			t.Fatalf("allocatePort() = %d, out of range", p)
		}
		seen[p] = true
	}
}
