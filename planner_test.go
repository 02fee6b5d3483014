package sajmqtt

import "testing"

func TestPlan_SingleChunk(t *testing.T) {
	chunks := Plan(0x8F00, 0x1E, 0x64)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Start != 0x8F00 || chunks[0].Count != 0x1E {
		t.Fatalf("chunk = %+v, want {0x8F00 30}", chunks[0])
	}
}

func TestPlan_RealtimeBlock(t *testing.T) {
	// 256 registers at the default cap of 100 split into 100+100+56.
	chunks := Plan(0x4000, 0x100, 0x64)
	want := []Chunk{
		{Start: 0x4000, Count: 0x64},
		{Start: 0x4064, Count: 0x64},
		{Start: 0x40C8, Count: 0x38},
	}
	if len(chunks) != len(want) {
		t.Fatalf("expected %d chunks, got %d", len(want), len(chunks))
	}
	for i, c := range chunks {
		if c != want[i] {
			t.Fatalf("chunk[%d] = %+v, want %+v", i, c, want[i])
		}
	}
}

func TestPlan_ExactMultiple(t *testing.T) {
	chunks := Plan(0, 128, 64)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[1].Start != 64 || chunks[1].Count != 64 {
		t.Fatalf("chunk[1] = %+v, want {64 64}", chunks[1])
	}
}

func TestPlan_Remainder(t *testing.T) {
	chunks := Plan(0, 130, 64)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if chunks[2].Start != 128 || chunks[2].Count != 2 {
		t.Fatalf("chunk[2] = %+v, want {128 2}", chunks[2])
	}
}
