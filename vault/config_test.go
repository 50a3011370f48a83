// ABOUTME: Tests for KDFParams defaults and bounds.
package vault

import "testing"

func TestDefaultKDFParams(t *testing.T) {
	p := DefaultKDFParams()
	if p.MemoryMB != 64 {
		t.Errorf("MemoryMB = %d, want 64", p.MemoryMB)
	}
	if p.Time != 3 {
		t.Errorf("Time = %d, want 3", p.Time)
	}
	if err := p.Validate(); err != nil {
		t.Errorf("defaults invalid: %v", err)
	}
}

func TestKDFParamsValidate(t *testing.T) {
	bad := []KDFParams{
		{},
		{MemoryMB: 0, Time: 1, Threads: 1},
		{MemoryMB: 1, Time: 0, Threads: 1},
		{MemoryMB: 1, Time: 1, Threads: 0},
		{MemoryMB: maxKDFMemoryMB + 1, Time: 1, Threads: 1},
		{MemoryMB: 1, Time: maxKDFTime + 1, Threads: 1},
		{MemoryMB: 1, Time: 1, Threads: maxKDFThreads + 1},
	}
	for _, p := range bad {
		if err := p.Validate(); err == nil {
			t.Errorf("Validate(%+v) = nil, want error", p)
		}
	}
	if err := testKDF.Validate(); err != nil {
		t.Errorf("test params invalid: %v", err)
	}
}
