package ratelimit

import "testing"

func TestAllowConsumesCapacity(t *testing.T) {
	l := New()
	for i := 0; i < 3; i++ {
		if !l.Allow("ip1", 3, 0) {
			t.Fatalf("request %d denied within capacity", i)
		}
	}
	if l.Allow("ip1", 3, 0) {
		t.Fatalf("request over capacity allowed")
	}
}

func TestAllowKeysAreIndependent(t *testing.T) {
	l := New()
	if !l.Allow("ip1", 1, 0) {
		t.Fatalf("ip1 denied")
	}
	if l.Allow("ip1", 1, 0) {
		t.Fatalf("ip1 over capacity allowed")
	}
	if !l.Allow("ip2", 1, 0) {
		t.Fatalf("ip2 throttled by ip1's bucket")
	}
}
