package identity

import "testing"

func TestSerials_FullPopulation(t *testing.T) {
	serials := Serials(500, "SN-")

	if len(serials) != 500 {
		t.Fatalf("len = %d, want 500", len(serials))
	}
	if serials[0] != "SN-000" {
		t.Errorf("first serial = %q, want SN-000", serials[0])
	}
	if serials[499] != "SN-499" {
		t.Errorf("last serial = %q, want SN-499", serials[499])
	}

	// Strictly increasing implies no duplicates.
	for i := 1; i < len(serials); i++ {
		if serials[i-1] >= serials[i] {
			t.Fatalf("serials not strictly increasing at %d: %q >= %q", i, serials[i-1], serials[i])
		}
	}
}

func TestSerials_Empty(t *testing.T) {
	if got := Serials(0, "SN-"); got != nil {
		t.Errorf("Serials(0) = %v, want nil", got)
	}
	if got := Serials(-3, "SN-"); got != nil {
		t.Errorf("Serials(-3) = %v, want nil", got)
	}
}

func TestSerials_Deterministic(t *testing.T) {
	first := Serials(42, "DEV-")
	second := Serials(42, "DEV-")

	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("serial %d differs: %q vs %q", i, first[i], second[i])
		}
	}
}

func TestSerials_Padding(t *testing.T) {
	serials := Serials(1000, "SN-")

	if serials[7] != "SN-007" {
		t.Errorf("serial 7 = %q, want SN-007", serials[7])
	}
	if serials[99] != "SN-099" {
		t.Errorf("serial 99 = %q, want SN-099", serials[99])
	}
	// Indices beyond the padding width keep all their digits.
	if serials[999] != "SN-999" {
		t.Errorf("serial 999 = %q, want SN-999", serials[999])
	}
}
