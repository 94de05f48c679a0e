package utils

import "testing"

func TestBuildStringToSign(t *testing.T) {
	t.Parallel()
	got := BuildStringToSign("PAYMENT", "payment.events/42", 1700000000, EmptyBodyHash)
	want := "PAYMENT\npayment.events/42\n1700000000\n" + EmptyBodyHash
	if got != want {
		t.Errorf("got %q", got)
	}
}

func TestHashBodySHA256(t *testing.T) {
	t.Parallel()
	if HashBodySHA256(nil) != EmptyBodyHash {
		t.Error("empty body hash mismatch")
	}
	// sha256("abc")
	if got := HashBodySHA256([]byte("abc")); got != "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad" {
		t.Errorf("got %s", got)
	}
}

func TestSecureCompare(t *testing.T) {
	t.Parallel()
	tests := []struct {
		a, b string
		want bool
	}{
		{"4821", "4821", true},
		{"4821", "4812", false},
		{"4821", "482", false},
		{"", "", true},
	}
	for _, tt := range tests {
		if got := SecureCompare(tt.a, tt.b); got != tt.want {
			t.Errorf("SecureCompare(%q, %q) = %v", tt.a, tt.b, got)
		}
	}
}

func TestComputeHMACSHA256IsKeyed(t *testing.T) {
	t.Parallel()
	a := ComputeHMACSHA256("k1", "msg")
	if len(a) != 64 {
		t.Fatalf("len = %d", len(a))
	}
	if a == ComputeHMACSHA256("k2", "msg") {
		t.Error("different keys gave the same mac")
	}
	if a != ComputeHMACSHA256("k1", "msg") {
		t.Error("mac is not deterministic")
	}
}
