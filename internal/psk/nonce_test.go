package psk

import "testing"

func TestDrawNonzeroNonce_SkipsZeroes(t *testing.T) {
	src := &fakeNonceSource{values: []uint32{0, 0, 0, 42}}
	n, err := drawNonzeroNonce(src)
	if err != nil {
		t.Fatalf("drawNonzeroNonce() error = %v", err)
	}
	if n != 42 {
		t.Errorf("drawNonzeroNonce() = %d, want 42", n)
	}
}

func TestDrawNonzeroNonce_GivesUpOnPersistentZero(t *testing.T) {
	values := make([]uint32, maxNonceDrawAttempts+1)
	src := &fakeNonceSource{values: values}
	if _, err := drawNonzeroNonce(src); err != ErrNonceSourceExhausted {
		t.Errorf("drawNonzeroNonce() error = %v, want ErrNonceSourceExhausted", err)
	}
}

func TestDrawNonzeroNonce_PropagatesSourceError(t *testing.T) {
	if _, err := drawNonzeroNonce(erroringNonceSource{}); err == nil {
		t.Error("drawNonzeroNonce() with a failing source should error")
	}
}

func TestDefaultNonceSource_ProducesVariedValues(t *testing.T) {
	seen := make(map[uint32]bool)
	for i := 0; i < 8; i++ {
		n, err := DefaultNonceSource.Uint32()
		if err != nil {
			t.Fatalf("DefaultNonceSource.Uint32() error = %v", err)
		}
		seen[n] = true
	}
	if len(seen) < 2 {
		t.Errorf("DefaultNonceSource produced %d distinct values across 8 draws, want variety", len(seen))
	}
}
