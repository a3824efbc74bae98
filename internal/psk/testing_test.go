package psk

import "errors"

// fakeNonceSource replays a fixed sequence of draws, so rotation tests can
// assert on exact nonce values instead of tolerating whatever the real
// ChaCha20-backed source happens to produce.
type fakeNonceSource struct {
	values []uint32
	i      int
}

func (f *fakeNonceSource) Uint32() (uint32, error) {
	if f.i >= len(f.values) {
		return 0, errors.New("fakeNonceSource: exhausted")
	}
	v := f.values[f.i]
	f.i++
	return v, nil
}

// erroringNonceSource always fails, for exercising derivation-failure paths.
type erroringNonceSource struct{}

func (erroringNonceSource) Uint32() (uint32, error) {
	return 0, errors.New("erroringNonceSource: always fails")
}

// fakeRecorder records every call a KeyContext makes into it, so tests can
// assert the rotation controller actually calls Recorder rather than just
// accepting one.
type fakeRecorder struct {
	rotations       []string
	derivations     []error
	skippedNoNonce  int
	skippedReuseCap int
}

func (f *fakeRecorder) RecordKeyRotation(trigger string) { f.rotations = append(f.rotations, trigger) }
func (f *fakeRecorder) RecordDerivation(err error)       { f.derivations = append(f.derivations, err) }
func (f *fakeRecorder) RecordDecryptSkippedNoNonce()     { f.skippedNoNonce++ }
func (f *fakeRecorder) RecordDecryptSkippedReuseCap()    { f.skippedReuseCap++ }

func newTestContext(t interface{ Fatalf(string, ...any) }, keyBits int, rotation uint32, nonces []uint32, password []byte) *KeyContext {
	ctx, err := New(keyBits, rotation, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx.nonceSource = &fakeNonceSource{values: nonces}
	ctx.iterations = 100 // keep PBKDF2 cheap in tests; determinism is unaffected
	if len(password) > 0 {
		if err := ctx.SetPassphrase(password); err != nil {
			t.Fatalf("SetPassphrase() error = %v", err)
		}
	}
	return ctx
}
