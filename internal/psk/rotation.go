package psk

// incrementSaturating adds 1 to *v without wrapping past the uint32 max.
func incrementSaturating(v *uint32) {
	if *v < ^uint32(0) {
		*v++
	}
}

// Encrypt transforms plaintext into ciphertext in-place style semantics
// (dst and src may be the same slice) under the context's current key,
// rotating proactively first if any of three conditions hold: no key has
// been derived yet (nonce still 0), the current key has reached the
// package's hard reuse limit, or the configured rotation interval has been
// reached. A rotation draws a fresh nonce and re-derives the key before any
// bytes are transformed, so every packet Encrypt emits is protected by a
// key within its configured lifetime.
//
// seq is the packet's sequence number and greVersion picks the IV layout;
// see buildIV. Encrypt returns ErrContextInert if the context has never
// been given a passphrase, and wraps ErrDerivationFailed if a proactive
// rotation's derivation fails.
func (k *KeyContext) Encrypt(seq uint32, greVersion uint8, dst, src []byte) error {
	if len(k.password) == 0 {
		return ErrContextInert
	}

	trigger := ""
	switch {
	case k.nonce == 0:
		trigger = "initial"
	case k.usedTimes+1 > KeyReuseLimit:
		trigger = "reuse_cap"
	case k.rotation > 0 && k.usedTimes >= k.rotation:
		trigger = "interval"
	}

	if trigger != "" {
		nonce, err := drawNonzeroNonce(k.nonceSource)
		if err != nil {
			return wrapDerivation(err)
		}
		k.nonce = nonce
		if err := k.deriveLocked(); err != nil {
			return err
		}
		if k.recorder != nil {
			k.recorder.RecordKeyRotation(trigger)
		}
	}

	if k.engine == nil {
		return ErrContextInert
	}

	iv := buildIV(seq, greVersion)
	if err := k.engine.Transform(iv, dst, src); err != nil {
		return err
	}
	incrementSaturating(&k.usedTimes)
	return nil
}

// Decrypt transforms ciphertext into plaintext under the key identified by
// announcedNonce, the nonce value carried on the wire for this packet.
// Unlike Encrypt, Decrypt never originates a new nonce: it only follows
// what the sender announced.
//
// Decrypt silently skips the transform — leaving dst untouched and
// returning (false, nil), with no error — in two cases that the protocol
// treats as "not yet keyed" rather than failures: announcedNonce is 0, or
// the key identified by announcedNonce has already exceeded KeyReuseLimit
// packets. Callers must check the returned bool to tell a skip from an
// actual transform; both are reported without an error because neither is
// a caller mistake.
//
// When announcedNonce differs from the context's current nonce, Decrypt
// re-derives the key for the new nonce before transforming — this is how a
// receiver follows a sender's rotations. A derivation failure here is
// reported as an error, since the sender's announced nonce asserts that a
// fresh key should exist.
func (k *KeyContext) Decrypt(announcedNonce, seq uint32, greVersion uint8, dst, src []byte) (bool, error) {
	if announcedNonce == 0 {
		if k.recorder != nil {
			k.recorder.RecordDecryptSkippedNoNonce()
		}
		return false, nil
	}

	if announcedNonce != k.nonce {
		k.nonce = announcedNonce
		if err := k.deriveLocked(); err != nil {
			return false, err
		}
		if k.recorder != nil {
			k.recorder.RecordKeyRotation("follow")
		}
	}

	if k.usedTimes > KeyReuseLimit {
		if k.recorder != nil {
			k.recorder.RecordDecryptSkippedReuseCap()
		}
		return false, nil
	}

	if k.engine == nil {
		return false, ErrContextInert
	}

	iv := buildIV(seq, greVersion)
	if err := k.engine.Transform(iv, dst, src); err != nil {
		return false, err
	}
	incrementSaturating(&k.usedTimes)
	return true, nil
}
