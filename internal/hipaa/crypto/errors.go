package crypto

import "errors"

var (
	// ErrEncrypt covers failures sealing a plaintext (entropy exhaustion,
	// malformed key material).
	ErrEncrypt = errors.New("encryption failed")

	// ErrDecrypt is returned whenever a blob cannot be authenticated and
	// decrypted. Callers must surface it; silent fallback to the raw blob
	// would hand ciphertext to users.
	ErrDecrypt = errors.New("decryption failed")

	// ErrUnavailable is returned by a disabled engine (no secret configured).
	ErrUnavailable = errors.New("encryption unavailable")
)
