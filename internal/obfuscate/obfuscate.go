// Package obfuscate provides a reversible, non-cryptographic encoding for
// values written to local storage.
//
// The transform is canonical JSON combined byte-wise with a repeating
// secret keystream (XOR), then base64-encoded so the result is safe for
// any text-based store.
//
// # Not a Security Boundary
//
// The keystream secret is a configuration value, not a security control.
// Anyone with access to the binary or configuration can reverse the
// encoding. It exists solely to keep plain JSON transcripts out of
// casual inspection of the storage directory. Do not rely on it to
// protect sensitive data.
package obfuscate

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformed indicates the payload was not produced by Encode with the
// same key: the base64 is invalid or the unmasked bytes do not parse.
// Callers should treat it as absence, not as a propagated failure.
var ErrMalformed = errors.New("obfuscate: malformed payload")

// ErrEmptyKey indicates the codec was constructed without a secret key.
var ErrEmptyKey = errors.New("obfuscate: empty key")

// Codec encodes and decodes values with a fixed keystream.
// The zero value is not usable; construct with New.
type Codec struct {
	key []byte
}

// New creates a Codec using the given secret as the repeating keystream.
func New(secret string) (*Codec, error) {
	if secret == "" {
		return nil, ErrEmptyKey
	}
	return &Codec{key: []byte(secret)}, nil
}

// Encode serializes v to JSON, masks it with the keystream and returns
// the base64 form. Fails only if v is not JSON-serializable.
func (c *Codec) Encode(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal value: %w", err)
	}

	c.mask(data)
	return base64.StdEncoding.EncodeToString(data), nil
}

// Decode reverses Encode into v. Any malformed input, wrong key, or
// non-parseable payload returns an error wrapping ErrMalformed; Decode
// never panics.
func (c *Codec) Decode(encoded string, v any) error {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	c.mask(data)
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

// mask applies the repeating-key XOR in place. XOR is symmetric, so the
// same operation encodes and decodes.
func (c *Codec) mask(data []byte) {
	for i := range data {
		data[i] ^= c.key[i%len(c.key)]
	}
}
