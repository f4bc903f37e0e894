package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/stanza/pkg/domain"
	"github.com/aretw0/stanza/pkg/ports"
)

// envelopeKey marks an encrypted result payload.
const envelopeKey = "__encrypted__"

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys is a list of old keys to try when decryption fails.
	// This enables zero-downtime key rotation.
	FallbackKeys [][]byte
}

type encryptionMiddleware struct {
	next   ports.StateStore
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that encrypts entry
// results using AES-GCM (envelope encryption). Metadata stays in the
// clear so inspection and TTL tooling keep working.
func NewEncryptionMiddleware(config EncryptionConfig) Middleware {
	if len(config.ActiveKey) != 32 {
		panic("active key must be 32 bytes (AES-256)")
	}
	return func(next ports.StateStore) ports.StateStore {
		return &encryptionMiddleware{
			next:   next,
			config: config,
		}
	}
}

func (m *encryptionMiddleware) Put(ctx context.Context, key string, entry *domain.StateEntry) error {
	plainText, err := json.Marshal(entry.Result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	ciphertext, err := encrypt(plainText, m.config.ActiveKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt result: %w", err)
	}

	envelope := &domain.StateEntry{
		Result: map[string]any{
			envelopeKey: base64.StdEncoding.EncodeToString(ciphertext),
		},
		Metadata: entry.Metadata,
	}
	return m.next.Put(ctx, key, envelope)
}

func (m *encryptionMiddleware) Get(ctx context.Context, key string) (*domain.StateEntry, error) {
	envelope, err := m.next.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return m.open(envelope)
}

func (m *encryptionMiddleware) Delete(ctx context.Context, key string) (bool, error) {
	return m.next.Delete(ctx, key)
}

func (m *encryptionMiddleware) Keys(ctx context.Context) ([]string, error) {
	return m.next.Keys(ctx)
}

func (m *encryptionMiddleware) Snapshot(ctx context.Context) (map[string]*domain.StateEntry, error) {
	envelopes, err := m.next.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	snap := make(map[string]*domain.StateEntry, len(envelopes))
	for key, envelope := range envelopes {
		entry, err := m.open(envelope)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
		snap[key] = entry
	}
	return snap, nil
}

// open unwraps one envelope back into a plain entry. A stored entry
// without the envelope marker fails: once encryption is on, every
// entry must be encrypted.
func (m *encryptionMiddleware) open(envelope *domain.StateEntry) (*domain.StateEntry, error) {
	wrapper, ok := envelope.Result.(map[string]any)
	if !ok {
		return nil, errors.New("entry is missing encrypted data envelope")
	}
	encryptedStr, ok := wrapper[envelopeKey].(string)
	if !ok {
		return nil, errors.New("entry is missing encrypted data envelope")
	}

	ciphertext, err := base64.StdEncoding.DecodeString(encryptedStr)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext base64: %w", err)
	}

	plainText, err := decryptWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt result: %w", err)
	}

	var result any
	if err := json.Unmarshal(plainText, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal decrypted result: %w", err)
	}

	return &domain.StateEntry{
		Result:   result,
		Metadata: envelope.Metadata,
	}, nil
}

// Helpers

func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext []byte, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	// Try active key first
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}

	// Try fallbacks in order
	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}

	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	ciphertextBytes := ciphertext[gcm.NonceSize():]

	return gcm.Open(nil, nonce, ciphertextBytes, nil)
}
