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

	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
)

// envelopeKey marks the single datum that carries the sealed answers.
const envelopeKey = "__encrypted__"

var (
	ErrInvalidKey    = errors.New("encryption key must be 32 bytes (AES-256)")
	ErrNoEnvelope    = errors.New("session is missing the encrypted data envelope")
	ErrUndecryptable = errors.New("decryption failed with all available keys")
)

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	ActiveKey []byte

	// FallbackKeys are tried in order when the active key cannot open a
	// session, so keys can be rotated while sessions are live.
	FallbackKeys [][]byte
}

type encryptionMiddleware struct {
	next   ports.SessionStore
	config EncryptionConfig
}

// NewEncryptionMiddleware seals the stored answers of every session with
// AES-GCM before they reach the backend. Node ids, phase and history stay in
// clear so operators can still inspect where a session is.
func NewEncryptionMiddleware(config EncryptionConfig) (Middleware, error) {
	if len(config.ActiveKey) != 32 {
		return nil, ErrInvalidKey
	}
	for i, k := range config.FallbackKeys {
		if len(k) != 32 {
			return nil, fmt.Errorf("fallback key %d: %w", i, ErrInvalidKey)
		}
	}
	return func(next ports.SessionStore) ports.SessionStore {
		return &encryptionMiddleware{next: next, config: config}
	}, nil
}

func (m *encryptionMiddleware) Save(ctx context.Context, connectionID string, state *domain.SessionState) error {
	plainText, err := json.Marshal(state.StoredData)
	if err != nil {
		return fmt.Errorf("failed to marshal stored data: %w", err)
	}

	ciphertext, err := encrypt(plainText, m.config.ActiveKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt stored data: %w", err)
	}

	envelope := state.Clone()
	envelope.StoredData = []domain.StoredDatum{{
		Key:    envelopeKey,
		Tokens: []string{base64.StdEncoding.EncodeToString(ciphertext)},
	}}
	return m.next.Save(ctx, connectionID, envelope)
}

func (m *encryptionMiddleware) Load(ctx context.Context, connectionID string) (*domain.SessionState, error) {
	envelope, err := m.next.Load(ctx, connectionID)
	if err != nil {
		return nil, err
	}

	// Plain sessions are refused: once configured, every session is sealed.
	if len(envelope.StoredData) != 1 || envelope.StoredData[0].Key != envelopeKey || len(envelope.StoredData[0].Tokens) != 1 {
		return nil, fmt.Errorf("session '%s': %w", connectionID, ErrNoEnvelope)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(envelope.StoredData[0].Tokens[0])
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext base64: %w", err)
	}

	plainText, err := decryptWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return nil, fmt.Errorf("session '%s': %w", connectionID, err)
	}

	var stored []domain.StoredDatum
	if err := json.Unmarshal(plainText, &stored); err != nil {
		return nil, fmt.Errorf("failed to unmarshal decrypted data: %w", err)
	}
	if stored == nil {
		stored = []domain.StoredDatum{}
	}
	envelope.StoredData = stored
	return envelope, nil
}

func (m *encryptionMiddleware) Delete(ctx context.Context, connectionID string) error {
	return m.next.Delete(ctx, connectionID)
}

func (m *encryptionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func encrypt(plaintext, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}
	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}
	return nil, ErrUndecryptable
}

func decrypt(ciphertext, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce, sealed := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, sealed, nil)
}
