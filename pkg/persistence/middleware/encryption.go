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

	"github.com/aretw0/fable/pkg/domain"
	"github.com/aretw0/fable/pkg/ports"
)

const (
	// envelopeStateKey marks a save game that only carries ciphertext.
	envelopeStateKey = "__encrypted__"
	envelopeVarKey   = "__ciphertext__"
)

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
	next   ports.SaveStore
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that encrypts save games using AES-GCM (Envelope Encryption).
func NewEncryptionMiddleware(config EncryptionConfig) Middleware {
	if len(config.ActiveKey) != 32 {
		panic("active key must be 32 bytes (AES-256)")
	}
	return func(next ports.SaveStore) ports.SaveStore {
		return &encryptionMiddleware{
			next:   next,
			config: config,
		}
	}
}

func (m *encryptionMiddleware) Save(ctx context.Context, slot string, save *domain.SaveGame) error {
	plainText, err := json.Marshal(save)
	if err != nil {
		return fmt.Errorf("failed to marshal save: %w", err)
	}

	ciphertext, err := encrypt(plainText, m.config.ActiveKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt save: %w", err)
	}

	// The envelope hides the user name, the current state and every var.
	envelope := &domain.SaveGame{
		CurrentStateKey: envelopeStateKey,
		VarsInfo: []domain.VarInfo{{
			Type:  domain.VarTypeString,
			Key:   envelopeVarKey,
			Value: base64.StdEncoding.EncodeToString(ciphertext),
		}},
	}
	return m.next.Save(ctx, slot, envelope)
}

func (m *encryptionMiddleware) Load(ctx context.Context, slot string) (*domain.SaveGame, error) {
	envelope, err := m.next.Load(ctx, slot)
	if err != nil {
		return nil, err
	}

	encoded, ok := envelopeCiphertext(envelope)
	if !ok {
		// Fail secure: a configured store only accepts envelopes.
		return nil, errors.New("save is missing encrypted data envelope")
	}

	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext base64: %w", err)
	}

	plainText, err := decryptWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt save: %w", err)
	}

	var save domain.SaveGame
	if err := json.Unmarshal(plainText, &save); err != nil {
		return nil, fmt.Errorf("failed to unmarshal decrypted save: %w", err)
	}
	return &save, nil
}

func (m *encryptionMiddleware) Delete(ctx context.Context, slot string) error {
	return m.next.Delete(ctx, slot)
}

func (m *encryptionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func envelopeCiphertext(envelope *domain.SaveGame) (string, bool) {
	if envelope.CurrentStateKey != envelopeStateKey || len(envelope.VarsInfo) != 1 {
		return "", false
	}
	info := envelope.VarsInfo[0]
	if info.Key != envelopeVarKey {
		return "", false
	}
	encoded, ok := info.Value.(string)
	return encoded, ok
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
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}

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
	return gcm.Open(nil, nonce, ciphertext[gcm.NonceSize():], nil)
}
