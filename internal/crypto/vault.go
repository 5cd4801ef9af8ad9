package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"sync"
)

// Vault provides AES-256-GCM encryption for secrets stored at rest, such as provider API keys.
// Keys are versioned so stored ciphertexts survive rotation.
type Vault struct {
	keys           map[int][]byte
	currentVersion int
	mu             sync.RWMutex
}

// NewVault creates a vault from base64 encoded 32 byte keys, numbered from 1
func NewVault(keysBase64 []string, currentVersion int) (*Vault, error) {
	if len(keysBase64) == 0 {
		return nil, errors.New("at least one encryption key is required")
	}

	keys := make(map[int][]byte)
	for i, keyB64 := range keysBase64 {
		key, err := decodeKey(keyB64)
		if err != nil {
			return nil, fmt.Errorf("key %d: %w", i+1, err)
		}
		keys[i+1] = key
	}

	if _, exists := keys[currentVersion]; !exists {
		return nil, fmt.Errorf("current version %d not found in keys", currentVersion)
	}

	return &Vault{keys: keys, currentVersion: currentVersion}, nil
}

// Seal encrypts plaintext with the current key and returns the ciphertext with its key version
func (v *Vault) Seal(plaintext string) (string, int, error) {
	v.mu.RLock()
	key := v.keys[v.currentVersion]
	version := v.currentVersion
	v.mu.RUnlock()

	aesGCM, err := newGCM(key)
	if err != nil {
		return "", 0, err
	}

	nonce := make([]byte, aesGCM.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", 0, fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := aesGCM.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), version, nil
}

// Open decrypts a ciphertext produced by Seal under the given key version
func (v *Vault) Open(ciphertext string, keyVersion int) (string, error) {
	v.mu.RLock()
	key, exists := v.keys[keyVersion]
	v.mu.RUnlock()

	if !exists {
		return "", fmt.Errorf("key version %d not found", keyVersion)
	}

	decoded, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	aesGCM, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonceSize := aesGCM.NonceSize()
	if len(decoded) < nonceSize {
		return "", errors.New("ciphertext too short")
	}

	nonce, body := decoded[:nonceSize], decoded[nonceSize:]
	plaintext, err := aesGCM.Open(nil, nonce, body, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}

	return string(plaintext), nil
}

// CurrentKeyVersion returns the key version new secrets are sealed with
func (v *Vault) CurrentKeyVersion() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.currentVersion
}

// Reseal decrypts with an old key version and encrypts again with the current one
func (v *Vault) Reseal(ciphertext string, oldVersion int) (string, int, error) {
	plaintext, err := v.Open(ciphertext, oldVersion)
	if err != nil {
		return "", 0, err
	}
	return v.Seal(plaintext)
}

// RotateKey adds a new key and makes it the current version
func (v *Vault) RotateKey(newKeyBase64 string, newVersion int) error {
	newKey, err := decodeKey(newKeyBase64)
	if err != nil {
		return fmt.Errorf("new key: %w", err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	v.keys[newVersion] = newKey
	v.currentVersion = newVersion
	return nil
}

func decodeKey(keyB64 string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(keyB64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("must be 32 bytes for AES-256, got %d", len(key))
	}
	return key, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aesGCM, nil
}
