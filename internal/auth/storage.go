package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/zalando/go-keyring"
)

// StorageBackend stores one credential blob per connector
type StorageBackend interface {
	Save(connectorID string, data []byte) error
	Load(connectorID string) ([]byte, error)
	Delete(connectorID string) error
	Name() string
}

// KeyringStorage keeps credentials in the system keyring
type KeyringStorage struct {
	serviceName string
}

// NewKeyringStorage creates a keyring storage backend
func NewKeyringStorage(serviceName string) *KeyringStorage {
	return &KeyringStorage{serviceName: serviceName}
}

func (s *KeyringStorage) Save(connectorID string, data []byte) error {
	return keyring.Set(s.serviceName, connectorID, string(data))
}

func (s *KeyringStorage) Load(connectorID string) ([]byte, error) {
	data, err := keyring.Get(s.serviceName, connectorID)
	if err != nil {
		return nil, fmt.Errorf("credentials not found for connector %q: %w", connectorID, err)
	}
	return []byte(data), nil
}

func (s *KeyringStorage) Delete(connectorID string) error {
	return keyring.Delete(s.serviceName, connectorID)
}

func (s *KeyringStorage) Name() string {
	return "system-keyring"
}

// EncryptedFileStorage keeps credentials in AES-GCM encrypted files; the
// key lives next to them. Suitable for servers without a keyring.
type EncryptedFileStorage struct {
	baseDir string
	key     []byte
}

// NewEncryptedFileStorage creates an encrypted file storage backend
func NewEncryptedFileStorage(baseDir string) (*EncryptedFileStorage, error) {
	key, err := getOrCreateEncryptionKey(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to get encryption key: %w", err)
	}
	return &EncryptedFileStorage{baseDir: baseDir, key: key}, nil
}

func (s *EncryptedFileStorage) Save(connectorID string, data []byte) error {
	encrypted, err := s.encrypt(data)
	if err != nil {
		return fmt.Errorf("failed to encrypt credentials: %w", err)
	}

	credFile := s.credentialFilePath(connectorID)
	if err := os.MkdirAll(filepath.Dir(credFile), 0700); err != nil {
		return err
	}
	return os.WriteFile(credFile, encrypted, 0600)
}

func (s *EncryptedFileStorage) Load(connectorID string) ([]byte, error) {
	encrypted, err := os.ReadFile(s.credentialFilePath(connectorID))
	if err != nil {
		return nil, fmt.Errorf("credentials not found for connector %q", connectorID)
	}
	return s.decrypt(encrypted)
}

func (s *EncryptedFileStorage) Delete(connectorID string) error {
	return os.Remove(s.credentialFilePath(connectorID))
}

func (s *EncryptedFileStorage) Name() string {
	return "encrypted-file"
}

func (s *EncryptedFileStorage) credentialFilePath(connectorID string) string {
	return filepath.Join(s.baseDir, "credentials", connectorID+".enc")
}

func (s *EncryptedFileStorage) encrypt(plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(s.key)
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

func (s *EncryptedFileStorage) decrypt(ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, fmt.Errorf("invalid ciphertext")
	}
	nonce := ciphertext[:gcm.NonceSize()]
	ciphertext = ciphertext[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt credentials: %w", err)
	}
	return plaintext, nil
}

func getOrCreateEncryptionKey(baseDir string) ([]byte, error) {
	keyFile := filepath.Join(baseDir, ".keyfile")

	if data, err := os.ReadFile(keyFile); err == nil {
		key, err := base64.StdEncoding.DecodeString(string(data))
		if err == nil && len(key) == 32 {
			return key, nil
		}
	}

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, err
	}
	encoded := base64.StdEncoding.EncodeToString(key)
	if err := os.WriteFile(keyFile, []byte(encoded), 0600); err != nil {
		return nil, err
	}
	return key, nil
}
