// Package keyring provides secure credential storage.
// It uses the system keyring when available, falling back to
// encrypted local file storage when not.
package keyring

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	gokeyring "github.com/zalando/go-keyring"
	"golang.org/x/crypto/hkdf"

	"github.com/yllada/proxy-tray/common"
)

// ServiceName is the identifier used in the system keyring.
const ServiceName = "proxy-tray"

// Common errors returned by keyring operations.
var (
	ErrNotFound = common.ErrCredentialsNotFound
	ErrEmptyKey = errors.New("credential key cannot be empty")
)

// Store saves secrets in the system keyring or in an encrypted file.
// It is safe for concurrent use.
type Store struct {
	service string

	mu         sync.RWMutex
	useLocal   bool
	localStore map[string]string
	localFile  string
	key        []byte
}

// New creates a Store. The system keyring is tried once; when it is not
// reachable, secrets go to an encrypted file in dataDir.
func New(service, dataDir string) (*Store, error) {
	s := &Store{service: service}

	testKey := service + "-availability-check"
	if err := gokeyring.Set(service, testKey, "check"); err == nil {
		_ = gokeyring.Delete(service, testKey)
		common.LogDebug("Keyring: using system keyring")
		return s, nil
	}

	common.LogWarn("Keyring: system keyring unavailable, using encrypted local storage")
	if err := s.initLocal(dataDir); err != nil {
		return nil, err
	}
	return s, nil
}

// NewLocal creates a Store that always uses the encrypted local file.
func NewLocal(service, dataDir string) (*Store, error) {
	s := &Store{service: service}
	if err := s.initLocal(dataDir); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) initLocal(dataDir string) error {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return fmt.Errorf("failed to create credentials directory: %w", err)
	}

	key, err := deriveKey(s.service)
	if err != nil {
		return fmt.Errorf("failed to derive encryption key: %w", err)
	}

	s.useLocal = true
	s.localFile = filepath.Join(dataDir, common.CredentialsFileName)
	s.key = key
	s.localStore = make(map[string]string)
	s.loadLocal()
	return nil
}

// deriveKey derives the local encryption key from machine-specific data.
func deriveKey(service string) ([]byte, error) {
	hostname, _ := os.Hostname()
	secret := fmt.Sprintf("%s-%s-%d", hostname, machineID(), os.Getuid())

	key := make([]byte, 32)
	r := hkdf.New(sha256.New, []byte(secret), []byte(service), []byte("local credentials"))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return key, nil
}

func machineID() string {
	data, err := os.ReadFile("/etc/machine-id")
	if err == nil {
		return strings.TrimSpace(string(data))
	}
	return "default-machine-id"
}

func (s *Store) loadLocal() {
	data, err := os.ReadFile(s.localFile)
	if err != nil {
		return
	}

	decrypted, err := s.decrypt(data)
	if err != nil {
		common.LogWarn("Keyring: cannot decrypt %s: %v", s.localFile, err)
		return
	}

	if err := json.Unmarshal(decrypted, &s.localStore); err != nil {
		common.LogWarn("Keyring: corrupt credentials file: %v", err)
	}
}

// saveLocal persists the local store. Callers hold s.mu.
func (s *Store) saveLocal() error {
	data, err := json.Marshal(s.localStore)
	if err != nil {
		return err
	}

	encrypted, err := s.encrypt(data)
	if err != nil {
		return err
	}

	return common.WriteFileAtomic(s.localFile, encrypted, 0600)
}

func (s *Store) encrypt(plaintext []byte) ([]byte, error) {
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

	ciphertext := gcm.Seal(nonce, nonce, plaintext, nil)
	return []byte(base64.StdEncoding.EncodeToString(ciphertext)), nil
}

func (s *Store) decrypt(data []byte) ([]byte, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(string(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDecryption, err)
	}

	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, fmt.Errorf("%w: ciphertext too short", common.ErrDecryption)
	}

	nonce, ciphertext := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	plain, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDecryption, err)
	}
	return plain, nil
}

// Store saves a secret under key.
func (s *Store) Store(key, secret string) error {
	if key == "" {
		return ErrEmptyKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.useLocal {
		s.localStore[key] = secret
		return s.saveLocal()
	}

	return gokeyring.Set(s.service, key, secret)
}

// Get retrieves the secret saved under key.
func (s *Store) Get(key string) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.useLocal {
		secret, exists := s.localStore[key]
		if !exists {
			return "", ErrNotFound
		}
		return secret, nil
	}

	secret, err := gokeyring.Get(s.service, key)
	if err != nil {
		if errors.Is(err, gokeyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	return secret, nil
}

// Delete removes the secret saved under key. Deleting a missing key is
// not an error.
func (s *Store) Delete(key string) error {
	if key == "" {
		return ErrEmptyKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.useLocal {
		if _, exists := s.localStore[key]; !exists {
			return nil
		}
		delete(s.localStore, key)
		return s.saveLocal()
	}

	if err := gokeyring.Delete(s.service, key); err != nil && !errors.Is(err, gokeyring.ErrNotFound) {
		return err
	}
	return nil
}

// Exists checks if a secret exists under key.
func (s *Store) Exists(key string) bool {
	_, err := s.Get(key)
	return err == nil
}

// Local reports whether the encrypted file fallback is in use.
func (s *Store) Local() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.useLocal
}
