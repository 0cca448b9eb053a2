package credstore

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"

	"classfeed/pkg/domain"
)

const (
	sealedSaltLen  = 16
	sealedNonceLen = 24
)

// SealedStore is a FileStore variant that encrypts the session at rest.
// The key is derived from a passphrase with scrypt using a per-save salt,
// and the document is sealed with NaCl secretbox. A file that fails to open
// (wrong passphrase, truncation, tampering) is treated like any other
// corrupted entry: cleared and reported absent.
type SealedStore struct {
	path       string
	passphrase []byte
}

// NewSealedStore builds an encrypting file-backed store.
func NewSealedStore(path, passphrase string) (*SealedStore, error) {
	if passphrase == "" {
		return nil, errors.New("sealed store requires a passphrase")
	}
	return &SealedStore{path: path, passphrase: []byte(passphrase)}, nil
}

func (s *SealedStore) Save(session domain.Session) error {
	if !session.Valid() {
		return errPartialSession
	}
	plain, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	salt := make([]byte, sealedSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("generate salt: %w", err)
	}
	var nonce [sealedNonceLen]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}
	key, err := s.deriveKey(salt)
	if err != nil {
		return err
	}

	// Layout: salt | nonce | box.
	out := make([]byte, 0, sealedSaltLen+sealedNonceLen+len(plain)+secretbox.Overhead)
	out = append(out, salt...)
	out = append(out, nonce[:]...)
	out = secretbox.Seal(out, plain, &nonce, key)
	return writeFileAtomic(s.path, out)
}

func (s *SealedStore) Load() (domain.Session, bool, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.Session{}, false, nil
	}
	if err != nil {
		return domain.Session{}, false, fmt.Errorf("read session: %w", err)
	}

	session, ok := s.open(data)
	if !ok || !session.Valid() {
		if clearErr := s.Clear(); clearErr != nil {
			return domain.Session{}, false, clearErr
		}
		return domain.Session{}, false, nil
	}
	return session, true, nil
}

func (s *SealedStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (s *SealedStore) open(data []byte) (domain.Session, bool) {
	if len(data) < sealedSaltLen+sealedNonceLen+secretbox.Overhead {
		return domain.Session{}, false
	}
	salt := data[:sealedSaltLen]
	var nonce [sealedNonceLen]byte
	copy(nonce[:], data[sealedSaltLen:sealedSaltLen+sealedNonceLen])
	box := data[sealedSaltLen+sealedNonceLen:]

	key, err := s.deriveKey(salt)
	if err != nil {
		return domain.Session{}, false
	}
	plain, ok := secretbox.Open(nil, box, &nonce, key)
	if !ok {
		return domain.Session{}, false
	}
	var session domain.Session
	if err := json.Unmarshal(plain, &session); err != nil {
		return domain.Session{}, false
	}
	return session, true
}

func (s *SealedStore) deriveKey(salt []byte) (*[32]byte, error) {
	raw, err := scrypt.Key(s.passphrase, salt, 1<<15, 8, 1, 32)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	var key [32]byte
	copy(key[:], raw)
	return &key, nil
}
