package localfs

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Storage keeps templates and generated artifacts on the local filesystem and
// issues HMAC-signed, expiring download URLs served by the API.
type Storage struct {
	basePath string
	baseURL  string
	secret   []byte
}

func New(basePath, baseURL, signingSecret string) (*Storage, error) {
	if basePath == "" {
		basePath = "./data/storage"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	if signingSecret == "" {
		return nil, errors.New("signing secret is required")
	}
	return &Storage{
		basePath: basePath,
		baseURL:  strings.TrimRight(baseURL, "/"),
		secret:   []byte(signingSecret),
	}, nil
}

func (s *Storage) Save(_ context.Context, key string, data io.Reader) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, data); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

func (s *Storage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	return f, nil
}

// SignedURL builds a download URL valid until now+expiry.
func (s *Storage) SignedURL(key string, expiry time.Duration) (string, error) {
	if expiry <= 0 {
		expiry = time.Hour
	}
	expiresAt := time.Now().Add(expiry).Unix()
	sig := s.sign(key, expiresAt)
	return fmt.Sprintf("%s/v1/artifacts/%s?exp=%d&sig=%s", s.baseURL, url.PathEscape(key), expiresAt, sig), nil
}

// VerifySignature checks a signed download request.
func (s *Storage) VerifySignature(key string, expiresAt int64, sig string) error {
	if time.Now().Unix() > expiresAt {
		return errors.New("signed url expired")
	}
	expected := s.sign(key, expiresAt)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return errors.New("invalid signature")
	}
	return nil
}

func (s *Storage) sign(key string, expiresAt int64) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(key))
	mac.Write([]byte("|"))
	mac.Write([]byte(strconv.FormatInt(expiresAt, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

// resolve confines keys to the storage root.
func (s *Storage) resolve(key string) (string, error) {
	cleaned := filepath.Clean("/" + key)
	if cleaned == "/" {
		return "", errors.New("empty storage key")
	}
	return filepath.Join(s.basePath, cleaned), nil
}
