package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

type localConfig struct {
	Dir        string `json:"dir"`
	BaseURL    string `json:"base_url"`
	SignSecret string `json:"sign_secret"`
}

type localStore struct {
	dir     string
	baseURL string
	secret  []byte
}

type downloadClaims struct {
	Key      string `json:"key"`
	Filename string `json:"filename,omitempty"`
	jwtlib.RegisteredClaims
}

func init() {
	Register("local", createLocalStore)
}

func createLocalStore(args interface{}) (Store, error) {
	config := &localConfig{}
	if err := decodeConfig(args, config); err != nil {
		return nil, err
	}
	if config.Dir == "" {
		return nil, fmt.Errorf("local store dir is required")
	}
	if config.BaseURL == "" {
		return nil, fmt.Errorf("local store base_url is required")
	}
	if config.SignSecret == "" {
		return nil, fmt.Errorf("local store sign_secret is required")
	}
	return &localStore{
		dir:     config.Dir,
		baseURL: strings.TrimSuffix(config.BaseURL, "/"),
		secret:  []byte(config.SignSecret),
	}, nil
}

func (s *localStore) Type() string {
	return "local"
}

func (s *localStore) path(key string) (string, error) {
	if !validKey(key) {
		return "", ErrInvalidKey
	}
	return filepath.Join(s.dir, key), nil
}

func (s *localStore) Put(ctx context.Context, key string, r io.ReadSeeker, size int64, contentType string) error {
	_ = ctx
	_ = contentType
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	written, err := io.Copy(tmp, r)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}
	if size >= 0 && written != size {
		return fmt.Errorf("short write: got %d bytes, want %d", written, size)
	}
	return os.Rename(tmp.Name(), path)
}

func (s *localStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	_ = ctx
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrObjectNotFound
	}
	return f, err
}

func (s *localStore) Delete(ctx context.Context, key string) error {
	_ = ctx
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *localStore) SignedDownloadURL(ctx context.Context, key string, ttl time.Duration, filename string) (string, error) {
	_ = ctx
	if !validKey(key) {
		return "", ErrInvalidKey
	}
	if ttl <= 0 {
		return "", ErrInvalidTTL
	}
	now := time.Now()
	claims := downloadClaims{
		Key:      key,
		Filename: filename,
		RegisteredClaims: jwtlib.RegisteredClaims{
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
		},
	}
	sig, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", err
	}
	return s.baseURL + "/api/v1/blobs/" + url.PathEscape(key) + "?sig=" + url.QueryEscape(sig), nil
}

func (s *localStore) VerifyDownload(key, signature string) (string, error) {
	token, err := jwtlib.ParseWithClaims(signature, &downloadClaims{}, func(token *jwtlib.Token) (interface{}, error) {
		if token.Method.Alg() != jwtlib.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(*downloadClaims)
	if !ok || !token.Valid {
		return "", errors.New("invalid signature")
	}
	if claims.Key != key {
		return "", errors.New("signature does not match key")
	}
	return claims.Filename, nil
}
