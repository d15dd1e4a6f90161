package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/xxxsen/sharebox/internal/config"
	"github.com/xxxsen/sharebox/internal/filestore"
	"github.com/xxxsen/sharebox/internal/model"
	"github.com/xxxsen/sharebox/internal/repo"
	"github.com/xxxsen/sharebox/internal/testutil"
)

type memBlobStore struct {
	mu       sync.Mutex
	objects  map[string][]byte
	signed   int
	signFail int
	putFail  int
}

func newMemBlobStore() *memBlobStore {
	return &memBlobStore{objects: make(map[string][]byte)}
}

func (s *memBlobStore) Type() string {
	return "memory"
}

func (s *memBlobStore) Put(ctx context.Context, key string, r io.ReadSeeker, size int64, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putFail > 0 {
		s.putFail--
		return errors.New("blob put failed")
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.objects[key] = data
	return nil
}

func (s *memBlobStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, filestore.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memBlobStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *memBlobStore) SignedDownloadURL(ctx context.Context, key string, ttl time.Duration, filename string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.signFail > 0 {
		s.signFail--
		return "", errors.New("presign failed")
	}
	s.signed++
	return "https://blobs.test/" + key + "?filename=" + filename, nil
}

func (s *memBlobStore) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok
}

func (s *memBlobStore) signedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.signed
}

type testEnv struct {
	db         *sqlx.DB
	files      *repo.FileRepo
	shareRepo  *repo.ShareRepo
	blobs      *memBlobStore
	cache      *FileCache
	store      *ShareLinkStore
	issuer     *TokenIssuer
	gate       *PasswordGate
	counter    *AccessCounter
	authorizer *DownloadAuthorizer
	fileSvc    *FileService
	shares     *ShareService
}

func testPolicy() config.ShareConfig {
	policy := config.DefaultShareConfig()
	policy.BcryptCost = bcrypt.MinCost
	policy.VerifyConcurrency = 4
	return policy
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.OpenTestDB(t)
	env := &testEnv{
		db:        db,
		files:     repo.NewFileRepo(db),
		shareRepo: repo.NewShareRepo(db),
		blobs:     newMemBlobStore(),
	}
	policy := testPolicy()
	env.cache = NewFileCache(env.files, policy.FileCacheSize, policy.FileCacheTTL())
	env.store = NewShareLinkStore(env.shareRepo)
	env.issuer = NewTokenIssuer(env.files, env.store, policy)
	env.gate = NewPasswordGate(env.store, policy.VerifyConcurrency)
	env.counter = NewAccessCounter(env.store)
	env.authorizer = NewDownloadAuthorizer(env.store, env.cache, env.blobs, policy.DownloadURLTTL())
	env.fileSvc = NewFileService(env.files, env.blobs, env.cache)
	env.shares = NewShareService(env.files, env.store, env.issuer, env.gate, env.counter, env.authorizer)
	return env
}

func (e *testEnv) upload(t *testing.T, ownerID, name, content string) *model.FileRecord {
	t.Helper()
	file, err := e.fileSvc.Upload(context.Background(), ownerID, name, int64(len(content)), bytes.NewReader([]byte(content)))
	require.NoError(t, err)
	return file
}

func (e *testEnv) issue(t *testing.T, file *model.FileRecord, pass *string) *model.ShareLink {
	t.Helper()
	link, err := e.issuer.Issue(context.Background(), IssueInput{
		FileID:   file.ID,
		OwnerID:  file.OwnerID,
		Password: pass,
	})
	require.NoError(t, err)
	return link
}

func (e *testEnv) accessedCount(t *testing.T, token string) int64 {
	t.Helper()
	link, err := e.shareRepo.GetByToken(context.Background(), token)
	require.NoError(t, err)
	return link.AccessedCount
}

func strPtr(s string) *string {
	return &s
}
