package encryption

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// testParams keeps PBKDF2 cheap so the suite stays fast.
func testParams() Params {
	p := DefaultParams()
	p.Iterations = 1000
	return p
}

type memorySaltRepo struct {
	mu        sync.Mutex
	salts     map[string]string
	loadErr   error
	storeErr  error
	loads     int
	stores    int
	storeHook func()
}

func newMemorySaltRepo() *memorySaltRepo {
	return &memorySaltRepo{salts: make(map[string]string)}
}

func (r *memorySaltRepo) LoadSalt(_ context.Context, userID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loads++
	if r.loadErr != nil {
		return "", r.loadErr
	}
	return r.salts[userID], nil
}

func (r *memorySaltRepo) StoreSaltIfAbsent(_ context.Context, userID, salt string) (string, error) {
	if r.storeHook != nil {
		r.storeHook()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stores++
	if r.storeErr != nil {
		return "", r.storeErr
	}
	if existing, ok := r.salts[userID]; ok {
		return existing, nil
	}
	r.salts[userID] = salt
	return salt, nil
}

var errUnavailable = errors.New("profile service unavailable")

func newTestCodec(t *testing.T, repo SaltRepository) *Codec {
	t.Helper()
	codec, err := NewCodec(repo, Options{Params: testParams()})
	if err != nil {
		t.Fatalf("NewCodec failed: %v", err)
	}
	return codec
}
