package encryption

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestSaltStore_CreatesOnceThenStable(t *testing.T) {
	repo := newMemorySaltRepo()
	store, err := NewSaltStore(repo, testParams())
	if err != nil {
		t.Fatalf("NewSaltStore failed: %v", err)
	}
	ctx := context.Background()

	first, err := store.Salt(ctx, "new-user")
	if err != nil {
		t.Fatalf("Salt failed: %v", err)
	}
	if len(first) != 16 {
		t.Fatalf("Expected 16-byte salt, got %d", len(first))
	}
	if repo.stores != 1 {
		t.Errorf("Expected one conditional write, got %d", repo.stores)
	}

	second, err := store.Salt(ctx, "new-user")
	if err != nil {
		t.Fatalf("Salt failed: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("Second call returned a different salt")
	}
	if repo.stores != 1 {
		t.Errorf("Existing salt should not be rewritten, got %d writes", repo.stores)
	}
}

func TestSaltStore_PersistFailureIsNotFatal(t *testing.T) {
	repo := newMemorySaltRepo()
	repo.storeErr = errUnavailable
	store, _ := NewSaltStore(repo, testParams())

	salt, err := store.Salt(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Expected fresh salt despite write failure, got %v", err)
	}
	if len(salt) != 16 {
		t.Errorf("Expected 16-byte salt, got %d", len(salt))
	}
}

func TestSaltStore_ReadFailureFallsBackToConditionalWrite(t *testing.T) {
	repo := newMemorySaltRepo()
	existing := bytes.Repeat([]byte{3}, 16)
	repo.salts["u1"] = base64.StdEncoding.EncodeToString(existing)
	repo.loadErr = errUnavailable
	store, _ := NewSaltStore(repo, testParams())

	salt, err := store.Salt(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Salt failed: %v", err)
	}
	if !bytes.Equal(salt, existing) {
		t.Error("Conditional write should have returned the salt already stored")
	}
}

func TestSaltStore_CorruptStoredSalt(t *testing.T) {
	repo := newMemorySaltRepo()
	repo.salts["u1"] = base64.StdEncoding.EncodeToString([]byte("short"))
	store, _ := NewSaltStore(repo, testParams())

	if _, err := store.Salt(context.Background(), "u1"); !errors.Is(err, ErrInvalidSalt) {
		t.Errorf("Expected ErrInvalidSalt, got %v", err)
	}
}

func TestSaltStore_EmptyUserID(t *testing.T) {
	store, _ := NewSaltStore(newMemorySaltRepo(), testParams())
	if _, err := store.Salt(context.Background(), ""); !errors.Is(err, ErrEmptyUserID) {
		t.Errorf("Expected ErrEmptyUserID, got %v", err)
	}
}

func TestSaltStore_ConcurrentFirstUse(t *testing.T) {
	repo := newMemorySaltRepo()
	// widen the race window between generation and the write
	repo.storeHook = func() { time.Sleep(5 * time.Millisecond) }
	store, _ := NewSaltStore(repo, testParams())

	const callers = 16
	results := make([][]byte, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			salt, err := store.Salt(context.Background(), "racer")
			if err != nil {
				t.Errorf("Salt failed: %v", err)
				return
			}
			results[i] = salt
		}(i)
	}
	wg.Wait()

	persisted, _ := base64.StdEncoding.DecodeString(repo.salts["racer"])
	for i, salt := range results {
		if !bytes.Equal(salt, persisted) {
			t.Errorf("caller %d got a salt that was not persisted", i)
		}
	}
}

func TestSaltStore_ReturnsIndependentCopies(t *testing.T) {
	store, _ := NewSaltStore(newMemorySaltRepo(), testParams())
	a, _ := store.Salt(context.Background(), "u1")
	a[0] ^= 0xff
	b, _ := store.Salt(context.Background(), "u1")
	if bytes.Equal(a, b) {
		t.Error("Mutating a returned salt affected later calls")
	}
}

// blockingSaltRepo holds LoadSalt until released and honours cancellation
// the way a database driver does.
type blockingSaltRepo struct {
	*memorySaltRepo
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (r *blockingSaltRepo) LoadSalt(ctx context.Context, userID string) (string, error) {
	r.once.Do(func() { close(r.entered) })
	select {
	case <-r.release:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return r.memorySaltRepo.LoadSalt(ctx, userID)
}

func (r *blockingSaltRepo) StoreSaltIfAbsent(ctx context.Context, userID, salt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return r.memorySaltRepo.StoreSaltIfAbsent(ctx, userID, salt)
}

func TestSaltStore_CancelledCallerDoesNotLeakSalt(t *testing.T) {
	repo := &blockingSaltRepo{
		memorySaltRepo: newMemorySaltRepo(),
		entered:        make(chan struct{}),
		release:        make(chan struct{}),
	}
	store, _ := NewSaltStore(repo, testParams())

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := store.Salt(ctxA, "shared")
		errA <- err
	}()
	<-repo.entered

	saltB := make(chan []byte, 1)
	go func() {
		salt, err := store.Salt(context.Background(), "shared")
		if err != nil {
			t.Errorf("Salt for healthy caller failed: %v", err)
		}
		saltB <- salt
	}()
	// let B join the in-flight call before A goes away
	time.Sleep(20 * time.Millisecond)
	cancelA()
	time.Sleep(5 * time.Millisecond)
	close(repo.release)

	if err := <-errA; !errors.Is(err, context.Canceled) {
		t.Errorf("Expected cancelled caller to get context.Canceled, got %v", err)
	}
	got := <-saltB
	persisted, _ := base64.StdEncoding.DecodeString(repo.salts["shared"])
	if len(persisted) == 0 {
		t.Fatal("Expected a salt to be persisted")
	}
	if !bytes.Equal(got, persisted) {
		t.Error("Healthy caller received a salt that was never persisted")
	}
}

func TestSaltStore_ContextErrorIsFatal(t *testing.T) {
	repo := newMemorySaltRepo()
	repo.loadErr = context.DeadlineExceeded
	store, _ := NewSaltStore(repo, testParams())

	if _, err := store.Salt(context.Background(), "u1"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline error, got %v", err)
	}
	if repo.stores != 0 {
		t.Errorf("No salt should be written after a timed out read, got %d writes", repo.stores)
	}
}

func TestSaltStore_UnsavedSaltStaysWithItsCaller(t *testing.T) {
	repo := newMemorySaltRepo()
	repo.storeErr = errUnavailable
	repo.storeHook = func() { time.Sleep(20 * time.Millisecond) }
	store, _ := NewSaltStore(repo, testParams())

	const callers = 4
	results := make([][]byte, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			salt, err := store.Salt(context.Background(), "u1")
			if err != nil {
				t.Errorf("Salt failed: %v", err)
				return
			}
			results[i] = salt
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		for j := i + 1; j < callers; j++ {
			if bytes.Equal(results[i], results[j]) {
				t.Errorf("callers %d and %d share an unsaved salt", i, j)
			}
		}
	}
}
