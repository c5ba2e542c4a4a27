package entitycache

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/hospitalworks/go-clinic-core/cache"
	"github.com/hospitalworks/go-clinic-core/model"
)

// fakeStore records every call so tests can assert which reads actually
// reached the base store.
type fakeStore struct {
	mu     sync.Mutex
	calls  []string
	recs   map[int64]model.Patient
	nextID int64
	fail   error
}

func newFakeStore(patients ...model.Patient) *fakeStore {
	f := &fakeStore{recs: make(map[int64]model.Patient)}
	for _, p := range patients {
		f.recs[p.ID] = p
		if p.ID > f.nextID {
			f.nextID = p.ID
		}
	}
	return f
}

func (f *fakeStore) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.fail
}

func (f *fakeStore) callCount(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (f *fakeStore) Add(ctx context.Context, rec *model.Patient) (int64, error) {
	if err := f.record("Add"); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	rec.ID = f.nextID
	f.recs[rec.ID] = *rec
	return rec.ID, nil
}

func (f *fakeStore) GetByID(ctx context.Context, id int64) (*model.Patient, error) {
	if err := f.record("GetByID"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.recs[id]; ok {
		return &p, nil
	}
	return nil, nil
}

func (f *fakeStore) GetAll(ctx context.Context) ([]model.Patient, error) {
	if err := f.record("GetAll"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Patient, 0, len(f.recs))
	for _, p := range f.recs {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeStore) Update(ctx context.Context, rec *model.Patient) error {
	if err := f.record("Update"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recs[rec.ID] = *rec
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, id int64) error {
	if err := f.record("Delete"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.recs, id)
	return nil
}

func (f *fakeStore) Search(ctx context.Context, query string) ([]model.Patient, error) {
	if err := f.record("Search"); err != nil {
		return nil, err
	}
	return nil, nil
}

func (f *fakeStore) CountAll(ctx context.Context) (int, error) {
	if err := f.record("CountAll"); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.recs), nil
}

func newCachedStore(t *testing.T, base *fakeStore) *CachedStore[model.Patient] {
	t.Helper()
	service, err := cache.NewCacheService(cache.Config{
		Capacity:             1000,
		NumShards:            4,
		TTL:                  time.Minute,
		EvictionPercentage:   10,
		MissingRecordStorage: true,
	})
	if err != nil {
		t.Fatalf("cache service: %v", err)
	}
	return New("patients", base, service, cache.NewDefaultKeySerializer())
}

func TestGetByIDReadsThroughOnce(t *testing.T) {
	base := newFakeStore(model.Patient{ID: 1, FirstName: "Amy", LastName: "Adams"})
	cached := newCachedStore(t, base)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		p, err := cached.GetByID(ctx, 1)
		if err != nil {
			t.Fatalf("GetByID #%d: %v", i, err)
		}
		if p == nil || p.FirstName != "Amy" {
			t.Fatalf("GetByID #%d = %+v", i, p)
		}
	}
	if n := base.callCount("GetByID"); n != 1 {
		t.Errorf("base GetByID ran %d times, want 1", n)
	}
}

func TestGetByIDCachesAbsence(t *testing.T) {
	base := newFakeStore()
	cached := newCachedStore(t, base)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		p, err := cached.GetByID(ctx, 99)
		if err != nil {
			t.Fatalf("GetByID #%d: %v", i, err)
		}
		if p != nil {
			t.Fatalf("GetByID #%d = %+v, want nil", i, p)
		}
	}
	if n := base.callCount("GetByID"); n != 1 {
		t.Errorf("absent row fetched %d times, want 1", n)
	}
}

func TestGetAllReadsThroughOnce(t *testing.T) {
	base := newFakeStore(
		model.Patient{ID: 1, FirstName: "Amy"},
		model.Patient{ID: 2, FirstName: "Bob"},
	)
	cached := newCachedStore(t, base)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		all, err := cached.GetAll(ctx)
		if err != nil {
			t.Fatalf("GetAll #%d: %v", i, err)
		}
		if len(all) != 2 {
			t.Fatalf("GetAll #%d returned %d rows", i, len(all))
		}
	}
	if n := base.callCount("GetAll"); n != 1 {
		t.Errorf("base GetAll ran %d times, want 1", n)
	}
}

func TestWritesInvalidateEveryCachedView(t *testing.T) {
	base := newFakeStore(model.Patient{ID: 1, FirstName: "Amy", LastName: "Adams"})
	cached := newCachedStore(t, base)
	cached.RegisterIndex("initial", func(p *model.Patient) string {
		if p.LastName == "" {
			return ""
		}
		return p.LastName[:1]
	})
	ctx := context.Background()

	// Warm all three shapes.
	if _, err := cached.GetByID(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := cached.GetAll(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := cached.ByIndex(ctx, "initial", "A"); err != nil {
		t.Fatal(err)
	}

	p := model.Patient{ID: 1, FirstName: "Amy", LastName: "Baker"}
	if err := cached.Update(ctx, &p); err != nil {
		t.Fatalf("Update: %v", err)
	}

	// Every shape must observe the write.
	got, err := cached.GetByID(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got.LastName != "Baker" {
		t.Errorf("point cache is stale: %+v", got)
	}
	all, err := cached.GetAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 || all[0].LastName != "Baker" {
		t.Errorf("collection cache is stale: %+v", all)
	}
	bucket, err := cached.ByIndex(ctx, "initial", "B")
	if err != nil {
		t.Fatal(err)
	}
	if len(bucket) != 1 {
		t.Errorf("index cache is stale: %+v", bucket)
	}
	old, err := cached.ByIndex(ctx, "initial", "A")
	if err != nil {
		t.Fatal(err)
	}
	if len(old) != 0 {
		t.Errorf("old index bucket still populated: %+v", old)
	}
}

func TestAddInvalidatesCollection(t *testing.T) {
	base := newFakeStore(model.Patient{ID: 1, FirstName: "Amy"})
	cached := newCachedStore(t, base)
	ctx := context.Background()

	if all, _ := cached.GetAll(ctx); len(all) != 1 {
		t.Fatalf("warm read returned %d rows", len(all))
	}

	if _, err := cached.Add(ctx, &model.Patient{FirstName: "Bob", LastName: "Young"}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	all, err := cached.GetAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("read after add returned %d rows, want 2", len(all))
	}
}

func TestDeleteInvalidatesPointCache(t *testing.T) {
	base := newFakeStore(model.Patient{ID: 1, FirstName: "Amy"})
	cached := newCachedStore(t, base)
	ctx := context.Background()

	if p, _ := cached.GetByID(ctx, 1); p == nil {
		t.Fatal("warm read missed")
	}

	if err := cached.Delete(ctx, 1); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	p, err := cached.GetByID(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if p != nil {
		t.Errorf("deleted row still served from cache: %+v", p)
	}
}

func TestFailedWriteKeepsCacheIntact(t *testing.T) {
	base := newFakeStore(model.Patient{ID: 1, FirstName: "Amy"})
	cached := newCachedStore(t, base)
	ctx := context.Background()

	if _, err := cached.GetByID(ctx, 1); err != nil {
		t.Fatal(err)
	}

	base.fail = errors.New("boom")
	if err := cached.Update(ctx, &model.Patient{ID: 1, FirstName: "Mallory"}); err == nil {
		t.Fatal("expected update failure")
	}
	base.fail = nil

	if _, err := cached.GetByID(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if n := base.callCount("GetByID"); n != 1 {
		t.Errorf("failed write dropped the cache: base read %d times", n)
	}
}

func TestSearchIsNotCached(t *testing.T) {
	base := newFakeStore()
	cached := newCachedStore(t, base)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := cached.Search(ctx, "amy"); err != nil {
			t.Fatal(err)
		}
	}
	if n := base.callCount("Search"); n != 2 {
		t.Errorf("search hit the base %d times, want 2", n)
	}
}

func TestByIndexRequiresRegistration(t *testing.T) {
	cached := newCachedStore(t, newFakeStore())

	if _, err := cached.ByIndex(context.Background(), "unknown", "x"); err == nil {
		t.Error("unregistered index accepted")
	}
}

func TestStatsCountHitsAndMisses(t *testing.T) {
	base := newFakeStore(model.Patient{ID: 1, FirstName: "Amy"})
	cached := newCachedStore(t, base)
	ctx := context.Background()

	if _, err := cached.GetByID(ctx, 1); err != nil { // miss
		t.Fatal(err)
	}
	if _, err := cached.GetByID(ctx, 1); err != nil { // hit
		t.Fatal(err)
	}
	if _, err := cached.GetByID(ctx, 1); err != nil { // hit
		t.Fatal(err)
	}

	stats := cached.Stats()
	if stats.Lookups != 3 || stats.Hits != 2 || stats.Misses != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.HitRate < 0.66 || stats.HitRate > 0.67 {
		t.Errorf("hit rate = %f", stats.HitRate)
	}
	if stats.Entries != 1 {
		t.Errorf("entries = %d, want 1", stats.Entries)
	}
}

func TestReadCachesCustomLookupUnderNamespace(t *testing.T) {
	base := newFakeStore(model.Patient{ID: 1, Email: "amy@example.test"})
	cached := newCachedStore(t, base)
	ctx := context.Background()

	fetches := 0
	lookup := func(ctx context.Context) (*model.Patient, error) {
		fetches++
		p := model.Patient{ID: 1, Email: "amy@example.test"}
		return &p, nil
	}

	for i := 0; i < 2; i++ {
		p, err := Read(ctx, cached, "GetByEmail", "amy@example.test", lookup)
		if err != nil {
			t.Fatal(err)
		}
		if p == nil || p.ID != 1 {
			t.Fatalf("lookup #%d = %+v", i, p)
		}
	}
	if fetches != 1 {
		t.Errorf("lookup fetched %d times, want 1", fetches)
	}

	// A write drops the custom lookup along with everything else.
	if err := cached.Delete(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := Read(ctx, cached, "GetByEmail", "amy@example.test", lookup); err != nil {
		t.Fatal(err)
	}
	if fetches != 2 {
		t.Errorf("lookup survived invalidation: fetches=%d", fetches)
	}
}

func TestConcurrentReadsAndWrites(t *testing.T) {
	base := newFakeStore(model.Patient{ID: 1, FirstName: "Amy"})
	cached := newCachedStore(t, base)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if i%2 == 0 {
					if _, err := cached.GetAll(ctx); err != nil {
						t.Errorf("GetAll: %v", err)
						return
					}
				} else {
					p := model.Patient{FirstName: "P", LastName: strconv.Itoa(i*100 + j)}
					if _, err := cached.Add(ctx, &p); err != nil {
						t.Errorf("Add: %v", err)
						return
					}
				}
			}
		}(i)
	}
	wg.Wait()

	// One more write after the barrier drops any snapshot a racing fetch may
	// have stored, then the read must observe every committed row.
	if _, err := cached.Add(ctx, &model.Patient{FirstName: "Final", LastName: "Row"}); err != nil {
		t.Fatal(err)
	}
	all, err := cached.GetAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1+4*50+1 {
		t.Errorf("final collection has %d rows, want %d", len(all), 1+4*50+1)
	}
}
