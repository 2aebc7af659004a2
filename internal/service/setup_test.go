package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"Forum_Community/internal/media"
	"Forum_Community/internal/pkg"
	"Forum_Community/internal/repository/mysql"
	rrepo "Forum_Community/internal/repository/redis"
	"Forum_Community/internal/storage"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

type testEnv struct {
	store     *mysql.Store
	redis     *miniredis.Miniredis
	issuer    *pkg.TokenIssuer
	sessions  *rrepo.UserRepository
	caches    *rrepo.MediaCacheRepository
	objects   *fakeObjects
	users     *UserService
	community *CommunityService
	posts     *PostService
	comments  *CommentService
	media     *MediaService
	clock     *fakeClock
}

func newStore(t *testing.T) *mysql.Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := mysql.InitDB(mysql.DriverSQLite, fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := mysql.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	sqlDB, _ := db.DB()
	t.Cleanup(func() { _ = sqlDB.Close() })
	return mysql.NewStore(db)
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	store := newStore(t)
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	clock := newFakeClock()
	issuer := pkg.NewTokenIssuer("access-secret", "refresh-secret", time.Minute, time.Hour)
	sessions := rrepo.NewUserRepository(client, time.Minute)
	caches := rrepo.NewMediaCacheRepository(client, time.Minute)
	objects := newFakeObjects()

	env := &testEnv{
		store:     store,
		redis:     mr,
		issuer:    issuer,
		sessions:  sessions,
		caches:    caches,
		objects:   objects,
		users:     NewUserService(store, issuer, sessions, caches),
		community: NewCommunityService(store),
		posts:     NewPostService(store),
		comments:  NewCommentService(store),
		media:     NewMediaService(store, objects, media.NewResolver(objects, time.Hour), caches),
		clock:     clock,
	}
	env.posts.now = clock.Now
	env.comments.now = clock.Now
	return env
}

func (e *testEnv) register(t *testing.T, username string) uint64 {
	t.Helper()
	u, err := e.users.Register(context.Background(), username, username+"@example.com", "password123")
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return u.ID
}

func requireKind(t *testing.T, err error, kind pkg.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := pkg.KindOf(err); got != kind {
		t.Fatalf("expected %s error, got %s (%v)", kind, got, err)
	}
}

func requireNoErr(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// fakeClock 每次调用前进一秒，保证创建时间严格递增
type fakeClock struct {
	mu  sync.Mutex
	cur time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{cur: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(time.Second)
	return c.cur
}

type fakeObject struct {
	data        []byte
	contentType string
}

// fakeObjects 内存对象存储，可指定某些 key 解析失败
type fakeObjects struct {
	mu       sync.Mutex
	objects  map[string]fakeObject
	fail     map[string]bool
	presigns map[string]int
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{
		objects:  make(map[string]fakeObject),
		fail:     make(map[string]bool),
		presigns: make(map[string]int),
	}
}

func (f *fakeObjects) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = fakeObject{data: data, contentType: contentType}
	return nil
}

func (f *fakeObjects) Presign(_ context.Context, key string, ttl time.Duration) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.presigns[key]++
	if f.fail[key] {
		return "", "", fmt.Errorf("presign %s: boom", key)
	}
	obj, ok := f.objects[key]
	if !ok {
		return "", "", fmt.Errorf("%s: %w", key, storage.ErrObjectNotFound)
	}
	return fmt.Sprintf("https://signed.local/%s?ttl=%d", key, int(ttl.Seconds())), obj.contentType, nil
}

func (f *fakeObjects) PublicURL(key string) string {
	return storage.PublicURL("http://public.local", key)
}

func (f *fakeObjects) Open(_ context.Context, key string) (*storage.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, storage.ErrObjectNotFound)
	}
	return &storage.Object{
		ReadCloser:  io.NopCloser(bytes.NewReader(obj.data)),
		Size:        int64(len(obj.data)),
		ContentType: obj.contentType,
	}, nil
}

func (f *fakeObjects) presignCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.presigns[key]
}

func (f *fakeObjects) seed(key, contentType string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = fakeObject{data: []byte("x"), contentType: contentType}
}
