package assets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-redis/redis/v9"
	"github.com/sasha-s/go-deadlock"
)

// Store is the durable key/value capability uploaded files are mirrored into.
// Keys are canonical file names.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte) error
	// Clear removes every entry.
	Clear(ctx context.Context) error
}

type FSStore string

var Missing = fmt.Errorf("asset missing")

func (f FSStore) getPath(key string) string {
	return filepath.Join(string(f), filepath.Base(key))
}

func (f FSStore) Get(ctx context.Context, key string) ([]byte, error) {
	target := f.getPath(key)

	if !FileExists(target) {
		return nil, Missing
	}

	return os.ReadFile(target)
}

func (f FSStore) Set(ctx context.Context, key string, data []byte) error {
	target := f.getPath(key)
	return WriteBytes(data, target)
}

// Clear removes the uploaded asset files, and the leftovers of interrupted
// writes, for every kind and tier. Other files in the directory are kept.
func (f FSStore) Clear(ctx context.Context) error {
	for _, tier := range []Tier{Episode3, FullSix} {
		for _, kind := range AllKinds {
			path := f.getPath(Filename(kind, tier))
			for _, target := range []string{path, path + ".tmp"} {
				err := os.Remove(target)
				if err != nil && !os.IsNotExist(err) {
					return err
				}
			}
		}
	}

	return nil
}

const (
	ASSET_KEY = "iwplayer-asset-%s"
	// Uploaded files are kept until the user resets them.
	ASSET_EXPIRY = time.Duration(0)
)

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
	}
}

func (r *RedisStore) Get(ctx context.Context, id string) ([]byte, error) {
	key := fmt.Sprintf(ASSET_KEY, id)
	data, err := r.client.Get(ctx, key).Bytes()

	if err == redis.Nil {
		return nil, Missing
	}

	if err != nil {
		return nil, err
	}

	return data, nil
}

func (r *RedisStore) Set(ctx context.Context, id string, data []byte) error {
	key := fmt.Sprintf(ASSET_KEY, id)
	return r.client.Set(ctx, key, data, ASSET_EXPIRY).Err()
}

func (r *RedisStore) Clear(ctx context.Context) error {
	keys := make([]string, 0)
	iter := r.client.Scan(ctx, 0, fmt.Sprintf(ASSET_KEY, "*"), 64).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}

	if len(keys) == 0 {
		return nil
	}

	return r.client.Del(ctx, keys...).Err()
}

// MemoryStore keeps everything in process memory. It is used for the
// "memory" store type and in tests.
type MemoryStore struct {
	mutex deadlock.Mutex
	data  map[string][]byte
	fail  error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string][]byte),
	}
}

func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.fail != nil {
		return nil, m.fail
	}

	data, ok := m.data[key]
	if !ok {
		return nil, Missing
	}
	return data, nil
}

func (m *MemoryStore) Set(ctx context.Context, key string, data []byte) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.fail != nil {
		return m.fail
	}

	m.data[key] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.fail != nil {
		return m.fail
	}

	m.data = make(map[string][]byte)
	return nil
}

// SetFailure makes every following operation return err until it is reset
// with nil.
func (m *MemoryStore) SetFailure(err error) {
	m.mutex.Lock()
	m.fail = err
	m.mutex.Unlock()
}

func (m *MemoryStore) Keys() []string {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	keys := make([]string, 0, len(m.data))
	for key := range m.data {
		keys = append(keys, key)
	}
	return keys
}

var _ Store = (*FSStore)(nil)
var _ Store = (*RedisStore)(nil)
var _ Store = (*MemoryStore)(nil)
var _ Store = (*SQLStore)(nil)
var _ Store = (*LevelStore)(nil)
