package assets

import (
	"context"

	ds "github.com/ipfs/go-datastore"
	dsq "github.com/ipfs/go-datastore/query"
	dslvl "github.com/ipfs/go-ds-leveldb"
)

type LevelStore struct {
	files *dslvl.Datastore
}

func NewLevelStore(path string) (*LevelStore, error) {
	store, err := dslvl.NewDatastore(path, nil)
	if err != nil {
		return nil, err
	}

	return &LevelStore{
		files: store,
	}, nil
}

func (l *LevelStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := l.files.Get(ctx, ds.NewKey(key))
	if err == ds.ErrNotFound {
		return nil, Missing
	}
	if err != nil {
		return nil, err
	}

	return data, nil
}

func (l *LevelStore) Set(ctx context.Context, key string, data []byte) error {
	return l.files.Put(ctx, ds.NewKey(key), data)
}

func (l *LevelStore) Clear(ctx context.Context) error {
	res, err := l.files.Query(ctx, dsq.Query{KeysOnly: true})
	if err != nil {
		return err
	}

	entries, err := res.Rest()
	if err != nil {
		return err
	}

	for _, entry := range entries {
		err := l.files.Delete(ctx, ds.NewKey(entry.Key))
		if err != nil {
			return err
		}
	}

	return nil
}

func (l *LevelStore) Close() error {
	return l.files.Close()
}
