package sqlstore

import (
	"fmt"

	"github.com/goliatone/go-hooks/core"
	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/uptrace/bun"
)

type RepositoryFactory struct {
	db *bun.DB

	listenerStore *ListenerStore
	deliveryStore *DeliveryStore
}

func NewRepositoryFactory() *RepositoryFactory {
	return &RepositoryFactory{}
}

func NewRepositoryFactoryFromPersistence(client *persistence.Client) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if _, err := factory.BuildStores(client); err != nil {
		return nil, err
	}
	return factory, nil
}

func NewRepositoryFactoryFromDB(db *bun.DB) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if _, err := factory.BuildStores(db); err != nil {
		return nil, err
	}
	return factory, nil
}

func (f *RepositoryFactory) BuildStores(persistenceClient any) (core.StoreProvider, error) {
	if f == nil {
		return nil, fmt.Errorf("sqlstore: repository factory is nil")
	}
	if f.db == nil {
		db, err := resolveBunDB(persistenceClient)
		if err != nil {
			return nil, err
		}
		f.db = db
	}
	if f.listenerStore != nil && f.deliveryStore != nil {
		return f, nil
	}
	if err := f.initStores(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *RepositoryFactory) ListenerStore() core.ListenerStore {
	if f == nil || f.listenerStore == nil {
		return nil
	}
	return f.listenerStore
}

func (f *RepositoryFactory) DeliveryRecorder() core.DeliveryRecorder {
	if f == nil || f.deliveryStore == nil {
		return nil
	}
	return f.deliveryStore
}

func (f *RepositoryFactory) Listeners() *ListenerStore {
	if f == nil {
		return nil
	}
	return f.listenerStore
}

func (f *RepositoryFactory) Deliveries() *DeliveryStore {
	if f == nil {
		return nil
	}
	return f.deliveryStore
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func (f *RepositoryFactory) initStores() error {
	listenerStore, err := NewListenerStore(f.db)
	if err != nil {
		return err
	}
	deliveryStore, err := NewDeliveryStore(f.db)
	if err != nil {
		return err
	}
	f.listenerStore = listenerStore
	f.deliveryStore = deliveryStore
	return nil
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
