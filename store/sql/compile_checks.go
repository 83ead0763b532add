package sqlstore

import "github.com/goliatone/go-hooks/core"

var (
	_ core.ListenerStore    = (*ListenerStore)(nil)
	_ core.ListenerReader   = (*ListenerStore)(nil)
	_ core.DeliveryRecorder = (*DeliveryStore)(nil)
	_ core.StoreProvider    = (*RepositoryFactory)(nil)
	_ core.RecorderProvider = (*RepositoryFactory)(nil)
)
