package core

var (
	_ ListenerStore    = (*MemoryListenerStore)(nil)
	_ ListenerReader   = (*MemoryListenerStore)(nil)
	_ PayloadPreparer  = PayloadPreparerFunc(nil)
	_ PayloadPreparer  = modelProjector{}
	_ ConfigProvider   = (*CfgxConfigProvider)(nil)
	_ RawConfigLoader  = StaticConfigLoader{}
	_ OptionsResolver  = GoOptionsResolver{}
	_ DeliveryObserver = DeliveryObserverFunc(nil)
)
