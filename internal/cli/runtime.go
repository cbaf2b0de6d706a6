package cli

import (
	"condor-trader/internal/broker"
	"condor-trader/internal/engine"
	"condor-trader/internal/notify"
	"condor-trader/internal/store"
)

// runtime bundles the engine and everything that must be torn down with it.
type runtime struct {
	eng        *engine.Engine
	st         store.Store
	dispatcher *notify.Dispatcher
}

// buildRuntime wires the broker, store, notifier and engine from the loaded
// configuration. The caller must call close when done.
func (a *App) buildRuntime() (*runtime, error) {
	st, err := store.NewSQLiteStore(store.DefaultDBPath())
	if err != nil {
		return nil, err
	}

	zerodha := broker.NewZerodhaBroker(broker.ZerodhaConfig{
		APIKey:      a.cfg.Credentials.Zerodha.APIKey,
		AccessToken: a.cfg.Credentials.Zerodha.AccessToken,
		ChainName:   a.cfg.Trading.ChainName,
	})

	ticker := broker.NewZerodhaTicker(broker.ZerodhaTickerConfig{
		APIKey:      a.cfg.Credentials.Zerodha.APIKey,
		AccessToken: a.cfg.Credentials.Zerodha.AccessToken,
	})

	notifier := notify.NewFromConfig(a.cfg.Notifications, a.logger)
	dispatcher := notify.NewDispatcher(notifier, 64, a.logger)

	eng := engine.New(engine.Deps{
		Config:   a.cfg.Trading,
		Market:   zerodha,
		LiveGW:   zerodha,
		PaperGW:  broker.NewPaperGateway(a.logger),
		Ticker:   ticker,
		Store:    st,
		Notifier: dispatcher,
		Logger:   a.logger,
	})

	return &runtime{eng: eng, st: st, dispatcher: dispatcher}, nil
}

func (r *runtime) close() {
	r.dispatcher.Close()
	_ = r.st.Close()
}
