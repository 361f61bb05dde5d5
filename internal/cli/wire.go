package cli

import (
	"go.uber.org/zap"

	"github.com/sgrimes/msgcourier/internal/chatdb"
	"github.com/sgrimes/msgcourier/internal/config"
	"github.com/sgrimes/msgcourier/internal/contactsdb"
	"github.com/sgrimes/msgcourier/internal/delivery"
	"github.com/sgrimes/msgcourier/internal/osa"
	"github.com/sgrimes/msgcourier/internal/protocol"
)

// buildHandler assembles the protocol handler from config. Either
// datastore may be missing; the handler is built with a nil store in
// that case and the affected paths degrade per their contract.
func buildHandler(cfg config.Config, logger *zap.Logger) (*protocol.Handler, func()) {
	var (
		chats   protocol.ChatStore
		source  delivery.ParticipantSource
		cleanup = func() {}
	)
	store, err := chatdb.Open(cfg.MessagesDB)
	if err != nil {
		logger.Warn("messages store unavailable", zap.String("path", cfg.MessagesDB), zap.Error(err))
	} else {
		chats = store
		source = store
		cleanup = func() { _ = store.Close() }
	}

	var contacts protocol.ContactDirectory
	dir, err := contactsdb.Open(cfg.ContactsGlob)
	if err != nil {
		logger.Warn("contacts store unavailable", zap.String("glob", cfg.ContactsGlob), zap.Error(err))
	} else {
		contacts = dir
	}

	runner := &osa.OSARunner{
		Bin:     cfg.OSAScriptBin,
		Timeout: cfg.ScriptTimeout,
		TempDir: cfg.TempDir,
	}

	return &protocol.Handler{
		Chats:      chats,
		Contacts:   contacts,
		Courier:    delivery.New(runner, source, logger),
		Logger:     logger,
		MaxResults: cfg.MaxResults,
	}, cleanup
}
