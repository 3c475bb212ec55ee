package subscription

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"measwap/pkg/querycache"
)

// Watcher bridges the account-notification stream into the query cache.
// Each watched account gets a WebSocket subscription; when the ledger
// reports a change, the cache entries holding that account are marked
// stale and observed ones are refetched. The watcher never writes account
// data into the cache itself, the notification is only a staleness signal.
type Watcher struct {
	wsClient *WebSocketClient
	cache    *querycache.Cache
	mu       sync.Mutex
	watched  map[string]uint64 // account ID -> client subscription ID
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewWatcher connects to the WebSocket endpoint and returns a watcher
// bound to the given cache.
func NewWatcher(ctx context.Context, wsURL string, cache *querycache.Cache) (*Watcher, error) {
	watcherCtx, cancel := context.WithCancel(ctx)

	wsClient, err := NewWebSocketClient(watcherCtx, wsURL)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create WebSocket client: %w", err)
	}

	return &Watcher{
		wsClient: wsClient,
		cache:    cache,
		watched:  make(map[string]uint64),
		ctx:      watcherCtx,
		cancel:   cancel,
	}, nil
}

// Watch subscribes to each account not already watched. Already-watched
// accounts are skipped, so callers can pass full key sets freely.
func (w *Watcher) Watch(accounts ...string) error {
	for _, account := range accounts {
		w.mu.Lock()
		_, exists := w.watched[account]
		w.mu.Unlock()
		if exists {
			continue
		}

		accountID := account
		subID, err := w.wsClient.SubscribeAccount(accountID, func(id string, data []byte, slot uint64) {
			w.handleUpdate(id, slot)
		})
		if err != nil {
			return fmt.Errorf("failed to watch account %s: %w", account, err)
		}

		w.mu.Lock()
		w.watched[accountID] = subID
		w.mu.Unlock()

		log.Printf("Watching account %s (subID: %d)", accountID, subID)
	}
	return nil
}

// Unwatch drops the subscriptions for the given accounts.
func (w *Watcher) Unwatch(accounts ...string) {
	for _, account := range accounts {
		w.mu.Lock()
		subID, exists := w.watched[account]
		if exists {
			delete(w.watched, account)
		}
		w.mu.Unlock()

		if !exists {
			continue
		}
		if err := w.wsClient.Unsubscribe(subID); err != nil {
			log.Printf("Failed to unwatch account %s: %v", account, err)
		}
	}
}

func (w *Watcher) handleUpdate(accountID string, slot uint64) {
	n := w.cache.InvalidateKeys(accountID)
	if n > 0 {
		log.Printf("Account %s changed at slot %d, invalidated %d cache entries", accountID, slot, n)
	}
}

// IsConnected reports whether the notification stream is up.
func (w *Watcher) IsConnected() bool {
	return w.wsClient.IsConnected()
}

// Stats returns watcher statistics for the health endpoint.
func (w *Watcher) Stats() map[string]interface{} {
	w.mu.Lock()
	defer w.mu.Unlock()

	return map[string]interface{}{
		"watchedAccounts": len(w.watched),
		"connected":       w.wsClient.IsConnected(),
		"timestamp":       time.Now().Format(time.RFC3339),
	}
}

// Close tears down every subscription and the connection.
func (w *Watcher) Close() error {
	w.cancel()

	w.mu.Lock()
	accounts := make([]string, 0, len(w.watched))
	for account := range w.watched {
		accounts = append(accounts, account)
	}
	w.mu.Unlock()

	w.Unwatch(accounts...)

	return w.wsClient.Close()
}
