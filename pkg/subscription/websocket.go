package subscription

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketClient manages the account-notification stream from a Solana
// WebSocket endpoint. Subscriptions survive reconnects.
type WebSocketClient struct {
	url            string
	conn           *websocket.Conn
	mu             sync.RWMutex
	subscriptions  map[uint64]*Subscription
	nextID         uint64
	handlers       map[uint64]AccountUpdateHandler
	reconnectDelay time.Duration
	ctx            context.Context
	cancel         context.CancelFunc
	connected      bool
}

// Subscription tracks one account subscription. SubID is the server-side
// subscription ID, zero until the server confirms.
type Subscription struct {
	ID        uint64
	AccountID string
	SubID     uint64
}

// AccountUpdateHandler receives decoded account data on each notification.
// Nil data means the account payload could not be decoded.
type AccountUpdateHandler func(accountID string, data []byte, slot uint64)

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type notificationMessage struct {
	JSONRPC string             `json:"jsonrpc"`
	Method  string             `json:"method"`
	Params  notificationParams `json:"params"`
}

type notificationParams struct {
	Result       accountNotification `json:"result"`
	Subscription uint64              `json:"subscription"`
}

type accountNotification struct {
	Context struct {
		Slot uint64 `json:"slot"`
	} `json:"context"`
	Value accountValue `json:"value"`
}

type accountValue struct {
	Data       []interface{} `json:"data"` // [base64_data, encoding]
	Executable bool          `json:"executable"`
	Lamports   uint64        `json:"lamports"`
	Owner      string        `json:"owner"`
	RentEpoch  uint64        `json:"rentEpoch"`
}

// NewWebSocketClient connects and starts the reader and reconnection loops.
func NewWebSocketClient(ctx context.Context, wsURL string) (*WebSocketClient, error) {
	clientCtx, cancel := context.WithCancel(ctx)

	client := &WebSocketClient{
		url:            wsURL,
		subscriptions:  make(map[uint64]*Subscription),
		handlers:       make(map[uint64]AccountUpdateHandler),
		reconnectDelay: 5 * time.Second,
		ctx:            clientCtx,
		cancel:         cancel,
		nextID:         1,
	}

	if err := client.connect(); err != nil {
		cancel()
		return nil, err
	}

	go client.readMessages()
	go client.handleReconnection()

	return client, nil
}

func (c *WebSocketClient) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	conn, _, err := websocket.DefaultDialer.Dial(c.url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to WebSocket: %w", err)
	}

	c.conn = conn
	c.connected = true
	log.Printf("WebSocket connected to %s", c.url)

	return nil
}

// SubscribeAccount registers for updates on one account, base64-encoded
// at confirmed commitment.
func (c *WebSocketClient) SubscribeAccount(accountID string, handler AccountUpdateHandler) (uint64, error) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.mu.Unlock()

	if err := c.sendRequest(subscribeRequest(id, accountID)); err != nil {
		return 0, err
	}

	c.mu.Lock()
	c.handlers[id] = handler
	c.subscriptions[id] = &Subscription{
		ID:        id,
		AccountID: accountID,
	}
	c.mu.Unlock()

	return id, nil
}

func subscribeRequest(id uint64, accountID string) rpcRequest {
	return rpcRequest{
		JSONRPC: "2.0",
		ID:      id,
		Method:  "accountSubscribe",
		Params: []interface{}{
			accountID,
			map[string]interface{}{
				"encoding":   "base64",
				"commitment": "confirmed",
			},
		},
	}
}

// Unsubscribe removes an account subscription.
func (c *WebSocketClient) Unsubscribe(subID uint64) error {
	c.mu.Lock()
	sub, exists := c.subscriptions[subID]
	if !exists {
		c.mu.Unlock()
		return fmt.Errorf("subscription not found: %d", subID)
	}

	if sub.SubID == 0 {
		// Never confirmed by the server; nothing to tear down remotely.
		delete(c.subscriptions, subID)
		delete(c.handlers, subID)
		c.mu.Unlock()
		return nil
	}

	serverSubID := sub.SubID
	c.mu.Unlock()

	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      subID,
		Method:  "accountUnsubscribe",
		Params:  []interface{}{serverSubID},
	}

	if err := c.sendRequest(req); err != nil {
		return err
	}

	c.mu.Lock()
	delete(c.subscriptions, subID)
	delete(c.handlers, subID)
	c.mu.Unlock()

	return nil
}

func (c *WebSocketClient) sendRequest(req rpcRequest) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil {
		return fmt.Errorf("not connected")
	}

	data, err := json.Marshal(req)
	if err != nil {
		return err
	}

	return conn.WriteMessage(websocket.TextMessage, data)
}

func (c *WebSocketClient) readMessages() {
	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()

		if conn == nil {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			log.Printf("WebSocket read error: %v", err)
			conn.Close()
			c.mu.Lock()
			// Drop the dead conn so the loop backs off on the nil check
			// instead of spinning on the same error until reconnect.
			if c.conn == conn {
				c.conn = nil
			}
			c.connected = false
			c.mu.Unlock()
			continue
		}

		c.handleMessage(message)
	}
}

func (c *WebSocketClient) handleMessage(data []byte) {
	var notification notificationMessage
	if err := json.Unmarshal(data, &notification); err == nil && notification.Method == "accountNotification" {
		c.handleAccountNotification(notification)
		return
	}

	var response rpcResponse
	if err := json.Unmarshal(data, &response); err != nil {
		log.Printf("Failed to parse WebSocket message: %v", err)
		return
	}

	c.handleResponse(response)
}

// handleResponse records the server-assigned subscription ID so later
// notifications can be routed back to the right handler.
func (c *WebSocketClient) handleResponse(response rpcResponse) {
	if response.Error != nil {
		log.Printf("RPC error: %s", response.Error.Message)
		return
	}

	var subID uint64
	if err := json.Unmarshal(response.Result, &subID); err != nil {
		return
	}

	c.mu.Lock()
	if sub, exists := c.subscriptions[response.ID]; exists {
		sub.SubID = subID
	}
	c.mu.Unlock()
}

func (c *WebSocketClient) handleAccountNotification(notification notificationMessage) {
	c.mu.RLock()
	var handler AccountUpdateHandler
	var accountID string

	for _, sub := range c.subscriptions {
		if sub.SubID == notification.Params.Subscription {
			if h, exists := c.handlers[sub.ID]; exists {
				handler = h
				accountID = sub.AccountID
			}
			break
		}
	}
	c.mu.RUnlock()

	if handler == nil {
		return
	}

	handler(accountID, decodeAccountData(notification.Params.Result.Value), notification.Params.Result.Context.Slot)
}

func decodeAccountData(value accountValue) []byte {
	if len(value.Data) < 1 {
		return nil
	}
	encoded, ok := value.Data[0].(string)
	if !ok {
		return nil
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil
	}
	return data
}

func (c *WebSocketClient) handleReconnection() {
	ticker := time.NewTicker(c.reconnectDelay)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.mu.RLock()
			connected := c.connected
			c.mu.RUnlock()

			if !connected {
				log.Printf("Attempting to reconnect WebSocket...")
				if err := c.reconnect(); err != nil {
					log.Printf("Reconnection failed: %v", err)
				} else {
					log.Printf("WebSocket reconnected successfully")
				}
			}
		}
	}
}

// reconnect dials again and replays every live subscription.
func (c *WebSocketClient) reconnect() error {
	if err := c.connect(); err != nil {
		return err
	}

	c.mu.Lock()
	subs := make([]*Subscription, 0, len(c.subscriptions))
	for _, sub := range c.subscriptions {
		subs = append(subs, sub)
	}
	c.mu.Unlock()

	for _, sub := range subs {
		if err := c.sendRequest(subscribeRequest(sub.ID, sub.AccountID)); err != nil {
			log.Printf("Failed to resubscribe to %s: %v", sub.AccountID, err)
		}
	}

	return nil
}

// Close shuts down the connection and both background loops.
func (c *WebSocketClient) Close() error {
	c.cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return c.conn.Close()
	}

	return nil
}

// IsConnected reports whether the stream is currently up.
func (c *WebSocketClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}
