package socketrpc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/tinytelemetry/cardwall/internal/model"
)

const (
	// defaultCallTimeout bounds calls whose context carries no deadline.
	defaultCallTimeout = 30 * time.Second
	// refreshCallTimeout is longer since refreshes wait for card updates.
	refreshCallTimeout = 2 * time.Minute
)

// Client implements model.Dashboard over a Unix domain socket using JSON-RPC 2.0.
type Client struct {
	conn    net.Conn
	mu      sync.Mutex
	nextID  int
	scanner *bufio.Scanner
	encoder *json.Encoder
}

// Dial connects to the socket RPC server at the given path.
func Dial(socketPath string) (*Client, error) {
	conn, err := net.DialTimeout("unix", socketPath, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("socketrpc: dial: %w", err)
	}
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, scannerInitBufSize), scannerMaxTokenSize)
	return &Client{
		conn:    conn,
		scanner: scanner,
		encoder: json.NewEncoder(conn),
	}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// call performs a JSON-RPC call and unmarshals the result into dest. The
// connection deadline is taken from ctx, or timeout when ctx has none.
func (c *Client) call(ctx context.Context, timeout time.Duration, method string, params interface{}, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID

	paramsData, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("socketrpc: marshal params: %w", err)
	}

	req := Request{
		JSONRPC: "2.0",
		ID:      id,
		Method:  method,
		Params:  paramsData,
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(timeout)
	}
	c.conn.SetDeadline(deadline)
	defer c.conn.SetDeadline(time.Time{})

	if err := c.encoder.Encode(req); err != nil {
		return fmt.Errorf("socketrpc: send: %w", err)
	}

	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return fmt.Errorf("socketrpc: read: %w", err)
		}
		return fmt.Errorf("socketrpc: connection closed")
	}

	var resp Response
	if err := json.Unmarshal(c.scanner.Bytes(), &resp); err != nil {
		return fmt.Errorf("socketrpc: unmarshal response: %w", err)
	}

	if resp.Error != nil {
		return resp.Error
	}

	if dest != nil {
		if err := json.Unmarshal(resp.Result, dest); err != nil {
			return fmt.Errorf("socketrpc: unmarshal result: %w", err)
		}
	}
	return nil
}

func (c *Client) ListCards() ([]model.CardView, error) {
	var result []model.CardView
	err := c.call(context.Background(), defaultCallTimeout, "ListCards", map[string]interface{}{}, &result)
	return result, err
}

func (c *Client) GetCard(id string) (model.CardView, bool, error) {
	var result CardLookup
	err := c.call(context.Background(), defaultCallTimeout, "GetCard", map[string]interface{}{"ID": id}, &result)
	return result.Card, result.Found, err
}

func (c *Client) RefreshCard(ctx context.Context, id string) (model.CardView, bool, error) {
	var result CardLookup
	err := c.call(ctx, refreshCallTimeout, "RefreshCard", map[string]interface{}{"ID": id}, &result)
	return result.Card, result.Found, err
}

func (c *Client) RefreshAll(ctx context.Context) error {
	return c.call(ctx, refreshCallTimeout, "RefreshAll", map[string]interface{}{}, nil)
}

func (c *Client) RemoveCard(id string) (bool, error) {
	var result bool
	err := c.call(context.Background(), defaultCallTimeout, "RemoveCard", map[string]interface{}{"ID": id}, &result)
	return result, err
}

func (c *Client) History(cardID string, limit int) ([]model.Outcome, error) {
	var result []model.Outcome
	err := c.call(context.Background(), defaultCallTimeout, "History", map[string]interface{}{"CardID": cardID, "Limit": limit}, &result)
	return result, err
}

func (c *Client) OutcomeSummary() ([]model.CardSummary, error) {
	var result []model.CardSummary
	err := c.call(context.Background(), defaultCallTimeout, "OutcomeSummary", map[string]interface{}{}, &result)
	return result, err
}

func (c *Client) OutcomeCount() (int64, error) {
	var result int64
	err := c.call(context.Background(), defaultCallTimeout, "OutcomeCount", map[string]interface{}{}, &result)
	return result, err
}

var _ model.Dashboard = (*Client)(nil)
