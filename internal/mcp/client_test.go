package mcp

import (
	"context"
	"testing"
	"time"

	"github.com/driftcode/drift/internal/mcp/transport"
)

// blockingTransport ignores the request and waits for ctx to be done,
// simulating a wedged stdio server for timeout testing.
type blockingTransport struct{}

func (blockingTransport) Start(ctx context.Context) error { return nil }
func (blockingTransport) Send(ctx context.Context, req *transport.JSONRPCRequest) (*transport.JSONRPCResponse, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
func (blockingTransport) SendNotification(ctx context.Context, notif *transport.JSONRPCNotification) error {
	return nil
}
func (blockingTransport) Close() error                                     { return nil }
func (blockingTransport) IsAlive() bool                                    { return true }
func (blockingTransport) SetNotificationHandler(h transport.NotificationHandler) {}

func newConnectedClient(cfg ServerConfig, trans transport.Transport) *Client {
	c := NewClient(cfg)
	c.transport = trans
	c.connected = true
	return c
}

func TestCallToolRespectsConfiguredTimeout(t *testing.T) {
	c := newConnectedClient(ServerConfig{Name: "wedged", TimeoutSeconds: 1}, blockingTransport{})

	start := time.Now()
	_, err := c.CallTool(context.Background(), "whatever", nil)
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("expected timeout error, got nil")
	}
	if elapsed > 3*time.Second {
		t.Errorf("CallTool took %s, expected it to bail out near the 1s configured timeout", elapsed)
	}
}

func TestCallToolHonorsCallerCancellation(t *testing.T) {
	c := newConnectedClient(ServerConfig{Name: "wedged"}, blockingTransport{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.CallTool(ctx, "whatever", nil)
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected cancellation error, got nil")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("CallTool did not return promptly after caller cancellation")
	}
}
