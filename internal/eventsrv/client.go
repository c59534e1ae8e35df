package eventsrv

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/specialistvlad/gridflow/internal/ctxlog"
	"github.com/specialistvlad/gridflow/internal/engine"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// DefaultConnectTimeout bounds how long Dial waits for the connection.
const DefaultConnectTimeout = 15 * time.Second

// DialOptions configures a client connection.
type DialOptions struct {
	Namespace          string
	InsecureSkipVerify bool
	ConnectTimeout     time.Duration
}

// Client follows runs on a gridflow event server.
type Client struct {
	io       *socket.Socket
	messages chan Message
}

// Dial connects to the event server at rawURL over WebSocket.
func Dial(ctx context.Context, rawURL string, opts DialOptions) (*Client, error) {
	logger := ctxlog.FromContext(ctx).With("url", rawURL)

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("invalid event server URL '%s'", rawURL)
	}
	path := parsedURL.Path
	if path == "" || path == "/" {
		path = Path
	}
	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}

	sopts := socket.DefaultOptions()
	sopts.SetPath(path)
	sopts.SetReconnection(false)
	if opts.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		sopts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	sopts.SetTransports(types.NewSet(transports.WebSocket))

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, sopts)
	io := manager.Socket(opts.Namespace, sopts)
	c := &Client{io: io, messages: make(chan Message, 1024)}
	for _, name := range []string{EventAccepted, EventStarted, EventNodeCompleted, EventFinished, EventError} {
		c.listen(name)
	}

	connectChan := make(chan error, 1)
	io.Once(types.EventName("connect"), func(...any) {
		logger.Debug("Connected to event server.", "sid", io.Id())
		connectChan <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err, _ := errs[0].(error)
		if err == nil {
			err = fmt.Errorf("%v", errs[0])
		}
		connectChan <- err
	})
	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
		return c, nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection: %w", ctx.Err())
	case <-time.After(timeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", timeout)
	}
}

func (c *Client) listen(name string) {
	c.io.On(types.EventName(name), func(args ...any) {
		msg := Message{Event: name}
		if len(args) > 0 {
			msg.Data, _ = args[0].(map[string]any)
		}
		msg.RunID = runIDOf(msg.Data)
		select {
		case c.messages <- msg:
		default:
		}
	})
}

// Start submits req and follows the new run until it finishes.
func (c *Client) Start(ctx context.Context, req *engine.Request, onMessage func(Message)) (*engine.Result, error) {
	data, err := toMap(req)
	if err != nil {
		return nil, err
	}
	if err := c.io.Emit(EventStart, data); err != nil {
		return nil, fmt.Errorf("failed to send %s: %w", EventStart, err)
	}
	return c.follow(ctx, "", onMessage)
}

// Watch follows an existing run until it finishes.
func (c *Client) Watch(ctx context.Context, runID string, onMessage func(Message)) (*engine.Result, error) {
	if err := c.io.Emit(EventWatch, map[string]any{"runId": runID}); err != nil {
		return nil, fmt.Errorf("failed to send %s: %w", EventWatch, err)
	}
	return c.follow(ctx, runID, onMessage)
}

// Cancel asks the server to cancel a run.
func (c *Client) Cancel(runID string) error {
	return c.io.Emit(EventCancel, map[string]any{"runId": runID})
}

// follow consumes messages until the run finishes. An empty runID adopts
// the id from the first run:accepted message.
func (c *Client) follow(ctx context.Context, runID string, onMessage func(Message)) (*engine.Result, error) {
	for {
		select {
		case <-ctx.Done():
			if runID != "" {
				_ = c.Cancel(runID)
			}
			return nil, ctx.Err()
		case msg := <-c.messages:
			if msg.Event == EventError && (msg.RunID == "" || msg.RunID == runID) {
				text, _ := msg.Data["error"].(string)
				return nil, errors.New(text)
			}
			if runID == "" && msg.Event == EventAccepted {
				runID = msg.RunID
			}
			if msg.RunID != runID {
				continue
			}
			if onMessage != nil {
				onMessage(msg)
			}
			if msg.Event == EventFinished {
				return decodeResult(msg.Data)
			}
		}
	}
}

// Close disconnects from the server.
func (c *Client) Close() {
	c.io.Disconnect()
}
