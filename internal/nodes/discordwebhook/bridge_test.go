package discordwebhook

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"discord-trigger/internal/core"
	"discord-trigger/internal/credentials"
	"discord-trigger/internal/services/discord"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeClient stands in for a gateway session. Tests play the gateway by calling emit.
type fakeClient struct {
	mu       sync.Mutex
	handlers []interface{} // nil once removed
	openErr  error
	closes   int

	opened chan struct{}
	closed chan struct{}
}

func newFakeClient() *fakeClient {
	return &fakeClient{opened: make(chan struct{}), closed: make(chan struct{})}
}

func (c *fakeClient) AddHandler(handler interface{}) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := len(c.handlers)
	c.handlers = append(c.handlers, handler)
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.handlers[id] = nil
	}
}

// Open mirrors discordgo: READY is dispatched before Open returns.
func (c *fakeClient) Open() error {
	if c.openErr != nil {
		return c.openErr
	}
	c.emit(&discordgo.Ready{User: &discordgo.User{Username: "trigger-bot"}})
	close(c.opened)
	return nil
}

func (c *fakeClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closes++
	if c.closes == 1 {
		close(c.closed)
	}
	return nil
}

func (c *fakeClient) activeHandlers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, h := range c.handlers {
		if h != nil {
			n++
		}
	}
	return n
}

func (c *fakeClient) emit(event interface{}) {
	c.mu.Lock()
	handlers := append([]interface{}(nil), c.handlers...)
	c.mu.Unlock()
	for _, h := range handlers {
		switch fn := h.(type) {
		case func(*discordgo.Session, *discordgo.Ready):
			if e, ok := event.(*discordgo.Ready); ok {
				fn(nil, e)
			}
		case func(*discordgo.Session, *discordgo.MessageCreate):
			if e, ok := event.(*discordgo.MessageCreate); ok {
				fn(nil, e)
			}
		case func(*discordgo.Session, *discordgo.Disconnect):
			if e, ok := event.(*discordgo.Disconnect); ok {
				fn(nil, e)
			}
		case func(*discordgo.Session, *discordgo.Connect):
			if e, ok := event.(*discordgo.Connect); ok {
				fn(nil, e)
			}
		}
	}
}

type fakeConnector struct {
	client *fakeClient
	err    error
	calls  int
	token  string
}

func (c *fakeConnector) Connect(token string) (discord.Client, error) {
	c.calls++
	c.token = token
	if c.err != nil {
		return nil, c.err
	}
	return c.client, nil
}

func message(id, channelID, authorID, username string, bot bool, content string, ms int64) *discordgo.MessageCreate {
	return &discordgo.MessageCreate{Message: &discordgo.Message{
		ID:        id,
		ChannelID: channelID,
		Content:   content,
		Timestamp: time.UnixMilli(ms),
		Author:    &discordgo.User{ID: authorID, Username: username, Bot: bot},
	}}
}

type runResult struct {
	record ResultRecord
	err    error
}

func runAsync(ctx context.Context, b *Bridge, cred credentials.BotCredential, cfg TriggerConfig) <-chan runResult {
	done := make(chan runResult, 1)
	go func() {
		record, err := b.Run(ctx, cred, cfg)
		done <- runResult{record: record, err: err}
	}()
	return done
}

func waitOpened(t *testing.T, c *fakeClient) {
	t.Helper()
	select {
	case <-c.opened:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for the session to open")
	}
}

func waitResult(t *testing.T, done <-chan runResult) runResult {
	t.Helper()
	select {
	case res := <-done:
		return res
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for the bridge to settle")
	}
	return runResult{}
}

var valid = credentials.BotCredential{Token: "valid"}

func TestBridge_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name    string
		cred    credentials.BotCredential
		channel string
		cause   error
	}{
		{name: "empty token", cred: credentials.BotCredential{}, channel: "123", cause: credentials.ErrNoToken},
		{name: "blank token", cred: credentials.BotCredential{Token: "   "}, channel: "123", cause: credentials.ErrNoToken},
		{name: "empty channel", cred: valid, channel: "", cause: ErrNoChannel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			connector := &fakeConnector{client: newFakeClient()}
			b := NewBridge(connector, zaptest.NewLogger(t).Sugar())

			_, err := b.Run(context.Background(), tt.cred, TriggerConfig{ChannelID: tt.channel})

			assert.ErrorIs(t, err, core.ErrConfiguration)
			assert.ErrorIs(t, err, tt.cause)
			var bridgeErr *Error
			require.True(t, errors.As(err, &bridgeErr))
			assert.Equal(t, KindConfiguration, bridgeErr.Kind)
			assert.Zero(t, connector.calls, "no connection attempt")
			assert.Equal(t, StateIdle, b.State())
		})
	}
}

func TestBridge_ResolvesFirstQualifyingMessage(t *testing.T) {
	client := newFakeClient()
	connector := &fakeConnector{client: client}
	b := NewBridge(connector, zaptest.NewLogger(t).Sugar())

	done := runAsync(context.Background(), b, valid, TriggerConfig{ChannelID: "123"})
	waitOpened(t, client)
	assert.Equal(t, StateListening, b.State())

	client.emit(message("m0", "456", "u0", "bob", false, "elsewhere", 500))
	client.emit(message("mb", "123", "b1", "robot", true, "beep", 800))
	client.emit(message("m1", "123", "u1", "alice", false, "hi", 1000))

	res := waitResult(t, done)
	require.NoError(t, res.err)
	assert.Equal(t, ResultRecord{
		MessageID:      "m1",
		Content:        "hi",
		AuthorID:       "u1",
		AuthorUsername: "alice",
		ChannelID:      "123",
		Timestamp:      1000,
	}, res.record)
	assert.Equal(t, "valid", connector.token)
	assert.Equal(t, StateResolved, b.State())
	assert.Equal(t, 1, client.closes, "session released on success")
	assert.Zero(t, client.activeHandlers())
}

func TestBridge_FirstMatchWins(t *testing.T) {
	client := newFakeClient()
	b := NewBridge(&fakeConnector{client: client}, zaptest.NewLogger(t).Sugar())

	done := runAsync(context.Background(), b, valid, TriggerConfig{ChannelID: "123"})
	waitOpened(t, client)

	first := message("m1", "123", "u1", "alice", false, "first", 1000)
	client.emit(first)
	client.emit(first)
	client.emit(message("m2", "123", "u2", "carol", false, "second", 2000))

	res := waitResult(t, done)
	require.NoError(t, res.err)
	assert.Equal(t, "m1", res.record.MessageID)
	assert.Equal(t, "first", res.record.Content)
}

func TestBridge_SuspendsUntilCancelled(t *testing.T) {
	client := newFakeClient()
	b := NewBridge(&fakeConnector{client: client}, zaptest.NewLogger(t).Sugar())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := runAsync(ctx, b, valid, TriggerConfig{ChannelID: "123"})
	waitOpened(t, client)

	client.emit(message("m0", "456", "u0", "bob", false, "elsewhere", 500))
	client.emit(message("mb", "123", "b1", "robot", true, "beep", 800))

	select {
	case res := <-done:
		t.Fatalf("resolved without a qualifying message: %+v", res)
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, StateListening, b.State())

	cancel()
	res := waitResult(t, done)
	assert.ErrorIs(t, res.err, context.Canceled)
	assert.NotErrorIs(t, res.err, core.ErrTimeout)
	assert.Equal(t, StateFailed, b.State())
	assert.Equal(t, 1, client.closes, "session released on cancellation")
	assert.Zero(t, client.activeHandlers())
}

func TestBridge_Timeout(t *testing.T) {
	client := newFakeClient()
	b := NewBridge(&fakeConnector{client: client}, zaptest.NewLogger(t).Sugar())

	done := runAsync(context.Background(), b, valid, TriggerConfig{ChannelID: "123", Timeout: 30 * time.Millisecond})
	waitOpened(t, client)
	client.emit(message("mb", "123", "b1", "robot", true, "beep", 800))

	res := waitResult(t, done)
	assert.ErrorIs(t, res.err, core.ErrTimeout)
	assert.ErrorIs(t, res.err, context.DeadlineExceeded)
	assert.Equal(t, 1, client.closes)
}

func TestBridge_LoginRejected(t *testing.T) {
	client := newFakeClient()
	client.openErr = errors.New("websocket: close 4004: Authentication failed.")
	b := NewBridge(&fakeConnector{client: client}, zaptest.NewLogger(t).Sugar())

	_, err := b.Run(context.Background(), valid, TriggerConfig{ChannelID: "123"})

	assert.ErrorIs(t, err, core.ErrAuthentication)
	assert.Contains(t, err.Error(), "Authentication failed.")
	assert.Equal(t, StateFailed, b.State())
	assert.Equal(t, 1, client.closes, "session released on login failure")
	assert.Zero(t, client.activeHandlers())
}

func TestBridge_WaitsThroughReconnect(t *testing.T) {
	client := newFakeClient()
	b := NewBridge(&fakeConnector{client: client}, zaptest.NewLogger(t).Sugar())
	b.ReconnectGrace = 50 * time.Millisecond

	done := runAsync(context.Background(), b, valid, TriggerConfig{ChannelID: "123"})
	waitOpened(t, client)
	client.emit(&discordgo.Disconnect{})
	client.emit(&discordgo.Connect{})

	select {
	case res := <-done:
		t.Fatalf("settled on a resumed gateway: %+v", res)
	case <-time.After(150 * time.Millisecond):
	}
	assert.Equal(t, StateListening, b.State())

	client.emit(message("m1", "123", "u1", "alice", false, "after resume", 1000))

	res := waitResult(t, done)
	require.NoError(t, res.err)
	assert.Equal(t, "after resume", res.record.Content)
	assert.Equal(t, 1, client.closes)
}

func TestBridge_RepeatedReconnects(t *testing.T) {
	client := newFakeClient()
	b := NewBridge(&fakeConnector{client: client}, zaptest.NewLogger(t).Sugar())
	b.ReconnectGrace = 80 * time.Millisecond

	done := runAsync(context.Background(), b, valid, TriggerConfig{ChannelID: "123"})
	waitOpened(t, client)
	for i := 0; i < 3; i++ {
		client.emit(&discordgo.Disconnect{})
		time.Sleep(20 * time.Millisecond)
		client.emit(&discordgo.Connect{})
	}
	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, StateListening, b.State())

	client.emit(message("m1", "123", "u1", "alice", false, "hi", 1000))
	require.NoError(t, waitResult(t, done).err)
}

func TestBridge_ConnectionLost(t *testing.T) {
	client := newFakeClient()
	b := NewBridge(&fakeConnector{client: client}, zaptest.NewLogger(t).Sugar())
	b.ReconnectGrace = 30 * time.Millisecond

	done := runAsync(context.Background(), b, valid, TriggerConfig{ChannelID: "123"})
	waitOpened(t, client)
	client.emit(&discordgo.Disconnect{})
	// a second drop while already waiting does not restart the window
	client.emit(&discordgo.Disconnect{})

	res := waitResult(t, done)
	assert.ErrorIs(t, res.err, core.ErrConnection)
	assert.ErrorIs(t, res.err, ErrGatewayClosed)
	assert.Equal(t, StateFailed, b.State())
	assert.Equal(t, 1, client.closes)
	assert.Zero(t, client.activeHandlers())

	// a late reconnect after the execution failed changes nothing
	client.emit(&discordgo.Connect{})
	client.emit(message("m1", "123", "u1", "alice", false, "too late", 1000))
	assert.Equal(t, StateFailed, b.State())
}

func TestBridge_DefaultReconnectGrace(t *testing.T) {
	b := NewBridge(&fakeConnector{}, nil)
	assert.Equal(t, discord.DefaultReconnectGrace, b.reconnectGrace())

	b.ReconnectGrace = time.Second
	assert.Equal(t, time.Second, b.reconnectGrace())
}

func TestBridge_DialFailure(t *testing.T) {
	b := NewBridge(&fakeConnector{err: errors.New("no route")}, zaptest.NewLogger(t).Sugar())

	_, err := b.Run(context.Background(), valid, TriggerConfig{ChannelID: "123"})

	assert.ErrorIs(t, err, core.ErrConnection)
	assert.Equal(t, StateFailed, b.State())
}

func TestBridge_CancelledBeforeDial(t *testing.T) {
	connector := &fakeConnector{client: newFakeClient()}
	b := NewBridge(connector, zaptest.NewLogger(t).Sugar())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.Run(ctx, valid, TriggerConfig{ChannelID: "123"})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, connector.calls)
}

func TestBridge_RunsOnce(t *testing.T) {
	b := NewBridge(&fakeConnector{err: errors.New("no route")}, zaptest.NewLogger(t).Sugar())
	_, _ = b.Run(context.Background(), valid, TriggerConfig{ChannelID: "123"})

	_, err := b.Run(context.Background(), valid, TriggerConfig{ChannelID: "123"})

	assert.ErrorIs(t, err, ErrBridgeUsed)
}

func TestResultRecord_Item(t *testing.T) {
	record := Project(message("m1", "123", "u1", "alice", false, "hi", 1000).Message)

	assert.Equal(t, core.Item{
		"messageId":      "m1",
		"content":        "hi",
		"authorId":       "u1",
		"authorUsername": "alice",
		"channelId":      "123",
		"timestamp":      int64(1000),
	}, record.Item())
}

func TestError(t *testing.T) {
	err := newError(KindAuthentication, errors.New("bad token"))

	assert.Equal(t, "AuthenticationError: bad token", err.Error())
	assert.ErrorIs(t, err, core.ErrAuthentication)
	assert.NotErrorIs(t, err, core.ErrConnection)
}
