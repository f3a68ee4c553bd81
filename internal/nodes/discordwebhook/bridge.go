package discordwebhook

import (
	"context"
	"strings"
	"sync"
	"time"

	"discord-trigger/internal/core"
	"discord-trigger/internal/credentials"
	"discord-trigger/internal/services/discord"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var (
	ErrNoChannel     = errors.New("no channel id provided")
	ErrGatewayClosed = errors.New("discord gateway connection closed and did not come back")
	ErrBridgeUsed    = errors.New("bridge already ran, create one per execution")
)

// State lifecycle of one Bridge. Resolved and Failed are terminal.
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateListening
	StateResolved
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateListening:
		return "listening"
	case StateResolved:
		return "resolved"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports if no further transition can happen.
func (s State) Terminal() bool {
	return s == StateResolved || s == StateFailed
}

// ResultRecord what an execution outputs, projected from the first qualifying message.
type ResultRecord struct {
	MessageID      string `json:"messageId"`
	Content        string `json:"content"`
	AuthorID       string `json:"authorId"`
	AuthorUsername string `json:"authorUsername"`
	ChannelID      string `json:"channelId"`
	Timestamp      int64  `json:"timestamp"` // epoch milliseconds
}

// Project map a message to a ResultRecord. m must carry an author.
func Project(m *discordgo.Message) ResultRecord {
	return ResultRecord{
		MessageID:      m.ID,
		Content:        m.Content,
		AuthorID:       m.Author.ID,
		AuthorUsername: m.Author.Username,
		ChannelID:      m.ChannelID,
		Timestamp:      discord.MessageTimestamp(m),
	}
}

// Item the record as one output row.
func (r ResultRecord) Item() core.Item {
	return core.Item{
		"messageId":      r.MessageID,
		"content":        r.Content,
		"authorId":       r.AuthorID,
		"authorUsername": r.AuthorUsername,
		"channelId":      r.ChannelID,
		"timestamp":      r.Timestamp,
	}
}

// TriggerConfig what to listen for during one execution.
type TriggerConfig struct {
	ChannelID string
	Timeout   time.Duration // zero waits until the context ends
}

// Connector hands out gateway clients. *discord.Service is one.
type Connector interface {
	Connect(token string) (discord.Client, error)
}

type outcome struct {
	record ResultRecord
	err    error
}

// Bridge Turns the gateway event stream of one execution into a single ResultRecord.
// The first message passing both filters wins; everything after it is ignored.
// A Bridge runs once.
//
// Gateway drops are left to discordgo to resume. The execution only fails with a
// ConnectionError when the gateway is not back within ReconnectGrace.
type Bridge struct {
	ReconnectGrace time.Duration // zero means discord.DefaultReconnectGrace

	connector Connector
	logger    *zap.SugaredLogger

	mu          sync.Mutex
	state       State
	outcome     chan outcome // receives exactly one value, on the first terminal transition
	reconnect   *time.Timer  // running while the gateway is down
	disconnects int
}

// NewBridge a Bridge in StateIdle. A nil logger falls back to the global one.
func NewBridge(connector Connector, logger *zap.SugaredLogger) *Bridge {
	if logger == nil {
		logger = core.Logger.SugaredLogger
	}
	return &Bridge{
		connector: connector,
		logger:    logger,
		state:     StateIdle,
		outcome:   make(chan outcome, 1),
	}
}

// State current state, thread-safe.
func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Run connect with cred and block until a message in cfg.ChannelID from a non-bot author arrives,
// the connection fails, the deadline passes or ctx ends. The session is released before Run returns.
func (b *Bridge) Run(ctx context.Context, cred credentials.BotCredential, cfg TriggerConfig) (ResultRecord, error) {
	if !cred.Valid() {
		return ResultRecord{}, newError(KindConfiguration, credentials.ErrNoToken)
	}
	if strings.TrimSpace(cfg.ChannelID) == "" {
		return ResultRecord{}, newError(KindConfiguration, ErrNoChannel)
	}
	if !b.transition(StateIdle, StateConnecting) {
		return ResultRecord{}, ErrBridgeUsed
	}
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	if err := ctx.Err(); err != nil {
		b.settle(outcome{err: contextError(err)}, StateFailed)
		return b.result()
	}

	client, err := b.connector.Connect(cred.Token)
	if err != nil {
		b.settle(outcome{err: newError(KindConnection, errors.Wrap(err, "error creating Discord session"))}, StateFailed)
		return b.result()
	}
	removers := []func(){
		client.AddHandler(b.ready),
		client.AddHandler(b.messageCreate(cfg.ChannelID)),
		client.AddHandler(b.disconnect),
		client.AddHandler(b.connect),
	}
	defer b.teardown(client, removers)

	if err := client.Open(); err != nil {
		b.settle(outcome{err: newError(KindAuthentication, errors.Wrap(err, "discord login failed"))}, StateFailed)
		return b.result()
	}
	b.transition(StateConnecting, StateListening)
	b.logger.Debugf("Listening for messages in channel %s.", cfg.ChannelID)

	select {
	case o := <-b.outcome:
		return o.record, o.err
	case <-ctx.Done():
		// loses to an outcome settled concurrently, which result then returns
		b.settle(outcome{err: contextError(ctx.Err())}, StateFailed)
		return b.result()
	}
}

func (b *Bridge) result() (ResultRecord, error) {
	o := <-b.outcome
	return o.record, o.err
}

func (b *Bridge) transition(from, to State) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != from {
		return false
	}
	b.state = to
	b.logger.Debugf("Bridge %s -> %s", from, to)
	return true
}

// settle take the terminal transition, once. Later calls are ignored.
func (b *Bridge) settle(o outcome, to State) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.settleLocked(o, to)
}

func (b *Bridge) settleLocked(o outcome, to State) bool {
	if b.state.Terminal() {
		return false
	}
	b.logger.Debugf("Bridge %s -> %s", b.state, to)
	b.state = to
	b.outcome <- o
	return true
}

// teardown runs on Run's goroutine, never inside a handler: discordgo holds its handler lock while dispatching.
func (b *Bridge) teardown(client discord.Client, removers []func()) {
	for _, remove := range removers {
		remove()
	}
	b.mu.Lock()
	if b.reconnect != nil {
		b.reconnect.Stop()
		b.reconnect = nil
	}
	b.mu.Unlock()
	if err := client.Close(); err != nil {
		b.logger.Warnf("error closing Discord session: %v", err)
	}
	b.logger.Debugf("Discord session released in state %s.", b.State())
}

func (b *Bridge) ready(_ *discordgo.Session, r *discordgo.Ready) {
	b.transition(StateConnecting, StateListening)
	username := "unknown user"
	if r != nil && r.User != nil {
		username = r.User.Username
	}
	b.logger.Infof("Connected to Discord as %s.", username)
}

func (b *Bridge) messageCreate(channelID string) func(*discordgo.Session, *discordgo.MessageCreate) {
	return func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		if m == nil || discord.IsMessageFromBot(m.Message) {
			return
		}
		if m.ChannelID != channelID {
			return
		}
		record := Project(m.Message)
		if b.settle(outcome{record: record}, StateResolved) {
			b.logger.Infow("Message received.", "messageId", record.MessageID, "channelId", record.ChannelID)
		}
	}
}

// disconnect starts the reconnect window. discordgo emits Disconnect before every resume attempt.
func (b *Bridge) disconnect(_ *discordgo.Session, _ *discordgo.Disconnect) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state.Terminal() || b.reconnect != nil {
		return
	}
	grace := b.reconnectGrace()
	b.disconnects++
	attempt := b.disconnects
	b.reconnect = time.AfterFunc(grace, func() { b.reconnectExpired(attempt, grace) })
	b.logger.Warnf("Discord gateway closed, waiting up to %s for it to reconnect.", grace)
}

// connect ends the reconnect window, if one is open.
func (b *Bridge) connect(_ *discordgo.Session, _ *discordgo.Connect) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.reconnect == nil {
		return
	}
	b.reconnect.Stop()
	b.reconnect = nil
	b.logger.Infof("Discord gateway reconnected.")
}

func (b *Bridge) reconnectExpired(attempt int, grace time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	// a later Connect won the race against the timer
	if b.reconnect == nil || b.disconnects != attempt {
		return
	}
	b.reconnect = nil
	err := newError(KindConnection, errors.Wrapf(ErrGatewayClosed, "no reconnect within %s", grace))
	if b.settleLocked(outcome{err: err}, StateFailed) {
		b.logger.Warnf("Discord gateway did not reconnect within %s.", grace)
	}
}

func (b *Bridge) reconnectGrace() time.Duration {
	if b.ReconnectGrace > 0 {
		return b.ReconnectGrace
	}
	return discord.DefaultReconnectGrace
}

func contextError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return newError(KindTimeout, errors.Wrap(err, "no matching message before the deadline"))
	}
	return errors.Wrap(err, "execution cancelled")
}
