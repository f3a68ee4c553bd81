package discord

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"discord-trigger/internal/core"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
)

// Client The part of *discordgo.Session a trigger execution drives.
type Client interface {
	AddHandler(handler interface{}) func()
	Open() error
	Close() error
}

// Dialer builds an unopened gateway client for token.
type Dialer func(token string, intents discordgo.Intent) (Client, error)

type ServiceConfig struct {
	Intents        discordgo.Intent // Intents defaults to MessageIntents
	Dialer         Dialer           // Dialer defaults to NewSession
	ReconnectGrace time.Duration    // ReconnectGrace defaults to DefaultReconnectGrace
}

// Service Hands out one gateway session per execution and closes whatever is still open on Stop.
type Service struct {
	ServiceConfig

	mu       sync.Mutex
	sessions map[*trackedClient]struct{}
	started  bool
}

// NewSession a discordgo session that delivers events in order, on one goroutine.
// Dropped connections and server requested reconnects are resumed by discordgo.
func NewSession(token string, intents discordgo.Intent) (Client, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, errors.Wrap(err, "error creating Discord session")
	}
	session.Identify.Intents = intents
	session.SyncEvents = true
	session.ShouldReconnectOnError = true
	session.StateEnabled = false
	session.LogLevel = discordgo.LogWarning
	return session, nil
}

func (s *Service) Name() string {
	return ServiceName
}

func (s *Service) Init(reg *core.ServiceRegistry) error {
	if s.Intents == 0 {
		s.Intents = MessageIntents
	}
	if s.Dialer == nil {
		s.Dialer = NewSession
	}
	if s.ReconnectGrace <= 0 {
		s.ReconnectGrace = DefaultReconnectGrace
	}
	s.sessions = make(map[*trackedClient]struct{})
	return reg.RegisterService(s)
}

func (s *Service) Start() error {
	discordgo.Logger = gatewayLog
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()
	core.Logger.Debugf("Service [%s] is now online.", reflect.TypeOf(s))
	return nil
}

func (s *Service) Stop() error {
	s.mu.Lock()
	open := make([]*trackedClient, 0, len(s.sessions))
	for c := range s.sessions {
		open = append(open, c)
	}
	s.started = false
	s.mu.Unlock()

	var failed error
	for _, c := range open {
		if err := c.Close(); err != nil {
			core.Logger.Warnf("error closing Discord session: %v", err)
			failed = err
		}
	}
	core.Logger.Debugf("Service [%s] is successfully closed, %d session(s) released.", reflect.TypeOf(s), len(open))
	return failed
}

func (s *Service) Status() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return fmt.Errorf("service %s is not started", ServiceName)
	}
	return nil
}

// Connect build a gateway client for token. The caller owns it and must Close it.
func (s *Service) Connect(token string) (Client, error) {
	client, err := s.Dialer(token, s.Intents)
	if err != nil {
		return nil, err
	}
	tracked := &trackedClient{Client: client, service: s}
	client.AddHandler(tracked.reconnected)
	s.mu.Lock()
	if s.sessions == nil {
		s.sessions = make(map[*trackedClient]struct{})
	}
	s.sessions[tracked] = struct{}{}
	s.mu.Unlock()
	return tracked, nil
}

// OpenSessions number of clients handed out and not closed yet.
func (s *Service) OpenSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Service) forget(c *trackedClient) {
	s.mu.Lock()
	delete(s.sessions, c)
	s.mu.Unlock()
}

// trackedClient closes its session once and unregisters it from the Service.
type trackedClient struct {
	Client
	service *Service
	once    sync.Once
	closed  atomic.Bool
	err     error
}

func (c *trackedClient) Close() error {
	c.once.Do(func() {
		c.closed.Store(true)
		c.err = c.Client.Close()
		c.service.forget(c)
	})
	return c.err
}

// reconnected closes sessions the discordgo retry loop brings back after they were released.
// Close runs on its own goroutine: Open still holds the session lock while it dispatches Connect.
func (c *trackedClient) reconnected(_ *discordgo.Session, _ *discordgo.Connect) {
	if !c.closed.Load() {
		return
	}
	core.Logger.Infof("Closing a released Discord session the gateway reconnected.")
	go func() {
		if err := c.Client.Close(); err != nil {
			core.Logger.Warnf("error closing Discord session: %v", err)
		}
	}()
}

// gatewayLog routes discordgo's own logging into the global logger.
func gatewayLog(msgL, _ int, format string, a ...interface{}) {
	switch msgL {
	case discordgo.LogError:
		core.Logger.Errorf("discordgo: "+format, a...)
	case discordgo.LogWarning:
		core.Logger.Warnf("discordgo: "+format, a...)
	case discordgo.LogInformational:
		core.Logger.Infof("discordgo: "+format, a...)
	default:
		core.Logger.Debugf("discordgo: "+format, a...)
	}
}
