// Package session runs the per-connection loop of a player at the table.
package session

import (
	"context"
	"errors"
	"time"

	gatewayDomain "github.com/frankieli/roulette_table/internal/modules/gateway/domain"
	"github.com/frankieli/roulette_table/internal/modules/gateway/usecase"
	"github.com/frankieli/roulette_table/internal/modules/roulette/domain"
	"github.com/frankieli/roulette_table/internal/modules/roulette/machine"
	"github.com/frankieli/roulette_table/pkg/logger"
)

// Reasons a session ends besides context cancellation.
var (
	ErrLeave          = errors.New("player left")
	ErrClosed         = errors.New("connection closed")
	ErrIdle           = errors.New("idle timeout")
	ErrLoginExhausted = errors.New("login attempts exhausted")
)

// Conn is the transport side of a session.
type Conn interface {
	domain.Channel
	Inbox() <-chan []byte
}

// Config bounds a session
type Config struct {
	MaxLoginAttempts int
	IdleTimeout      time.Duration
	WriteWait        time.Duration
}

// Session is one player's conversation with the table
type Session struct {
	conn  Conn
	gw    *usecase.GatewayUseCase
	coord *machine.Coordinator
	cfg   Config

	player *domain.Player
	idle   *time.Timer
	// round the player has bets in, if any
	betRound string
}

// New creates a session over conn
func New(conn Conn, gw *usecase.GatewayUseCase, cfg Config) *Session {
	if cfg.MaxLoginAttempts <= 0 {
		cfg.MaxLoginAttempts = 3
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 5 * time.Minute
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = 10 * time.Second
	}
	return &Session{
		conn:  conn,
		gw:    gw,
		coord: gw.Table().Coordinator(),
		cfg:   cfg,
	}
}

// Run drives the session until the player leaves, the connection drops,
// the session idles out or ctx is cancelled. The returned reason is for
// logging; the caller closes the connection.
func (s *Session) Run(ctx context.Context) error {
	s.idle = time.NewTimer(s.cfg.IdleTimeout)
	defer s.idle.Stop()

	if err := s.login(ctx); err != nil {
		return err
	}
	ctx = logger.WithPlayer(ctx, s.player.ID())
	defer s.gw.Table().Leave(ctx, s.player, s.conn)

	err := s.play(ctx)
	switch {
	case errors.Is(err, ErrLeave):
		logger.Info(ctx).Msg("player left the table")
	case errors.Is(err, ErrIdle):
		s.send(ctx, domain.Event{Type: domain.EventGoodbye, Message: "idle timeout"})
	}
	return err
}

// Player returns the logged-in player, or nil.
func (s *Session) Player() *domain.Player {
	return s.player
}

// login runs a bounded number of LOGIN/REGISTER attempts.
func (s *Session) login(ctx context.Context) error {
	for attempt := 1; attempt <= s.cfg.MaxLoginAttempts; attempt++ {
		if err := s.send(ctx, domain.Event{Type: domain.EventPrompt, Expect: gatewayDomain.ExpectLogin}); err != nil {
			return err
		}

		message, err := s.next(ctx)
		if err != nil {
			return err
		}

		player, reply := s.gw.Authenticate(ctx, message, s.conn)
		if err := s.send(ctx, reply); err != nil {
			if player != nil {
				s.gw.Table().Leave(ctx, player, s.conn)
			}
			return err
		}
		if player != nil {
			s.player = player
			return nil
		}
		if reply.Reason == domain.ReasonSessionActive {
			// the live session is untouched; only this connection goes
			return domain.ErrSessionActive
		}
		logger.Debug(ctx).Int("attempt", attempt).Str("reason", string(reply.Reason)).Msg("login attempt failed")
	}

	s.send(ctx, domain.Event{Type: domain.EventGoodbye, Message: "too many login attempts"})
	return ErrLoginExhausted
}

// play cycles through rounds: wait for the table to open, take bets until
// it closes, then wait for the result if the player bet.
func (s *Session) play(ctx context.Context) error {
	for {
		var view machine.RoundView
		err := s.serveUntil(ctx, func(ctx context.Context) error {
			var err error
			view, err = s.coord.AwaitOpen(ctx)
			return err
		})
		if err != nil {
			return err
		}

		if err := s.send(ctx, domain.Event{Type: domain.EventTableOpen, RoundID: view.RoundID}); err != nil {
			return err
		}
		if err := s.send(ctx, domain.Event{Type: domain.EventPrompt, RoundID: view.RoundID, Expect: gatewayDomain.ExpectBet}); err != nil {
			return err
		}

		err = s.serveUntil(ctx, func(ctx context.Context) error {
			return s.coord.AwaitClose(ctx, view.RoundID)
		})
		if errors.Is(err, domain.ErrUnknownRound) {
			// fell more than a round behind; resync on the next open table
			continue
		}
		if err != nil {
			return err
		}
		if err := s.send(ctx, domain.Event{Type: domain.EventTableClosed, RoundID: view.RoundID}); err != nil {
			return err
		}

		if s.betRound != view.RoundID {
			continue
		}
		err = s.serveUntil(ctx, func(ctx context.Context) error {
			_, err := s.coord.AwaitResult(ctx, view.RoundID)
			return err
		})
		if err != nil && !errors.Is(err, machine.ErrNoOutcome) && !errors.Is(err, domain.ErrUnknownRound) {
			return err
		}
		if err := s.send(ctx, domain.Event{Type: domain.EventBalance, RoundID: view.RoundID, Balance: domain.Amounts(s.player.Balance())}); err != nil {
			return err
		}
	}
}

// serveUntil handles client commands while wait blocks. It returns wait's
// result, or why the session must end first.
func (s *Session) serveUntil(ctx context.Context, wait func(ctx context.Context) error) error {
	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- wait(waitCtx) }()

	for {
		select {
		case err := <-done:
			return err

		case message, ok := <-s.conn.Inbox():
			if !ok {
				return ErrClosed
			}
			s.touch()
			if err := s.handle(ctx, message); err != nil {
				return err
			}

		case <-s.idle.C:
			return ErrIdle

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Session) handle(ctx context.Context, message []byte) error {
	out := s.gw.HandleMessage(ctx, s.player, message)
	for _, ev := range out.Events {
		if ev.Type == domain.EventBetAccepted {
			s.betRound = ev.RoundID
		}
		if err := s.send(ctx, ev); err != nil {
			return err
		}
	}
	if out.Leave {
		return ErrLeave
	}
	return nil
}

// next returns the next client frame.
func (s *Session) next(ctx context.Context) ([]byte, error) {
	select {
	case message, ok := <-s.conn.Inbox():
		if !ok {
			return nil, ErrClosed
		}
		s.touch()
		return message, nil
	case <-s.idle.C:
		return nil, ErrIdle
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Session) touch() {
	if !s.idle.Stop() {
		select {
		case <-s.idle.C:
		default:
		}
	}
	s.idle.Reset(s.cfg.IdleTimeout)
}

func (s *Session) send(ctx context.Context, ev domain.Event) error {
	sendCtx, cancel := context.WithTimeout(ctx, s.cfg.WriteWait)
	defer cancel()
	return s.conn.Send(sendCtx, ev)
}
