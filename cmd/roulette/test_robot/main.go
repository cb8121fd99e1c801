package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	gatewayDomain "github.com/frankieli/roulette_table/internal/modules/gateway/domain"
	"github.com/frankieli/roulette_table/internal/modules/roulette/domain"
	"github.com/frankieli/roulette_table/pkg/logger"
)

// Config holds the robot configuration
type Config struct {
	Host      string
	UserCount int
	Balance   int64
	BetMin    int
	BetMax    int
	BetWindow time.Duration
}

// Robot represents a simulated player
type Robot struct {
	ID       int
	PlayerID string
	cfg      Config
	Conn     *websocket.Conn
	writeMu  sync.Mutex
	ctx      context.Context
}

func main() {
	host := flag.String("host", "localhost:8081", "Server host address")
	users := flag.Int("users", 100, "Number of concurrent players")
	balance := flag.Int64("balance", 1000, "Opening balance of each player")
	window := flag.Duration("bet-window", 5*time.Second, "Spread bets over this long after TABLE_OPEN")
	flag.Parse()

	config := Config{
		Host:      *host,
		UserCount: *users,
		Balance:   *balance,
		BetMin:    1,
		BetMax:    10,
		BetWindow: *window,
	}

	logger.Init(logger.Config{
		Level:  "info",
		Format: "console",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info(ctx).
		Int("users", config.UserCount).
		Str("host", config.Host).
		Msg("🤖 Starting Test Robot")

	var wg sync.WaitGroup
	wg.Add(config.UserCount)

	runID := time.Now().Unix()
	for i := 0; i < config.UserCount; i++ {
		time.Sleep(20 * time.Millisecond)
		go func(id int) {
			defer wg.Done()
			robot := NewRobot(ctx, id, fmt.Sprintf("robot_%d_%d", runID, id), config)
			if err := robot.Run(); err != nil {
				logger.Error(ctx).Int("robot_id", id).Err(err).Msg("Robot failed")
			}
		}(i + 1)
	}

	<-ctx.Done()
	logger.Info(ctx).Msg("🛑 Stopping robots...")
	wg.Wait()
}

func NewRobot(ctx context.Context, id int, playerID string, cfg Config) *Robot {
	return &Robot{
		ID:       id,
		PlayerID: playerID,
		cfg:      cfg,
		ctx:      logger.WithPlayer(ctx, playerID),
	}
}

func (r *Robot) Run() error {
	u := url.URL{Scheme: "ws", Host: r.cfg.Host, Path: "/ws"}
	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("websocket connect failed: %w", err)
	}
	r.Conn = c
	defer r.Conn.Close()

	go func() {
		<-r.ctx.Done()
		r.send(gatewayDomain.CmdLeave, nil)
	}()

	return r.ListenLoop()
}

func (r *Robot) send(cmd gatewayDomain.Command, payload interface{}) {
	msg, err := gatewayDomain.EncodeCommand(cmd, payload)
	if err != nil {
		logger.Error(r.ctx).Err(err).Msg("Failed to encode command")
		return
	}
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	if err := r.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		logger.Warn(r.ctx).Err(err).Str("command", string(cmd)).Msg("Failed to send command")
	}
}

func (r *Robot) ListenLoop() error {
	registered := false

	for {
		_, message, err := r.Conn.ReadMessage()
		if err != nil {
			if r.ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read error: %w", err)
		}

		var env gatewayDomain.Envelope
		if err := json.Unmarshal(message, &env); err != nil {
			logger.Warn(r.ctx).Err(err).Msg("Failed to parse message")
			continue
		}
		var event domain.Event
		if len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, &event); err != nil {
				logger.Warn(r.ctx).Err(err).Str("command", env.Command).Msg("Failed to parse event data")
				continue
			}
		}

		switch domain.EventType(env.Command) {
		case domain.EventPrompt:
			if event.Expect != gatewayDomain.ExpectLogin {
				continue
			}
			if !registered {
				registered = true
				r.send(gatewayDomain.CmdRegister, gatewayDomain.RegisterPayload{
					ID:      r.PlayerID,
					Balance: decimal.NewFromInt(r.cfg.Balance),
				})
			} else {
				r.send(gatewayDomain.CmdLogin, gatewayDomain.LoginPayload{ID: r.PlayerID})
			}
		case domain.EventLoginOK:
			logger.Info(r.ctx).Int("robot_id", r.ID).Msg("Robot logged in")
		case domain.EventLoginFailed:
			logger.Warn(r.ctx).Str("reason", string(event.Reason)).Msg("Login failed")
		case domain.EventTableOpen:
			go r.PlaceBet(event.RoundID)
		case domain.EventBetRejected:
			logger.Info(r.ctx).Str("reason", string(event.Reason)).Msg("Bet rejected")
			if event.Reason == domain.ReasonInsufficientFunds {
				r.send(gatewayDomain.CmdAddFunds, gatewayDomain.FundsPayload{Amount: decimal.NewFromInt(r.cfg.Balance)})
			}
		case domain.EventResult:
			if event.Pocket != nil {
				logger.Info(r.ctx).Str("round_id", event.RoundID).Str("pocket", event.Pocket.String()).Msg("Saw result")
			}
		case domain.EventPayout:
			logger.Info(r.ctx).Str("round_id", event.RoundID).Str("amount", amountOf(event.Amount)).Str("balance", amountOf(event.Balance)).Msg("Received payout")
		case domain.EventGoodbye:
			logger.Info(r.ctx).Str("message", event.Message).Msg("Server said goodbye")
			return nil
		}
	}
}

func (r *Robot) PlaceBet(roundID string) {
	// Random delay to simulate human behavior
	if r.cfg.BetWindow > 0 {
		time.Sleep(time.Duration(rand.Int63n(int64(r.cfg.BetWindow))))
	}

	kind, target := randomTarget()
	stake := decimal.NewFromInt(int64(r.cfg.BetMin + rand.Intn(r.cfg.BetMax-r.cfg.BetMin+1)))

	r.send(gatewayDomain.CmdBet, gatewayDomain.BetPayload{Kind: string(kind), Value: target, Stake: stake})

	logger.Info(r.ctx).
		Int("robot_id", r.ID).
		Str("kind", string(kind)).
		Str("target", target).
		Str("stake", stake.String()).
		Str("round_id", roundID).
		Msg("Placed bet")
}

func randomTarget() (domain.BetKind, string) {
	switch rand.Intn(4) {
	case 0:
		return domain.BetNumber, strconv.Itoa(rand.Intn(domain.MaxPocket + 1))
	case 1:
		colors := []domain.Color{domain.ColorRed, domain.ColorBlack}
		return domain.BetColor, string(colors[rand.Intn(len(colors))])
	case 2:
		parities := []string{domain.ParityEven, domain.ParityOdd}
		return domain.BetParity, parities[rand.Intn(len(parities))]
	default:
		return domain.BetDozen, strconv.Itoa(rand.Intn(3) + 1)
	}
}

func amountOf(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.String()
}
