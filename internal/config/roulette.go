package config

import (
	"time"

	"github.com/shopspring/decimal"
)

// RouletteConfig holds the table pacing and limits
type RouletteConfig struct {
	BettingDuration time.Duration
	GraceDuration   time.Duration
	ReadDuration    time.Duration
	NotifyTimeout   time.Duration

	MaxStake          decimal.Decimal
	MaxDeposit        decimal.Decimal
	MaxOpeningBalance decimal.Decimal

	WorkerPoolSize  int
	WorkerQueueSize int

	RosterSchedule string // cron with seconds
	HistoryStore   string // db, redis, memory
	HistoryMaxLen  int
	NodeID         int64
}

// LoadRouletteConfig loads configuration for the roulette table
func LoadRouletteConfig() *RouletteConfig {
	return &RouletteConfig{
		BettingDuration: getEnvDuration("ROUND_INTERVAL", 20*time.Second),
		GraceDuration:   getEnvDuration("ROUND_GRACE", 1*time.Second),
		ReadDuration:    getEnvDuration("ROUND_READ", 3*time.Second),
		NotifyTimeout:   getEnvDuration("NOTIFY_TIMEOUT", 2*time.Second),

		MaxStake:          getEnvDecimal("MAX_STAKE", decimal.NewFromInt(10000)),
		MaxDeposit:        getEnvDecimal("MAX_DEPOSIT", decimal.NewFromInt(100000)),
		MaxOpeningBalance: getEnvDecimal("MAX_OPENING_BALANCE", decimal.NewFromInt(100000)),

		WorkerPoolSize:  getEnvInt("WORKER_POOL_SIZE", 16),
		WorkerQueueSize: getEnvInt("WORKER_QUEUE_SIZE", 1024),

		RosterSchedule: getEnv("ROSTER_SCHEDULE", "*/30 * * * * *"),
		HistoryStore:   getEnv("HISTORY_STORE", "db"),
		HistoryMaxLen:  getEnvInt("HISTORY_MAX_LEN", 1000),
		NodeID:         int64(getEnvInt("NODE_ID", 1)),
	}
}
