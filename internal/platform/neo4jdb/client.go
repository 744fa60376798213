package neo4jdb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/sony/gobreaker"

	"github.com/yungbote/coursegraph-backend/internal/platform/envutil"
	"github.com/yungbote/coursegraph-backend/internal/platform/logger"
)

type Config struct {
	URI         string
	User        string
	Password    string
	Database    string
	Timeout     time.Duration
	MaxPoolSize int
	// MaxRetryTime caps the driver's own retries of transient transaction failures.
	MaxRetryTime time.Duration

	BreakerMinRequests uint32
	BreakerFailureRate float64
	BreakerOpenFor     time.Duration
}

func ConfigFromEnv() Config {
	return Config{
		URI:                envutil.String("NEO4J_URI", ""),
		User:               envutil.String("NEO4J_USER", "neo4j"),
		Password:           envutil.String("NEO4J_PASSWORD", ""),
		Database:           envutil.String("NEO4J_DATABASE", ""),
		Timeout:            envutil.Seconds("NEO4J_TIMEOUT_SECONDS", 10*time.Second),
		MaxPoolSize:        envutil.Int("NEO4J_MAX_POOL_SIZE", 50),
		MaxRetryTime:       envutil.Seconds("NEO4J_MAX_RETRY_SECONDS", 5*time.Second),
		BreakerMinRequests: uint32(envutil.Int("STORE_BREAKER_MIN_REQUESTS", 10)),
		BreakerFailureRate: float64(envutil.Int("STORE_BREAKER_FAILURE_PERCENT", 60)) / 100,
		BreakerOpenFor:     envutil.Seconds("STORE_BREAKER_OPEN_SECONDS", 30*time.Second),
	}
}

type Client struct {
	Driver   neo4j.DriverWithContext
	Database string
	log      *logger.Logger
	breaker  *gobreaker.CircuitBreaker
}

// NewFromEnv returns (nil, nil) when NEO4J_URI is unset.
func NewFromEnv(log *logger.Logger) (*Client, error) {
	return New(log, ConfigFromEnv())
}

func New(log *logger.Logger, cfg Config) (*Client, error) {
	if log == nil {
		return nil, fmt.Errorf("neo4jdb: logger required")
	}
	if strings.TrimSpace(cfg.URI) == "" {
		return nil, nil
	}

	auth := neo4j.BasicAuth(cfg.User, cfg.Password, "")
	driver, err := neo4j.NewDriverWithContext(cfg.URI, auth, func(c *neo4j.Config) {
		c.MaxConnectionPoolSize = cfg.MaxPoolSize
		c.SocketConnectTimeout = cfg.Timeout
		c.MaxTransactionRetryTime = cfg.MaxRetryTime
	})
	if err != nil {
		return nil, fmt.Errorf("neo4jdb: init driver: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4jdb: verify connectivity: %w", err)
	}

	clientLog := log.With("client", "Neo4jDB")
	return &Client{
		Driver:   driver,
		Database: cfg.Database,
		log:      clientLog,
		breaker:  newBreaker(clientLog, cfg),
	}, nil
}

func newBreaker(log *logger.Logger, cfg Config) *gobreaker.CircuitBreaker {
	minReq := cfg.BreakerMinRequests
	if minReq == 0 {
		minReq = 10
	}
	rate := cfg.BreakerFailureRate
	if rate <= 0 || rate > 1 {
		rate = 0.6
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "neo4j",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cfg.BreakerOpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minReq {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= rate
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
		// A caller giving up is not the store failing.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
}

// Ping checks the driver can reach the server. It bypasses the breaker.
func (c *Client) Ping(ctx context.Context) error {
	return c.Driver.VerifyConnectivity(ctx)
}

// Read runs one read transaction and collects every record.
func (c *Client) Read(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	if c == nil || c.Driver == nil {
		return nil, fmt.Errorf("neo4jdb: client not initialized")
	}
	out, err := c.guard(func() (any, error) {
		session := c.Driver.NewSession(ctx, neo4j.SessionConfig{
			AccessMode:   neo4j.AccessModeRead,
			DatabaseName: c.Database,
		})
		defer session.Close(ctx)

		return session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			res, err := tx.Run(ctx, cypher, params)
			if err != nil {
				return nil, err
			}
			return res.Collect(ctx)
		})
	})
	if err != nil {
		return nil, err
	}
	records, _ := out.([]*neo4j.Record)
	return records, nil
}

// Write runs fn inside one write transaction.
func (c *Client) Write(ctx context.Context, fn func(tx neo4j.ManagedTransaction) error) error {
	if c == nil || c.Driver == nil {
		return fmt.Errorf("neo4jdb: client not initialized")
	}
	_, err := c.guard(func() (any, error) {
		session := c.Driver.NewSession(ctx, neo4j.SessionConfig{
			AccessMode:   neo4j.AccessModeWrite,
			DatabaseName: c.Database,
		})
		defer session.Close(ctx)

		return session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			return nil, fn(tx)
		})
	})
	return err
}

// Exec runs a single auto-commit statement, used for schema setup.
func (c *Client) Exec(ctx context.Context, cypher string, params map[string]any) error {
	if c == nil || c.Driver == nil {
		return fmt.Errorf("neo4jdb: client not initialized")
	}
	session := c.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: c.Database,
	})
	defer session.Close(ctx)
	res, err := session.Run(ctx, cypher, params)
	if err != nil {
		return err
	}
	_, err = res.Consume(ctx)
	return err
}

func (c *Client) guard(fn func() (any, error)) (any, error) {
	if c.breaker == nil {
		return fn()
	}
	out, err := c.breaker.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("neo4jdb: %w", err)
	}
	return out, err
}

func (c *Client) Close(ctx context.Context) error {
	if c == nil || c.Driver == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	err := c.Driver.Close(ctx)
	c.Driver = nil
	return err
}
