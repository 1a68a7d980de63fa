// Package milvus provides the vector-index backend for patent and claim
// embeddings. It wraps the Milvus SDK with connection supervision and maps
// cosine scores into the [0, 1] range the scoring engine works in.
package milvus

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"

	"github.com/claimscope/claimscope/internal/config"
	"github.com/claimscope/claimscope/internal/infrastructure/monitoring/logging"
	"github.com/claimscope/claimscope/pkg/errors"
)

const (
	connectTimeout      = 10 * time.Second
	healthCheckInterval = 30 * time.Second
	keepAliveTime       = 60 * time.Second
	keepAliveTimeout    = 20 * time.Second

	// Consecutive failed health checks before a reconnect attempt.
	reconnectThreshold = 3
)

var (
	ErrConnectionFailed = errors.New(errors.ErrCodeVectorIndexUnavailable, "milvus connection failed")
	ErrUnhealthy        = errors.New(errors.ErrCodeServiceUnavailable, "milvus cluster unhealthy")
)

// newSDKClient is swapped out in tests.
var newSDKClient = client.NewClient

// Client supervises a Milvus connection: it pings on a fixed interval and
// reconnects after repeated failures.
type Client struct {
	sdk     client.Client
	cfg     config.MilvusConfig
	logger  logging.Logger
	healthy atomic.Bool
	cancel  context.CancelFunc
	mu      sync.RWMutex
}

// NewClient connects to Milvus and starts the background health watcher.
func NewClient(ctx context.Context, cfg config.MilvusConfig, log logging.Logger) (*Client, error) {
	if cfg.Addr == "" {
		return nil, errors.New(errors.CodeInvalidParam, "milvus: addr is required")
	}
	if cfg.DBName == "" {
		cfg.DBName = "default"
	}

	sdk, err := connect(ctx, cfg)
	if err != nil {
		return nil, ErrConnectionFailed.WithCause(err)
	}

	watchCtx, cancel := context.WithCancel(context.Background())
	c := &Client{
		sdk:    sdk,
		cfg:    cfg,
		logger: log.Named("milvus"),
		cancel: cancel,
	}
	if err := c.CheckHealth(ctx); err != nil {
		c.Close()
		return nil, ErrConnectionFailed.WithCause(err)
	}
	go c.watch(watchCtx)

	c.logger.Info("milvus connected",
		logging.String("addr", cfg.Addr),
		logging.String("db", cfg.DBName))
	return c, nil
}

func connect(ctx context.Context, cfg config.MilvusConfig) (client.Client, error) {
	dialCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	return newSDKClient(dialCtx, client.Config{
		Address: cfg.Addr,
		DBName:  cfg.DBName,
		DialOptions: []grpc.DialOption{
			grpc.WithTransportCredentials(insecure.NewCredentials()),
			grpc.WithKeepaliveParams(keepalive.ClientParameters{
				Time:                keepAliveTime,
				Timeout:             keepAliveTimeout,
				PermitWithoutStream: true,
			}),
		},
	})
}

// CheckHealth pings the cluster and records the outcome.
func (c *Client) CheckHealth(ctx context.Context) error {
	c.mu.RLock()
	sdk := c.sdk
	c.mu.RUnlock()
	if sdk == nil {
		return ErrConnectionFailed
	}

	if _, err := sdk.CheckHealth(ctx); err != nil {
		c.healthy.Store(false)
		return ErrUnhealthy.WithCause(err)
	}
	c.healthy.Store(true)
	return nil
}

// IsHealthy reports the result of the most recent health check.
func (c *Client) IsHealthy() bool { return c.healthy.Load() }

func (c *Client) api() client.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sdk
}

// Close stops the health watcher and releases the connection.
func (c *Client) Close() error {
	c.cancel()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sdk != nil {
		c.sdk.Close()
		c.sdk = nil
	}
	return nil
}

func (c *Client) watch(ctx context.Context) {
	ticker := time.NewTicker(healthCheckInterval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.CheckHealth(ctx); err != nil {
				failures++
				c.logger.Warn("milvus health check failed",
					logging.Int("consecutive", failures), logging.Err(err))
			} else {
				failures = 0
				continue
			}

			if failures < reconnectThreshold {
				continue
			}
			if err := c.reconnect(ctx); err != nil {
				c.logger.Error("milvus reconnect failed", logging.Err(err))
			} else {
				c.logger.Info("milvus reconnected")
				failures = 0
			}
		}
	}
}

func (c *Client) reconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sdk != nil {
		c.sdk.Close()
		c.sdk = nil
	}
	sdk, err := connect(ctx, c.cfg)
	if err != nil {
		return err
	}
	c.sdk = sdk
	return nil
}
