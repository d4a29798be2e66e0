package messaging

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"bulldozer-service/internal/logger"
	"bulldozer-service/internal/types"
)

// Redis keys and channels. State lives in the "bulldozer" hash; commands
// arrive through the "bulldozer:command" list.
const (
	driveHash      = "bulldozer"
	driveChannel   = "bulldozer"
	commandList    = "bulldozer:command"
	commandTimeout = 5 * time.Second
)

// Callbacks are invoked for commands received from the command list.
type Callbacks struct {
	StopCallback  func() error // "stop": latch the emergency stop
	ResetCallback func() error // "reset": clear the emergency stop
}

type RedisClient struct {
	client    *redis.Client
	callbacks Callbacks
	logger    *logger.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

func NewRedisClient(host string, port int, l *logger.Logger) *RedisClient {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisClient{
		client: redis.NewClient(&redis.Options{
			Addr: fmt.Sprintf("%s:%d", host, port),
			DB:   0,
		}),
		logger: l.WithTag("redis"),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (r *RedisClient) SetCallbacks(callbacks Callbacks) {
	r.callbacks = callbacks
}

func (r *RedisClient) Connect() error {
	if err := r.client.Ping(r.ctx).Err(); err != nil {
		return fmt.Errorf("Redis connection failed: %w", err)
	}
	r.logger.Infof("Connected to Redis at %s", r.client.Options().Addr)
	return nil
}

// StartListening starts the command listener. Call after the system is
// initialized so commands never race startup.
func (r *RedisClient) StartListening() error {
	r.wg.Add(1)
	go r.commandListener()
	return nil
}

func (r *RedisClient) commandListener() {
	defer r.wg.Done()
	r.logger.Infof("Starting command listener on %s", commandList)

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Infof("Context cancelled, exiting command listener")
			return
		default:
			// BRPOP with a short timeout so context cancellation is
			// observed between reads.
			result, err := r.client.BRPop(r.ctx, commandTimeout, commandList).Result()
			if err != nil {
				if err == redis.Nil {
					continue
				}
				if r.ctx.Err() != nil {
					r.logger.Infof("Context cancelled, exiting command listener")
					return
				}
				r.logger.Warnf("Error reading from %s: %v", commandList, err)
				continue
			}
			if len(result) >= 2 { // BRPOP returns [key, value]
				if err := r.handleCommand(result[1]); err != nil {
					r.logger.Warnf("Error handling command: %v", err)
				}
			}
		}
	}
}

func (r *RedisClient) handleCommand(value string) error {
	r.logger.Debugf("Received command: %s", value)
	switch value {
	case "stop":
		if r.callbacks.StopCallback != nil {
			return r.callbacks.StopCallback()
		}
	case "reset":
		if r.callbacks.ResetCallback != nil {
			return r.callbacks.ResetCallback()
		}
	default:
		return fmt.Errorf("invalid command: %s", value)
	}
	return nil
}

// PublishDriveState stores the mode in the drive hash and notifies
// subscribers on the drive channel.
func (r *RedisClient) PublishDriveState(state types.DriveState) error {
	if err := r.client.HSet(r.ctx, driveHash, "state", string(state)).Err(); err != nil {
		return fmt.Errorf("failed to store drive state: %w", err)
	}
	return r.client.Publish(r.ctx, driveChannel, "state").Err()
}

// SetDriveValues stores the per-cycle drive telemetry.
func (r *RedisClient) SetDriveValues(steering, throttle, left, right float64) error {
	return r.client.HSet(r.ctx, driveHash,
		"steering", fmt.Sprintf("%.3f", steering),
		"throttle", fmt.Sprintf("%.3f", throttle),
		"speed:left", fmt.Sprintf("%.3f", left),
		"speed:right", fmt.Sprintf("%.3f", right),
	).Err()
}

func (r *RedisClient) SetControllerConnected(connected bool) error {
	if err := r.client.HSet(r.ctx, driveHash, "controller", fmt.Sprintf("%t", connected)).Err(); err != nil {
		return fmt.Errorf("failed to store controller state: %w", err)
	}
	return r.client.Publish(r.ctx, driveChannel, "controller").Err()
}

func (r *RedisClient) SetEmergencyStop(active bool) error {
	if err := r.client.HSet(r.ctx, driveHash, "emergency", fmt.Sprintf("%t", active)).Err(); err != nil {
		return fmt.Errorf("failed to store emergency state: %w", err)
	}
	return r.client.Publish(r.ctx, driveChannel, "emergency").Err()
}

func (r *RedisClient) Close() error {
	r.cancel()
	r.wg.Wait()
	return r.client.Close()
}
