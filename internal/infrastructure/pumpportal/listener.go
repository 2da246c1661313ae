package pumpportal

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/super-sh1z01d/ToTheMoon-sub001/internal/config"
)

// EventHandler consumes normalized feed events.
type EventHandler interface {
	HandleNewToken(ctx context.Context, event *Event) error
	HandleMigration(ctx context.Context, event *Event) error
}

// Listener maintains a subscription to the PumpPortal data feed and
// dispatches events to its handler. It reconnects forever with capped
// exponential backoff until the context is cancelled.
type Listener struct {
	cfg     config.FeedConfig
	handler EventHandler
	logger  *zap.Logger
}

// NewListener creates a feed listener
func NewListener(cfg config.FeedConfig, handler EventHandler, logger *zap.Logger) *Listener {
	return &Listener{
		cfg:     cfg,
		handler: handler,
		logger:  logger,
	}
}

// Run blocks until ctx is cancelled, reconnecting on any failure.
func (l *Listener) Run(ctx context.Context) error {
	delay := l.cfg.ReconnectDelay

	for {
		if err := l.runOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			l.logger.Warn("Feed connection lost, reconnecting",
				zap.Duration("delay", delay),
				zap.Error(err),
			)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if delay > l.cfg.MaxReconnectDelay {
			delay = l.cfg.MaxReconnectDelay
		}
	}
}

func (l *Listener) runOnce(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, l.cfg.WSURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	for _, method := range []string{"subscribeNewToken", "subscribeMigration"} {
		conn.SetWriteDeadline(time.Now().Add(l.cfg.WriteTimeout))
		if err := conn.WriteJSON(map[string]string{"method": method}); err != nil {
			return err
		}
	}

	l.logger.Info("Connected to token feed", zap.String("url", l.cfg.WSURL))

	// Close the socket when ctx ends so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	pinger := time.NewTicker(l.cfg.PingInterval)
	defer pinger.Stop()
	go func() {
		for {
			select {
			case <-pinger.C:
				conn.SetWriteDeadline(time.Now().Add(l.cfg.WriteTimeout))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	for {
		conn.SetReadDeadline(time.Now().Add(l.cfg.ReadTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		event, err := ParseEvent(data, time.Now().UTC())
		if err != nil {
			l.logger.Debug("Skipping feed message", zap.Error(err))
			continue
		}

		l.dispatch(ctx, event)
	}
}

func (l *Listener) dispatch(ctx context.Context, event *Event) {
	var err error
	switch event.Type {
	case EventCreate:
		err = l.handler.HandleNewToken(ctx, event)
	case EventMigrate:
		err = l.handler.HandleMigration(ctx, event)
	}
	if err != nil {
		l.logger.Error("Failed to handle feed event",
			zap.String("type", string(event.Type)),
			zap.String("token", event.TokenAddress),
			zap.Error(err),
		)
	}
}
