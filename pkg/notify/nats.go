package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"matchchat/pkg/logger"
)

// NATSNotifier publishes thread updates to NATS on
// <subjectPrefix>.<threadID>.
type NATSNotifier struct {
	nc            *nats.Conn
	subjectPrefix string
}

// ConnectNATS connects to a NATS server and returns a notifier publishing
// under subjectPrefix (default "chat.thread.updated").
func ConnectNATS(url, subjectPrefix string) (*NATSNotifier, error) {
	if subjectPrefix == "" {
		subjectPrefix = "chat.thread.updated"
	}
	nc, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Log.Warn("nats_disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Log.Info("nats_reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSNotifier{nc: nc, subjectPrefix: subjectPrefix}, nil
}

// ThreadUpdated publishes the update as JSON. Failures are returned for the
// caller to log; they do not affect the already committed message.
func (n *NATSNotifier) ThreadUpdated(_ context.Context, ev ThreadUpdate) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return n.nc.Publish(n.subjectPrefix+"."+ev.ThreadID, data)
}

// Close drains and closes the connection.
func (n *NATSNotifier) Close() {
	if n.nc != nil {
		_ = n.nc.Drain()
	}
}
