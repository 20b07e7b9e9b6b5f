// Package mqtt bridges landmark frames published on an MQTT broker into
// active sessions. Capture devices publish to <prefix>/sessions/<id>/frames;
// the bridge routes each payload to the matching session's pipeline.
package mqtt

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/claude/rehabreps/internal/config"
	"github.com/claude/rehabreps/internal/models"
	"github.com/claude/rehabreps/internal/session"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// Bridge subscribes to the frame topic and feeds frames into the manager's
// sessions. Connection loss is handled by paho's auto-reconnect.
type Bridge struct {
	cfg     config.MQTTConfig
	manager *session.Manager
	log     *slog.Logger
	client  paho.Client
}

func New(cfg config.MQTTConfig, manager *session.Manager, log *slog.Logger) *Bridge {
	return &Bridge{cfg: cfg, manager: manager, log: log}
}

// Start connects to the broker and subscribes. Returns once the initial
// connection is up or the connect timeout elapses.
func (b *Bridge) Start() error {
	opts := paho.NewClientOptions()
	opts.AddBroker(b.cfg.BrokerURL)

	clientID := b.cfg.ClientID
	if clientID == "" {
		clientID = fmt.Sprintf("rehabreps-%d", time.Now().Unix())
	}
	opts.SetClientID(clientID)

	if b.cfg.Username != "" {
		opts.SetUsername(b.cfg.Username)
		opts.SetPassword(b.cfg.Password)
	}

	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = b.onConnect
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		b.log.Warn("mqtt connection lost", "error", err)
	}

	b.client = paho.NewClient(opts)

	b.log.Info("connecting to mqtt broker", "broker", b.cfg.BrokerURL, "client_id", clientID)

	token := b.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return fmt.Errorf("mqtt connect timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	return nil
}

// Stop disconnects from the broker, flushing in-flight messages.
func (b *Bridge) Stop() {
	if b.client != nil && b.client.IsConnected() {
		b.client.Disconnect(1000)
	}
}

func (b *Bridge) onConnect(client paho.Client) {
	topic := b.cfg.TopicPrefix + "/sessions/+/frames"
	token := client.Subscribe(topic, 0, b.onMessage)
	if !token.WaitTimeout(5 * time.Second) {
		b.log.Error("mqtt subscribe timeout", "topic", topic)
		return
	}
	if err := token.Error(); err != nil {
		b.log.Error("mqtt subscribe failed", "topic", topic, "error", err)
		return
	}
	b.log.Info("mqtt subscribed", "topic", topic)
}

func (b *Bridge) onMessage(_ paho.Client, msg paho.Message) {
	id, err := SessionIDFromTopic(b.cfg.TopicPrefix, msg.Topic())
	if err != nil {
		b.log.Warn("mqtt message on unexpected topic", "topic", msg.Topic(), "error", err)
		return
	}

	frames, err := DecodeFrames(msg.Payload())
	if err != nil {
		b.log.Warn("mqtt payload decode failed", "session_id", id, "error", err)
		return
	}

	sess, err := b.manager.Get(id)
	if err != nil {
		b.log.Warn("mqtt frames for unknown session", "session_id", id)
		return
	}

	for _, frame := range frames {
		if _, err := sess.ProcessFrame(frame); err != nil {
			b.log.Warn("mqtt frame rejected", "session_id", id, "error", err)
			return
		}
	}
}

// SessionIDFromTopic extracts the session UUID from a frame topic of the
// form <prefix>/sessions/<id>/frames.
func SessionIDFromTopic(prefix, topic string) (uuid.UUID, error) {
	rest, ok := strings.CutPrefix(topic, prefix+"/sessions/")
	if !ok {
		return uuid.UUID{}, fmt.Errorf("topic %q does not match prefix %q", topic, prefix)
	}
	idStr, ok := strings.CutSuffix(rest, "/frames")
	if !ok || strings.Contains(idStr, "/") {
		return uuid.UUID{}, fmt.Errorf("topic %q is not a frames topic", topic)
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("parsing session ID from topic: %w", err)
	}
	return id, nil
}

// DecodeFrames accepts either a single landmark sample object or an array
// of samples as the message payload.
func DecodeFrames(payload []byte) ([]models.LandmarkSample, error) {
	trimmed := strings.TrimSpace(string(payload))
	if strings.HasPrefix(trimmed, "[") {
		var frames []models.LandmarkSample
		if err := json.Unmarshal(payload, &frames); err != nil {
			return nil, fmt.Errorf("parsing frame array: %w", err)
		}
		return frames, nil
	}

	var frame models.LandmarkSample
	if err := json.Unmarshal(payload, &frame); err != nil {
		return nil, fmt.Errorf("parsing frame: %w", err)
	}
	return []models.LandmarkSample{frame}, nil
}
