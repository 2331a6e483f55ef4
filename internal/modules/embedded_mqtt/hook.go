package embeddedmqtt

import (
	"bytes"
	"strings"

	mqtt "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/packets"
	"go.uber.org/zap"

	"github.com/mikey-austin/shoko_nav/internal/metrics"
)

// nodeHook logs broker sessions and counts nav traffic by topic kind.
type nodeHook struct {
	mqtt.HookBase
	log       *zap.Logger
	topicBase string
}

func newNodeHook(log *zap.Logger, topicBase string) *nodeHook {
	return &nodeHook{log: log, topicBase: topicBase}
}

func (h *nodeHook) ID() string { return "nav-nodes" }

func (h *nodeHook) Provides(b byte) bool {
	return bytes.Contains([]byte{mqtt.OnSessionEstablished, mqtt.OnDisconnect, mqtt.OnPublished}, []byte{b})
}

func (h *nodeHook) OnSessionEstablished(cl *mqtt.Client, _ packets.Packet) {
	metrics.BrokerClients.Inc()
	h.log.Debug("mqtt client connected", zap.String("client", cl.ID), zap.String("remote", cl.Net.Remote))
}

func (h *nodeHook) OnDisconnect(cl *mqtt.Client, err error, expire bool) {
	metrics.BrokerClients.Dec()
	fields := []zap.Field{zap.String("client", cl.ID), zap.Bool("expire", expire)}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	h.log.Debug("mqtt client disconnected", fields...)
}

func (h *nodeHook) OnPublished(_ *mqtt.Client, pk packets.Packet) {
	metrics.BrokerMessagesTotal.WithLabelValues(h.topicKind(pk.TopicName)).Inc()
}

// topicKind classifies a topic under the nav base as presence, cmd or reply.
func (h *nodeHook) topicKind(topic string) string {
	rest, ok := strings.CutPrefix(topic, h.topicBase+"/")
	if !ok {
		return "other"
	}
	parts := strings.Split(rest, "/")
	switch {
	case len(parts) == 3 && parts[0] == "node" && (parts[2] == "presence" || parts[2] == "cmd"):
		return parts[2]
	case len(parts) == 2 && parts[0] == "reply":
		return "reply"
	default:
		return "other"
	}
}
