package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/mikey-austin/shoko_nav/internal/ports"
	"github.com/mikey-austin/shoko_nav/pkg/nav"
)

// presenceWindow is how long ListPresence waits for retained presence to arrive.
const presenceWindow = 250 * time.Millisecond

// Options configures the MQTT client.
type Options struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string
	TLSCA     string
	TLSCert   string
	TLSKey    string
	TopicBase string
	Timeout   time.Duration
}

// conn is the part of paho.Client the nav front end drives.
type conn interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
	Unsubscribe(topics ...string) paho.Token
	Disconnect(quiesce uint)
}

// Client sends route commands to nav nodes and collects their replies.
type Client struct {
	conn       conn
	replyTopic string
	topicBase  string
	timeout    time.Duration
	pending    *pendingReplies
}

var _ ports.Broker = (*Client)(nil)

// NewClient connects to the broker and subscribes to this client's reply topic.
func NewClient(opts Options) (*Client, error) {
	opts = withDefaults(opts)
	c := newClient(opts)

	pahoOpts, err := clientOptions(opts)
	if err != nil {
		return nil, err
	}
	// Resubscribe after automatic reconnects.
	pahoOpts.SetOnConnectHandler(func(pc paho.Client) {
		pc.Subscribe(c.replyTopic, 1, c.handleReply).Wait()
	})

	pc := paho.NewClient(pahoOpts)
	if err := wait(pc.Connect()); err != nil {
		return nil, fmt.Errorf("connect %s: %w", opts.BrokerURL, err)
	}
	c.conn = pc
	if err := wait(pc.Subscribe(c.replyTopic, 1, c.handleReply)); err != nil {
		pc.Disconnect(250)
		return nil, fmt.Errorf("subscribe %s: %w", c.replyTopic, err)
	}
	return c, nil
}

func withDefaults(opts Options) Options {
	if opts.TopicBase == "" {
		opts.TopicBase = nav.BaseTopic
	}
	if opts.Timeout == 0 {
		opts.Timeout = 2 * time.Second
	}
	return opts
}

func newClient(opts Options) *Client {
	return &Client{
		replyTopic: nav.TopicReply(opts.TopicBase, opts.ClientID),
		topicBase:  opts.TopicBase,
		timeout:    opts.Timeout,
		pending:    newPendingReplies(),
	}
}

func clientOptions(opts Options) (*paho.ClientOptions, error) {
	o := paho.NewClientOptions().AddBroker(opts.BrokerURL)
	o.SetClientID(opts.ClientID)
	o.SetConnectTimeout(opts.Timeout)
	o.SetAutoReconnect(true)
	if opts.Username != "" {
		o.SetUsername(opts.Username)
		o.SetPassword(opts.Password)
	}
	tlsConfig, err := BuildTLSConfig(opts.TLSCA, opts.TLSCert, opts.TLSKey)
	if err != nil {
		return nil, err
	}
	if tlsConfig != nil {
		o.SetTLSConfig(tlsConfig)
	}
	return o, nil
}

func wait(token paho.Token) error {
	token.Wait()
	return token.Error()
}

// ReplyTopic returns the topic nodes answer on.
func (c *Client) ReplyTopic() string {
	return c.replyTopic
}

// PublishCommand sends cmd to nodeID and blocks until the matching reply,
// the client timeout or ctx cancellation, whichever comes first.
func (c *Client) PublishCommand(ctx context.Context, nodeID string, cmd nav.CommandEnvelope) (nav.ReplyEnvelope, error) {
	body, err := json.Marshal(cmd)
	if err != nil {
		return nav.ReplyEnvelope{}, fmt.Errorf("marshal command: %w", err)
	}

	replies := c.pending.register(cmd.ID)
	defer c.pending.drop(cmd.ID)

	if err := wait(c.conn.Publish(nav.TopicCommands(c.topicBase, nodeID), 1, false, body)); err != nil {
		return nav.ReplyEnvelope{}, fmt.Errorf("publish to %s: %w", nodeID, err)
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()
	select {
	case reply := <-replies:
		return reply, nil
	case <-ctx.Done():
		return nav.ReplyEnvelope{}, ctx.Err()
	case <-timer.C:
		return nav.ReplyEnvelope{}, fmt.Errorf("timeout waiting for reply from %s", nodeID)
	}
}

// ListPresence returns the retained presence of every node, sorted by node id.
func (c *Client) ListPresence(ctx context.Context) ([]nav.Presence, error) {
	seen := newPresenceSet()
	topic := nav.TopicPresence(c.topicBase, "+")
	if err := wait(c.conn.Subscribe(topic, 1, func(_ paho.Client, msg paho.Message) {
		seen.add(msg.Payload())
	})); err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}
	defer c.conn.Unsubscribe(topic).Wait()

	timer := time.NewTimer(presenceWindow)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
	return seen.list(), nil
}

// Close disconnects from the broker.
func (c *Client) Close() {
	c.conn.Disconnect(250)
}

func (c *Client) handleReply(_ paho.Client, msg paho.Message) {
	var reply nav.ReplyEnvelope
	if err := json.Unmarshal(msg.Payload(), &reply); err != nil {
		return
	}
	c.pending.resolve(reply)
}
