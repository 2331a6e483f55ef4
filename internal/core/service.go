package core

import (
	"context"
	"encoding/json"

	"github.com/mikey-austin/shoko_nav/internal/ports"
	"github.com/mikey-austin/shoko_nav/pkg/nav"
)

// Remote drives navigation nodes over the broker.
type Remote struct {
	Broker   ports.Broker
	Resolver Resolver
	Clock    ports.Clock
	IDGen    ports.IDGen
	Config   Config
}

// ListNodes returns the navigation nodes that announced presence.
func (s Remote) ListNodes(ctx context.Context) (NodesResult, error) {
	nodes, err := s.Broker.ListPresence(ctx)
	if err != nil {
		return NodesResult{}, WrapError(KindConnection, "list nodes", err)
	}
	return NodesResult{Nodes: filterPresenceByKind(nodes, NodeKind)}, nil
}

// Route asks a node to route path and returns its reply.
func (s Remote) Route(ctx context.Context, selector string, path string) (RouteResult, error) {
	node, err := s.Resolver.ResolveNode(ctx, selector)
	if err != nil {
		return RouteResult{}, err
	}
	cmd, err := nav.NewCommand(nav.CommandRoute, nav.RouteBody{Path: path})
	if err != nil {
		return RouteResult{}, WrapError(KindRuntime, "build command", err)
	}
	reply, err := s.publish(ctx, node.NodeID, cmd)
	if err != nil {
		return RouteResult{}, err
	}
	var body nav.RouteReply
	if err := json.Unmarshal(reply.Body, &body); err != nil {
		return RouteResult{}, WrapError(KindRuntime, "decode route reply", err)
	}
	return RouteResult{NodeID: node.NodeID, Path: path, Reply: body}, nil
}

// Preflight asks a node to check its catalog connection and login.
func (s Remote) Preflight(ctx context.Context, selector string) error {
	node, err := s.Resolver.ResolveNode(ctx, selector)
	if err != nil {
		return err
	}
	cmd := nav.CommandEnvelope{Type: nav.CommandPreflight}
	_, err = s.publish(ctx, node.NodeID, cmd)
	return err
}

func (s Remote) publish(ctx context.Context, nodeID string, cmd nav.CommandEnvelope) (nav.ReplyEnvelope, error) {
	cmd = s.decorateCommand(cmd)
	reply, err := s.Broker.PublishCommand(ctx, nodeID, cmd)
	if err != nil {
		return nav.ReplyEnvelope{}, WrapError(KindConnection, "publish command", err)
	}
	if reply.Err != nil {
		return reply, ErrorForReplyCode(reply.Err.Code, reply.Err.Message)
	}
	return reply, nil
}

func (s Remote) decorateCommand(cmd nav.CommandEnvelope) nav.CommandEnvelope {
	cmd.ID = s.IDGen.NewID()
	cmd.TS = s.Clock.NowUnix()
	cmd.From = s.Config.Identity
	cmd.ReplyTo = s.Broker.ReplyTopic()
	return cmd
}
