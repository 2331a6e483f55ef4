package core

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mikey-austin/shoko_nav/internal/ports"
	"github.com/mikey-austin/shoko_nav/pkg/nav"
)

// NodeKind is the presence kind announced by navigation nodes.
const NodeKind = "navigator"

// Resolver resolves selectors to navigation node presence.
type Resolver struct {
	Presence ports.Broker
	Config   Config
}

// ResolveNode resolves a node selector using config defaults.
func (r Resolver) ResolveNode(ctx context.Context, selector string) (nav.Presence, error) {
	if selector == "" {
		selector = r.Config.Defaults.Node
	}

	presence, err := r.Presence.ListPresence(ctx)
	if err != nil {
		return nav.Presence{}, WrapError(KindConnection, "list presence", err)
	}

	filtered := filterPresenceByKind(presence, NodeKind)
	if selector == "" {
		if len(filtered) == 1 {
			return filtered[0], nil
		}
		return nav.Presence{}, &Error{Kind: KindParam, Msg: "selector required"}
	}
	return resolveSelector(selector, filtered, r.Config.Aliases)
}

func filterPresenceByKind(presence []nav.Presence, kind string) []nav.Presence {
	out := make([]nav.Presence, 0, len(presence))
	for _, p := range presence {
		if p.Kind == kind {
			out = append(out, p)
		}
	}
	return out
}

func resolveSelector(selector string, presence []nav.Presence, aliases map[string]string) (nav.Presence, error) {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return nav.Presence{}, &Error{Kind: KindParam, Msg: "selector required"}
	}
	if alias, ok := aliases[selector]; ok {
		selector = alias
	}
	if strings.HasPrefix(selector, "nav:") {
		for _, p := range presence {
			if p.NodeID == selector {
				return p, nil
			}
		}
		return nav.Presence{}, &Error{Kind: KindNotFound, Msg: fmt.Sprintf("node not found: %s", selector)}
	}

	matches := make([]nav.Presence, 0)
	for _, p := range presence {
		if strings.EqualFold(p.Name, selector) || strings.EqualFold(p.NodeID, selector) {
			matches = append(matches, p)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return nav.Presence{}, &Error{Kind: KindNotFound, Msg: fmt.Sprintf("no match for %q", selector)}
	default:
		names := make([]string, 0, len(matches))
		for _, p := range matches {
			names = append(names, fmt.Sprintf("%s (%s)", p.Name, p.NodeID))
		}
		sort.Strings(names)
		return nav.Presence{}, &Error{Kind: KindParam, Msg: fmt.Sprintf("ambiguous selector %q: %s", selector, strings.Join(names, ", "))}
	}
}
