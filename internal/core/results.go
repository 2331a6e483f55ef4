package core

import "github.com/mikey-austin/shoko_nav/pkg/nav"

// NodesResult holds a list of presence records.
type NodesResult struct {
	Nodes []nav.Presence
}

// RouteResult is a routed screen or playback, local or remote.
type RouteResult struct {
	NodeID string
	Path   string
	Reply  nav.RouteReply
}

// HistoryResult holds recent search terms.
type HistoryResult struct {
	Terms []string
}

// OutcomeResult converts a local router outcome into a result.
func OutcomeResult(path string, out Outcome) RouteResult {
	return RouteResult{
		Path: path,
		Reply: nav.RouteReply{
			Screen:   out.Screen,
			Played:   out.Played,
			Restart:  out.Restart,
			Script:   out.Script,
			Messages: out.Messages,
		},
	}
}
