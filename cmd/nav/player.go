package main

import (
	"context"
	"fmt"
	"io"

	"github.com/mikey-austin/shoko_nav/pkg/nav"
)

type streamSource interface {
	StreamURL(ctx context.Context, fileID int) (string, error)
	Scrobble(ctx context.Context, episodeID int, watched bool) error
}

// streamPlayer prints the stream URL for an external player.
type streamPlayer struct {
	source streamSource
	out    io.Writer
}

func (p streamPlayer) Play(ctx context.Context, req nav.PlayRequest) error {
	url, err := p.source.StreamURL(ctx, req.FileID)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(p.out, url); err != nil {
		return err
	}
	if req.MarkWatched && req.EpisodeID != 0 {
		return p.source.Scrobble(ctx, req.EpisodeID, true)
	}
	return nil
}
