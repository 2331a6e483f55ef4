package core

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey-austin/shoko_nav/internal/ports"
	"github.com/mikey-austin/shoko_nav/pkg/nav"
)

// PlayState is a step of play resolution.
type PlayState int

const (
	PlayStart PlayState = iota
	PlayResolveFile
	PlayDispatch
	PlayDone
	PlayFailed
)

func (s PlayState) String() string {
	switch s {
	case PlayStart:
		return "start"
	case PlayResolveFile:
		return "resolve_file"
	case PlayDispatch:
		return "dispatch"
	case PlayDone:
		return "done"
	default:
		return "failed"
	}
}

// PlayResolver turns a play request into exactly one dispatched file.
type PlayResolver struct {
	Catalog  ports.Catalog
	Settings ports.Settings
	Prompter ports.Prompter
	Player   ports.Player
	Metrics  ports.Metrics
	Logger   *zap.Logger
}

// Play resolves the file for req and hands it to the player. It returns the
// request that was dispatched. On error nothing was dispatched.
func (p PlayResolver) Play(ctx context.Context, req nav.PlayRequest) (nav.PlayRequest, error) {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if req.Resume {
		req.MarkWatched = true
	}

	state := PlayStart
	var err error
	for state != PlayDone && state != PlayFailed {
		logger.Debug("play state",
			zap.Stringer("state", state),
			zap.Int("episode", req.EpisodeID),
			zap.Int("file", req.FileID),
		)
		switch state {
		case PlayStart:
			switch {
			case req.FileID != 0:
				state = PlayDispatch
			case req.EpisodeID != 0:
				state = PlayResolveFile
			default:
				err = &Error{Kind: KindPlayback, Msg: "nothing to play"}
				state = PlayFailed
			}
		case PlayResolveFile:
			req.FileID, err = p.resolveFile(ctx, req.EpisodeID)
			if err != nil {
				state = PlayFailed
			} else {
				state = PlayDispatch
			}
		case PlayDispatch:
			if p.Player == nil {
				err = &Error{Kind: KindPlayback, Msg: "no player configured"}
				state = PlayFailed
				break
			}
			if perr := p.Player.Play(ctx, req); perr != nil {
				err = WrapError(KindPlayback, "start playback", perr)
				state = PlayFailed
				break
			}
			if p.Metrics != nil {
				p.Metrics.PlayDispatched(req.Resume)
			}
			state = PlayDone
		}
	}
	if err != nil {
		logger.Warn("play failed", zap.Int("episode", req.EpisodeID), zap.Error(err))
		return nav.PlayRequest{}, err
	}
	logger.Info("playing",
		zap.Int("episode", req.EpisodeID),
		zap.Int("file", req.FileID),
		zap.Bool("mark", req.MarkWatched),
		zap.Bool("resume", req.Resume),
	)
	return req, nil
}

func (p PlayResolver) resolveFile(ctx context.Context, episodeID int) (int, error) {
	rec, err := p.Catalog.FetchEpisode(ctx, episodeID)
	if err != nil {
		kind := KindOf(err)
		if kind == KindRuntime {
			kind = KindPlayback
		}
		return 0, WrapError(kind, fmt.Sprintf("fetch episode %d", episodeID), err)
	}
	ep := episodeFromRecord(rec)

	files := make([]*File, 0, len(ep.Files))
	for _, f := range ep.Files {
		if f != nil && f.ID > 0 {
			files = append(files, f)
		}
	}
	if len(files) == 0 {
		return 0, &Error{Kind: KindPlayback, Msg: fmt.Sprintf("episode %d has no file", episodeID)}
	}
	if len(files) == 1 || !(settingsView{p.Settings}).Bool(SettingPickFile) {
		return files[0].ID, nil
	}
	if p.Prompter == nil {
		return 0, &Error{Kind: KindPlayback, Msg: "no prompt available to choose a file"}
	}

	choices := make([]ports.FileChoice, 0, len(files))
	for _, f := range files {
		label := f.Title()
		if f.Resolution != "" {
			label = fmt.Sprintf("%s [%s]", label, f.Resolution)
		}
		choices = append(choices, ports.FileChoice{ID: f.ID, Label: label})
	}
	id, ok, err := p.Prompter.ChooseFile(ctx, choices)
	if err != nil {
		return 0, WrapError(KindPlayback, "choose file", err)
	}
	if !ok {
		return 0, &Error{Kind: KindCancelled, Msg: "file choice cancelled"}
	}
	for _, f := range files {
		if f.ID == id {
			return id, nil
		}
	}
	return 0, &Error{Kind: KindPlayback, Msg: fmt.Sprintf("chosen file %d does not belong to episode %d", id, episodeID)}
}
