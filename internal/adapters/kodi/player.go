package kodi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/mikey-austin/shoko_nav/internal/core"
	"github.com/mikey-austin/shoko_nav/internal/ports"
	"github.com/mikey-austin/shoko_nav/pkg/nav"
)

// Source resolves what the player needs from the catalog server.
type Source interface {
	StreamURL(ctx context.Context, fileID int) (string, error)
	FetchEpisode(ctx context.Context, id int) (ports.EpisodeRecord, error)
	Scrobble(ctx context.Context, episodeID int, watched bool) error
}

// Player starts playback on Kodi over JSON-RPC.
type Player struct {
	endpoint string
	http     *http.Client
	username string
	password string
	source   Source
	logger   *zap.Logger
	nextID   atomic.Int64
}

var _ ports.Player = (*Player)(nil)

// New creates a Kodi player. baseURL may omit the scheme and /jsonrpc.
func New(baseURL string, username string, password string, timeout time.Duration, source Source, logger *zap.Logger) (*Player, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("kodi url required")
	}
	if source == nil {
		return nil, errors.New("kodi source required")
	}
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(parsed.Path, "/jsonrpc") {
		parsed.Path = path.Join(parsed.Path, "/jsonrpc")
	}
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Player{
		endpoint: parsed.String(),
		http:     &http.Client{Timeout: timeout},
		username: username,
		password: password,
		source:   source,
		logger:   logger,
	}, nil
}

// Play opens the file, seeks to the stored offset when resuming and
// marks the episode watched when asked.
func (p *Player) Play(ctx context.Context, req nav.PlayRequest) error {
	if req.FileID <= 0 {
		return &core.Error{Kind: core.KindPlayback, Msg: "no file to play"}
	}
	streamURL, err := p.source.StreamURL(ctx, req.FileID)
	if err != nil {
		return core.WrapError(core.KindPlayback, "resolve stream", err)
	}

	offset := 0
	if req.Resume && req.EpisodeID > 0 {
		ep, err := p.source.FetchEpisode(ctx, req.EpisodeID)
		if err != nil {
			p.logger.Warn("resume offset unavailable", zap.Int("episode", req.EpisodeID), zap.Error(err))
		} else {
			offset = ep.ResumeOffset
		}
	}

	if _, err := p.rpc(ctx, "Player.Open", map[string]any{
		"item": map[string]any{"file": streamURL},
	}); err != nil {
		return core.WrapError(core.KindPlayback, "open", err)
	}
	if offset > 0 {
		playerID, err := p.activePlayerID(ctx)
		if err != nil {
			return core.WrapError(core.KindPlayback, "resume", err)
		}
		if _, err := p.rpc(ctx, "Player.Seek", map[string]any{
			"playerid": playerID,
			"value":    toTimeObject(int64(offset) * 1000),
		}); err != nil {
			return core.WrapError(core.KindPlayback, "resume", err)
		}
	}

	if req.MarkWatched && req.EpisodeID > 0 {
		if err := p.source.Scrobble(ctx, req.EpisodeID, true); err != nil {
			p.logger.Warn("mark watched failed", zap.Int("episode", req.EpisodeID), zap.Error(err))
		}
	}
	p.logger.Info("playback started",
		zap.Int("episode", req.EpisodeID),
		zap.Int("file", req.FileID),
		zap.Int("offset", offset),
	)
	return nil
}

// Notify shows a notification in the Kodi GUI.
func (p *Player) Notify(ctx context.Context, msg nav.Message) error {
	params := map[string]any{
		"title":   msg.Title,
		"message": msg.Text,
	}
	if msg.Priority == "blocking" || msg.Priority == "highest" {
		params["image"] = "error"
	}
	_, err := p.rpc(ctx, "GUI.ShowNotification", params)
	return err
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type activePlayer struct {
	PlayerID int    `json:"playerid"`
	Type     string `json:"type"`
}

type timeObject struct {
	Hours        int `json:"hours"`
	Minutes      int `json:"minutes"`
	Seconds      int `json:"seconds"`
	Milliseconds int `json:"milliseconds"`
}

func (p *Player) rpc(ctx context.Context, method string, params any) (json.RawMessage, error) {
	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      p.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.username != "" || p.password != "" {
		httpReq.SetBasicAuth(p.username, p.password)
	}
	resp, err := p.http.Do(httpReq)
	if err != nil {
		return nil, core.WrapError(core.KindConnection, "kodi", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, &core.Error{Kind: core.KindAuth, Msg: "kodi rejected credentials"}
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("kodi error: %s", strings.TrimSpace(string(body)))
	}
	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, err
	}
	if rpcResp.Error != nil {
		return nil, fmt.Errorf("kodi error: %s", rpcResp.Error.Message)
	}
	return rpcResp.Result, nil
}

func (p *Player) activePlayerID(ctx context.Context) (int, error) {
	raw, err := p.rpc(ctx, "Player.GetActivePlayers", nil)
	if err != nil {
		return 0, err
	}
	var players []activePlayer
	if err := json.Unmarshal(raw, &players); err != nil {
		return 0, err
	}
	for _, pl := range players {
		if pl.Type == "video" {
			return pl.PlayerID, nil
		}
	}
	if len(players) == 0 {
		return 0, errors.New("no active player")
	}
	return players[0].PlayerID, nil
}

func toTimeObject(ms int64) timeObject {
	if ms < 0 {
		ms = 0
	}
	totalSeconds := ms / 1000
	return timeObject{
		Hours:        int(totalSeconds / 3600),
		Minutes:      int((totalSeconds % 3600) / 60),
		Seconds:      int(totalSeconds % 60),
		Milliseconds: int(ms % 1000),
	}
}
