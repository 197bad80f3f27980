package signal

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/zoomify/internal/core"
)

func (ctl *SessionWSController) handlePing(
	conn *wsSessionConn,
) {
	resp := struct {
		Type string `json:"type"`
	}{
		Type: "pong",
	}
	sendJSON(conn, resp)
}

func (ctl *SessionWSController) handleToggle(ctx context.Context, sid core.SessionID) {
	if err := ctl.Orch.Toggle(ctx, sid); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("toggle")
	}
}

// handlePhrase forwards a phrase from the browser's speech recognizer.
func (ctl *SessionWSController) handlePhrase(
	ctx context.Context,
	sid core.SessionID,
	conn *wsSessionConn,
	data []byte,
) {
	type phrasePayload struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	var p phrasePayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad phrase payload")
		sendJSON(conn, map[string]any{
			"type":  "error",
			"error": "bad_payload",
		})
		return
	}
	if _, _, err := ctl.Orch.Phrase(ctx, sid, p.Text); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("phrase")
	}
}
