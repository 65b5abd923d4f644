package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"appforge/internal/gateway/run"
	"appforge/internal/generator"
)

type generateRequest struct {
	Prompt *string `json:"prompt"`
}

// checkPrompt returns a user-facing message when the request cannot start a run.
func (h *Handler) checkPrompt(req generateRequest) (int, string) {
	if req.Prompt == nil {
		return http.StatusBadRequest, msgInvalidRequest
	}
	if err := generator.ValidatePrompt(*req.Prompt); err != nil {
		var ve *generator.ValidationError
		if errors.As(err, &ve) {
			return http.StatusBadRequest, ve.Message
		}
		return http.StatusBadRequest, msgInvalidRequest
	}
	if !h.configured() {
		return http.StatusInternalServerError, msgNotConfigured
	}
	return 0, ""
}

// Generate streams one run as server-sent events. The run outlives the
// request so a client that disconnects still gets a completed record.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidRequest)
		return
	}
	if status, msg := h.checkPrompt(req); status != 0 {
		writeError(w, status, msg)
		return
	}

	log := h.logger(r)
	log.Info().Int("prompt_chars", len([]rune(*req.Prompt))).Msg("generation requested")
	ctx := log.WithContext(context.WithoutCancel(r.Context()))
	_, _ = h.streamer.Serve(ctx, *req.Prompt, run.NewSSEWriter(w))
}

const wsPromptWait = 30 * time.Second

var generateWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// GenerateWS runs a generation over a websocket. The first client message
// carries {"prompt": "..."}; every frame is one text message.
func (h *Handler) GenerateWS(w http.ResponseWriter, r *http.Request) {
	conn, err := generateWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	log := h.logger(r)
	_ = conn.SetReadDeadline(time.Now().Add(wsPromptWait))
	var req generateRequest
	readErr := conn.ReadJSON(&req)

	out := run.NewWSWriter(conn)
	defer func() { _ = out.Close() }()

	if readErr != nil {
		_ = out.WriteFrame(run.Frame{Type: run.FrameError, Message: msgInvalidRequest})
		return
	}
	if status, msg := h.checkPrompt(req); status != 0 {
		_ = out.WriteFrame(run.Frame{Type: run.FrameError, Message: msg})
		return
	}

	// Drain inbound messages so pongs and close frames are processed.
	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	log.Info().Int("prompt_chars", len([]rune(*req.Prompt))).Msg("generation requested over websocket")
	ctx := log.WithContext(context.WithoutCancel(r.Context()))
	_, _ = h.streamer.Serve(ctx, *req.Prompt, out)
}
