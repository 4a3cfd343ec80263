package server

import (
	"fmt"
	"io"
	"net/http"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"manifold/internal/core"
	"manifold/internal/core/family"
)

// chatRequest is the uniform inbound request shape. MaxTokens and
// Temperature are pointers so an absent field is distinguishable from a
// zero value and gets the documented default.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   *int          `json:"max_tokens"`
	Temperature *float64      `json:"temperature"`
	ImageURL    string        `json:"image_url"`
	Stream      bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Model  string `json:"model"`
	Output string `json:"output"`
}

type streamFrame struct {
	Delta string `json:"delta"`
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	body, _ := sonic.Marshal(map[string]any{"data": s.catalog.Models()})
	w.Write(body)
}

// handleChatCompletions formats the uniform request for the model's
// provider family, invokes the upstream through the transport handle, and
// decodes the result back to plain text.
func (s *Server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var req chatRequest
	if err := sonic.Unmarshal(body, &req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}

	// Unknown families never reach the adapter; the empty-result contract
	// is surfaced here as a client error instead.
	if family.Classify(req.Model) == family.Unknown {
		http.Error(w, fmt.Sprintf("%v: %q", core.ErrUnsupportedProvider, req.Model), http.StatusBadRequest)
		return
	}

	inv := &core.Invocation{
		ModelID: req.Model,
		Turns:   toTurns(req.Messages),
		Params:  toParams(req),
		Stream:  req.Stream,
	}

	ctx := core.NewRequestContext(r.Context(), s.log)
	if err := s.pipeline.RunRequest(ctx, inv); err != nil {
		http.Error(w, fmt.Sprintf("Pipeline error: %v", err), http.StatusInternalServerError)
		return
	}

	payload, err := s.adapter.Invoke(ctx, inv.ModelID, inv.Turns, inv.Params)
	if err != nil {
		http.Error(w, fmt.Sprintf("Format error: %v", err), http.StatusInternalServerError)
		return
	}

	if inv.Stream {
		s.streamCompletion(ctx, w, inv, payload)
		return
	}

	raw, err := s.transport.Invoke(ctx, inv.ModelID, payload)
	if err != nil {
		http.Error(w, fmt.Sprintf("Upstream error: %v", err), http.StatusBadGateway)
		return
	}

	output, err := s.adapter.Decode(inv.ModelID, raw)
	if err != nil {
		ctx.Log.Error("failed to decode upstream response", zap.Error(err))
		http.Error(w, fmt.Sprintf("Decode error: %v", err), http.StatusBadGateway)
		return
	}

	if err := s.pipeline.RunResponse(ctx, output); err != nil {
		ctx.Log.Warn("response pipeline error", zap.Error(err))
	}

	w.Header().Set("Content-Type", "application/json")
	resp, _ := sonic.Marshal(chatResponse{Model: inv.ModelID, Output: output})
	w.Write(resp)
}

// streamCompletion writes each text delta as an SSE data frame. Deltas are
// JSON-encoded so empty deltas survive the wire.
func (s *Server) streamCompletion(ctx *core.RequestContext, w http.ResponseWriter, inv *core.Invocation, payload []byte) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	events, err := s.transport.InvokeStream(ctx, inv.ModelID, payload)
	if err != nil {
		http.Error(w, fmt.Sprintf("Upstream error: %v", err), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for delta := range s.adapter.DecodeStream(ctx, inv.ModelID, events) {
		frame, _ := sonic.Marshal(streamFrame{Delta: delta})
		fmt.Fprintf(w, "data: %s\n\n", frame)
		flusher.Flush()
	}

	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()

	if err := s.pipeline.RunResponse(ctx, ""); err != nil {
		ctx.Log.Warn("response pipeline error", zap.Error(err))
	}
}

func toTurns(messages []chatMessage) []core.ChatTurn {
	turns := make([]core.ChatTurn, 0, len(messages))
	for _, m := range messages {
		turns = append(turns, core.ChatTurn{Role: core.Role(m.Role), Content: m.Content})
	}
	return turns
}

func toParams(req chatRequest) core.GenerationParams {
	params := core.DefaultParams()
	if req.MaxTokens != nil {
		params.MaxTokens = *req.MaxTokens
	}
	if req.Temperature != nil {
		params.Temperature = *req.Temperature
	}
	params.ImageURL = req.ImageURL
	return params
}
