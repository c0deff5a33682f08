package handlers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
	apiContext "qrgen/internal/api/context"
	"qrgen/internal/api/middleware"
	"qrgen/internal/engine/qr"
	"qrgen/internal/engine/workflow"
	"qrgen/internal/pkg/errors"
)

// maxInputBody caps PUT /api/v1/input bodies. The largest QR symbol holds
// under 3 KB, so anything near this size cannot be encoded anyway.
const maxInputBody = 64 << 10

// WorkflowHandler translates presentation events into workflow operations.
// Every mutating endpoint answers with the resulting state, so a client can
// render from the response alone.
type WorkflowHandler struct{}

func NewWorkflowHandler() *WorkflowHandler {
	return &WorkflowHandler{}
}

type imageResponse struct {
	DataURI   string `json:"data_uri"`
	Width     int    `json:"width"`
	CreatedAt int64  `json:"created_at"`
}

type stateResponse struct {
	Text        string         `json:"text"`
	State       workflow.State `json:"state"`
	Generating  bool           `json:"generating"`
	CanGenerate bool           `json:"can_generate"`
	CanDownload bool           `json:"can_download"`
	Image       *imageResponse `json:"image,omitempty"`
}

func newStateResponse(snap workflow.Snapshot) stateResponse {
	resp := stateResponse{
		Text:        snap.Text,
		State:       snap.State,
		Generating:  snap.State == workflow.InFlight,
		CanGenerate: snap.CanGenerate,
		CanDownload: snap.CanDownload,
	}
	if snap.Artifact != nil {
		resp.Image = &imageResponse{
			DataURI:   snap.Artifact.DataURI(),
			Width:     snap.Artifact.Width,
			CreatedAt: snap.Artifact.CreatedAt.Unix(),
		}
	}
	return resp
}

func writeState(w http.ResponseWriter, wf *workflow.Workflow) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(newStateResponse(wf.Snapshot()))
}

func workflowOrError(w http.ResponseWriter, r *http.Request) (*workflow.Workflow, bool) {
	wf, ok := middleware.WorkflowFrom(r.Context())
	if !ok {
		errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "No session", nil)
		return nil, false
	}
	return wf, true
}

func (h *WorkflowHandler) State(w http.ResponseWriter, r *http.Request) {
	wf, ok := workflowOrError(w, r)
	if !ok {
		return
	}
	writeState(w, wf)
}

func (h *WorkflowHandler) SetInput(w http.ResponseWriter, r *http.Request) {
	wf, ok := workflowOrError(w, r)
	if !ok {
		return
	}

	var req struct {
		Text *string `json:"text"`
	}
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxInputBody)).Decode(&req)
	var tooLarge *http.MaxBytesError
	if stderrors.As(err, &tooLarge) {
		errors.WriteError(w, http.StatusRequestEntityTooLarge, errors.ErrCodeInputTooLarge, "Input too large", map[string]interface{}{
			"max_bytes": tooLarge.Limit,
		})
		return
	}
	if err != nil || req.Text == nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	wf.SetInput(*req.Text)
	writeState(w, wf)
}

func (h *WorkflowHandler) LoadExample(w http.ResponseWriter, r *http.Request) {
	wf, ok := workflowOrError(w, r)
	if !ok {
		return
	}

	params, _ := r.Context().Value(apiContext.Params).(httprouter.Params)
	sample, found := workflow.ExampleByName(params.ByName("name"))
	if !found {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeUnknownExample, "Unknown example", map[string]interface{}{
			"available": workflow.ExampleNames(),
		})
		return
	}

	wf.LoadExample(sample)
	writeState(w, wf)
}

// Generate starts a generation and waits for it to settle. A blank input or a
// generation already in flight is not an error: the unchanged state is
// returned. Encoding failures are likewise silent.
func (h *WorkflowHandler) Generate(w http.ResponseWriter, r *http.Request) {
	wf, ok := workflowOrError(w, r)
	if !ok {
		return
	}

	if task := wf.RequestGeneration(r.Context()); task != nil {
		task.Wait(r.Context())
	}
	writeState(w, wf)
}

func (h *WorkflowHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	wf, ok := workflowOrError(w, r)
	if !ok {
		return
	}

	wf.Cancel()
	writeState(w, wf)
}

func (h *WorkflowHandler) Download(w http.ResponseWriter, r *http.Request) {
	h.serveArtifact(w, r, "attachment")
}

func (h *WorkflowHandler) Image(w http.ResponseWriter, r *http.Request) {
	h.serveArtifact(w, r, "inline")
}

func (h *WorkflowHandler) serveArtifact(w http.ResponseWriter, r *http.Request, disposition string) {
	wf, ok := workflowOrError(w, r)
	if !ok {
		return
	}

	saved, err := wf.RequestDownload(r.Context(), responseSaver{w: w, disposition: disposition})
	if err != nil {
		log.Error().Err(err).Str("workflow", wf.ID()).Msg("failed to write qr image")
		return
	}
	if !saved {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNoImage, "No QR code generated yet", nil)
	}
}

// responseSaver is the browser's file-save mechanism: the artifact is sent as
// the response body.
type responseSaver struct {
	w           http.ResponseWriter
	disposition string
}

func (s responseSaver) Save(ctx context.Context, artifact *qr.Artifact, filename string) error {
	h := s.w.Header()
	h.Set("Content-Type", qr.ContentType)
	h.Set("Content-Length", strconv.Itoa(len(artifact.PNG)))
	h.Set("Content-Disposition", fmt.Sprintf("%s; filename=%q", s.disposition, filename))
	h.Set("Cache-Control", "no-store")
	s.w.WriteHeader(http.StatusOK)

	_, err := s.w.Write(artifact.PNG)
	return err
}
