package handlers

import (
	_ "embed"
	"html/template"
	"net/http"

	"github.com/rs/zerolog/log"
)

//go:embed page.html
var pageSource string

var pageTemplate = template.Must(template.New("page").Parse(pageSource))

type exampleLink struct {
	Name  string
	Label string
}

var exampleLinks = []exampleLink{
	{Name: "hello", Label: "hello world"},
	{Name: "json", Label: "JSON"},
	{Name: "url", Label: "URL"},
}

// PageHandler renders the single-page presentation surface. The page is
// server-rendered from the current snapshot and then driven by the JSON API.
type PageHandler struct {
	filename string
}

func NewPageHandler(filename string) *PageHandler {
	return &PageHandler{filename: filename}
}

func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	wf, ok := workflowOrError(w, r)
	if !ok {
		return
	}

	snap := wf.Snapshot()
	data := struct {
		State    stateResponse
		ImageSrc template.URL
		Examples []exampleLink
		Filename string
	}{
		State:    newStateResponse(snap),
		Examples: exampleLinks,
		Filename: h.filename,
	}
	if snap.Artifact != nil {
		// data: URIs are rejected by html/template unless marked safe.
		data.ImageSrc = template.URL(snap.Artifact.DataURI())
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, data); err != nil {
		log.Error().Err(err).Msg("failed to render page")
	}
}
