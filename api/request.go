package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"plaid.dev/conllu/conllu"
	"plaid.dev/conllu/pipeline"
)

const maxBodySize = 64 << 20

type Request struct {
	Pipeline pipeline.Pipeline
}

// Routes registers the conversion endpoints on mux.
func (req *Request) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/import", req.Import)
	mux.HandleFunc("/export", req.Export)
	mux.HandleFunc("/health", Health)
}

func (req *Request) Import(w http.ResponseWriter, r *http.Request) {
	req.convert(w, r, pipeline.Import)
}

func (req *Request) Export(w http.ResponseWriter, r *http.Request) {
	req.convert(w, r, pipeline.Export)
}

func Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "", http.StatusMethodNotAllowed)
		return
	}
	_, _ = w.Write([]byte("ok"))
}

func (req *Request) convert(w http.ResponseWriter, r *http.Request, direction pipeline.Direction) {
	logger := makeRequestLogger(r)

	if r.Method != http.MethodPost {
		logger.Err(nil).Int("status", http.StatusMethodNotAllowed).Msg("Only 'POST' method is allowed here")
		http.Error(w, "", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		logger.Err(err).Int("status", http.StatusBadRequest).Msg("Could not read request body")
		http.Error(w, "", http.StatusBadRequest)
		return
	}

	request := pipeline.Request{
		Tid:       r.URL.Query().Get("tid"),
		Direction: direction,
		Profile:   r.URL.Query().Get("profile"),
		Body:      body,
	}
	if request.Tid == "" {
		request.Tid = "api_" + string(direction)
	}
	logger.Info().Str("tid", request.Tid).Msg("Starting pipeline for request from API")
	resp := <-req.Pipeline(request)
	if resp.Err != nil {
		status := statusFor(resp.Err)
		logger.Err(resp.Err).Int("status", status).Msg("Conversion failed")
		http.Error(w, fmt.Sprintf("%s failed: %s", directionTitle(direction), resp.Err), status)
		return
	}

	w.Header().Set("Content-Type", resp.ContentType)
	_, _ = w.Write(resp.Body)
	logger.Info().Int("status", http.StatusOK).Msg("Finished processing request")
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, conllu.ErrFormat):
		return http.StatusUnprocessableEntity
	case errors.Is(err, pipeline.ErrPayload), errors.Is(err, pipeline.ErrUnknownProfile):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func directionTitle(direction pipeline.Direction) string {
	if direction == pipeline.Import {
		return "Import"
	}
	return "Export"
}
