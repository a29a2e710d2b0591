package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"plaid.dev/conllu/conllu"
	"plaid.dev/conllu/logger"
	"plaid.dev/conllu/types"
	"plaid.dev/conllu/utils"
)

// Pipeline runs a conversion asynchronously. The channel delivers exactly one
// Response and is then closed.
type Pipeline func(Request) <-chan Response

// ImportResult is the body of a successful import.
type ImportResult struct {
	Text      string                `json:"text"`
	Sentences [][]types.Offsets     `json:"sentences"`
	Document  types.DocumentPayload `json:"document"`
}

// Profiles indexes configurations by the hash of their lowercased name. The
// default profile is always present.
type Profiles map[uint64]types.Configuration

func NewProfiles(cfgs []types.Configuration) Profiles {
	profiles := Profiles{types.ProfileHash(types.DefaultProfile): types.DefaultConfiguration()}
	for _, cfg := range cfgs {
		profiles[cfg.GetHashCode()] = cfg.WithDefaults()
	}
	return profiles
}

func (p Profiles) Lookup(name string) (types.Configuration, error) {
	cfg, ok := p[types.ProfileHash(name)]
	if !ok {
		return types.Configuration{}, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
	return cfg, nil
}

func New(cfgs []types.Configuration) Pipeline {
	pplnLogger := logger.NewLogger("Conversion pipeline")
	profiles := NewProfiles(cfgs)
	pplnLogger.Info().Int("profiles", len(profiles)).Msg("Conversion pipeline ready")

	return func(request Request) <-chan Response {
		responseChan := make(chan Response, 1)
		reqLogger := pplnLogger.With().
			Str("tid", request.Tid).
			Str("direction", string(request.Direction)).
			Str("profile", request.Profile).
			Logger()

		go func() {
			defer close(responseChan)
			reqLogger.Info().Msg("Started conversion")
			response := run(request, profiles, reqLogger)
			if response.Err != nil {
				reqLogger.Err(response.Err).Msg("Conversion failed")
			} else {
				reqLogger.Info().Int("bytes", len(response.Body)).Msg("Finished conversion")
			}
			responseChan <- response
		}()
		return responseChan
	}
}

func run(request Request, profiles Profiles, log zerolog.Logger) (response Response) {
	defer utils.RecoverWithError(&response.Err)

	cfg, err := profiles.Lookup(request.Profile)
	if err != nil {
		return Response{Err: err}
	}
	switch request.Direction {
	case Import:
		return importDocument(request, cfg)
	case Export:
		return exportDocument(request, cfg, log)
	default:
		return Response{Err: fmt.Errorf("%w: %q", ErrUnknownDirection, request.Direction)}
	}
}

func importDocument(request Request, cfg types.Configuration) Response {
	parsed, err := conllu.Parse(bytes.NewReader(request.Body))
	if err != nil {
		return Response{Err: err}
	}
	doc, err := conllu.BuildDocument(parsed, conllu.BuildOptions{
		ID:                request.Tid,
		SentenceSeparator: cfg.SentenceSeparator,
	})
	if err != nil {
		return Response{Err: err}
	}
	positions, err := conllu.Positions(*doc.Text, parsed, cfg.SentenceSeparator)
	if err != nil {
		return Response{Err: err}
	}

	buf, err := json.Marshal(ImportResult{
		Text:      *doc.Text,
		Sentences: positions,
		Document:  types.NewDocumentPayload(doc, cfg.Layers),
	})
	if err != nil {
		return Response{Err: fmt.Errorf("failed to marshal import result: %w", err)}
	}
	return Response{Body: buf, ContentType: ContentTypeJSON}
}

func exportDocument(request Request, cfg types.Configuration, log zerolog.Logger) Response {
	payload, err := decodePayload(request.Body)
	if err != nil {
		return Response{Err: err}
	}
	doc := types.BindDocument(payload, cfg.Layers)
	out := conllu.Serialize(doc, conllu.SerializeOptions{
		Placeholder: cfg.Placeholder,
		Logger:      &log,
	})
	return Response{Body: []byte(out), ContentType: ContentTypeConllu}
}

// decodePayload accepts a bare document payload or a whole ImportResult, so the
// output of an import can be exported as is.
func decodePayload(body []byte) (types.DocumentPayload, error) {
	var envelope struct {
		Document *types.DocumentPayload `json:"document"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return types.DocumentPayload{}, fmt.Errorf("%w: %v", ErrPayload, err)
	}
	if envelope.Document != nil {
		return *envelope.Document, nil
	}
	var payload types.DocumentPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return types.DocumentPayload{}, fmt.Errorf("%w: %v", ErrPayload, err)
	}
	return payload, nil
}
