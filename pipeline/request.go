package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

type Direction string

const (
	Import Direction = "import"
	Export Direction = "export"
)

const (
	ContentTypeJSON   = "application/json"
	ContentTypeConllu = "text/plain; charset=utf-8"
)

var (
	ErrUnknownProfile   = errors.New("unknown profile")
	ErrUnknownDirection = errors.New("unknown conversion direction")
	ErrPayload          = errors.New("invalid document payload")
)

func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case Import:
		return Import, nil
	case Export:
		return Export, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDirection, s)
	}
}

// Extension is the file extension of what a conversion in this direction produces.
func (d Direction) Extension() string {
	if d == Import {
		return "json"
	}
	return "conllu"
}

type Request struct {
	Tid       string    `json:"tid"`
	Direction Direction `json:"direction"`
	Profile   string    `json:"profile"`
	// CoNLL-U text for imports, a JSON document payload for exports
	Body []byte `json:"-"`
}

type Response struct {
	Body        []byte
	ContentType string
	Err         error
}
