package pattern

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrMalformed is returned when a stored record does not decode into a
// valid fingerprint.
var ErrMalformed = errors.New("malformed fingerprint")

const schemaBaseURL = "https://sesame.local/schemas/"

//go:embed schemas/*.schema.json
var schemaFS embed.FS

var (
	schemasOnce sync.Once
	schemas     map[Modality]*jsonschema.Schema
	schemasErr  error
)

func compileSchemas() {
	compiler := jsonschema.NewCompiler()
	schemas = make(map[Modality]*jsonschema.Schema, len(All))
	for _, m := range All {
		name := string(m) + ".schema.json"
		data, err := schemaFS.ReadFile("schemas/" + name)
		if err != nil {
			schemasErr = fmt.Errorf("read schema %s: %w", m, err)
			return
		}
		url := schemaBaseURL + name
		if err := compiler.AddResource(url, bytes.NewReader(data)); err != nil {
			schemasErr = fmt.Errorf("add schema %s: %w", m, err)
			return
		}
		s, err := compiler.Compile(url)
		if err != nil {
			schemasErr = fmt.Errorf("compile schema %s: %w", m, err)
			return
		}
		schemas[m] = s
	}
}

func schemaFor(m Modality) (*jsonschema.Schema, error) {
	schemasOnce.Do(compileSchemas)
	if schemasErr != nil {
		return nil, schemasErr
	}
	s, ok := schemas[m]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModality, m)
	}
	return s, nil
}

// Encode serializes a fingerprint to its stored JSON form.
func Encode(fp Fingerprint) ([]byte, error) {
	if fp == nil {
		return nil, errors.New("encode: nil fingerprint")
	}
	data, err := json.Marshal(fp)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", fp.Modality(), err)
	}
	return data, nil
}

// Decode validates data against the modality's schema and decodes it.
func Decode(m Modality, data []byte) (Fingerprint, error) {
	schema, err := schemaFor(m)
	if err != nil {
		return nil, err
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, m, err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, m, err)
	}

	switch m {
	case ModalityVoice:
		return decodeAs[VoiceFingerprint](m, data)
	case ModalityGesture:
		return decodeAs[GestureFingerprint](m, data)
	case ModalityRhythm:
		return decodeAs[RhythmFingerprint](m, data)
	case ModalityTap:
		return decodeAs[TapFingerprint](m, data)
	case ModalityColor:
		return decodeAs[ColorFingerprint](m, data)
	case ModalityEmoji:
		return decodeChecked(m, data, func(p EmojiPath) (EmojiPath, error) {
			return NewEmojiPath(p)
		})
	case ModalityShape:
		return decodeChecked(m, data, func(p ShapePattern) (ShapePattern, error) {
			return NewShapePattern(p)
		})
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownModality, m)
}

// decodeChecked decodes a record and runs it through the constructor used at
// capture time, which enforces rules the schema cannot express.
func decodeChecked[T Fingerprint](m Modality, data []byte, check func(T) (T, error)) (Fingerprint, error) {
	var fp T
	if err := json.Unmarshal(data, &fp); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, m, err)
	}
	v, err := check(fp)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrMalformed, m, Reason(err))
	}
	return v, nil
}

func decodeAs[T Fingerprint](m Modality, data []byte) (Fingerprint, error) {
	var fp T
	if err := json.Unmarshal(data, &fp); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, m, err)
	}
	return fp, nil
}
