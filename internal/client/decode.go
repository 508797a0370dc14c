package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/fivetwenty-io/gdapi/pkg/gdapi"
)

// Static errors for err113 compliance.
var (
	ErrTrailingJSON = errors.New("unexpected data after JSON value")
	ErrJSONKey      = errors.New("object key is not a string")
)

// decodeJSON parses a response body into maps, slices and scalars. Numbers are
// kept as json.Number. Nesting deeper than limit fails with
// gdapi.ErrJSONDepthExceeded; a top-level scalar is depth 1. An empty body
// decodes to nil.
func decodeJSON(data []byte, limit int) (any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	value, err := decodeValue(dec, 1, limit)
	if err != nil {
		return nil, err
	}

	_, err = dec.Token()
	if !errors.Is(err, io.EOF) {
		return nil, ErrTrailingJSON
	}

	return value, nil
}

func decodeValue(dec *json.Decoder, depth, limit int) (any, error) {
	if limit > 0 && depth > limit {
		return nil, fmt.Errorf("%w: limit is %d", gdapi.ErrJSONDepthExceeded, limit)
	}

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}

	switch delim {
	case '{':
		object := map[string]any{}

		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("parsing JSON: %w", err)
			}

			key, ok := keyTok.(string)
			if !ok {
				return nil, ErrJSONKey
			}

			object[key], err = decodeValue(dec, depth+1, limit)
			if err != nil {
				return nil, err
			}
		}

		_, err = dec.Token()
		if err != nil {
			return nil, fmt.Errorf("parsing JSON: %w", err)
		}

		return object, nil
	default:
		array := []any{}

		for dec.More() {
			elem, err := decodeValue(dec, depth+1, limit)
			if err != nil {
				return nil, err
			}

			array = append(array, elem)
		}

		_, err = dec.Token()
		if err != nil {
			return nil, fmt.Errorf("parsing JSON: %w", err)
		}

		return array, nil
	}
}
