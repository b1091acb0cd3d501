package shared

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// maxRequestBody caps request bodies at 1 MiB; batch submissions are id
// lists and never legitimately approach this.
const maxRequestBody = 1 << 20

// ErrEmptyBody is returned when a request that requires a body has none.
var ErrEmptyBody = errors.New("request body is empty")

// DecodeJSON decodes the request body into v, enforcing the body size cap
// and rejecting trailing garbage after the JSON document.
func DecodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return ErrEmptyBody
	}

	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyBody
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}

	if dec.More() {
		return errors.New("unexpected data after JSON document")
	}
	return nil
}
