// Package bind decodes a JSON request body into a struct and validates it.
package bind

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/shashiranjanraj/storefront/pkg/validate"
)

// MaxBodyBytes caps JSON bodies. Multipart uploads have their own limit.
var MaxBodyBytes int64 = 1 << 20

// JSON decodes r.Body into dest and runs validation.
// Validation failures come back as (errs, nil); a malformed or oversized
// body as (nil, err).
func JSON(r *http.Request, dest interface{}) (map[string]string, error) {
	body := http.MaxBytesReader(nil, r.Body, MaxBodyBytes)

	if err := json.NewDecoder(body).Decode(dest); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return nil, fmt.Errorf("request body too large (max %d bytes)", maxErr.Limit)
		case errors.Is(err, io.EOF):
			return nil, errors.New("request body is empty")
		default:
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
	}

	if errs := validate.Struct(dest); validate.HasErrors(errs) {
		return errs, nil
	}
	return nil, nil
}
