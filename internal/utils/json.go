// Package utils holds the request-decoding glue shared by the delivery
// handlers.
package utils

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// DecodeJSONRequest decodes the request body into dst, rejecting fields the
// target struct does not declare.
func DecodeJSONRequest(r *http.Request, dst any) error {
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}
