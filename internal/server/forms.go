package server

import (
	"encoding/json"
	"mime"
	"net/http"
	"strconv"

	"campaid/pkg/types"
)

const maxBodyBytes = 1 << 20

// decodeInput fills dst from a JSON body or, for classic form posts, from
// the url-encoded form values.
func (s *Service) decodeInput(r *http.Request, dst any) error {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "application/json" {
		dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
		if err := dec.Decode(dst); err != nil {
			return types.NewValidationError("", "invalid JSON body: %s", err)
		}
		return nil
	}

	if err := r.ParseForm(); err != nil {
		return types.NewValidationError("", "invalid form payload")
	}
	if err := decoder.Decode(dst, r.Form); err != nil {
		return types.NewValidationError("", "invalid form payload: %s", err)
	}
	return nil
}

func queryBool(r *http.Request, key string, def bool) bool {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}
