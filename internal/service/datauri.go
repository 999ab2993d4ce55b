package service

import (
	"encoding/base64"
	"strings"
)

// decodeDataURI splits an inline payload of the form
// "data:image/png;base64,AAAA..." into its media type and raw bytes.
func decodeDataURI(uri string) (contentType string, data []byte, err error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, validationf("not a data URI")
	}

	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, validationf("malformed data URI")
	}

	encoded := false
	if enc, found := strings.CutSuffix(meta, ";base64"); found {
		meta = enc
		encoded = true
	}
	if !encoded {
		return "", nil, validationf("data URI must be base64 encoded")
	}

	contentType = meta
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	data, decodeErr := base64.StdEncoding.DecodeString(payload)
	if decodeErr != nil {
		return "", nil, validationf("invalid base64 payload")
	}
	return contentType, data, nil
}
