package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/fxamacker/cbor/v2"
	"github.com/trustbloc/logutil-go/pkg/log"
	"go.uber.org/zap"
)

const (
	contentTypeJSON = "application/json"
	contentTypeCBOR = "application/cbor"
)

type ErrorResponse struct {
	Error       string   `json:"error"`
	Unsatisfied []string `json:"unsatisfied,omitempty"`
}

func parseJSON(r *http.Request, v interface{}) error {
	if r == nil || r.Body == nil {
		return errors.New("no request given")
	}

	defer r.Body.Close()
	defer io.Copy(io.Discard, r.Body)

	return json.NewDecoder(r.Body).Decode(v)
}

func wantsCBOR(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), contentTypeCBOR)
}

// writeResponse encodes d as CBOR when the client accepts it, JSON otherwise.
func writeResponse(w http.ResponseWriter, r *http.Request, d interface{}, c int) {
	var (
		body        []byte
		err         error
		contentType = contentTypeJSON
	)

	if wantsCBOR(r) {
		contentType = contentTypeCBOR
		body, err = cbor.Marshal(d)
	} else {
		body, err = json.Marshal(d)
	}
	if err != nil {
		logger.Error("failed to encode response", log.WithError(err))
		http.Error(w, "Error creating response", http.StatusInternalServerError)
		return
	}

	logger.Debug("response", zap.String("path", r.URL.Path), zap.Int("status", c),
		zap.String("body", spew.Sdump(d)))

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(c)
	w.Write(body)
}

func errorResponse(w http.ResponseWriter, r *http.Request, e error, c int) {
	logger.Info("request failed", zap.String("path", r.URL.Path), zap.Int("status", c), log.WithError(e))
	writeResponse(w, r, ErrorResponse{Error: e.Error()}, c)
}
