// Vitrina - Storefront Product Recommendation Service
// Copyright 2026 Vitrina Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrina-io/vitrina

package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/vitrina-io/vitrina/internal/logging"
)

// apiResponse is the shared JSON envelope for all API endpoints.
type apiResponse struct {
	Status   string           `json:"status"`
	Data     any              `json:"data,omitempty"`
	Error    *apiError        `json:"error,omitempty"`
	Metadata responseMetadata `json:"metadata"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type responseMetadata struct {
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// respondJSON sends data wrapped in the response envelope.
func respondJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	writeEnvelope(w, r, status, &apiResponse{
		Status: "ok",
		Data:   data,
	})
}

// respondError sends an error response. The wrapped err is logged, not
// exposed to the client.
func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string, err error) {
	if err != nil {
		logger := logging.Ctx(r.Context())
		logger.Warn().Err(err).Str("code", code).Msg("request failed")
	}
	writeEnvelope(w, r, status, &apiResponse{
		Status: "error",
		Error:  &apiError{Code: code, Message: message},
	})
}

func writeEnvelope(w http.ResponseWriter, r *http.Request, status int, resp *apiResponse) {
	resp.Metadata = responseMetadata{
		RequestID: logging.RequestIDFromContext(r.Context()),
		Timestamp: time.Now().UTC(),
	}

	body, err := json.Marshal(resp)
	if err != nil {
		logger := logging.Ctx(r.Context())
		logger.Error().Err(err).Msg("marshaling response failed")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		logger := logging.Ctx(r.Context())
		logger.Error().Err(err).Msg("writing response failed")
	}
}
