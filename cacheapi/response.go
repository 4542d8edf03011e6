/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package cacheapi

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/acronis/go-cachekit/log"
)

// ErrorDomain is the domain of all errors returned by the API.
const ErrorDomain = "CacheAPI"

// Error codes.
const (
	ErrCodeCacheNotFound         = "cacheNotFound"
	ErrCodeEntryNotFound         = "entryNotFound"
	ErrCodeRequestEntityTooLarge = "requestEntityTooLarge"
	ErrCodeInternalError         = "internalError"
)

const contentTypeAppJSON = "application/json"

// Error represents an error details.
type Error struct {
	Domain  string `json:"domain"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// NewError creates a new Error with ErrorDomain.
func NewError(code, message string) *Error {
	return &Error{Domain: ErrorDomain, Code: code, Message: message}
}

// Error returns a string representation of the error.
func (e *Error) Error() string {
	if e.Message == "" {
		return e.Domain + ":" + e.Code
	}
	return e.Domain + ":" + e.Code + ": " + e.Message
}

// ErrorResponseData is a body of an error response.
type ErrorResponseData struct {
	Err *Error `json:"error"`
}

// jsonMarshal doesn't escape HTML and doesn't add a trailing newline.
func jsonMarshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func respondJSON(rw http.ResponseWriter, statusCode int, respData interface{}, logger log.FieldLogger) {
	respJSON, err := jsonMarshal(respData)
	if err != nil {
		logger.Error("error while marshaling json for response body", log.Error(err))
		rw.WriteHeader(http.StatusInternalServerError)
		return
	}
	rw.Header().Set("Content-Type", contentTypeAppJSON)
	rw.WriteHeader(statusCode)
	if _, err = rw.Write(respJSON); err != nil {
		logger.Error("error while writing response body", log.Error(err))
	}
}

func respondError(rw http.ResponseWriter, statusCode int, apiErr *Error, logger log.FieldLogger) {
	logger.Warn("error in response",
		log.Int("status", statusCode), log.String("error_code", apiErr.Code), log.String("error_message", apiErr.Message))
	respondJSON(rw, statusCode, ErrorResponseData{apiErr}, logger)
}
