// Package response writes the storefront JSON envelope:
//
//	{"status": 200, "message": "...", "data": {...}, "errors": {...}}
package response

import (
	"encoding/json"
	"net/http"
)

type envelope struct {
	Status  int         `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Errors  interface{} `json:"errors,omitempty"`
}

// JSON writes an arbitrary body. Most handlers want Success or Error.
func JSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body) //nolint:errcheck
}

func write(w http.ResponseWriter, status int, body envelope) {
	JSON(w, status, body)
}

// Success sends a 200 with data.
func Success(w http.ResponseWriter, data interface{}) {
	write(w, http.StatusOK, envelope{Status: http.StatusOK, Data: data})
}

// Message sends a 200 with a message and optional data.
func Message(w http.ResponseWriter, message string, data interface{}) {
	write(w, http.StatusOK, envelope{Status: http.StatusOK, Message: message, Data: data})
}

// Created sends a 201 with data.
func Created(w http.ResponseWriter, data interface{}) {
	write(w, http.StatusCreated, envelope{Status: http.StatusCreated, Data: data})
}

// Error sends an error envelope with the given status.
func Error(w http.ResponseWriter, status int, message string) {
	write(w, status, envelope{Status: status, Message: message})
}

// ValidationError sends a 422 with a field to message map.
func ValidationError(w http.ResponseWriter, errs map[string]string) {
	write(w, http.StatusUnprocessableEntity, envelope{
		Status:  http.StatusUnprocessableEntity,
		Message: "Validation failed",
		Errors:  errs,
	})
}

func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, message)
}

func Unauthorized(w http.ResponseWriter) {
	Error(w, http.StatusUnauthorized, "Unauthorized")
}

func Forbidden(w http.ResponseWriter) {
	Error(w, http.StatusForbidden, "Forbidden")
}

func NotFound(w http.ResponseWriter) {
	Error(w, http.StatusNotFound, "Not found")
}

func Conflict(w http.ResponseWriter, message string) {
	Error(w, http.StatusConflict, message)
}

func InternalError(w http.ResponseWriter) {
	Error(w, http.StatusInternalServerError, "Internal Server Error")
}
