package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware" // For RequestID

	"github.com/FACorreiaa/go-authify/internal/types"
)

// ErrorResponse writes a standard JSON error response including request ID.
func ErrorResponse(w http.ResponseWriter, r *http.Request, status int, message string) {
	reqID := middleware.GetReqID(r.Context()) // Get request ID if available
	resp := map[string]interface{}{           // Use interface{} for potential flexibility
		"success":    false,
		"error":      message,
		"request_id": reqID,
	}
	WriteJSONResponse(w, r, status, resp) // Call the common JSON writer
}

// WriteJSONResponse encodes the data to JSON and writes the response header and body.
func WriteJSONResponse(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	// If data is nil and status indicates no content, just write header
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}

	// Marshal payload
	js, err := json.Marshal(data)
	if err != nil {
		// Log the internal error
		reqID := middleware.GetReqID(r.Context())
		slog.ErrorContext(r.Context(), "Failed to marshal JSON response",
			slog.Any("error", err),
			slog.String("request_id", reqID),
		)
		// Send a generic server error response to the client
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	// Set headers *before* writing status or body
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status) // Write status code
	_, err = w.Write(js)  // Write JSON body
	if err != nil {
		// Log write error, client already received status code
		reqID := middleware.GetReqID(r.Context())
		slog.ErrorContext(r.Context(), "Failed to write response body",
			slog.Any("error", err),
			slog.String("request_id", reqID),
		)
	}
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush() // Ensure data is sent immediately
	}
}

// DecodeJSONBody reads and decodes a JSON request body safely.
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	// Set a max body size to prevent abuse (e.g., 1MB)
	maxBytes := 1_048_576
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes)) // Use ResponseWriter for MaxBytesReader

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		// Handle various JSON decoding errors gracefully
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError
		var maxBytesError *http.MaxBytesError // Check for max bytes error

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)

		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")

		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q (wanted %s)", unmarshalTypeError.Field, unmarshalTypeError.Type)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)

		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")

		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			// Remove surrounding quotes if present
			fieldName = strings.Trim(fieldName, `"`)
			return fmt.Errorf("body contains unknown key %q", fieldName)

		// Check for MaxBytesError explicitly
		case errors.As(err, &maxBytesError):
			return fmt.Errorf("body must not be larger than %d bytes", maxBytesError.Limit)

		case errors.As(err, &invalidUnmarshalError):
			// This usually indicates a programming error (passing non-pointer)
			// Panic might be appropriate here during development
			panic(fmt.Errorf("developer error: invalid argument passed to json.Unmarshal: %w", err))

		default:
			return fmt.Errorf("error decoding JSON body: %w", err)
		}
	}

	// Check for trailing data after the first JSON object
	err = dec.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}

	return nil
}

var kindStatus = map[types.ErrorKind]int{
	types.KindDuplicateEmail:        http.StatusBadRequest,
	types.KindInvalidInput:          http.StatusBadRequest,
	types.KindExchangeFailed:        http.StatusBadRequest,
	types.KindInvalidProviderToken:  http.StatusBadRequest,
	types.KindInvalidCredentials:    http.StatusUnauthorized,
	types.KindInvalidSession:        http.StatusUnauthorized,
	types.KindForbidden:             http.StatusForbidden,
	types.KindNotFound:              http.StatusNotFound,
	types.KindAccountLinkRefused:    http.StatusConflict,
	types.KindRateLimited:           http.StatusTooManyRequests,
	types.KindProviderNotConfigured: http.StatusServiceUnavailable,
	types.KindInternal:              http.StatusInternalServerError,
}

// StatusForError maps an error to its HTTP status through its kind.
func StatusForError(err error) int {
	if status, ok := kindStatus[types.KindOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

var kindMessage = map[types.ErrorKind]string{
	types.KindDuplicateEmail:        "Email already registered",
	types.KindExchangeFailed:        "Failed to complete provider login",
	types.KindInvalidProviderToken:  "Invalid provider token",
	types.KindInvalidCredentials:    "Incorrect email or password",
	types.KindInvalidSession:        "Could not validate credentials",
	types.KindForbidden:             "Not enough permissions",
	types.KindNotFound:              "Not found",
	types.KindAccountLinkRefused:    "An account with this email already exists",
	types.KindRateLimited:           "Too many requests",
	types.KindProviderNotConfigured: "Identity provider is not configured",
	types.KindInternal:              "Internal server error",
}

// MessageForError returns the client-facing message for err. Only input
// validation errors carry their own text; everything else gets a fixed
// message so internals and credential details never reach the client.
func MessageForError(err error) string {
	kind := types.KindOf(err)
	if kind == types.KindInvalidInput {
		return err.Error()
	}
	if msg, ok := kindMessage[kind]; ok {
		return msg
	}
	return kindMessage[types.KindInternal]
}

// WriteError writes err with the status and message derived from its kind.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	ErrorResponse(w, r, StatusForError(err), MessageForError(err))
}
