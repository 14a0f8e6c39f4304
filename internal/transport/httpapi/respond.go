package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"counsel/backend/internal/domain"
	"counsel/backend/internal/transport/wire"
)

const maxBodyBytes = 1 << 20

// kindRateLimited is only produced by this transport.
const kindRateLimited wire.Kind = "RateLimited"

type envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Kind    wire.Kind `json:"kind"`
	Message string    `json:"message"`
}

var kindStatus = map[wire.Kind]int{
	wire.KindInvalidRange:    http.StatusBadRequest,
	wire.KindInvalidCapacity: http.StatusBadRequest,
	wire.KindValidation:      http.StatusBadRequest,
	wire.KindUnauthenticated: http.StatusUnauthorized,
	wire.KindNotFound:        http.StatusNotFound,
	wire.KindSlotFull:        http.StatusConflict,
	wire.KindSlotBlacked:     http.StatusConflict,
	wire.KindSlotHasBookings: http.StatusConflict,
	wire.KindDailyLimit:      http.StatusConflict,
	wire.KindUnavailable:     http.StatusServiceUnavailable,
	wire.KindInternal:        http.StatusInternalServerError,
	kindRateLimited:          http.StatusTooManyRequests,
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

func writeKind(w http.ResponseWriter, kind wire.Kind, msg string) {
	status, ok := kindStatus[kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	if kind == wire.KindUnavailable || kind == kindRateLimited {
		w.Header().Set("Retry-After", "1")
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Error: &errorBody{Kind: kind, Message: msg}})
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decode reads a JSON request body into dst and checks its validate tags.
// An empty body is treated as an empty object; anything after the object
// is rejected.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	switch err := dec.Decode(dst); {
	case errors.Is(err, io.EOF):
	case err != nil:
		return domain.Invalid("request body must be a JSON object")
	default:
		if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
			return domain.Invalid("request body must be a single JSON object")
		}
	}

	err := validate.Struct(dst)
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		if fe.Tag() == "required" {
			return domain.Invalid(fe.Field() + " is required")
		}
		return domain.Invalid(fe.Field() + " is invalid")
	}
	return err
}
