package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/Ultrahd-dev/session-booking/backend/internal/apperr"
)

// MessageResponse ответ с текстовым сообщением
type MessageResponse struct {
	Message string `json:"message"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// В сообщениях об ошибках используем имена полей из JSON
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// required пропускает строки из одних пробелов
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	return v
}

// decode читает JSON тело запроса и проверяет его по тегам validate
func (h *Handler) decode(r *http.Request, dst any) error {
	if r.Body == nil {
		return apperr.Validation("Required request body is missing")
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return apperr.Validation("Malformed JSON request")
	}
	// после значения допускаются только пробелы
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return apperr.Validation("Malformed JSON request")
	}

	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return apperr.Validation(describe(verrs[0]))
		}
		return apperr.Validation(err.Error())
	}
	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return fmt.Sprintf("%s must not be blank", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a well-formed email address", fe.Field())
	case "min", "max":
		return fmt.Sprintf("%s size must respect %s=%s", fe.Field(), fe.Tag(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag())
	}
}

// pathID разбирает числовой идентификатор из пути запроса
func pathID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperr.Validation(fmt.Sprintf("Invalid %s: %q is not a number", name, raw))
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeStatus(w http.ResponseWriter, r *http.Request, status int, message string) {
	apperr.WriteError(w, r, status, message)
}

// fail пишет ответ об ошибке. Внутренние ошибки журналируются, клиент
// получает только общее сообщение.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		h.log.Error(err, "request failed", "method", r.Method, "path", r.URL.Path)
	}
	writeStatus(w, r, status, apperr.Message(err))
}
