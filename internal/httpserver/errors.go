package httpserver

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"storefront-checkout/internal/apperr"
)

type errorResponse struct {
	Error       string            `json:"error"`
	Kind        string            `json:"kind"`
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`
	Session     *sessionView      `json:"session,omitempty"`
}

func writeError(c *gin.Context, err error) {
	writeErrorWithSession(c, err, nil)
}

func writeErrorWithSession(c *gin.Context, err error, view *sessionView) {
	status := apperr.HTTPStatus(err)
	resp := errorResponse{Error: err.Error(), Kind: apperr.Kind(err), Session: view}
	if fields := apperr.FieldErrors(err); len(fields) > 0 {
		resp.FieldErrors = make(map[string]string, len(fields))
		for f, msg := range fields {
			resp.FieldErrors[string(f)] = msg
		}
	}
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		if status == http.StatusInternalServerError {
			resp.Error = "internal error"
		}
	}
	c.JSON(status, resp)
}

// writeBindError turns gin binding failures into field messages keyed by
// the JSON names of dst.
func writeBindError(c *gin.Context, err error, dst any) {
	c.JSON(http.StatusUnprocessableEntity, errorResponse{
		Error:       "invalid request body",
		Kind:        apperr.KindValidation,
		FieldErrors: fromBindError(err, dst),
	})
}

func fromBindError(err error, dst any) map[string]string {
	out := map[string]string{}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			out[jsonKey(dst, fe.StructField())] = messageForTag(fe.Tag(), fe.Param())
		}
		return out
	}
	out["_"] = "Request body is not valid JSON."
	return out
}

func jsonKey(dst any, structField string) string {
	t := reflect.TypeOf(dst)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return strings.ToLower(structField)
	}
	f, ok := t.FieldByName(structField)
	if !ok {
		return strings.ToLower(structField)
	}
	tag, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if tag == "" || tag == "-" {
		return strings.ToLower(structField)
	}
	return tag
}

func messageForTag(tag, param string) string {
	switch tag {
	case "required":
		return "This field is required."
	case "email":
		return "Please enter a valid email address."
	case "oneof":
		return "Must be one of: " + param + "."
	case "min":
		return "Must be at least " + param + "."
	case "max":
		return "Must be at most " + param + "."
	case "required_without":
		return "Required unless " + param + " is given."
	case "excluded_with":
		return "Cannot be combined with " + param + "."
	default:
		return "Invalid value."
	}
}
