// Package response writes the JSON envelope shared by every endpoint.
package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/emilythestrangee/subreddit/backend/internal/apperr"
)

type Body struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Count   *int64     `json:"count,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

type ErrorBody struct {
	Kind    apperr.Kind `json:"kind"`
	Message string      `json:"message"`
}

func OK(c *gin.Context, status int, data any) {
	c.JSON(status, Body{Success: true, Data: data})
}

// List writes data together with the total number of items.
func List(c *gin.Context, data any, count int64) {
	c.JSON(http.StatusOK, Body{Success: true, Data: data, Count: &count})
}

func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Abort stops the handler chain with an error envelope of the given kind.
func Abort(c *gin.Context, kind apperr.Kind, message string) {
	c.AbortWithStatusJSON(apperr.HTTPStatus(kind), Body{
		Error: &ErrorBody{Kind: kind, Message: message},
	})
}

// Error maps err onto the envelope. Binding failures become INVALID_REQUEST;
// errors without a domain kind are hidden behind a generic message. The
// original error is attached to the context for the request logger.
func Error(c *gin.Context, err error) {
	_ = c.Error(err)

	var (
		ae *apperr.Error
		ve validator.ValidationErrors
	)
	switch {
	case errors.As(err, &ae):
		Abort(c, ae.Kind, ae.Message)
	case errors.As(err, &ve):
		Abort(c, apperr.KindInvalidRequest, validationMessage(ve))
	default:
		Abort(c, apperr.KindInternal, "Internal server error")
	}
}

// BadRequest reports a malformed body, query or path parameter.
func BadRequest(c *gin.Context, err error) {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		Abort(c, apperr.KindInvalidRequest, validationMessage(ve))
		return
	}
	Abort(c, apperr.KindInvalidRequest, err.Error())
}

func validationMessage(ve validator.ValidationErrors) string {
	fe := ve[0]
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email address"
	case "nowhitespace":
		return fe.Field() + " cannot contain whitespace"
	case "min", "max":
		return fe.Field() + " must be " + fe.Tag() + " " + fe.Param()
	case "oneof":
		return fe.Field() + " must be one of " + fe.Param()
	default:
		return fe.Field() + " is invalid"
	}
}
