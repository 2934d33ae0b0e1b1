package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("join: %w", InvalidRequest("already joined"))

	assert.Equal(t, KindInvalidRequest, KindOf(err))
	assert.True(t, Is(err, KindInvalidRequest))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
}

func TestInfrastructureUnwraps(t *testing.T) {
	cause := errors.New("0 rows affected")
	err := Infrastructure(cause, "failed to delete post %d", 7)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to delete post 7: 0 rows affected", err.Error())
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindNotFound, http.StatusNotFound},
		{KindConflict, http.StatusConflict},
		{KindInvalidRequest, http.StatusBadRequest},
		{KindForbidden, http.StatusForbidden},
		{KindAccessDenied, http.StatusForbidden},
		{KindUnauthenticated, http.StatusUnauthorized},
		{KindRateLimited, http.StatusTooManyRequests},
		{KindInfrastructure, http.StatusBadGateway},
		{KindInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.kind))
		})
	}
}
