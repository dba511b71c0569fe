package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Message(t *testing.T) {
	assert.Equal(t, "boom", New(Validation, "boom").Error())
	assert.Equal(t, "outer: inner", Wrap(Transport, "outer", errors.New("inner")).Error())
	assert.Equal(t, "inner", Wrap(Transport, "", errors.New("inner")).Error())
}

func TestKindOf(t *testing.T) {
	base := New(Configuration, "no key")
	wrapped := fmt.Errorf("call: %w", base)
	assert.Equal(t, Configuration, KindOf(wrapped))

	// an outer error without a kind defers to the inner one
	outer := &Error{Msg: "failed", Err: base}
	assert.Equal(t, Configuration, KindOf(outer))

	assert.Equal(t, Provider, KindOf(errors.New("plain")))
	assert.Equal(t, Provider, KindOf(nil))
}

func TestStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, Status(Validation))
	assert.Equal(t, http.StatusInternalServerError, Status(Configuration))
	assert.Equal(t, http.StatusBadGateway, Status(Provider))
	assert.Equal(t, http.StatusBadGateway, Status(Transport))
}
