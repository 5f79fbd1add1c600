package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/thinkscotty/blogzin/internal/apperr"
)

func TestStatusAndMessage(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name    string
		err     error
		status  int
		message string
		kind    string
	}{
		{"fact fetch", apperr.Wrap(apperr.ErrFactFetch, "fetch uselessfacts", cause), http.StatusBadGateway, apperr.MsgFactFetch, "fact_fetch"},
		{"synthesis upstream", apperr.Wrap(apperr.ErrSynthesisUpstream, "gemini", cause), http.StatusInternalServerError, apperr.MsgGeneric, "synthesis_upstream"},
		{"synthesis parse", apperr.Wrap(apperr.ErrSynthesisParse, "decode", cause), http.StatusInternalServerError, apperr.MsgGeneric, "synthesis_parse"},
		{"synthesis validation", apperr.Wrap(apperr.ErrSynthesisValidation, "missing title", nil), http.StatusInternalServerError, apperr.MsgGeneric, "synthesis_validation"},
		{"duplicate", apperr.Wrap(apperr.ErrDuplicateFact, "insert post", cause), http.StatusConflict, apperr.MsgDuplicate, "duplicate_fact"},
		{"repository", apperr.Wrap(apperr.ErrRepository, "insert post", cause), http.StatusInternalServerError, apperr.MsgGeneric, "repository"},
		{"not found", apperr.Wrap(apperr.ErrNotFound, "get post", nil), http.StatusNotFound, apperr.MsgNotFound, "not_found"},
		{"empty", apperr.ErrEmptyCollection, http.StatusInternalServerError, apperr.MsgEmpty, "empty_collection"},
		{"unclassified", cause, http.StatusInternalServerError, apperr.MsgGeneric, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)
			c.Assert(apperr.Status(tt.err), qt.Equals, tt.status)
			c.Assert(apperr.Message(tt.err), qt.Equals, tt.message)
			c.Assert(apperr.Kind(tt.err), qt.Equals, tt.kind)
		})
	}
}

func TestWrapKeepsCause(t *testing.T) {
	c := qt.New(t)

	cause := errors.New("connection refused")
	err := apperr.Wrap(apperr.ErrFactFetch, "fetch numbers", cause)

	c.Assert(err, qt.ErrorIs, apperr.ErrFactFetch)
	c.Assert(err, qt.ErrorIs, cause)
	c.Assert(err.Error(), qt.Equals, "fact source unavailable: fetch numbers: connection refused")
}

func TestRetryable(t *testing.T) {
	c := qt.New(t)

	c.Assert(apperr.Retryable(fmt.Errorf("insert: %w", apperr.ErrDuplicateFact)), qt.IsTrue)
	c.Assert(apperr.Retryable(apperr.ErrFactFetch), qt.IsFalse)
	c.Assert(apperr.Status(nil), qt.Equals, http.StatusOK)
}
