// Package apperr defines the error kinds surfaced by post generation and the
// post queries, and maps them to the coarse status and message shown to users.
//
// Concrete errors from the facts, ai and database packages match these
// sentinels through errors.Is, so callers classify without knowing the
// concrete types.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrFactFetch           = errors.New("fact source unavailable")
	ErrSynthesisUpstream   = errors.New("synthesis upstream error")
	ErrSynthesisParse      = errors.New("synthesis parse error")
	ErrSynthesisValidation = errors.New("synthesis validation error")
	ErrDuplicateFact       = errors.New("duplicate fact")
	ErrRepository          = errors.New("repository error")
	ErrNotFound            = errors.New("not found")
	ErrEmptyCollection     = errors.New("empty collection")
)

// User-facing messages. Internal error text never reaches the user.
const (
	MsgFactFetch = "A fonte de fatos está indisponível no momento. Tente novamente mais tarde."
	MsgDuplicate = "Este fato já foi processado! Tente gerar outro."
	MsgNotFound  = "Post não encontrado."
	MsgEmpty     = "Ainda não há nenhuma curiosidade por aqui!"
	MsgGeneric   = "Ocorreu um erro no processo. Verifique as APIs e tente novamente."
)

// Wrap tags err with a kind marker while keeping the original chain intact.
func Wrap(kind error, op string, err error) error {
	if err == nil {
		return fmt.Errorf("%w: %s", kind, op)
	}
	return fmt.Errorf("%w: %s: %w", kind, op, err)
}

// Kind returns the short name of the error kind, for logs and the
// generation log table. Unclassified errors report "internal".
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrFactFetch):
		return "fact_fetch"
	case errors.Is(err, ErrSynthesisUpstream):
		return "synthesis_upstream"
	case errors.Is(err, ErrSynthesisParse):
		return "synthesis_parse"
	case errors.Is(err, ErrSynthesisValidation):
		return "synthesis_validation"
	case errors.Is(err, ErrDuplicateFact):
		return "duplicate_fact"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrEmptyCollection):
		return "empty_collection"
	case errors.Is(err, ErrRepository):
		return "repository"
	default:
		return "internal"
	}
}

// Status maps an error to the HTTP status the presentation layer responds with.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrFactFetch):
		return http.StatusBadGateway
	case errors.Is(err, ErrDuplicateFact):
		return http.StatusConflict
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Message maps an error to the message shown to the user.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrFactFetch):
		return MsgFactFetch
	case errors.Is(err, ErrDuplicateFact):
		return MsgDuplicate
	case errors.Is(err, ErrNotFound):
		return MsgNotFound
	case errors.Is(err, ErrEmptyCollection):
		return MsgEmpty
	default:
		return MsgGeneric
	}
}

// Retryable reports whether the user should be told to simply try again.
func Retryable(err error) bool {
	return errors.Is(err, ErrDuplicateFact)
}
