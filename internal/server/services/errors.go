package services

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/credeval/internal/common"
	"github.com/dmitrijs2005/credeval/internal/server/ingest"
	"github.com/dmitrijs2005/credeval/internal/server/lifecycle"
	"github.com/dmitrijs2005/credeval/internal/server/rules"
)

// Kind groups errors by how a transport should report them.
type Kind int

const (
	KindInternal Kind = iota
	KindInvalid
	KindNotFound
	KindPrecondition
	KindConflict
	KindUnavailable
	KindUnauthenticated
	KindForbidden
	KindCanceled
	KindTimeout
)

// classes is checked in order. Lifecycle errors come before rule errors
// because ErrUnresolvedRules wraps the resolver's cause.
var classes = []struct {
	err  error
	kind Kind
}{
	{lifecycle.ErrUnresolvedRules, KindPrecondition},
	{lifecycle.ErrIncompleteDocuments, KindPrecondition},
	{lifecycle.ErrInvalidTransition, KindPrecondition},
	{lifecycle.ErrTerminalStateViolation, KindPrecondition},
	{common.ErrConcurrentTransition, KindConflict},
	{common.ErrorAlreadyExists, KindConflict},
	{ingest.ErrAlreadyIngested, KindConflict},
	{common.ErrTokenExpired, KindUnauthenticated},
	{common.ErrInvalidToken, KindUnauthenticated},
	{common.ErrorUnauthorized, KindUnauthenticated},
	{common.ErrorForbidden, KindForbidden},
	{common.ErrorNotFound, KindNotFound},
	{rules.ErrUnknownCountry, KindNotFound},
	{rules.ErrMalformedRules, KindPrecondition},
	{common.ErrorValidation, KindInvalid},
	{ingest.ErrUnsupportedType, KindInvalid},
	{ingest.ErrContentTooLarge, KindInvalid},
	{ingest.ErrFileUnreadable, KindPrecondition},
	{ingest.ErrConversionFailed, KindPrecondition},
	{ingest.ErrStorageUnavailable, KindUnavailable},
	{context.Canceled, KindCanceled},
	{context.DeadlineExceeded, KindTimeout},
}

// Classify maps err to a Kind. Unknown errors are KindInternal.
func Classify(err error) Kind {
	for _, c := range classes {
		if errors.Is(err, c.err) {
			return c.kind
		}
	}
	return KindInternal
}
