package lifecycle

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/credeval/internal/common"
	"github.com/dmitrijs2005/credeval/internal/server/models"
)

var (
	ErrInvalidTransition      = errors.New("invalid transition")
	ErrTerminalStateViolation = errors.New("evaluation is in a terminal state")
	ErrIncompleteDocuments    = errors.New("documents not fully ingested")
	ErrUnresolvedRules        = errors.New("country rules unresolved")

	ErrNotFound             = common.ErrorNotFound
	ErrConcurrentTransition = common.ErrConcurrentTransition
)

// TransitionError is a requested edge missing from models.AllowedTransitions.
// Terminal is set when From has no outgoing edges at all; such errors also
// match ErrTerminalStateViolation.
type TransitionError struct {
	From, To models.Status
	Terminal bool
}

func (e *TransitionError) Error() string {
	if e.Terminal {
		return fmt.Sprintf("invalid transition %s -> %s: evaluation is in a terminal state", e.From, e.To)
	}
	return fmt.Sprintf("invalid transition %s -> %s", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition || (e.Terminal && target == ErrTerminalStateViolation)
}

// IncompleteDocumentsError lists the documents lacking parsed content.
// An evaluation without any documents reports an empty list.
type IncompleteDocumentsError struct {
	DocumentIDs []string
}

func (e *IncompleteDocumentsError) Error() string {
	if len(e.DocumentIDs) == 0 {
		return "documents not fully ingested: evaluation has no documents"
	}
	return "documents not fully ingested: " + strings.Join(e.DocumentIDs, ", ")
}

func (e *IncompleteDocumentsError) Is(target error) bool { return target == ErrIncompleteDocuments }

// expected reports whether err is a business outcome rather than a fault.
func expected(err error) bool {
	for _, target := range []error{
		ErrInvalidTransition, ErrTerminalStateViolation, ErrIncompleteDocuments,
		ErrUnresolvedRules, ErrNotFound, ErrConcurrentTransition, common.ErrorValidation,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
