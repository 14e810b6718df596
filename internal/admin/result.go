package admin

import "github.com/google/uuid"

// ResultKind discriminates the outcome of an audited admin mutation.
type ResultKind int

const (
	ResultOK ResultKind = iota
	ResultUnauthorized
	ResultPersistenceError
	ResultNotFound
	ResultInvalid
)

func (k ResultKind) String() string {
	switch k {
	case ResultOK:
		return "ok"
	case ResultUnauthorized:
		return "unauthorized"
	case ResultPersistenceError:
		return "persistence_error"
	case ResultNotFound:
		return "not_found"
	case ResultInvalid:
		return "invalid"
	}
	return "unknown"
}

// Result is returned by mutations that re-authenticate and audit. AuditID is nil
// when the mutation succeeded but the audit row could not be written.
type Result struct {
	Kind    ResultKind
	Err     error
	AuditID *uuid.UUID
}

// OK reports whether the mutation was applied.
func (r Result) OK() bool { return r.Kind == ResultOK }

func ok(auditID *uuid.UUID) Result { return Result{Kind: ResultOK, AuditID: auditID} }

func failed(kind ResultKind, err error) Result { return Result{Kind: kind, Err: err} }

// authResult maps a RequireSuperAdmin error: role failures are Unauthorized,
// a failed profile lookup is a persistence error.
func authResult(err error) Result {
	if IsAuthError(err) {
		return failed(ResultUnauthorized, err)
	}
	return failed(ResultPersistenceError, err)
}
