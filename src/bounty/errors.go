package bounty

import "errors"

var (
	ErrDebtBlocked     = errors.New("outstanding credit debt")
	ErrAlreadyAssigned = errors.New("member already holds an assigned bounty")
	ErrUnauthorized    = errors.New("not authorized")
	ErrInvalidState    = errors.New("bounty is not in the required state")
	ErrNotFound        = errors.New("bounty not found")
)

// ErrorKind names the refusal reasons an adapter has to present.
type ErrorKind uint8

const (
	KindNone ErrorKind = iota
	KindDebtBlocked
	KindAlreadyAssigned
	KindUnauthorized
	KindInvalidState
	KindNotFound
	KindInternal
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindDebtBlocked:
		return "debt_blocked"
	case KindAlreadyAssigned:
		return "already_assigned"
	case KindUnauthorized:
		return "unauthorized"
	case KindInvalidState:
		return "invalid_state"
	case KindNotFound:
		return "not_found"
	case KindInternal:
		return "internal"
	}
	return "unknown"
}

// Kind classifies err. Errors that are not engine refusals are KindInternal.
func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrDebtBlocked):
		return KindDebtBlocked
	case errors.Is(err, ErrAlreadyAssigned):
		return KindAlreadyAssigned
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrInvalidState):
		return KindInvalidState
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	}
	return KindInternal
}
