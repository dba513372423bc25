package stf

import "errors"

// Fatal condition sentinels. Every conversion failure wraps one of these so
// callers can classify with errors.Is.
var (
	ErrUnexpectedTag = errors.New("unexpected tag")
	ErrBadLink       = errors.New("invalid category link")
	ErrBadDate       = errors.New("unparseable date")
	ErrBadDateFormat = errors.New("invalid date format selector")
	ErrLookahead     = errors.New("lookahead mismatch")
)
