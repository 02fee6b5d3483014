package sajmqtt

import "errors"

var (
	// ErrInvalidArgument rejects calls before any frame is published.
	ErrInvalidArgument = errors.New("sajmqtt: invalid argument")

	// ErrTimeout means not every expected response frame arrived within the
	// call deadline. No partial data is ever returned alongside it.
	ErrTimeout = errors.New("sajmqtt: inverter did not answer within the timeout")

	// ErrDuplicateID means a freshly drawn correlation id collided with one
	// already in flight. With random 16 bit ids this is close to impossible;
	// overwriting silently would corrupt the other call, so it is an error.
	ErrDuplicateID = errors.New("sajmqtt: correlation id already in flight")
)
