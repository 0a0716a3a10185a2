package errors

import "fmt"

var (
	ErrWorkerPanic        = fmt.Errorf("worker panic")
	ErrInvalidIdentifier  = fmt.Errorf("invalid identifier")
	ErrRoomFull           = fmt.Errorf("room is full")
	ErrUnknownRoom        = fmt.Errorf("unknown room")
	ErrNotAMember         = fmt.Errorf("not a member of this room")
	ErrUnauthorized       = fmt.Errorf("unauthorized")
	ErrActiveUsersPresent = fmt.Errorf("active users present")
)
