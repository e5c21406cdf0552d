package status

import (
	"fmt"
)

// Error reports a response whose status is not successful.
type Error struct {
	Status Status
}

func NewError(code int, reasonPhrase string) Error {
	if reasonPhrase == "" {
		reasonPhrase = Text(code)
	}
	return Error{Status: Status{Code: code, ReasonPhrase: reasonPhrase}}
}

func (e Error) Error() string {
	return fmt.Sprintf("%d %s (%s)", e.Status.Code, e.Status.ReasonPhrase, ClassOf(e.Status.Code))
}
