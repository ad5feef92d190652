package dispatch

import "fmt"

type panicError struct {
	value any
}

func (e panicError) Error() string {
	return fmt.Sprintf("job panicked: %v", e.value)
}
