package commands

import "fmt"

type Globals struct {
	Debug   bool
	Version string
}

// ExitError carries an explicit process exit code through the command
// layer. main unwraps it with errors.As and exits with Code instead of
// kong's default of 1.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit %d: %s", e.Code, e.Message)
}
