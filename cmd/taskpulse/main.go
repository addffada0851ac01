package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes for different failure modes
const (
	ExitSuccess    = 0 // Run completed, every task succeeded
	ExitTaskFailed = 1 // Run completed, but one or more tasks failed
	ExitError      = 2 // Configuration or runtime error
)

// TaskFailureError indicates that a run completed but some tasks could not
// be assessed.
type TaskFailureError struct {
	Message string
}

func (e *TaskFailureError) Error() string {
	return e.Message
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		var taskFailureErr *TaskFailureError
		if errors.As(err, &taskFailureErr) {
			os.Exit(ExitTaskFailed)
		}

		// All other errors are configuration/runtime errors
		os.Exit(ExitError)
	}
}
