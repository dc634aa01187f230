package main

import (
	"fmt"
	"os"

	"github.com/charybdis-fuzz/charybdis/cmd"
	"github.com/charybdis-fuzz/charybdis/cmd/exitcodes"
)

func main() {
	// Run the root CLI command and translate the result into a process exit code. Handled errors were already
	// reported through logging and should not be printed a second time.
	err := cmd.Execute()
	innerErr, exitCode := exitcodes.GetInnerErrorAndExitCode(err)
	if innerErr != nil && exitCode != exitcodes.ExitCodeHandledError {
		fmt.Println(innerErr)
	}
	os.Exit(exitCode)
}
