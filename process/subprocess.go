// Running external commands and capturing their output.

package process

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"
)

// Run the program with the arguments and return its stdout.  If the program could not be run or
// exited with a nonzero code then stdout is empty and the error carries the program name and
// whatever the program printed on stderr.  Otherwise stderr is discarded, the assumption being
// that the command exited with code zero.

func RunSubprocess(program string, args ...string) ([]byte, error) {
	cmd := exec.Command(program, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err != nil {
		errs := strings.TrimSpace(stderr.String())
		if errs != "" {
			return nil, fmt.Errorf("While running %s: %w: %s", program, err, errs)
		}
		return nil, fmt.Errorf("While running %s: %w", program, err)
	}
	return stdout.Bytes(), nil
}
