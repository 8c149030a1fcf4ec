package osutil

import (
	"errors"
)

// Constrain is not supported on Windows. An error is only returned if a constraint was
// actually requested.
func Constrain(userName, groupName, chrootDir string) error {
	if len(userName) > 0 || len(groupName) > 0 || len(chrootDir) > 0 {
		return errors.New("osutil.Constrain: not supported on windows")
	}

	return nil
}

func ConstraintReport() string {
	return "constraints not supported"
}
