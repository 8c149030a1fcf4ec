//go:build !windows
// +build !windows

package osutil

import (
	"fmt"
	"os"
	"os/user"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

const (
	me = "osutil.Constrain: "
)

// Constrain reduces the abilities of the process once the listen sockets on the
// privileged DNS port are open. It changes to a nominated uid/gid and chroots to a
// directory that presumably has very little in it.
//
// The order of operations matters. Symbolic names are converted to ids first while
// /etc/passwd (or the moral equivalent) is still reachable, then chroot while we still
// have the power to do so, then setgid (dropping supplementary groups) and finally setuid
// which makes the whole sequence irreversible.
//
// Each step is skipped if the corresponding parameter is an empty string. Connections to
// the challenge store are made by address so a chroot does not affect them.
func Constrain(userName, groupName, chrootDir string) error {
	uid, gid, err := lookupIDs(userName, groupName)
	if err != nil {
		return err
	}

	if len(chrootDir) > 0 {
		if err := os.Chdir(chrootDir); err != nil {
			return fmt.Errorf(me+"could not cd to %s: %w", chrootDir, err)
		}
		if err := unix.Chroot(chrootDir); err != nil {
			return fmt.Errorf(me+"could not chroot to %s: %w", chrootDir, err)
		}
		if err := os.Chdir("/"); err != nil {
			return fmt.Errorf(me+"could not cd to /: %w", err)
		}
	}

	if gid != -1 {
		if err := unix.Setgroups([]int{}); err != nil {
			return fmt.Errorf(me+"could not clear group list: %w", err)
		}
		if err := unix.Setgid(gid); err != nil {
			return fmt.Errorf(me+"could not setgid to %d/%s: %w", gid, groupName, err)
		}
	}

	if uid != -1 {
		if err := unix.Setuid(uid); err != nil {
			return fmt.Errorf(me+"could not setuid to %d/%s: %w", uid, userName, err)
		}
	}

	return nil
}

// lookupIDs converts symbolic user and group names to numeric ids. An empty name
// returns -1 for that id.
func lookupIDs(userName, groupName string) (uid, gid int, err error) {
	uid, gid = -1, -1
	if len(userName) > 0 {
		u, err := user.Lookup(userName)
		if err != nil {
			return uid, gid, fmt.Errorf(me+"user name lookup failed: %w", err)
		}
		if uid, err = strconv.Atoi(u.Uid); err != nil {
			return -1, gid, fmt.Errorf(me+"could not convert UID %s: %w", u.Uid, err)
		}
	}

	if len(groupName) > 0 {
		g, err := user.LookupGroup(groupName)
		if err != nil {
			return uid, gid, fmt.Errorf(me+"group name lookup failed: %w", err)
		}
		if gid, err = strconv.Atoi(g.Gid); err != nil {
			return uid, -1, fmt.Errorf(me+"could not convert GID %s: %w", g.Gid, err)
		}
	}

	return uid, gid, nil
}

// ConstraintReport returns a printable string showing the uid/gid/cwd of the process.
// Normally called after Constrain() to confirm the reduced privileges.
func ConstraintReport() string {
	cwd, _ := os.Getwd()
	gList, _ := os.Getgroups()
	gStr := make([]string, 0, len(gList))
	for _, g := range gList {
		gStr = append(gStr, strconv.Itoa(g))
	}

	return fmt.Sprintf("uid=%d gid=%d (%s) cwd=%s",
		os.Getuid(), os.Getgid(), strings.Join(gStr, ","), cwd)
}
