//go:build unix

package dirhandle

import (
	"errors"

	"golang.org/x/sys/unix"
)

func checkAccess(root string) (Permission, error) {
	if err := classifyStat(root); err != nil {
		return permissionFromStat(err)
	}
	err := unix.Access(root, unix.R_OK|unix.W_OK|unix.X_OK)
	switch {
	case err == nil:
		return PermissionGranted, nil
	case errors.Is(err, unix.EACCES), errors.Is(err, unix.EROFS), errors.Is(err, unix.EPERM):
		return PermissionDenied, nil
	default:
		return "", err
	}
}
