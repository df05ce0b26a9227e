//go:build !unix

package dirhandle

import (
	"errors"
	"io/fs"
	"os"
)

func checkAccess(root string) (Permission, error) {
	if err := classifyStat(root); err != nil {
		return permissionFromStat(err)
	}
	f, err := os.CreateTemp(root, ".flownote-access-*")
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return PermissionDenied, nil
		}
		return "", err
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return PermissionGranted, nil
}
