//go:build !linux
// +build !linux

package netman

import (
	"os"
	"path/filepath"
)

func IsRootUser() bool {
	return os.Geteuid() == 0
}

func baseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".netman")
}

func GetConfigFileDir() string {
	return filepath.Join(baseDir(), "configs") + string(os.PathSeparator)
}

func GetLogsFileDir() string {
	return filepath.Join(baseDir(), "logs") + string(os.PathSeparator)
}

func GetDataFileDir() string {
	return filepath.Join(baseDir(), "data") + string(os.PathSeparator)
}
