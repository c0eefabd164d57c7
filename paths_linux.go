//go:build linux
// +build linux

package netman

import (
	"os"
	"os/exec"
	"strconv"
	"strings"
)

func getProcessOwner() string {
	stdout, err := exec.Command("ps", "-o", "user=", "-p", strconv.Itoa(os.Getpid())).Output()
	if err != nil {
		return "na"
	}
	return strings.TrimSuffix(string(stdout), "\n")
}

func IsRootUser() bool {
	return getProcessOwner() == "root"
}

func GetConfigFileDir() string {
	return "/etc/netman/configs/"
}

func GetLogsFileDir() string {
	return "/etc/netman/logs/"
}

func GetDataFileDir() string {
	return "/etc/netman/data/"
}
