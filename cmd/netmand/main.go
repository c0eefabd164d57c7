package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/sirupsen/logrus"

	"github.com/nearhop/netman"
	"github.com/nearhop/netman/config"
	"github.com/nearhop/netman/util"
)

// A version string that can be set with
//
//	-ldflags "-X main.Build=SOMEVERSION"
//
// at compile-time.
var Build string

func main() {
	configPath := flag.String("config", netman.GetConfigFileDir(), "Path to either a file or directory to load configuration from")
	configTest := flag.Bool("test", false, "Test the config and print the end result. Non zero exit indicates a faulty config")
	printVersion := flag.Bool("version", false, "Print version")
	printUsage := flag.Bool("help", false, "Print command line usage")
	logStderr := flag.Bool("stderr", false, "Log to stderr instead of the rotated log file")
	serviceFlag := flag.String("service", "", "Control the system service: run, install, uninstall, start, stop, restart")

	flag.Parse()

	if *printVersion {
		fmt.Printf("Version: %s\n", Build)
		os.Exit(0)
	}

	if *printUsage {
		flag.Usage()
		os.Exit(0)
	}

	if *serviceFlag != "" {
		doService(*configPath, *configTest, Build, *serviceFlag)
		os.Exit(0)
	}

	if !netman.IsRootUser() {
		fmt.Println("It looks like you are running as non-root / non-sudo-user. netmand can not reconfigure interfaces without root access.")
	}

	c := config.NewC()
	if err := c.Load(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %s\n", err)
		os.Exit(1)
	}

	l := logrus.New()
	if !*logStderr && !*configTest {
		path := netman.GetLogsFileDir() + "netmand.log"
		writer, err := rotatelogs.New(
			path+".%Y%m%d%H%M",
			rotatelogs.WithLinkName(path),
			rotatelogs.WithMaxAge(time.Duration(24)*time.Hour),
			rotatelogs.WithRotationTime(time.Duration(1)*time.Hour),
		)
		if err == nil {
			l.SetOutput(writer)
		}
	}

	ctrl, err := netman.Main(c, *configTest, Build, l)

	switch v := err.(type) {
	case util.ContextualError:
		v.Log(l)
		os.Exit(1)
	case error:
		l.WithError(err).Error("Failed to start")
		os.Exit(1)
	}

	if !*configTest {
		if err := ctrl.Start(); err != nil {
			l.WithError(err).Error("Failed to bring interfaces up")
		}
		c.CatchHUP(l)
		ctrl.ShutdownBlock()
	}

	os.Exit(0)
}
