package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/kardianos/service"
	"github.com/sirupsen/logrus"

	"github.com/nearhop/netman"
	"github.com/nearhop/netman/config"
)

var logger service.Logger

type program struct {
	configPath *string
	configTest *bool
	build      string
	control    *netman.Control
}

func (p *program) Start(s service.Service) error {
	logger.Info("netmand service starting")

	c := config.NewC()
	if err := c.Load(*p.configPath); err != nil {
		return fmt.Errorf("failed to load config: %s", err)
	}

	l := logrus.New()
	ctrl, err := netman.Main(c, *p.configTest, p.build, l)
	if err != nil {
		return err
	}

	p.control = ctrl
	return ctrl.Start()
}

func (p *program) Stop(s service.Service) error {
	logger.Info("netmand service stopping")
	if p.control != nil {
		p.control.Stop()
	}
	return nil
}

func doService(configPath string, configTest bool, build string, serviceFlag string) {
	if configPath == "" {
		ex, err := os.Executable()
		if err != nil {
			panic(err)
		}
		configPath = filepath.Dir(ex) + "/config.yaml"
	}

	svcConfig := &service.Config{
		Name:        "netmand",
		DisplayName: "netman network manager",
		Description: "Manages the device's wifi and ethernet interfaces.",
		Arguments:   []string{"-config", configPath},
	}

	prg := &program{
		configPath: &configPath,
		configTest: &configTest,
		build:      build,
	}

	s, err := service.New(prg, svcConfig)
	if err != nil {
		log.Fatal(err)
	}

	errs := make(chan error, 5)
	logger, err = s.Logger(errs)
	if err != nil {
		log.Fatal(err)
	}

	go func() {
		for {
			err := <-errs
			if err != nil {
				log.Print(err)
			}
		}
	}()

	switch serviceFlag {
	case "run":
		err = s.Run()
	case "install", "uninstall", "start", "stop", "restart":
		err = service.Control(s, serviceFlag)
	default:
		err = fmt.Errorf("unknown service action: %s", serviceFlag)
	}
	if err != nil {
		log.Fatal(err)
	}
}
