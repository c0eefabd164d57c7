package netman

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nearhop/netman/config"
	"github.com/nearhop/netman/store"
	"github.com/nearhop/netman/util"
)

// Main builds a Control from a loaded settings tree. When configTest is true
// the settings are validated and printed but nothing is brought up and the
// returned Control is nil.
func Main(c *config.C, configTest bool, buildVersion string, logger *logrus.Logger) (*Control, error) {
	l := logger
	l.Formatter = &logrus.TextFormatter{FullTimestamp: true}

	err := configLogger(l, c)
	if err != nil {
		return nil, util.NewContextualError("Failed to configure the logger", nil, err)
	}
	c.RegisterReloadCallback(func(c *config.C) {
		err := configLogger(l, c)
		if err != nil {
			l.WithError(err).Error("Failed to configure the logger")
		}
	})

	l.WithField("version", buildVersion).Info("netman")

	cfg, err := ParseConfig(c)
	if err != nil {
		return nil, util.NewContextualError("Failed to parse interface config", nil, err)
	}

	if configTest {
		l.WithFields(logrus.Fields{
			"station":      cfg.STAEnabled,
			"access_point": cfg.APEnabled,
			"ethernet":     cfg.EthernetEnabled,
		}).Info("Config test complete")
		return nil, nil
	}

	var st store.Store
	if dir := c.GetString("storage.path", GetDataFileDir()); dir != "" {
		st, err = store.NewFileStore(l, dir)
		if err != nil {
			return nil, util.NewContextualError("Failed to open config store",
				map[string]interface{}{"path": dir}, err)
		}
	}

	opts := Options{
		Store:    st,
		Defaults: cfg,
		Reconnect: ReconnectConfig{
			BaseInterval: c.GetDuration("reconnect.base_interval", DefaultReconnectBaseInterval),
			MaxAttempts:  c.GetInt("reconnect.max_attempts", DefaultReconnectMaxAttempts),
		},
		HistorySize: c.GetInt("history.size", defaultHistorySize),
	}

	if c.GetBool("dns_probe.enabled", false) {
		opts.DNSProbe = &DNSProbeConfig{
			Server:   c.GetString("dns_probe.server", "1.1.1.1:53"),
			Hostname: c.GetString("dns_probe.hostname", "nearhop.com."),
			Timeout:  c.GetDuration("dns_probe.timeout", time.Second*5),
		}
	}

	m, err := New(l, opts)
	if err != nil {
		return nil, util.NewContextualError("Failed to create network manager", nil, err)
	}

	statsStart, err := startStats(l, c, buildVersion, configTest)
	if err != nil {
		return nil, util.NewContextualError("Failed to start stats emission", nil, err)
	}

	return &Control{m: m, l: l, cfg: cfg, statsStart: statsStart}, nil
}

func configLogger(l *logrus.Logger, c *config.C) error {
	// set up our logging level
	logLevel, err := logrus.ParseLevel(strings.ToLower(c.GetString("logging.level", "info")))
	if err != nil {
		return fmt.Errorf("%s; possible levels: %s", err, logrus.AllLevels)
	}
	l.SetLevel(logLevel)

	timestampFormat := c.GetString("logging.timestamp_format", "")
	fullTimestamp := (timestampFormat != "")
	if timestampFormat == "" {
		timestampFormat = time.RFC3339
	}

	logFormat := strings.ToLower(c.GetString("logging.format", "text"))
	switch logFormat {
	case "text":
		l.Formatter = &logrus.TextFormatter{
			TimestampFormat: timestampFormat,
			FullTimestamp:   fullTimestamp,
		}
	case "json":
		l.Formatter = &logrus.JSONFormatter{
			TimestampFormat: timestampFormat,
		}
	default:
		return fmt.Errorf("unknown log format `%s`. possible formats: %s", logFormat, []string{"text", "json"})
	}

	return nil
}
