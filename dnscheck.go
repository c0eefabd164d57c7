package netman

import (
	"time"

	"github.com/miekg/dns"
	"github.com/rcrowley/go-metrics"
	"github.com/sirupsen/logrus"
)

// DNSProbeConfig points the connectivity probe at a resolver. A probe fires
// after every address acquisition to tell a link-local-only network apart
// from real upstream connectivity.
type DNSProbeConfig struct {
	Server   string
	Hostname string
	Timeout  time.Duration
}

type dnsProber struct {
	l   *logrus.Logger
	cfg DNSProbeConfig
	rtt metrics.Gauge
}

func newDNSProber(l *logrus.Logger, cfg DNSProbeConfig) *dnsProber {
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Second * 5
	}
	return &dnsProber{
		l:   l,
		cfg: cfg,
		rtt: metrics.GetOrRegisterGauge("dns_probe.rtt_ms", nil),
	}
}

// check resolves the configured hostname once and logs the outcome. Runs on
// its own goroutine, results are advisory only and never feed back into the
// status model.
func (p *dnsProber) check(ifName string) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(p.cfg.Hostname), dns.TypeA)

	c := &dns.Client{Timeout: p.cfg.Timeout}
	start := time.Now()
	r, _, err := c.Exchange(m, p.cfg.Server)

	fields := logrus.Fields{"interface": ifName, "server": p.cfg.Server}
	if err != nil {
		p.l.WithFields(fields).WithError(err).Warn("DNS probe failed")
		return
	}
	if r.Rcode != dns.RcodeSuccess {
		fields["rcode"] = dns.RcodeToString[r.Rcode]
		p.l.WithFields(fields).Warn("DNS probe got an error response")
		return
	}

	rtt := time.Since(start)
	p.rtt.Update(rtt.Milliseconds())
	fields["rtt"] = rtt
	p.l.WithFields(fields).Debug("DNS probe succeeded")
}
