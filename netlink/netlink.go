// Package netlink brings up WiFi on a Pico W (CYW43439) and exposes the lneto
// stack used by the keystroke mirror.
//
// The bring-up sequence follows the soypat/cyw43439 examples.
package netlink

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"net/netip"
	"runtime"
	"time"

	"github.com/soypat/cyw43439"
	"github.com/soypat/lneto/x/xnet"
)

const mtu = cyw43439.MTU

// Set via -ldflags "-X github.com/harveysanders/ps2lcd/netlink.ssid=..."
var (
	ssid string
	pass string
)

// Configured reports whether WiFi credentials were linked in.
func Configured() bool { return ssid != "" }

// Config configures Join.
type Config struct {
	// Hostname is used for DHCP requests.
	Hostname string
	// MaxTCPPorts is the number of TCP connections the stack can hold.
	MaxTCPPorts int
	// RequestedAddr is the preferred DHCP address, used as a static
	// address if DHCP does not complete.
	RequestedAddr netip.Addr
	Logger        *slog.Logger
}

// Link is a joined WiFi interface with a configured IP stack.
type Link struct {
	s       xnet.StackAsync
	dev     *cyw43439.Device
	log     *slog.Logger
	sendbuf []byte
}

// Join initializes the radio, joins the linked-in network and runs DHCP.
// Joining is retried until it succeeds.
func Join(cfg Config) (*Link, error) {
	if cfg.Hostname == "" {
		return nil, errors.New("empty hostname")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
			Level: slog.Level(127),
		}))
	}

	start := time.Now()
	dev := cyw43439.NewPicoWDevice()
	dev.SetLogger(logger)
	if err := dev.Init(cyw43439.DefaultWifiConfig()); err != nil {
		return nil, errors.New("wifi init failed:" + err.Error())
	}
	logger.Info("cyw43439:Init", slog.Duration("duration", time.Since(start)))

	for {
		err := dev.JoinWPA2(ssid, pass)
		if err == nil {
			break
		}
		logger.Error("wifi join failed", slog.String("ssid", ssid), slog.String("err", err.Error()))
		time.Sleep(5 * time.Second)
	}

	mac, err := dev.HardwareAddr6()
	if err != nil {
		return nil, errors.New("get hardware address:" + err.Error())
	}
	logger.Info("wifi joined", slog.String("mac", net.HardwareAddr(mac[:]).String()))

	l := &Link{
		dev:     dev,
		log:     logger,
		sendbuf: make([]byte, mtu),
	}
	maxTCP := cfg.MaxTCPPorts
	if maxTCP < 1 {
		maxTCP = 1
	}
	err = l.s.Reset(xnet.StackConfig{
		Hostname:        cfg.Hostname,
		MaxTCPConns:     maxTCP,
		RandSeed:        time.Since(start).Nanoseconds(),
		HardwareAddress: mac,
		MTU:             mtu,
	})
	if err != nil {
		return nil, errors.New("stack reset:" + err.Error())
	}
	dev.RecvEthHandle(func(pkt []byte) error {
		return l.s.Demux(pkt, 0)
	})

	// DHCP needs the packet pump running.
	go l.serve()

	if err := l.dhcp(cfg.RequestedAddr); err != nil {
		return nil, err
	}
	return l, nil
}

// Stack returns the lneto stack for dialing and DNS.
func (l *Link) Stack() *xnet.StackAsync {
	return &l.s
}

func (l *Link) dhcp(requested netip.Addr) error {
	if !requested.IsValid() {
		requested = netip.AddrFrom4([4]byte{})
	}
	if !requested.Is4() {
		return errors.New("only dhcpv4 supported")
	}

	rstack := l.s.StackRetrying(50 * time.Millisecond)
	results, err := rstack.DoDHCPv4(requested.As4(), 3*time.Second, 3)
	if err != nil {
		if requested.IsUnspecified() {
			return errors.New("dhcp failed:" + err.Error())
		}
		l.log.Info("DHCP did not complete, assigning static IP", slog.String("ip", requested.String()))
		l.s.SetIPAddr(requested)
		return nil
	}
	if err := l.s.AssimilateDHCPResults(results); err != nil {
		return errors.New("assimilate dhcp:" + err.Error())
	}
	gatewayHW, err := rstack.DoResolveHardwareAddress6(results.Router, 500*time.Millisecond, 4)
	if err != nil {
		return errors.New("resolve gateway:" + err.Error())
	}
	l.s.SetGateway6(gatewayHW)

	l.log.Info("DHCP complete",
		slog.String("ourIP", results.AssignedAddr.String()),
		slog.String("router", results.Router.String()),
		slog.Uint64("lease_sec", uint64(results.TLease)),
	)
	return nil
}

// serve moves packets between the radio and the stack forever.
func (l *Link) serve() {
	for {
		got, err := l.dev.PollOne()
		if err != nil {
			l.log.Error("netlink:poll", slog.String("err", err.Error()))
		}
		n, err := l.s.Encapsulate(l.sendbuf, -1, 0)
		if err != nil {
			l.log.Error("netlink:encapsulate", slog.Int("plen", n), slog.String("err", err.Error()))
		}
		if n > 0 {
			if err := l.dev.SendEth(l.sendbuf[:n]); err != nil {
				l.log.Error("netlink:send", slog.Int("plen", n), slog.String("err", err.Error()))
			}
		}
		if !got && n == 0 {
			runtime.Gosched()
			time.Sleep(5 * time.Millisecond)
		}
	}
}
