package mirror

import (
	"errors"
	"io"
	"log/slog"
	"net/netip"
	"runtime"
	"strconv"
	"time"

	"github.com/soypat/lneto/tcp"
	"github.com/soypat/lneto/x/xnet"
	mqtt "github.com/soypat/natiu-mqtt"

	"github.com/harveysanders/ps2lcd/lcd"
)

// Client keeps an MQTT session open and forwards keystrokes to it.
type Client struct {
	ID                string
	Topic             string
	Timeout           time.Duration
	TCPBufSize        int
	Logger            *slog.Logger
	HeartbeatInterval time.Duration
	Username          string // optional
	Password          string // optional, requires Username
	// Boot is the reference for Keystroke.SinceBootNS.
	Boot time.Time
}

// ConnectAndForward connects to the broker at addr ("host:port") and
// publishes every character received on keys. It reconnects on failure and
// only returns if addr is invalid. Connection progress is reported on status.
func (c *Client) ConnectAndForward(
	stack *xnet.StackAsync,
	addr string,
	keys <-chan byte,
	status chan<- lcd.Message,
) error {
	const pollTime = 5 * time.Millisecond
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
			Level: slog.Level(127),
		}))
	}

	host, portStr, err := splitHostPort(addr)
	if err != nil {
		return errors.New("parsing host:port from " + addr + ": " + err.Error())
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return errors.New("parsing port " + portStr + ": " + err.Error())
	}

	rstack := stack.StackRetrying(pollTime)

	brokerAddr, err := netip.ParseAddr(host)
	if err != nil {
		c.Logger.Info("dns:resolving", slog.String("host", host))
		addrs, err := rstack.DoLookupIP(host, 5*time.Second, 3)
		if err != nil {
			return errors.New("dns lookup for " + host + ": " + err.Error())
		}
		if len(addrs) == 0 {
			return errors.New("dns lookup for " + host + ": no addresses returned")
		}
		brokerAddr = addrs[0]
	}
	serverAddr := netip.AddrPortFrom(brokerAddr, uint16(port))
	c.Logger.Info("mirror:broker", slog.String("addr", serverAddr.String()))

	mqttClient := mqtt.NewClient(mqtt.ClientConfig{
		Decoder: mqtt.DecoderNoAlloc{UserBuffer: make([]byte, 512)},
		OnPub: func(pubHead mqtt.Header, varPub mqtt.VariablesPublish, r io.Reader) error {
			c.Logger.Debug("mirror:ignored-publish", slog.String("topic", string(varPub.TopicName)))
			return nil
		},
	})
	var varconn mqtt.VariablesConnect
	varconn.SetDefaultMQTT([]byte(c.ID))
	if c.Username != "" {
		varconn.Username = []byte(c.Username)
		if c.Password != "" {
			varconn.Password = []byte(c.Password)
		}
	}

	fwd, err := NewForwarder(mqttClient, c.Topic, func() uint16 { return uint16(stack.Prand32()) })
	if err != nil {
		return err
	}

	var conn tcp.Conn
	err = conn.Configure(tcp.ConnConfig{
		RxBuf:             make([]byte, c.TCPBufSize),
		TxBuf:             make([]byte, c.TCPBufSize),
		TxPacketQueueSize: 3,
	})
	if err != nil {
		return errors.New("tcp configure:" + err.Error())
	}

	closeConn := func(reason string) {
		c.Logger.Error("tcpconn:closing", slog.String("reason", reason))
		conn.Close()
		for i := 0; i < 50 && !conn.State().IsClosed(); i++ {
			time.Sleep(100 * time.Millisecond)
		}
		conn.Abort()
	}

	for {
		localPort := uint16(stack.Prand32()>>17) + 1024
		c.Logger.Info("socket:dialing", slog.Uint64("localPort", uint64(localPort)))
		lcd.Send(status, "Mirror", "TCP handshake")
		err = rstack.DoDialTCP(&conn, localPort, serverAddr, 10*time.Second, 3)
		if err != nil {
			closeConn("dial failed: " + err.Error())
			time.Sleep(2 * time.Second)
			continue
		}

		conn.SetDeadline(time.Now().Add(c.Timeout))
		err = mqttClient.StartConnect(&conn, &varconn)
		if err != nil {
			c.Logger.Error("mqtt:start-connect-failed", slog.String("reason", err.Error()))
			closeConn("connect failed")
			continue
		}
		for retries := 50; retries > 0 && !mqttClient.IsConnected(); retries-- {
			time.Sleep(100 * time.Millisecond)
			if err := mqttClient.HandleNext(); err != nil {
				c.Logger.Error("mqtt:handle-next-failed", slog.String("err", err.Error()))
			}
		}
		if !mqttClient.IsConnected() {
			c.Logger.Error("mqtt:connect-failed", slog.Any("reason", mqttClient.Err()))
			lcd.Send(status, "Mirror", "Connect timeout")
			closeConn("connect timed out")
			continue
		}
		lcd.Send(status, "Mirror", "Connected")

		c.forward(mqttClient, fwd, &conn, keys)

		c.Logger.Error("mqtt:disconnected", slog.Any("reason", mqttClient.Err()))
		lcd.Send(status, "Mirror", "Reconnecting...")
		closeConn("disconnected")
	}
}

// forward publishes keystrokes until the session drops.
func (c *Client) forward(mqttClient *mqtt.Client, fwd *Forwarder, conn *tcp.Conn, keys <-chan byte) {
	interval := c.HeartbeatInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	heartbeat := time.NewTicker(interval)
	defer heartbeat.Stop()

	for mqttClient.IsConnected() {
		select {
		case ch := <-keys:
			conn.SetDeadline(time.Now().Add(c.Timeout))
			if err := fwd.Publish(NewKeystroke(ch, time.Since(c.Boot))); err != nil {
				c.Logger.Error("mirror:publish-failed", slog.Any("reason", err))
				continue
			}
			if err := mqttClient.HandleNext(); err != nil {
				c.Logger.Error("mqtt:handle-next-failed", slog.String("err", err.Error()))
			}
		case <-heartbeat.C:
			// Idle: let the client service pings so the broker keeps us.
			if err := mqttClient.HandleNext(); err != nil {
				c.Logger.Error("mqtt:handle-next-failed", slog.String("err", err.Error()))
			}
		default:
			// TinyGo runs goroutines on one core; yield to the terminal.
			runtime.Gosched()
		}
	}
}

// splitHostPort splits "host:port" on the last colon.
func splitHostPort(addr string) (host, port string, err error) {
	colon := -1
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			colon = i
			break
		}
	}
	if colon == -1 {
		return "", "", errors.New("missing port in address")
	}
	host, port = addr[:colon], addr[colon+1:]
	if host == "" {
		return "", "", errors.New("empty host")
	}
	if port == "" {
		return "", "", errors.New("empty port")
	}
	return host, port, nil
}
