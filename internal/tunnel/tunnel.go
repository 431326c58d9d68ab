package tunnel

import (
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"
)

const dialTimeout = 10 * time.Second

// Config describes one remote bot instance reachable over SSH. The private
// API credentials ride along so the scraper has everything for a cycle in
// one place.
type Config struct {
	SSHHost     string
	SSHPort     int
	SSHUsername string
	// SSHPassword is the login password, or the key passphrase when
	// SSHKeyPath is set.
	SSHPassword string
	SSHKeyPath  string

	RemoteHost string
	RemotePort int

	APIUsername string
	APIPassword string
}

// Tunnel forwards a local ephemeral port to the remote bot's private API
// over SSH. It is started at the beginning of a reconciliation pass and
// stopped at the end; the local port changes on every start.
type Tunnel struct {
	cfg Config

	mu        sync.Mutex
	client    *ssh.Client
	listener  net.Listener
	localPort int
	started   bool
}

// New builds a tunnel from config. No connection is made until Start.
func New(cfg Config) *Tunnel {
	return &Tunnel{cfg: cfg}
}

// SSHAddress is the host:port of the SSH endpoint, used as the stored host
// identity.
func (t *Tunnel) SSHAddress() string {
	return net.JoinHostPort(t.cfg.SSHHost, strconv.Itoa(t.cfg.SSHPort))
}

// RemoteAddress is the host:port of the bot API on the far side.
func (t *Tunnel) RemoteAddress() string {
	return net.JoinHostPort(t.cfg.RemoteHost, strconv.Itoa(t.cfg.RemotePort))
}

// APIUsername returns the bot API basic-auth username.
func (t *Tunnel) APIUsername() string { return t.cfg.APIUsername }

// APIPassword returns the bot API basic-auth password.
func (t *Tunnel) APIPassword() string { return t.cfg.APIPassword }

// LocalPort returns the currently bound local port, zero when stopped.
func (t *Tunnel) LocalPort() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.localPort
}

// LocalURL is the base URL the instance client should talk to while the
// tunnel is up.
func (t *Tunnel) LocalURL() string {
	return fmt.Sprintf("http://127.0.0.1:%d", t.LocalPort())
}

func (t *Tunnel) authMethod() (ssh.AuthMethod, error) {
	if t.cfg.SSHKeyPath == "" {
		return ssh.Password(t.cfg.SSHPassword), nil
	}
	key, err := os.ReadFile(t.cfg.SSHKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key %s: %w", t.cfg.SSHKeyPath, err)
	}
	var signer ssh.Signer
	if t.cfg.SSHPassword != "" {
		signer, err = ssh.ParsePrivateKeyWithPassphrase(key, []byte(t.cfg.SSHPassword))
	} else {
		signer, err = ssh.ParsePrivateKey(key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key %s: %w", t.cfg.SSHKeyPath, err)
	}
	return ssh.PublicKeys(signer), nil
}

// Start dials SSH, binds an ephemeral local port and begins forwarding
// connections to the remote API. A failed start leaves the tunnel stopped.
func (t *Tunnel) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		return nil
	}

	auth, err := t.authMethod()
	if err != nil {
		return err
	}
	sshConfig := &ssh.ClientConfig{
		User:            t.cfg.SSHUsername,
		Auth:            []ssh.AuthMethod{auth},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // #nosec G106 hosts are operator-configured
		Timeout:         dialTimeout,
	}

	client, err := ssh.Dial("tcp", t.SSHAddress(), sshConfig)
	if err != nil {
		return fmt.Errorf("failed to dial ssh %s: %w", t.SSHAddress(), err)
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		if cerr := client.Close(); cerr != nil {
			logrus.WithError(cerr).Warn("Error closing ssh client")
		}
		return fmt.Errorf("failed to bind local port: %w", err)
	}

	t.client = client
	t.listener = listener
	t.localPort = listener.Addr().(*net.TCPAddr).Port
	t.started = true

	go t.accept(client, listener)

	logrus.WithFields(logrus.Fields{
		"ssh_address": t.SSHAddress(),
		"local_port":  t.localPort,
	}).Info("Tunnel started")
	return nil
}

func (t *Tunnel) accept(client *ssh.Client, listener net.Listener) {
	for {
		local, err := listener.Accept()
		if err != nil {
			// Listener closed on Stop.
			return
		}
		go t.forward(client, local)
	}
}

func (t *Tunnel) forward(client *ssh.Client, local net.Conn) {
	remote, err := client.Dial("tcp", t.RemoteAddress())
	if err != nil {
		logrus.WithError(err).WithField("remote", t.RemoteAddress()).Warn("Failed to reach remote endpoint")
		if cerr := local.Close(); cerr != nil {
			logrus.WithError(cerr).Warn("Error closing local connection")
		}
		return
	}

	var wg sync.WaitGroup
	wg.Add(2)
	pipe := func(dst, src net.Conn) {
		defer wg.Done()
		if _, err := io.Copy(dst, src); err != nil {
			logrus.WithError(err).Debug("Tunnel copy ended")
		}
		// Half-close so the peer sees EOF.
		if tcp, ok := dst.(*net.TCPConn); ok {
			_ = tcp.CloseWrite()
		}
	}
	go pipe(remote, local)
	go pipe(local, remote)
	wg.Wait()
	if err := remote.Close(); err != nil {
		logrus.WithError(err).Debug("Error closing remote connection")
	}
	if err := local.Close(); err != nil {
		logrus.WithError(err).Debug("Error closing local connection")
	}
}

// Stop closes the listener and the SSH connection. Safe to call on a
// stopped tunnel.
func (t *Tunnel) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.started {
		return
	}
	if err := t.listener.Close(); err != nil {
		logrus.WithError(err).Warn("Error closing tunnel listener")
	}
	if err := t.client.Close(); err != nil {
		logrus.WithError(err).Warn("Error closing ssh client")
	}
	t.listener = nil
	t.client = nil
	t.localPort = 0
	t.started = false
	logrus.WithField("ssh_address", t.SSHAddress()).Info("Tunnel stopped")
}

// Load builds one tunnel per instance config.
func Load(configs []Config) []*Tunnel {
	tunnels := make([]*Tunnel, 0, len(configs))
	for _, cfg := range configs {
		tunnels = append(tunnels, New(cfg))
	}
	return tunnels
}
