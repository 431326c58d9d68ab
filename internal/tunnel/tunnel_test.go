package tunnel

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

// testSSHServer is a minimal password-auth SSH daemon that honors
// direct-tcpip channels, enough to exercise the forwarder end to end.
func testSSHServer(t *testing.T, user, password string) string {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	hostKey, err := ssh.NewSignerFromKey(priv)
	require.NoError(t, err)

	config := &ssh.ServerConfig{
		PasswordCallback: func(meta ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
			if meta.User() == user && string(pass) == password {
				return nil, nil
			}
			return nil, fmt.Errorf("auth rejected")
		},
	}
	config.AddHostKey(hostKey)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = listener.Close() })

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go func(conn net.Conn) {
				serverConn, chans, reqs, err := ssh.NewServerConn(conn, config)
				if err != nil {
					return
				}
				defer serverConn.Close()
				go ssh.DiscardRequests(reqs)
				for newChan := range chans {
					if newChan.ChannelType() != "direct-tcpip" {
						_ = newChan.Reject(ssh.UnknownChannelType, "unsupported")
						continue
					}
					payload := newChan.ExtraData()
					addrLen := binary.BigEndian.Uint32(payload[0:4])
					host := string(payload[4 : 4+addrLen])
					port := binary.BigEndian.Uint32(payload[4+addrLen : 8+addrLen])

					channel, chanReqs, err := newChan.Accept()
					if err != nil {
						continue
					}
					go ssh.DiscardRequests(chanReqs)
					go func(channel ssh.Channel, target string) {
						defer channel.Close()
						dst, err := net.Dial("tcp", target)
						if err != nil {
							return
						}
						defer dst.Close()
						go func() { _, _ = io.Copy(dst, channel) }()
						_, _ = io.Copy(channel, dst)
					}(channel, net.JoinHostPort(host, fmt.Sprintf("%d", port)))
				}
			}(conn)
		}
	}()

	return listener.Addr().String()
}

func TestTunnelForwardsToRemoteAPI(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte(`{"version":"2023.1"}`)); err != nil {
			t.Errorf("Failed to write response: %v", err)
		}
	}))
	defer backend.Close()
	backendAddr := backend.Listener.Addr().(*net.TCPAddr)

	sshAddr := testSSHServer(t, "tunneler", "hunter2")
	host, portStr, err := net.SplitHostPort(sshAddr)
	require.NoError(t, err)
	var port int
	_, err = fmt.Sscanf(portStr, "%d", &port)
	require.NoError(t, err)

	tun := New(Config{
		SSHHost:     host,
		SSHPort:     port,
		SSHUsername: "tunneler",
		SSHPassword: "hunter2",
		RemoteHost:  "127.0.0.1",
		RemotePort:  backendAddr.Port,
		APIUsername: "api",
		APIPassword: "secret",
	})

	require.NoError(t, tun.Start())
	defer tun.Stop()
	require.NotZero(t, tun.LocalPort())

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(tun.LocalURL() + "/api/v1/show_config")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":"2023.1"}`, string(body))
}

func TestTunnelStartWithBadCredentials(t *testing.T) {
	sshAddr := testSSHServer(t, "tunneler", "hunter2")
	host, portStr, err := net.SplitHostPort(sshAddr)
	require.NoError(t, err)
	var port int
	_, err = fmt.Sscanf(portStr, "%d", &port)
	require.NoError(t, err)

	tun := New(Config{
		SSHHost:     host,
		SSHPort:     port,
		SSHUsername: "tunneler",
		SSHPassword: "wrong",
		RemoteHost:  "127.0.0.1",
		RemotePort:  80,
	})
	require.Error(t, tun.Start())
	assert.Zero(t, tun.LocalPort())
}

func TestTunnelStartUnreachableHost(t *testing.T) {
	tun := New(Config{
		SSHHost:     "127.0.0.1",
		SSHPort:     1,
		SSHUsername: "u",
		SSHPassword: "p",
		RemoteHost:  "127.0.0.1",
		RemotePort:  80,
	})
	require.Error(t, tun.Start())
}

func TestTunnelStopIsIdempotent(t *testing.T) {
	tun := New(Config{SSHHost: "example.com", SSHPort: 22})
	tun.Stop()
	tun.Stop()
	assert.Zero(t, tun.LocalPort())
}

func TestTunnelAddresses(t *testing.T) {
	tun := New(Config{
		SSHHost:    "bots.example.com",
		SSHPort:    2222,
		RemoteHost: "127.0.0.1",
		RemotePort: 8080,
	})
	assert.Equal(t, "bots.example.com:2222", tun.SSHAddress())
	assert.Equal(t, "127.0.0.1:8080", tun.RemoteAddress())
}

func TestTunnelMissingKeyFile(t *testing.T) {
	tun := New(Config{
		SSHHost:    "127.0.0.1",
		SSHPort:    2222,
		SSHKeyPath: "/nonexistent/id_ed25519",
	})
	err := tun.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "private key")
}

func TestLoadBuildsOneTunnelPerInstance(t *testing.T) {
	tunnels := Load([]Config{
		{SSHHost: "a", SSHPort: 22},
		{SSHHost: "b", SSHPort: 22},
	})
	require.Len(t, tunnels, 2)
	assert.Equal(t, "a:22", tunnels[0].SSHAddress())
	assert.Equal(t, "b:22", tunnels[1].SSHAddress())
}
