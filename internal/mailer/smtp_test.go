package mailer

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"fmt"
	"math/big"
	"net"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsAuthError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"535 bad credentials", &textproto.Error{Code: 535, Msg: "5.7.8 Username and Password not accepted"}, true},
		{"534 app password required", fmt.Errorf("wrapped: %w", &textproto.Error{Code: 534, Msg: "5.7.9"}), true},
		{"530 auth required", &textproto.Error{Code: 530, Msg: "5.7.0 Authentication Required"}, true},
		{"client auth message", errors.New("SMTP AUTH failed: unexpected response"), true},
		{"mailbox unavailable", &textproto.Error{Code: 550, Msg: "no such user"}, false},
		{"network", errors.New("dial tcp: connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isAuthError(tt.err))
		})
	}
}

func TestBuildMsg(t *testing.T) {
	m, err := buildMsg(Message{
		From:    "buddy@example.com",
		To:      "learner@example.com",
		Subject: "Words",
		Text:    "- cat - kot",
		HTML:    "<ul><li>cat - kot</li></ul>",
	})
	require.NoError(t, err)

	var sb strings.Builder
	_, err = m.WriteTo(&sb)
	require.NoError(t, err)

	out := sb.String()
	assert.Contains(t, out, "learner@example.com")
	assert.Contains(t, out, "Subject: Words")
	assert.Contains(t, out, "text/plain")
	assert.Contains(t, out, "text/html")
}

func TestBuildMsgRejectsBadRecipient(t *testing.T) {
	_, err := buildMsg(Message{From: "buddy@example.com", To: "not an address"})
	require.Error(t, err)
}

func TestSendUnreachableRelayIsNotAuthError(t *testing.T) {
	s := NewSMTPSender(Config{Host: "127.0.0.1", Port: 1, Username: "u", Password: "p", Timeout: time.Second})

	err := s.Send(context.Background(), Message{From: "buddy@example.com", To: "learner@example.com", Subject: "s", Text: "t"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrAuth))
}

// relay is a minimal STARTTLS relay. AUTH is answered with authReply and
// accepted messages are sent to received.
type relay struct {
	tlsConf   *tls.Config
	authReply string
	received  chan string
}

func selfSignedTLS(t *testing.T) (*tls.Config, *x509.CertPool) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "test relay"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1")},
		DNSNames:              []string{"localhost"},
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	pool := x509.NewCertPool()
	pool.AddCert(cert)

	return &tls.Config{
		Certificates: []tls.Certificate{{Certificate: [][]byte{der}, PrivateKey: key, Leaf: cert}},
		MinVersion:   tls.VersionTLS12,
	}, pool
}

// startRelay listens on 127.0.0.1 and returns a sender config pointing at it.
func startRelay(t *testing.T, authReply string) (Config, *relay) {
	t.Helper()

	serverTLS, roots := selfSignedTLS(t)
	r := &relay{tlsConf: serverTLS, authReply: authReply, received: make(chan string, 1)}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go r.handle(conn)
		}
	}()

	return Config{
		Host:     "127.0.0.1",
		Port:     ln.Addr().(*net.TCPAddr).Port,
		Username: "buddy@example.com",
		Password: "secret",
		Timeout:  5 * time.Second,
		TLSConfig: &tls.Config{
			RootCAs:    roots,
			ServerName: "127.0.0.1",
			MinVersion: tls.VersionTLS12,
		},
	}, r
}

func (r *relay) handle(conn net.Conn) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

	tp := textproto.NewConn(conn)
	_ = tp.PrintfLine("220 localhost ESMTP test relay")
	secure := false

	for {
		line, err := tp.ReadLine()
		if err != nil {
			return
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			_ = tp.PrintfLine("500 empty command")
			continue
		}

		switch strings.ToUpper(fields[0]) {
		case "EHLO":
			if secure {
				_ = tp.PrintfLine("250-localhost")
				_ = tp.PrintfLine("250 AUTH PLAIN LOGIN")
			} else {
				_ = tp.PrintfLine("250-localhost")
				_ = tp.PrintfLine("250 STARTTLS")
			}
		case "HELO":
			_ = tp.PrintfLine("250 localhost")
		case "STARTTLS":
			_ = tp.PrintfLine("220 2.0.0 Ready to start TLS")
			tlsConn := tls.Server(conn, r.tlsConf)
			if err := tlsConn.Handshake(); err != nil {
				return
			}
			tp = textproto.NewConn(tlsConn)
			secure = true
		case "AUTH":
			_ = tp.PrintfLine("%s", r.authReply)
		case "MAIL", "RCPT", "RSET", "NOOP":
			_ = tp.PrintfLine("250 2.0.0 OK")
		case "DATA":
			_ = tp.PrintfLine("354 End data with <CR><LF>.<CR><LF>")
			body, err := tp.ReadDotBytes()
			if err != nil {
				return
			}
			r.received <- string(body)
			_ = tp.PrintfLine("250 2.0.0 Queued")
		case "*":
			_ = tp.PrintfLine("501 5.0.0 Authentication cancelled")
		case "QUIT":
			_ = tp.PrintfLine("221 2.0.0 Bye")
			return
		default:
			_ = tp.PrintfLine("500 5.5.1 Unrecognized command")
		}
	}
}

var relayMsg = Message{
	From:    "buddy@example.com",
	To:      "learner@example.com",
	Subject: "Notebook",
	Text:    "- cat - kot",
}

func TestSendRejectedLoginIsAuthError(t *testing.T) {
	cfg, _ := startRelay(t, "535 5.7.8 Authentication credentials invalid")

	err := NewSMTPSender(cfg).Send(context.Background(), relayMsg)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuth)
}

func TestSendDeliversThroughRelay(t *testing.T) {
	cfg, r := startRelay(t, "235 2.7.0 Authentication successful")

	require.NoError(t, NewSMTPSender(cfg).Send(context.Background(), relayMsg))

	select {
	case body := <-r.received:
		assert.Contains(t, body, "Subject: Notebook")
		assert.Contains(t, body, "- cat - kot")
	case <-time.After(5 * time.Second):
		t.Fatal("relay received no message")
	}
}
