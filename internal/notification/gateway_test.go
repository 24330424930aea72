package notification

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/resend/resend-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquawatch/notification-service/internal/config"
)

func TestTwilioGateway_Send(t *testing.T) {
	t.Run("accepted", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/2010-04-01/Accounts/AC123/Messages.json", r.URL.Path)
			user, pass, ok := r.BasicAuth()
			assert.True(t, ok)
			assert.Equal(t, "AC123", user)
			assert.Equal(t, "secret", pass)
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "+15551234567", r.PostForm.Get("To"))
			assert.Equal(t, "+15550000000", r.PostForm.Get("From"))
			assert.Equal(t, "[HIGH] pH spike", r.PostForm.Get("Body"))

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"sid":"SM42","status":"queued"}`))
		}))
		defer srv.Close()

		gw := NewTwilioGateway(config.TwilioConfig{
			AccountSID: "AC123", AuthToken: "secret", FromNumber: "+15550000000", BaseURL: srv.URL,
		})
		out, err := gw.Send(context.Background(), Message{To: "+15551234567", Body: "[HIGH] pH spike"})
		require.NoError(t, err)
		assert.True(t, out.Accepted)
		assert.Equal(t, "SM42", out.ProviderID)
	})

	t.Run("rejected carries the provider message", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"code":21211,"message":"The 'To' number is not a valid phone number.","status":400}`))
		}))
		defer srv.Close()

		gw := NewTwilioGateway(config.TwilioConfig{AccountSID: "AC123", AuthToken: "secret", BaseURL: srv.URL})
		out, err := gw.Send(context.Background(), Message{To: "bogus", Body: "x"})
		require.NoError(t, err)
		assert.False(t, out.Accepted)
		assert.Equal(t, "The 'To' number is not a valid phone number.", out.Detail)
	})

	t.Run("rejected without a body falls back to the status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		gw := NewTwilioGateway(config.TwilioConfig{AccountSID: "AC123", AuthToken: "secret", BaseURL: srv.URL})
		out, err := gw.Send(context.Background(), Message{To: "+1", Body: "x"})
		require.NoError(t, err)
		assert.False(t, out.Accepted)
		assert.Equal(t, "Twilio returned status 503", out.Detail)
	})

	t.Run("unreachable provider is a transport error", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		base := srv.URL
		srv.Close()

		gw := NewTwilioGateway(config.TwilioConfig{AccountSID: "AC123", AuthToken: "secret", BaseURL: base})
		_, err := gw.Send(context.Background(), Message{To: "+1", Body: "x"})
		assert.Error(t, err)
	})
}

func newTestResendGateway(t *testing.T, handler http.HandlerFunc) *ResendGateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := resend.NewCustomClient(srv.Client(), "re_test")
	base, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	client.BaseURL = base
	return &ResendGateway{client: client, from: "alerts@aquawatch.com"}
}

func TestResendGateway_Send(t *testing.T) {
	t.Run("accepted", func(t *testing.T) {
		gw := newTestResendGateway(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/emails", r.URL.Path)
			assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))

			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "alerts@aquawatch.com", body["from"])
			assert.Equal(t, []any{"ops@example.com"}, body["to"])
			assert.Equal(t, "[AquaWatch] HIGH - Anomaly Detected: SPIKE", body["subject"])

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id":"email-123"}`))
		})

		out, err := gw.Send(context.Background(), Message{
			To: "ops@example.com", Subject: "[AquaWatch] HIGH - Anomaly Detected: SPIKE", Body: "<p>hi</p>",
		})
		require.NoError(t, err)
		assert.True(t, out.Accepted)
		assert.Equal(t, "email-123", out.ProviderID)
	})

	t.Run("rejected by the api", func(t *testing.T) {
		gw := newTestResendGateway(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"statusCode":422,"name":"validation_error","message":"Invalid to field."}`))
		})

		out, err := gw.Send(context.Background(), Message{To: "not-an-email", Subject: "s", Body: "b"})
		require.NoError(t, err)
		assert.False(t, out.Accepted)
		assert.NotEmpty(t, out.Detail)
	})
}

// fakeSMTP accepts a single session and answers RCPT with rcptReply.
func fakeSMTP(t *testing.T, rcptReply string) (int, <-chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	received := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		r := bufio.NewReader(conn)
		reply := func(s string) { fmt.Fprintf(conn, "%s\r\n", s) }
		reply("220 fake ESMTP")
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			cmd := strings.ToUpper(strings.TrimSpace(line))
			switch {
			case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
				reply("250 fake")
			case strings.HasPrefix(cmd, "RCPT TO"):
				reply(rcptReply)
			case cmd == "DATA":
				reply("354 end with <CRLF>.<CRLF>")
				var data strings.Builder
				for {
					l, err := r.ReadString('\n')
					if err != nil {
						return
					}
					if l == ".\r\n" {
						break
					}
					data.WriteString(l)
				}
				received <- data.String()
				reply("250 queued")
			case cmd == "QUIT":
				reply("221 bye")
				return
			default:
				reply("250 OK")
			}
		}
	}()

	return ln.Addr().(*net.TCPAddr).Port, received
}

func TestSMTPGateway_Send(t *testing.T) {
	t.Run("delivered", func(t *testing.T) {
		port, received := fakeSMTP(t, "250 OK")
		gw := NewSMTPGateway(config.SMTPConfig{Host: "127.0.0.1", Port: port, From: "noreply@aquawatch.com"})

		out, err := gw.Send(context.Background(), Message{To: "ops@example.com", Subject: "Alert", Body: "<p>Alert</p>"})
		require.NoError(t, err)
		assert.True(t, out.Accepted)

		data := <-received
		assert.Contains(t, data, "Subject: Alert")
		assert.Contains(t, data, "ops@example.com")
		assert.Contains(t, data, "text/html")
		assert.Contains(t, data, "<p>Alert</p>")
	})

	t.Run("server refusal surfaces as an error", func(t *testing.T) {
		port, _ := fakeSMTP(t, "550 no such user")
		gw := NewSMTPGateway(config.SMTPConfig{Host: "127.0.0.1", Port: port, From: "noreply@aquawatch.com"})

		_, err := gw.Send(context.Background(), Message{To: "nobody@example.com", Subject: "s", Body: "b"})
		assert.Error(t, err)
	})
}
