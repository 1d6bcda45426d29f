package axigen

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"
)

const recvBufSize = 4096

// Client is a line-oriented client for the administrative CLI. It is not safe
// for concurrent use; each worker owns exactly one Client.
type Client struct {
	conn    net.Conn
	timeout time.Duration
}

// DialClient opens a TCP connection to the CLI and consumes the banner.
func DialClient(ctx context.Context, host string, port int, timeout time.Duration) (*Client, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, fmt.Sprintf("%d", port)))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to cli %s:%d: %w", host, port, err)
	}

	c := &Client{conn: conn, timeout: timeout}

	// Banner / welcome text; content is irrelevant
	if _, err := c.recvAll(); err != nil {
		c.conn.Close()
		return nil, fmt.Errorf("failed to read cli banner: %w", err)
	}

	return c, nil
}

// Login authenticates the session. The CLI prompts for the password on a
// separate line after USER.
func (c *Client) Login(username, password string) error {
	if err := c.sendLine("USER " + username); err != nil {
		return err
	}
	reply, err := c.recvAll()
	if err != nil {
		return err
	}

	if err := c.sendLine(password); err != nil {
		return err
	}
	more, err := c.recvAll()
	if err != nil {
		return err
	}
	reply += more

	lower := strings.ToLower(reply)
	if strings.Contains(lower, "invalid") || strings.Contains(lower, "failed") {
		return fmt.Errorf("cli login failed: %s", strings.TrimSpace(reply))
	}
	return nil
}

// Run sends a single command and returns the raw reply text. A transport
// fault returns an error; negative protocol replies are plain text for the
// caller to classify.
func (c *Client) Run(command string) (string, error) {
	if err := c.sendLine(command); err != nil {
		return "", err
	}
	return c.recvAll()
}

// Close sends a best-effort QUIT and closes the connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	_ = c.sendLine("QUIT")
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Client) sendLine(line string) error {
	if c.conn == nil {
		return fmt.Errorf("cli connection is closed")
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}
	if _, err := c.conn.Write([]byte(line + "\r\n")); err != nil {
		return fmt.Errorf("failed to send cli line: %w", err)
	}
	return nil
}

// recvAll reads until the server goes quiet. The CLI frames nothing, so a
// short read or an idle period within the timeout marks the end of a reply.
func (c *Client) recvAll() (string, error) {
	if c.conn == nil {
		return "", fmt.Errorf("cli connection is closed")
	}

	var b strings.Builder
	buf := make([]byte, recvBufSize)

	for {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
			return "", fmt.Errorf("failed to set read deadline: %w", err)
		}

		n, err := c.conn.Read(buf)
		if n > 0 {
			b.Write(buf[:n])
		}
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				// idle: reply is complete as far as the server cares
				break
			}
			if b.Len() > 0 {
				break
			}
			return "", fmt.Errorf("failed to read cli reply: %w", err)
		}
		if n < recvBufSize {
			// short read: very likely the end of the reply
			break
		}
	}

	return b.String(), nil
}
