package control

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gorilla/websocket"
)

// Client — соединение с сервером управления.
type Client struct {
	conn *websocket.Conn
}

// Dial подключается к серверу; token передаётся заголовком Authorization.
func Dial(ctx context.Context, addr, path, token string) (*Client, error) {
	u := url.URL{Scheme: "ws", Host: addr, Path: path}
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	dialer := websocket.Dialer{HandshakeTimeout: writeWait}
	conn, resp, err := dialer.DialContext(ctx, u.String(), h)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", u.String(), err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", u.String(), err)
	}
	return &Client{conn: conn}, nil
}

// Send отправляет сообщение и ждёт ответ на него.
// Рассылки о срабатываниях, пришедшие раньше ответа, пропускаются.
func (c *Client) Send(ctx context.Context, m Inbound) (Reply, error) {
	stop := context.AfterFunc(ctx, func() { _ = c.conn.Close() })
	defer stop()

	if err := c.conn.WriteJSON(m); err != nil {
		return Reply{}, fmt.Errorf("send: %w", err)
	}
	for {
		var rep Reply
		if err := c.conn.ReadJSON(&rep); err != nil {
			if ctx.Err() != nil {
				return Reply{}, context.Cause(ctx)
			}
			return Reply{}, fmt.Errorf("read reply: %w", err)
		}
		switch rep.Type {
		case TypeAck, TypeStatus:
			return rep, nil
		case TypeError:
			return rep, errors.New(rep.Error)
		}
	}
}

func (c *Client) Close() error {
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
	return c.conn.Close()
}

// Request — одно сообщение через отдельное соединение.
func Request(ctx context.Context, addr, path, token string, m Inbound) (Reply, error) {
	c, err := Dial(ctx, addr, path, token)
	if err != nil {
		return Reply{}, err
	}
	defer c.Close()
	return c.Send(ctx, m)
}
