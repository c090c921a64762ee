package session

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"ifcoins/quizroom/internal/models"
)

const writeWait = 10 * time.Second

type Client struct {
	Conn   *websocket.Conn
	UserID string
	mu     sync.Mutex
}

func NewClient(conn *websocket.Conn, userID string) *Client {
	return &Client{Conn: conn, UserID: userID}
}

func (c *Client) Send(snapshot models.RoomSnapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Conn == nil {
		return nil
	}
	_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.Conn.WriteJSON(snapshot)
}
