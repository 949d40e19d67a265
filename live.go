package league

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	pingInterval = 10 * time.Second
)

// LiveUpdate is pushed to live feed clients when a watched season/division's standings change.
type LiveUpdate struct {
	SeasonDivision

	Standings *Standings `json:"standings"`
	Updated   time.Time  `json:"updated"`
	Stale     bool       `json:"stale"`
}

// Broadcaster publishes live updates.
type Broadcaster interface {
	Send(update *LiveUpdate) error
}

type NilBroadcaster struct{}

func (NilBroadcaster) Send(update *LiveUpdate) error {
	logrus.Debugf("live update for %s not sent, live feed disabled", update.SeasonDivision)
	return nil
}

var ErrLiveHubStopped = errors.New("league: live hub is not running")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// LiveHub fans live updates out to websocket clients. New clients are sent the most
// recent update for every season/division the hub has seen.
type LiveHub struct {
	clients    map[*liveClient]bool
	latest     map[string]*LiveUpdate
	broadcast  chan *LiveUpdate
	register   chan *liveClient
	unregister chan *liveClient
	done       chan struct{}

	numClients int32
}

func NewLiveHub() *LiveHub {
	return &LiveHub{
		clients:    make(map[*liveClient]bool),
		latest:     make(map[string]*LiveUpdate),
		broadcast:  make(chan *LiveUpdate, 16),
		register:   make(chan *liveClient),
		unregister: make(chan *liveClient),
		done:       make(chan struct{}),
	}
}

func (h *LiveHub) Send(update *LiveUpdate) error {
	select {
	case <-h.done:
		return ErrLiveHubStopped
	default:
	}

	select {
	case h.broadcast <- update:
		return nil
	case <-h.done:
		return ErrLiveHubStopped
	}
}

// NumClients is the number of connected websocket clients.
func (h *LiveHub) NumClients() int {
	return int(atomic.LoadInt32(&h.numClients))
}

func (h *LiveHub) removeClient(client *liveClient) {
	if _, ok := h.clients[client]; !ok {
		return
	}

	close(client.receive)
	delete(h.clients, client)
	atomic.StoreInt32(&h.numClients, int32(len(h.clients)))
}

// Run processes registrations and broadcasts until ctx is done.
func (h *LiveHub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.removeClient(client)
			}

			close(h.done)

			return
		case client := <-h.register:
			h.clients[client] = true
			atomic.StoreInt32(&h.numClients, int32(len(h.clients)))

			for _, update := range h.latest {
				select {
				case client.receive <- update:
				default:
				}
			}
		case client := <-h.unregister:
			h.removeClient(client)
		case update := <-h.broadcast:
			h.latest[update.SeasonDivision.String()] = update

			for client := range h.clients {
				select {
				case client.receive <- update:
				default:
					h.removeClient(client)
				}
			}
		}
	}
}

func (h *LiveHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := upgrader.Upgrade(w, r, nil)

	if err != nil {
		logrus.WithError(err).Error("could not upgrade live feed connection")
		return
	}

	client := &liveClient{hub: h, conn: c, receive: make(chan *LiveUpdate, 256)}

	select {
	case h.register <- client:
	case <-h.done:
		_ = c.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

type liveClient struct {
	hub *LiveHub

	conn    *websocket.Conn
	receive chan *LiveUpdate
}

// readPump discards anything the client sends, unregistering the client once the
// connection is closed.
func (c *liveClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *liveClient) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		if rvr := recover(); rvr != nil {
			logrus.WithField("panic", rvr).Errorf("Recovered from panic")
		}
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case update, ok := <-c.receive:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			err := c.conn.WriteJSON(update)

			if err != nil && !strings.HasSuffix(err.Error(), "write: broken pipe") {
				logrus.WithError(err).Errorf("Could not send websocket message")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
