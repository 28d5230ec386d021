package onboarding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/Vasu1712/algonomic-backend/internal/api/respond"
	"github.com/Vasu1712/algonomic-backend/internal/apperr"
	"github.com/Vasu1712/algonomic-backend/internal/metrics"
	"github.com/Vasu1712/algonomic-backend/internal/middleware"
	sequencer "github.com/Vasu1712/algonomic-backend/internal/onboarding"
	"github.com/Vasu1712/algonomic-backend/internal/session"
	"github.com/Vasu1712/algonomic-backend/internal/uploads"
	"github.com/Vasu1712/algonomic-backend/internal/ws"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	outboxSize     = 64
)

// OnboardingHandler runs one onboarding sequencer per websocket connection.
type OnboardingHandler struct {
	Auth    session.Authenticator
	Hub     *ws.Hub
	Timings sequencer.Timings
	Clock   sequencer.Clock
	Origins []string
	Log     logrus.FieldLogger
}

type clientMessage struct {
	Type     string `json:"type"`
	FileID   string `json:"fileId,omitempty"`
	Message  string `json:"message,omitempty"`
	Token    string `json:"token,omitempty"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
}

type serverMessage struct {
	Type  string           `json:"type"`
	State *sequencer.State `json:"state,omitempty"`
	Error string           `json:"error,omitempty"`
}

// ServeWS handles GET /ws/onboarding. A bearer token may be given in the
// Authorization header or the token query parameter; without one the session
// waits for a signIn message.
func (h *OnboardingHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := middleware.BearerToken(r)
	if token == "" {
		token = r.URL.Query().Get("token")
	}

	gate := session.NewGate(h.Auth)
	if token != "" {
		if err := gate.Authenticate(token); err != nil {
			respond.JSON(w, http.StatusUnauthorized, respond.ErrorBody{Error: "Invalid token"})
			return
		}
	}

	upgrader := websocket.Upgrader{CheckOrigin: h.checkOrigin}
	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Log.WithError(err).Warn("[Onboarding] websocket upgrade failed")
		return
	}

	c := &connection{
		ws:     wsConn,
		out:    make(chan []byte, outboxSize),
		closed: make(chan struct{}),
		gate:   gate,
		hub:    h.Hub,
		log:    h.Log.WithField("remote", r.RemoteAddr),
	}
	clock := h.Clock
	if clock == nil {
		clock = sequencer.RealClock
	}
	c.seq = sequencer.New(
		sequencer.WithClock(clock),
		sequencer.WithTimings(h.Timings),
		sequencer.WithListener(c.sequencerEvent),
		sequencer.WithLogger(c.log),
	)
	metrics.OnboardingSessionOpened()

	stopSub := gate.Subscribe(c.identityChanged)
	if id := gate.Current(); id != nil {
		c.identityChanged(id)
	}
	if err := c.seq.Watch(gate); err != nil {
		c.log.WithError(err).Warn("[Onboarding] watch identity")
	}
	c.log.Info("[Onboarding] session opened")

	go c.writePump()
	go c.readPump(stopSub)
}

func (h *OnboardingHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range h.Origins {
		if o == origin {
			return true
		}
	}
	return false
}

// connection is the per-socket state. identityChanged, handle and teardown
// all run on the read goroutine (or before it starts).
type connection struct {
	ws     *websocket.Conn
	out    chan []byte
	closed chan struct{}
	gate   *session.Gate
	seq    *sequencer.Sequencer
	hub    *ws.Hub
	client *ws.Client
	log    logrus.FieldLogger
}

// identityChanged moves the hub registration to the new user.
func (c *connection) identityChanged(id *session.Identity) {
	if c.client != nil {
		c.hub.Unregister(c.client)
		c.client = nil
	}
	if id == nil {
		return
	}
	client := ws.NewClient(id.UserID, c.ws)
	if !c.hub.Register(client) {
		return
	}
	c.client = client
	go c.forward(client)
}

func (c *connection) forward(client *ws.Client) {
	for msg := range client.Send {
		select {
		case c.out <- msg:
		case <-c.closed:
			return
		}
	}
}

// sequencerEvent runs under the sequencer lock and must not block.
func (c *connection) sequencerEvent(e sequencer.Event) {
	st := e.State
	c.send(serverMessage{Type: string(e.Kind), State: &st})
}

func (c *connection) send(msg serverMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.log.WithError(err).Error("[Onboarding] encode message")
		return
	}
	select {
	case <-c.closed:
		return
	default:
	}
	select {
	case c.out <- data:
	default:
		c.log.WithField("type", msg.Type).Warn("[Onboarding] outbox full, message dropped")
	}
}

func (c *connection) sendError(err error) {
	msg := err.Error()
	var ae *apperr.Error
	if errors.As(err, &ae) {
		msg = ae.Message
	}
	c.send(serverMessage{Type: "error", Error: msg})
}

func (c *connection) readPump(stopSub func()) {
	defer c.teardown(stopSub)

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.WithError(err).Warn("[Onboarding] read failed")
			}
			return
		}
		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.send(serverMessage{Type: "error", Error: "Invalid message"})
			continue
		}
		if err := c.handle(msg); err != nil {
			c.sendError(err)
		}
	}
}

func (c *connection) handle(msg clientMessage) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()

	switch msg.Type {
	case "introComplete":
		return c.seq.OnIntroAnimationComplete()
	case "morphComplete":
		return c.seq.OnMorphComplete()
	case "advance":
		return c.seq.Advance()
	case "pickImage":
		return c.seq.PickImage()
	case "uploadStarted":
		return c.seq.BeginUpload()
	case "uploadFinished":
		if !uploads.ValidFileID(msg.FileID) {
			return apperr.New(apperr.CodeInvalidInput, "Invalid fileId")
		}
		return c.seq.CompleteUpload(msg.FileID)
	case "uploadFailed":
		return c.seq.FailUpload(msg.Message)
	case "signUp":
		return c.gate.SignUp(ctx, msg.Email, msg.Password)
	case "signIn":
		if msg.Token != "" {
			return c.gate.Authenticate(msg.Token)
		}
		return c.gate.SignIn(ctx, msg.Email, msg.Password)
	case "signOut":
		c.gate.SignOut()
		return nil
	case "state":
		st := c.seq.State()
		c.send(serverMessage{Type: "state", State: &st})
		return nil
	default:
		return apperr.New(apperr.CodeInvalidInput, "Unknown message type")
	}
}

func (c *connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case msg := <-c.out:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.log.WithError(err).Debug("[Onboarding] write failed")
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.closed:
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

func (c *connection) teardown(stopSub func()) {
	close(c.closed)
	c.seq.Close()
	stopSub()
	if c.client != nil {
		c.hub.Unregister(c.client)
		c.client = nil
	}
	c.ws.Close()
	metrics.OnboardingSessionClosed()
	c.log.Info("[Onboarding] session closed")
}
