package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var ErrNotConnected = errors.New("not connected")

// Config configures the OneBot client
type Config struct {
	WSURL       string
	AccessToken string
	// RetryDelay is the wait between reconnect attempts; defaults to 5s.
	RetryDelay time.Duration
}

type OneBot struct {
	config Config
	conn   *websocket.Conn
	mu     sync.Mutex

	// GroupMsgHandler receives (groupID, senderID, message) for commands and @mentions.
	// Each call runs on its own goroutine.
	GroupMsgHandler func(groupID int64, senderID int64, msg string)
}

// Event represents a basic OneBot event
type Event struct {
	PostType      string      `json:"post_type"`
	MetaEventType string      `json:"meta_event_type"`
	MessageType   string      `json:"message_type"`
	SubType       string      `json:"sub_type"`
	GroupID       int64       `json:"group_id"`
	UserID        int64       `json:"user_id"`
	Message       interface{} `json:"message"`     // content
	RawMessage    string      `json:"raw_message"` // content with CQ codes
	SelfID        int64       `json:"self_id"`
}

// ActionFrame is the wrapper for sending requests
type ActionFrame struct {
	Action string      `json:"action"`
	Params interface{} `json:"params"`
	Echo   string      `json:"echo"`
}

type GroupMsgParams struct {
	GroupID int64  `json:"group_id"`
	Message string `json:"message"`
}

func New(cfg Config) *OneBot {
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 5 * time.Second
	}
	return &OneBot{config: cfg}
}

// Run connects and listens until ctx is cancelled, reconnecting on failure.
func (b *OneBot) Run(ctx context.Context) error {
	u, err := url.Parse(b.config.WSURL)
	if err != nil {
		return fmt.Errorf("invalid WS URL: %w", err)
	}

	// access_token 同时放在 query 中，兼容不读取 Header 的实现
	if b.config.AccessToken != "" {
		q := u.Query()
		q.Set("access_token", b.config.AccessToken)
		u.RawQuery = q.Encode()
	}

	header := http.Header{}
	if b.config.AccessToken != "" {
		header.Add("Authorization", "Bearer "+b.config.AccessToken)
	}

	for {
		logrus.Infof("Connecting to OneBot at %s (Token len: %d)...", u.Redacted(), len(b.config.AccessToken))

		c, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
		if err != nil {
			logrus.Errorf("Connection failed: %v. Retrying in %s...", err, b.config.RetryDelay)
			if !sleep(ctx, b.config.RetryDelay) {
				return ctx.Err()
			}
			continue
		}

		b.mu.Lock()
		b.conn = c
		b.mu.Unlock()
		logrus.Info("Connected to OneBot!")

		b.readLoop(ctx, c)

		b.mu.Lock()
		b.conn = nil
		b.mu.Unlock()
		c.Close()

		if ctx.Err() != nil {
			return ctx.Err()
		}
		logrus.Warn("Disconnected. Reconnecting...")
		if !sleep(ctx, b.config.RetryDelay) {
			return ctx.Err()
		}
	}
}

func (b *OneBot) readLoop(ctx context.Context, c *websocket.Conn) {
	// unblock ReadMessage on shutdown
	stop := context.AfterFunc(ctx, func() { c.Close() })
	defer stop()

	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				logrus.Errorf("Read error: %v", err)
			}
			return
		}
		b.handleMessage(message)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (b *OneBot) handleMessage(msg []byte) {
	var evt Event
	if err := json.Unmarshal(msg, &evt); err != nil {
		logrus.Warnf("Failed to unmarshal event: %v | Msg: %s", err, string(msg))
		return
	}

	if evt.PostType == "meta_event" && evt.MetaEventType == "heartbeat" {
		return
	}
	logrus.Debugf("Received Event: PostType=%s | User=%d | Raw=%s", evt.PostType, evt.UserID, evt.RawMessage)

	if evt.PostType != "message" || evt.MessageType != "group" {
		return
	}

	// 只响应 @机器人 或 以 . 开头的指令
	target := fmt.Sprintf("[CQ:at,qq=%d]", evt.SelfID)
	isAt := strings.Contains(evt.RawMessage, target)
	content := strings.TrimSpace(strings.ReplaceAll(evt.RawMessage, target, ""))
	if !isAt && !strings.HasPrefix(content, ".") {
		return
	}

	logrus.Infof("Received Group Msg from %d in Group %d: %s", evt.UserID, evt.GroupID, content)
	if b.GroupMsgHandler != nil {
		// keep the read loop free
		go b.GroupMsgHandler(evt.GroupID, evt.UserID, content)
	}
}

// SendGroupMsg writes a send_group_msg action. Safe for concurrent use.
func (b *OneBot) SendGroupMsg(groupID int64, msg string) error {
	logrus.Infof("[SEND] To Group %d: %s", groupID, msg)

	frame := ActionFrame{
		Action: "send_group_msg",
		Params: GroupMsgParams{
			GroupID: groupID,
			Message: msg,
		},
	}

	// gorilla/websocket allows one concurrent writer; b.mu serializes writes
	// and guards conn being swapped on reconnect.
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn == nil {
		return ErrNotConnected
	}
	return b.conn.WriteJSON(frame)
}
