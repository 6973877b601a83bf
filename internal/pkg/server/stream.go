package server

import (
	"encoding/json"
	"net/http"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/anicoll/homedash/internal/pkg/model"
	"github.com/anicoll/homedash/pkg/sockets"
)

const (
	messageState    = "state"
	messageSnapshot = "snapshot"
	messageVisible  = "visible"
)

type stateSource interface {
	States() []model.WidgetState
	Visible()
}

type streamMessage struct {
	Type   string              `json:"type"`
	State  *model.WidgetState  `json:"state,omitempty"`
	States []model.WidgetState `json:"states,omitempty"`
}

// Stream pushes widget state changes to websocket clients. New clients
// receive a snapshot; a client "visible" message refreshes every poller.
type Stream struct {
	hub    *sockets.Hub
	source atomic.Pointer[stateSource]
	logger *zap.Logger
}

func NewStream(pingIntervalSecs int) *Stream {
	st := &Stream{logger: zap.L()}
	st.hub = sockets.NewHub([]func(*sockets.Conn){
		sockets.WithPingIntervalSec(pingIntervalSecs),
		sockets.OnConnected(st.onConnected),
		sockets.OnMessage(st.onMessage),
		sockets.OnError(func(err error) {
			st.logger.Debug("websocket client error", zap.Error(err))
		}),
	})
	return st
}

// Attach sets the dashboard the stream reads snapshots from.
func (st *Stream) Attach(src stateSource) {
	st.source.Store(&src)
}

func (st *Stream) Publish(state model.WidgetState) {
	if err := st.hub.BroadcastJSON(streamMessage{Type: messageState, State: &state}); err != nil {
		st.logger.Error("failed to broadcast state", zap.Error(err), zap.String("widget_id", state.WidgetID))
	}
}

func (st *Stream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	st.hub.ServeHTTP(w, r)
}

func (st *Stream) Close() {
	st.hub.Close()
}

func (st *Stream) onConnected(c sockets.Connection) {
	src := st.source.Load()
	if src == nil {
		return
	}
	body, err := json.Marshal(streamMessage{Type: messageSnapshot, States: (*src).States()})
	if err != nil {
		st.logger.Error("failed to encode snapshot", zap.Error(err))
		return
	}
	if err := c.Send(sockets.Msg{Body: body}); err != nil {
		st.logger.Debug("failed to send snapshot", zap.Error(err))
	}
}

func (st *Stream) onMessage(msg []byte, _ sockets.Connection) {
	var in streamMessage
	if err := json.Unmarshal(msg, &in); err != nil {
		st.logger.Debug("ignoring malformed client message", zap.Error(err))
		return
	}
	if in.Type != messageVisible {
		return
	}
	if src := st.source.Load(); src != nil {
		(*src).Visible()
	}
}
