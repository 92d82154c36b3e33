package signaling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/weiawesome/wes-io-live/live-relay/internal/audit"
	"github.com/weiawesome/wes-io-live/live-relay/internal/domain"
	"github.com/weiawesome/wes-io-live/live-relay/internal/room"
	pkglog "github.com/weiawesome/wes-io-live/live-relay/pkg/log"
)

// Sender delivers frames to connections without blocking.
type Sender interface {
	Send(connID string, data []byte) error
	SendJSON(connID string, v any) error
}

// Router dispatches signaling envelopes between a room's broadcaster and
// its viewers. Routing misses and dead targets are logged and dropped;
// only validation failures are returned to the caller.
type Router struct {
	dir    *room.Directory
	sender Sender
}

// NewRouter creates a router over dir.
func NewRouter(dir *room.Directory, sender Sender) *Router {
	return &Router{dir: dir, sender: sender}
}

// Route handles one raw envelope received from connection from.
func (r *Router) Route(ctx context.Context, from string, raw []byte) error {
	var env domain.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%w: malformed envelope", domain.ErrValidation)
	}
	if env.Type == "" {
		return fmt.Errorf("%w: missing type", domain.ErrValidation)
	}
	roomID := env.RoomOrDefault()

	l := pkglog.Ctx(ctx).With().
		Str(pkglog.FieldMsgType, env.Type).
		Str(pkglog.FieldRoomID, roomID).
		Logger()
	ctx = pkglog.WithLogger(ctx, l)

	switch env.Type {
	case domain.MsgTypeAdminJoin:
		return r.handleAdminJoin(ctx, from, roomID)
	case domain.MsgTypeAdminReady, domain.MsgTypeAdminStopped:
		return r.handleAdminNotice(ctx, from, roomID, env.Type)
	case domain.MsgTypeViewerJoin:
		return r.handleViewerJoin(ctx, from, roomID)
	case domain.MsgTypeViewerLeave:
		return r.handleViewerLeave(ctx, from, roomID)
	case domain.MsgTypeOffer:
		return r.handleOffer(ctx, from, roomID, &env, raw)
	case domain.MsgTypeAnswer:
		return r.handleAnswer(ctx, from, roomID, raw)
	case domain.MsgTypeCandidate, domain.MsgTypeICECandidate:
		return r.handleCandidate(ctx, from, roomID, &env, raw)
	default:
		return fmt.Errorf("%w: unknown message type %q", domain.ErrValidation, env.Type)
	}
}

func (r *Router) handleAdminJoin(ctx context.Context, from, roomID string) error {
	previous, vacated := r.dir.JoinAsBroadcaster(roomID, from)
	for _, old := range vacated {
		r.notifyViewers(ctx, old, domain.Notice{Type: domain.MsgTypeAdminStopped, Room: old, Reason: "moved"})
	}
	if previous != "" {
		audit.LogTarget(ctx, audit.ActionTakeover, from, previous, "broadcaster replaced")
		r.deliver(ctx, previous, domain.Notice{Type: domain.MsgTypeAdminReplaced, Room: roomID})
	} else {
		audit.Log(ctx, audit.ActionBroadcasterJoin, from, "broadcaster joined")
	}

	// The viewer list lets a reconnecting broadcaster offer to everyone waiting.
	r.deliver(ctx, from, domain.Notice{
		Type:    domain.MsgTypeAdminJoined,
		Room:    roomID,
		Viewers: r.dir.Viewers(roomID),
	})
	return nil
}

func (r *Router) handleAdminNotice(ctx context.Context, from, roomID, msgType string) error {
	if b, ok := r.dir.BroadcasterOf(roomID); !ok || b != from {
		l := pkglog.Ctx(ctx)
		l.Debug().Str(pkglog.FieldConnID, from).Msg("admin notice from non-broadcaster dropped")
		return nil
	}
	r.notifyViewers(ctx, roomID, domain.Notice{Type: msgType, Room: roomID})
	return nil
}

func (r *Router) handleViewerJoin(ctx context.Context, from, roomID string) error {
	viewerID, err := r.dir.JoinAsViewer(roomID, from)
	if err != nil {
		return err
	}

	r.deliver(ctx, from, domain.Notice{Type: domain.MsgTypeViewerJoined, Room: roomID, ViewerID: viewerID})

	b, ok := r.dir.BroadcasterOf(roomID)
	if !ok {
		l := pkglog.Ctx(ctx)
		l.Debug().Str(pkglog.FieldViewerID, viewerID).Msg("viewer waiting for broadcaster")
		return nil
	}
	r.deliver(ctx, b, domain.Notice{Type: domain.MsgTypeViewerJoin, Room: roomID, ViewerID: viewerID})
	return nil
}

func (r *Router) handleViewerLeave(ctx context.Context, from, roomID string) error {
	role, ok := r.dir.LeaveRoom(roomID, from)
	if !ok || role != room.RoleViewer {
		return nil
	}
	r.notifyBroadcasterOfLeave(ctx, roomID, from)
	return nil
}

func (r *Router) handleOffer(ctx context.Context, from, roomID string, env *domain.Envelope, raw []byte) error {
	if env.ViewerID == "" {
		return fmt.Errorf("%w: offer requires viewerId", domain.ErrValidation)
	}
	target, ok := r.dir.Viewer(roomID, env.ViewerID)
	if !ok {
		r.miss(ctx, "viewer", env.ViewerID)
		return nil
	}
	r.relay(ctx, from, target, raw)
	return nil
}

func (r *Router) handleAnswer(ctx context.Context, from, roomID string, raw []byte) error {
	target, ok := r.dir.BroadcasterOf(roomID)
	if !ok {
		r.miss(ctx, "broadcaster", roomID)
		return nil
	}
	r.relay(ctx, from, target, stampViewer(raw, from))
	return nil
}

func (r *Router) handleCandidate(ctx context.Context, from, roomID string, env *domain.Envelope, raw []byte) error {
	if env.Target == "" {
		return fmt.Errorf("%w: candidate requires target", domain.ErrValidation)
	}

	if env.Target == domain.TargetAdmin {
		target, ok := r.dir.BroadcasterOf(roomID)
		if !ok {
			r.miss(ctx, "broadcaster", roomID)
			return nil
		}
		r.relay(ctx, from, target, stampViewer(raw, from))
		return nil
	}

	target, ok := r.dir.Viewer(roomID, env.Target)
	if !ok {
		r.miss(ctx, "viewer", env.Target)
		return nil
	}
	r.relay(ctx, from, target, raw)
	return nil
}

// Disconnect removes conn from every room. Broadcasters are told about
// departed viewers; viewers are told when their broadcaster goes away.
func (r *Router) Disconnect(ctx context.Context, conn string) {
	for _, m := range r.dir.Leave(conn) {
		switch m.Role {
		case room.RoleViewer:
			r.notifyBroadcasterOfLeave(ctx, m.Room, conn)
		case room.RoleBroadcaster:
			r.notifyViewers(ctx, m.Room, domain.Notice{
				Type:   domain.MsgTypeAdminStopped,
				Room:   m.Room,
				Reason: "disconnect",
			})
		}
	}
}

func (r *Router) notifyBroadcasterOfLeave(ctx context.Context, roomID, viewerID string) {
	if b, ok := r.dir.BroadcasterOf(roomID); ok {
		r.deliver(ctx, b, domain.Notice{Type: domain.MsgTypeViewerLeave, Room: roomID, ViewerID: viewerID})
	}
}

func (r *Router) notifyViewers(ctx context.Context, roomID string, n domain.Notice) {
	data, err := json.Marshal(n)
	if err != nil {
		return
	}
	for _, v := range r.dir.Viewers(roomID) {
		r.send(ctx, v, data)
	}
}

// relay forwards raw bytes to target, never back to the sender.
func (r *Router) relay(ctx context.Context, from, target string, raw []byte) {
	if target == from {
		l := pkglog.Ctx(ctx)
		l.Debug().Str(pkglog.FieldConnID, from).Msg("envelope addressed to its sender dropped")
		return
	}
	r.send(ctx, target, raw)
}

func (r *Router) deliver(ctx context.Context, target string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	r.send(ctx, target, data)
}

func (r *Router) send(ctx context.Context, target string, data []byte) {
	if err := r.sender.Send(target, data); err != nil {
		l := pkglog.Ctx(ctx)
		evt := l.Warn()
		if errors.Is(err, domain.ErrConnectionClosed) {
			evt = l.Debug()
		}
		evt.Err(err).Str(pkglog.FieldConnID, target).Msg("signaling delivery failed")
	}
}

func (r *Router) miss(ctx context.Context, kind, id string) {
	l := pkglog.Ctx(ctx)
	l.Debug().Err(domain.ErrUnknownTarget).Str("target_kind", kind).Str("target", id).Msg("signaling target not found")
}

// stampViewer sets viewerId to the sending connection so the broadcaster
// can tell its peers apart. Undecodable input is returned unchanged.
func stampViewer(raw []byte, viewerID string) []byte {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return raw
	}
	id, err := json.Marshal(viewerID)
	if err != nil {
		return raw
	}
	fields["viewerId"] = id
	out, err := json.Marshal(fields)
	if err != nil {
		return raw
	}
	return out
}
