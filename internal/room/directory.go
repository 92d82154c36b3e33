package room

import (
	"fmt"
	"sort"
	"sync"

	"github.com/weiawesome/wes-io-live/live-relay/internal/domain"
)

// Role is a connection's part in one room.
type Role int

const (
	RoleViewer Role = iota + 1
	RoleBroadcaster
)

func (r Role) String() string {
	switch r {
	case RoleViewer:
		return "viewer"
	case RoleBroadcaster:
		return "broadcaster"
	}
	return "none"
}

// Membership is one room a connection belonged to.
type Membership struct {
	Room string
	Role Role
}

type room struct {
	broadcaster string
	viewers     map[string]struct{}
}

func (r *room) empty() bool {
	return r.broadcaster == "" && len(r.viewers) == 0
}

// Directory maps rooms to one broadcaster and many viewers. The reverse
// index byConn lists every room a connection is in, so Leave touches only
// those rooms. Membership changes take the write lock; routing lookups
// share the read lock.
type Directory struct {
	mu     sync.RWMutex
	rooms  map[string]*room
	byConn map[string]map[string]Role
}

// NewDirectory creates an empty directory.
func NewDirectory() *Directory {
	return &Directory{
		rooms:  make(map[string]*room),
		byConn: make(map[string]map[string]Role),
	}
}

func (d *Directory) roomLocked(id string) *room {
	r, ok := d.rooms[id]
	if !ok {
		r = &room{viewers: make(map[string]struct{})}
		d.rooms[id] = r
	}
	return r
}

func (d *Directory) indexLocked(conn, roomID string, role Role) {
	rooms, ok := d.byConn[conn]
	if !ok {
		rooms = make(map[string]Role)
		d.byConn[conn] = rooms
	}
	rooms[roomID] = role
}

func (d *Directory) unindexLocked(conn, roomID string) {
	if rooms, ok := d.byConn[conn]; ok {
		delete(rooms, roomID)
		if len(rooms) == 0 {
			delete(d.byConn, conn)
		}
	}
}

func (d *Directory) gcLocked(roomID string) {
	if r, ok := d.rooms[roomID]; ok && r.empty() {
		delete(d.rooms, roomID)
	}
}

// JoinAsBroadcaster makes conn the room's broadcaster. Any previous
// broadcaster is removed from the room and returned; previous is empty when
// there was none or conn already held the role. A connection broadcasts in
// one room at a time, so rooms it was broadcasting in are vacated and
// returned as well.
func (d *Directory) JoinAsBroadcaster(roomID, conn string) (previous string, vacated []string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	r := d.roomLocked(roomID)
	if r.broadcaster == conn {
		return "", nil
	}

	for other, role := range d.byConn[conn] {
		if role != RoleBroadcaster || other == roomID {
			continue
		}
		if or, ok := d.rooms[other]; ok {
			or.broadcaster = ""
		}
		d.unindexLocked(conn, other)
		d.gcLocked(other)
		vacated = append(vacated, other)
	}
	sort.Strings(vacated)

	previous = r.broadcaster
	if previous != "" {
		d.unindexLocked(previous, roomID)
	}

	delete(r.viewers, conn)
	r.broadcaster = conn
	d.indexLocked(conn, roomID, RoleBroadcaster)
	return previous, vacated
}

// JoinAsViewer adds conn to the room's viewers and returns its viewer id,
// which is the connection id. Joining twice is a no-op.
func (d *Directory) JoinAsViewer(roomID, conn string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if r, ok := d.rooms[roomID]; ok && r.broadcaster == conn {
		return "", fmt.Errorf("join %s as viewer: %w", roomID, domain.ErrRoleConflict)
	}

	r := d.roomLocked(roomID)
	r.viewers[conn] = struct{}{}
	d.indexLocked(conn, roomID, RoleViewer)
	return conn, nil
}

// Leave removes conn from every room and returns what it left. Safe to call
// for connections that are in no room.
func (d *Directory) Leave(conn string) []Membership {
	d.mu.Lock()
	defer d.mu.Unlock()

	rooms, ok := d.byConn[conn]
	if !ok {
		return nil
	}
	delete(d.byConn, conn)

	left := make([]Membership, 0, len(rooms))
	for roomID, role := range rooms {
		if r, ok := d.rooms[roomID]; ok {
			if r.broadcaster == conn {
				r.broadcaster = ""
			}
			delete(r.viewers, conn)
			d.gcLocked(roomID)
		}
		left = append(left, Membership{Room: roomID, Role: role})
	}
	sort.Slice(left, func(i, j int) bool { return left[i].Room < left[j].Room })
	return left
}

// LeaveRoom removes conn from a single room and reports the role it held.
func (d *Directory) LeaveRoom(roomID, conn string) (Role, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	role, ok := d.byConn[conn][roomID]
	if !ok {
		return 0, false
	}
	d.unindexLocked(conn, roomID)

	if r, ok := d.rooms[roomID]; ok {
		if r.broadcaster == conn {
			r.broadcaster = ""
		}
		delete(r.viewers, conn)
		d.gcLocked(roomID)
	}
	return role, true
}

// BroadcasterOf returns the room's broadcaster connection.
func (d *Directory) BroadcasterOf(roomID string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	r, ok := d.rooms[roomID]
	if !ok || r.broadcaster == "" {
		return "", false
	}
	return r.broadcaster, true
}

// Viewer resolves a viewer id to its connection within the room.
func (d *Directory) Viewer(roomID, viewerID string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	r, ok := d.rooms[roomID]
	if !ok {
		return "", false
	}
	if _, ok := r.viewers[viewerID]; !ok {
		return "", false
	}
	return viewerID, true
}

// Viewers returns the room's viewer connections, sorted.
func (d *Directory) Viewers(roomID string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	r, ok := d.rooms[roomID]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(r.viewers))
	for id := range r.viewers {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// RoomsOf returns the rooms conn is in, sorted.
func (d *Directory) RoomsOf(conn string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]string, 0, len(d.byConn[conn]))
	for roomID := range d.byConn[conn] {
		out = append(out, roomID)
	}
	sort.Strings(out)
	return out
}

// RoomStats describes one room.
type RoomStats struct {
	Room           string `json:"room"`
	HasBroadcaster bool   `json:"hasBroadcaster"`
	Viewers        int    `json:"viewers"`
}

// Stats summarizes the directory.
type Stats struct {
	Rooms       int         `json:"rooms"`
	Connections int         `json:"connections"`
	PerRoom     []RoomStats `json:"perRoom"`
}

// Stats returns a snapshot of room occupancy.
func (d *Directory) Stats() Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()

	st := Stats{
		Rooms:       len(d.rooms),
		Connections: len(d.byConn),
		PerRoom:     make([]RoomStats, 0, len(d.rooms)),
	}
	for id, r := range d.rooms {
		st.PerRoom = append(st.PerRoom, RoomStats{
			Room:           id,
			HasBroadcaster: r.broadcaster != "",
			Viewers:        len(r.viewers),
		})
	}
	sort.Slice(st.PerRoom, func(i, j int) bool { return st.PerRoom[i].Room < st.PerRoom[j].Room })
	return st
}
