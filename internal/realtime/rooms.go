package realtime

import (
	"sync"
)

// Rooms groups chat-channel connections by chat id. A connection is in at
// most one room at a time.
type Rooms struct {
	mu      sync.RWMutex
	members map[string]map[string]*Conn // room -> connID -> conn
	joined  map[string]string           // connID -> room
}

func NewRooms() *Rooms {
	return &Rooms{
		members: make(map[string]map[string]*Conn),
		joined:  make(map[string]string),
	}
}

// Join moves conn into room, leaving its previous room. It returns the
// previous room or "".
func (r *Rooms) Join(room string, conn *Conn) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.joined[conn.ID]
	if prev == room {
		return prev
	}
	if prev != "" {
		r.removeLocked(prev, conn.ID)
	}

	members, ok := r.members[room]
	if !ok {
		members = make(map[string]*Conn)
		r.members[room] = members
	}
	members[conn.ID] = conn
	r.joined[conn.ID] = room
	return prev
}

func (r *Rooms) Leave(conn *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if room, ok := r.joined[conn.ID]; ok {
		r.removeLocked(room, conn.ID)
	}
}

func (r *Rooms) removeLocked(room, connID string) {
	delete(r.joined, connID)
	if members, ok := r.members[room]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(r.members, room)
		}
	}
}

func (r *Rooms) RoomOf(conn *Conn) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.joined[conn.ID]
}

func (r *Rooms) Size(room string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members[room])
}

// Members returns a snapshot of the room's connections.
func (r *Rooms) Members(room string) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := make([]*Conn, 0, len(r.members[room]))
	for _, conn := range r.members[room] {
		members = append(members, conn)
	}
	return members
}
