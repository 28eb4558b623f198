package server

import "sync"

// Rooms 1 through permanentRoomLimit always exist. Higher IDs come and go
// with their membership.
const permanentRoomLimit = 4

// roomIndex tracks which nicknames are in which rooms. It knows nothing
// about connections; the registry resolves nicknames at delivery time.
type roomIndex struct {
	mu      sync.Mutex
	members map[int64]map[string]struct{}
}

func newRoomIndex() *roomIndex {
	members := make(map[int64]map[string]struct{})
	for id := int64(1); id <= permanentRoomLimit; id++ {
		members[id] = make(map[string]struct{})
	}
	return &roomIndex{members: members}
}

// join adds nickname to the room, creating it on demand. It returns the
// member count after the join and whether the nickname was already present.
func (x *roomIndex) join(roomID int64, nickname string) (count int, already bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	room, ok := x.members[roomID]
	if !ok {
		room = make(map[string]struct{})
		x.members[roomID] = room
	}
	if _, already = room[nickname]; !already {
		room[nickname] = struct{}{}
	}
	return len(room), already
}

// leave removes nickname from the room and returns the remaining member
// count. Ephemeral rooms are deleted when their last member leaves.
func (x *roomIndex) leave(roomID int64, nickname string) (count int, wasMember bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	room, ok := x.members[roomID]
	if !ok {
		return 0, false
	}
	if _, wasMember = room[nickname]; wasMember {
		delete(room, nickname)
	}
	count = len(room)
	if count == 0 && roomID > permanentRoomLimit {
		delete(x.members, roomID)
	}
	return count, wasMember
}

// roomDeparture is one membership removed by leaveAll.
type roomDeparture struct {
	roomID    int64
	remaining int
}

// leaveAll removes nickname from every room in one critical section and
// returns the affected rooms with their remaining member counts. Emptied
// ephemeral rooms are deleted.
func (x *roomIndex) leaveAll(nickname string) []roomDeparture {
	x.mu.Lock()
	defer x.mu.Unlock()
	var departures []roomDeparture
	for roomID, room := range x.members {
		if _, ok := room[nickname]; !ok {
			continue
		}
		delete(room, nickname)
		departures = append(departures, roomDeparture{roomID: roomID, remaining: len(room)})
		if len(room) == 0 && roomID > permanentRoomLimit {
			delete(x.members, roomID)
		}
	}
	return departures
}

// contains reports whether nickname is a member of the room.
func (x *roomIndex) contains(roomID int64, nickname string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	_, ok := x.members[roomID][nickname]
	return ok
}

// roster copies the room membership for fan-out outside the lock.
func (x *roomIndex) roster(roomID int64) []string {
	x.mu.Lock()
	defer x.mu.Unlock()
	room, ok := x.members[roomID]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(room))
	for nickname := range room {
		names = append(names, nickname)
	}
	return names
}
