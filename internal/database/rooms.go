package database

import (
	"sort"

	"reservas/internal/models"
)

// SetRooms loads the room catalog into the in-memory cache. The catalog
// comes from configuration; the store only answers "does this room exist
// and is it bookable".
func (db *DB) SetRooms(rooms []models.Room) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.roomsCache = make(map[string]models.Room, len(rooms))
	for _, room := range rooms {
		db.roomsCache[room.ID] = room
	}
	db.sortedRooms = append([]models.Room(nil), rooms...)
}

// GetRooms returns the catalog sorted by display order.
func (db *DB) GetRooms() []models.Room {
	db.mu.RLock()
	rooms := append([]models.Room(nil), db.sortedRooms...)
	db.mu.RUnlock()

	sort.Slice(rooms, func(i, j int) bool {
		if rooms[i].SortOrder == rooms[j].SortOrder {
			return rooms[i].ID < rooms[j].ID
		}
		return rooms[i].SortOrder < rooms[j].SortOrder
	})
	return rooms
}

// GetRoom looks a room up by id.
func (db *DB) GetRoom(id string) (models.Room, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	room, ok := db.roomsCache[id]
	return room, ok
}

// RoomBookable reports whether the room exists and accepts reservations.
func (db *DB) RoomBookable(id string) bool {
	room, ok := db.GetRoom(id)
	return ok && room.IsActive
}
