// Package rooms implements the Room Registry: persistent named rooms with
// channel-to-room bindings that survive restarts, stored as one JSON
// document per room plus a single channel-mapping index file.
package rooms

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// RoomType classifies a room's purpose.
type RoomType string

const (
	RoomOpen         RoomType = "open"
	RoomProject      RoomType = "project"
	RoomDirect       RoomType = "direct"
	RoomCoordination RoomType = "coordination"
)

// MemberType classifies a RoomMember.
type MemberType string

const (
	MemberUser    MemberType = "user"
	MemberChannel MemberType = "channel"
	MemberBot     MemberType = "bot"
)

// RoomMember is a channel, user, or bot attached to a room.
type RoomMember struct {
	ID       string         `json:"id"`
	Type     MemberType     `json:"member_type"`
	Channel  string         `json:"channel,omitempty"`
	ChatID   string         `json:"chat_id,omitempty"`
	JoinedAt time.Time      `json:"joined_at"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Room is a persistent named locus of conversation independent of any
// single chat channel.
type Room struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Type         RoomType       `json:"room_type"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	Participants []string       `json:"participants"`
	Members      []RoomMember   `json:"members"`
	Description  string         `json:"description"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

func (r *Room) addParticipant(botName string) {
	for _, p := range r.Participants {
		if p == botName {
			return
		}
	}
	r.Participants = append(r.Participants, botName)
	r.UpdatedAt = time.Now()
}

func (r *Room) removeParticipant(botName string) {
	out := r.Participants[:0]
	for _, p := range r.Participants {
		if p != botName {
			out = append(out, p)
		}
	}
	r.Participants = out
	r.UpdatedAt = time.Now()
}

func (r *Room) addMember(m RoomMember) {
	for _, existing := range r.Members {
		if existing.ID == m.ID {
			return
		}
	}
	r.Members = append(r.Members, m)
	r.UpdatedAt = time.Now()
}

func (r *Room) removeMember(id string) {
	out := r.Members[:0]
	for _, m := range r.Members {
		if m.ID != id {
			out = append(out, m)
		}
	}
	r.Members = out
	r.UpdatedAt = time.Now()
}

// DefaultParticipants are the bot roles seeded into the "general" room on
// startup.
var DefaultParticipants = []string{"leader", "researcher", "creative", "coder", "social", "auditor"}

// Registry manages rooms persisted as per-room JSON documents under
// roomsDir, plus a single channel_mappings.json index.
type Registry struct {
	mu               sync.Mutex
	roomsDir         string
	channelMappings  map[string]string // "channel:chat_id" -> room id
	cache            map[string]*Room
}

// Open loads (or creates) the registry rooted at roomsDir and ensures the
// "general" room exists.
func Open(roomsDir string) (*Registry, error) {
	if err := os.MkdirAll(roomsDir, 0755); err != nil {
		return nil, fmt.Errorf("rooms: create dir %s: %w", roomsDir, err)
	}
	reg := &Registry{
		roomsDir:        roomsDir,
		channelMappings: map[string]string{},
		cache:           map[string]*Room{},
	}
	if err := reg.loadChannelMappings(); err != nil {
		slog.Warn("rooms: failed to load channel mappings", "error", err)
	}
	if err := reg.EnsureDefaultRooms(); err != nil {
		return nil, err
	}
	return reg, nil
}

func (reg *Registry) mappingPath() string {
	return filepath.Join(reg.roomsDir, "channel_mappings.json")
}

func (reg *Registry) roomPath(id string) string {
	return filepath.Join(reg.roomsDir, id+".json")
}

func (reg *Registry) loadChannelMappings() error {
	data, err := os.ReadFile(reg.mappingPath())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("parse channel mappings: %w", err)
	}
	reg.channelMappings = m
	return nil
}

func (reg *Registry) saveChannelMappingsLocked() error {
	data, err := json.MarshalIndent(reg.channelMappings, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(reg.mappingPath(), data, 0644)
}

func (reg *Registry) saveRoomLocked(r *Room) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(reg.roomPath(r.ID), data, 0644); err != nil {
		return fmt.Errorf("rooms: save room %s: %w", r.ID, err)
	}
	reg.cache[r.ID] = r
	return nil
}

func (reg *Registry) loadRoomLocked(id string) (*Room, error) {
	if r, ok := reg.cache[id]; ok {
		return r, nil
	}
	data, err := os.ReadFile(reg.roomPath(id))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("rooms: read room %s: %w", id, err)
	}
	var r Room
	if err := json.Unmarshal(data, &r); err != nil {
		slog.Warn("rooms: corrupt room file, skipping", "id", id, "error", err)
		return nil, nil
	}
	reg.cache[id] = &r
	return &r, nil
}

// CreateRoom creates a new room. It rejects duplicate ids.
func (reg *Registry) CreateRoom(id, name string, typ RoomType, participants []string, description string) (*Room, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	existing, err := reg.loadRoomLocked(id)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("rooms: room %q already exists", id)
	}
	if name == "" {
		name = id
	}
	if participants == nil {
		participants = []string{"leader"}
	}
	r := &Room{
		ID:           id,
		Name:         name,
		Type:         typ,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
		Participants: participants,
		Description:  description,
	}
	if err := reg.saveRoomLocked(r); err != nil {
		return nil, err
	}
	slog.Info("rooms: created room", "id", id, "type", typ)
	return r, nil
}

// GetRoom returns a room by id, or nil if it does not exist.
func (reg *Registry) GetRoom(id string) (*Room, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return reg.loadRoomLocked(id)
}

// GetOrCreateRoom returns the existing room or creates it with the given
// defaults.
func (reg *Registry) GetOrCreateRoom(id, name string, typ RoomType, participants []string, description string) (*Room, error) {
	if r, err := reg.GetRoom(id); err != nil {
		return nil, err
	} else if r != nil {
		return r, nil
	}
	return reg.CreateRoom(id, name, typ, participants, description)
}

// DeleteRoom removes the room file and every channel mapping pointing at
// it. Returns false if the room did not exist.
func (reg *Registry) DeleteRoom(id string) (bool, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if _, err := os.Stat(reg.roomPath(id)); os.IsNotExist(err) {
		return false, nil
	}
	if err := os.Remove(reg.roomPath(id)); err != nil {
		return false, fmt.Errorf("rooms: delete room %s: %w", id, err)
	}
	delete(reg.cache, id)

	for key, rid := range reg.channelMappings {
		if rid == id {
			delete(reg.channelMappings, key)
		}
	}
	if err := reg.saveChannelMappingsLocked(); err != nil {
		slog.Warn("rooms: failed to persist channel mappings after delete", "error", err)
	}
	slog.Info("rooms: deleted room", "id", id)
	return true, nil
}

// ListRooms returns every room known to the registry.
func (reg *Registry) ListRooms() ([]Room, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	entries, err := os.ReadDir(reg.roomsDir)
	if err != nil {
		return nil, fmt.Errorf("rooms: list rooms dir: %w", err)
	}
	var out []Room
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") || name == "channel_mappings.json" {
			continue
		}
		id := strings.TrimSuffix(name, ".json")
		r, err := reg.loadRoomLocked(id)
		if err != nil {
			return out, err
		}
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, nil
}

// AddParticipant adds a bot participant to a room.
func (reg *Registry) AddParticipant(roomID, botName string) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	r, err := reg.loadRoomLocked(roomID)
	if err != nil {
		return err
	}
	if r == nil {
		return fmt.Errorf("rooms: room %q not found", roomID)
	}
	r.addParticipant(botName)
	return reg.saveRoomLocked(r)
}

// RemoveParticipant removes a bot participant from a room.
func (reg *Registry) RemoveParticipant(roomID, botName string) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	r, err := reg.loadRoomLocked(roomID)
	if err != nil {
		return err
	}
	if r == nil {
		return fmt.Errorf("rooms: room %q not found", roomID)
	}
	r.removeParticipant(botName)
	return reg.saveRoomLocked(r)
}

func channelKey(channel, chatID string) string {
	return channel + ":" + chatID
}

// BindChannel maps a (channel, chatID) pair to a room, idempotently:
// binding the same pair twice is a no-op.
func (reg *Registry) BindChannel(channel, chatID, roomID string) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	key := channelKey(channel, chatID)
	if existing, ok := reg.channelMappings[key]; ok && existing == roomID {
		return nil
	}

	r, err := reg.loadRoomLocked(roomID)
	if err != nil {
		return err
	}
	if r == nil {
		return fmt.Errorf("rooms: cannot bind to non-existent room %q", roomID)
	}

	reg.channelMappings[key] = roomID
	if err := reg.saveChannelMappingsLocked(); err != nil {
		return fmt.Errorf("rooms: save channel mappings: %w", err)
	}

	r.addMember(RoomMember{ID: key, Type: MemberChannel, Channel: channel, ChatID: chatID, JoinedAt: time.Now()})
	if err := reg.saveRoomLocked(r); err != nil {
		return err
	}
	slog.Info("rooms: bound channel", "channel", channel, "chat_id", chatID, "room_id", roomID)
	return nil
}

// UnbindChannel removes a channel-to-room mapping. Returns false without
// side effects if the pair was not mapped.
func (reg *Registry) UnbindChannel(channel, chatID string) (bool, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	key := channelKey(channel, chatID)
	roomID, ok := reg.channelMappings[key]
	if !ok {
		return false, nil
	}
	delete(reg.channelMappings, key)
	if err := reg.saveChannelMappingsLocked(); err != nil {
		return false, fmt.Errorf("rooms: save channel mappings: %w", err)
	}

	if r, err := reg.loadRoomLocked(roomID); err == nil && r != nil {
		r.removeMember(key)
		if err := reg.saveRoomLocked(r); err != nil {
			slog.Warn("rooms: failed to persist room after unbind", "room_id", roomID, "error", err)
		}
	}
	return true, nil
}

// RoomForChannel returns the room id bound to a (channel, chatID) pair,
// or "" if unbound.
func (reg *Registry) RoomForChannel(channel, chatID string) string {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return reg.channelMappings[channelKey(channel, chatID)]
}

// EnsureDefaultRooms creates the "general" open room if it does not exist.
func (reg *Registry) EnsureDefaultRooms() error {
	reg.mu.Lock()
	existing, err := reg.loadRoomLocked("general")
	reg.mu.Unlock()
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	_, err = reg.CreateRoom("general", "General", RoomOpen, append([]string{}, DefaultParticipants...), "General conversation room")
	return err
}
