package service

import (
	"sync"

	"github.com/jose-valero/rally-bot/internal/domain"
)

// RosterStore: estado vivo de los rallies, solo en memoria. Se pierde en
// restart, igual que todas las revisiones previas del bot. Un RWMutex
// global serializa las mutaciones por rally; los lectores reciben copias,
// nunca el mapa vivo.
type RosterStore struct {
	mu        sync.RWMutex
	rallies   map[string]*domain.Rally
	byChannel map[string]string // voice channel id -> rally (message) id
}

func NewRosterStore() *RosterStore {
	return &RosterStore{
		rallies:   make(map[string]*domain.Rally),
		byChannel: make(map[string]string),
	}
}

// Create falla con ErrDuplicateID; no debería pasar, los ids vienen del
// mensaje de anuncio.
func (s *RosterStore) Create(r domain.Rally) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rallies[r.MessageID]; ok {
		return ErrDuplicateID
	}
	if r.Participants == nil {
		r.Participants = make(map[string]domain.Participant)
	}
	s.rallies[r.MessageID] = &r
	return nil
}

func (s *RosterStore) Get(rallyID string) (domain.Rally, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rallies[rallyID]
	if !ok {
		return domain.Rally{}, ErrNotFound
	}
	return r.Clone(), nil
}

// UpsertParticipant reemplaza la entrada completa del usuario (last write
// wins, sin historial) y devuelve el rally resultante.
func (s *RosterStore) UpsertParticipant(rallyID string, p domain.Participant) (domain.Rally, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rallies[rallyID]
	if !ok {
		return domain.Rally{}, ErrNotFound
	}
	r.Participants[p.UserID] = p
	return r.Clone(), nil
}

// RemoveParticipant es no-op si el usuario no estaba.
func (s *RosterStore) RemoveParticipant(rallyID, userID string) (domain.Rally, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rallies[rallyID]
	if !ok {
		return domain.Rally{}, ErrNotFound
	}
	delete(r.Participants, userID)
	return r.Clone(), nil
}

// ClearVoiceChannel limpia los campos de voz y el índice inverso bajo el
// mismo lock. Marca el rally para que nunca se le re-asigne voz.
func (s *RosterStore) ClearVoiceChannel(rallyID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rallies[rallyID]
	if !ok {
		return
	}
	if r.VoiceChannelID != "" {
		delete(s.byChannel, r.VoiceChannelID)
	}
	r.VoiceChannelID = ""
	r.VoiceInviteURL = ""
	r.VoiceTornDown = true
}

func (s *RosterStore) IndexChannel(channelID, rallyID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byChannel[channelID] = rallyID
}

func (s *RosterStore) LookupByChannel(channelID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byChannel[channelID]
	if !ok {
		return "", ErrNotFound
	}
	return id, nil
}

func (s *RosterStore) Delete(rallyID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rallies[rallyID]
	if !ok {
		return
	}
	if r.VoiceChannelID != "" {
		delete(s.byChannel, r.VoiceChannelID)
	}
	delete(s.rallies, rallyID)
}
