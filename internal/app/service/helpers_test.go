package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jose-valero/rally-bot/internal/domain"
	"github.com/jose-valero/rally-bot/internal/infra/storage"
)

// Fakes compartidos por los tests del paquete.

type fakeSettings struct {
	mu  sync.Mutex
	cfg storage.GuildSettings
	err error
}

func newFakeSettings() *fakeSettings {
	return &fakeSettings{cfg: storage.GuildSettings{
		VoiceEnabled:   true,
		AutoEnrollHost: true,
		AllowLeave:     true,
	}}
}

func (f *fakeSettings) Get(_ context.Context, guildID string) (storage.GuildSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return storage.GuildSettings{}, f.err
	}
	cfg := f.cfg
	cfg.GuildID = guildID
	return cfg, nil
}

func (f *fakeSettings) set(mut func(*storage.GuildSettings)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	mut(&f.cfg)
}

type fakeCues struct {
	cues map[string]storage.AudioCue
}

func (f *fakeCues) Get(_ context.Context, guildID, key string) (storage.AudioCue, error) {
	if c, ok := f.cues[key]; ok {
		return c, nil
	}
	return storage.AudioCue{}, storage.ErrNotFound
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []storage.RosterExport
	err     error
}

func (f *fakeAudit) Insert(_ context.Context, e storage.RosterExport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeAudit) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

// ---------- gateway ----------

type fakeGateway struct {
	mu     sync.Mutex
	nextID int

	channels map[string]ChannelInfo
	deleted  []string
	members  map[string][]string // channelID -> humanos presentes
	userVC   map[string]string

	invites    []string
	inviteErr  error
	createErr  error
	publishErr error
	publishID  string

	cardUpdates  int
	lastCard     domain.Rally
	lastAnnounce string
	msgDeletes   []string
	dms          map[string][]string
	threads      []string
	archived     []string
	threadAdds   map[string][]string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		channels:   map[string]ChannelInfo{},
		members:    map[string][]string{},
		userVC:     map[string]string{},
		dms:        map[string][]string{},
		threadAdds: map[string][]string{},
	}
}

func (f *fakeGateway) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s%d", prefix, f.nextID)
}

func (f *fakeGateway) addCategory(guildID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.id("cat")
	f.channels[id] = ChannelInfo{ID: id, GuildID: guildID, IsCategory: true}
	return id
}

func (f *fakeGateway) addTextChannel(guildID, parentID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.id("txt")
	f.channels[id] = ChannelInfo{ID: id, GuildID: guildID, ParentID: parentID}
	return id
}

func (f *fakeGateway) CreateVoiceChannel(guildID, name, parentID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	id := f.id("vc")
	f.channels[id] = ChannelInfo{ID: id, GuildID: guildID, ParentID: parentID, IsVoice: true}
	return id, nil
}

func (f *fakeGateway) CreateCategory(guildID, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	id := f.id("cat")
	f.channels[id] = ChannelInfo{ID: id, GuildID: guildID, IsCategory: true}
	return id, nil
}

func (f *fakeGateway) DeleteChannel(channelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, channelID)
	delete(f.channels, channelID)
	return nil
}

func (f *fakeGateway) ChannelInfo(channelID string) (ChannelInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ci, ok := f.channels[channelID]
	if !ok {
		return ChannelInfo{}, fmt.Errorf("channel %s not found", channelID)
	}
	return ci, nil
}

func (f *fakeGateway) CreateInvite(channelID string, maxAgeSeconds, maxUses int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inviteErr != nil {
		return "", f.inviteErr
	}
	url := fmt.Sprintf("https://discord.gg/inv%d-%d-%d", len(f.invites)+1, maxAgeSeconds, maxUses)
	f.invites = append(f.invites, url)
	return url, nil
}

func (f *fakeGateway) VoiceChannelMembers(guildID, channelID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.members[channelID]...), nil
}

func (f *fakeGateway) UserVoiceChannel(guildID, userID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.userVC[userID], nil
}

func (f *fakeGateway) MemberDisplayName(guildID, userID string) string {
	return "user-" + userID
}

func (f *fakeGateway) RoleMentionByName(guildID, name string) string {
	if name == "" {
		return ""
	}
	return "<@&role-" + name + ">"
}

func (f *fakeGateway) PublishRallyCard(channelID, content string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return "", f.publishErr
	}
	f.lastAnnounce = content
	if f.publishID != "" {
		return f.publishID, nil
	}
	return f.id("msg"), nil
}

func (f *fakeGateway) DeleteMessage(channelID, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgDeletes = append(f.msgDeletes, messageID)
	return nil
}

func (f *fakeGateway) UpdateRallyCard(r domain.Rally) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cardUpdates++
	f.lastCard = r
	return nil
}

func (f *fakeGateway) SendDM(userID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dms[userID] = append(f.dms[userID], content)
	return nil
}

func (f *fakeGateway) CreateThread(channelID, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.id("th")
	f.threads = append(f.threads, id)
	return id, nil
}

func (f *fakeGateway) ArchiveThread(threadID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.archived = append(f.archived, threadID)
	return nil
}

func (f *fakeGateway) AddThreadMember(threadID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.threadAdds[threadID] = append(f.threadAdds[threadID], userID)
	return nil
}

func (f *fakeGateway) deletedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.deleted)
}

func (f *fakeGateway) setMembers(channelID string, users ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.members[channelID] = users
}

// ---------- transporte de voz ----------

type fakeTransport struct {
	mu           sync.Mutex
	connectErr   error
	moveErr      error
	connectDelay time.Duration
	moveDelay    time.Duration

	connected map[string]string
	playing   map[string]bool
	finishers map[string]func(error)
	played    []string
	stops     int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		connected: map[string]string{},
		playing:   map[string]bool{},
		finishers: map[string]func(error){},
	}
}

func (f *fakeTransport) Connect(ctx context.Context, guildID, channelID string) error {
	if f.connectDelay > 0 {
		select {
		case <-time.After(f.connectDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connected[guildID] = channelID
	return nil
}

func (f *fakeTransport) Move(ctx context.Context, guildID, channelID string) error {
	f.mu.Lock()
	if f.moveErr != nil {
		f.mu.Unlock()
		return f.moveErr
	}
	if _, ok := f.connected[guildID]; !ok {
		f.mu.Unlock()
		return fmt.Errorf("not connected")
	}
	f.mu.Unlock()
	if f.moveDelay > 0 {
		select {
		case <-time.After(f.moveDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	// si alguien desconectó a mitad del move, el move "termina" pero no
	// deja conexión, como el transporte real
	if _, ok := f.connected[guildID]; ok {
		f.connected[guildID] = channelID
	}
	return nil
}

func (f *fakeTransport) Disconnect(guildID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.connected, guildID)
	f.playing[guildID] = false
	return nil
}

func (f *fakeTransport) Play(guildID, url string, onFinished func(err error)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.playing[guildID] {
		return fmt.Errorf("already playing in guild %s", guildID)
	}
	f.played = append(f.played, url)
	f.playing[guildID] = true
	f.finishers[guildID] = onFinished
	return nil
}

func (f *fakeTransport) Stop(guildID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	f.playing[guildID] = false
}

func (f *fakeTransport) Playing(guildID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playing[guildID]
}

// finish simula el fin del stream desde la goroutine del streamer.
func (f *fakeTransport) finish(guildID string, err error) {
	f.mu.Lock()
	cb := f.finishers[guildID]
	f.playing[guildID] = false
	f.mu.Unlock()
	if cb != nil {
		cb(err)
	}
}

func (f *fakeTransport) connectedTo(guildID string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.connected[guildID]
	return ch, ok
}

func (f *fakeTransport) playedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.played)
}

// Duraciones chicas para que los tests de timers corran en milisegundos.
func testDurations() VoiceDurations {
	return VoiceDurations{
		Idle:           40 * time.Millisecond,
		PostPlayback:   40 * time.Millisecond,
		Cooldown:       60 * time.Millisecond,
		ConnectTimeout: 50 * time.Millisecond,
	}
}
