package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jose-valero/rally-bot/internal/domain"
	"github.com/jose-valero/rally-bot/internal/infra/storage"
)

func newLifecycleFixture() (*ChannelLifecycle, *RosterStore, *fakeGateway, *fakeTransport, *fakeSettings, *VoiceSessionManager) {
	gw := newFakeGateway()
	tr := newFakeTransport()
	st := newFakeSettings()
	store := NewRosterStore()
	voice := NewVoiceSessionManager(tr, gw, st, testDurations())
	lc := NewChannelLifecycle(gw, store, voice, st, 40*time.Millisecond)
	return lc, store, gw, tr, st, voice
}

func TestProvisionUsesConfiguredCategory(t *testing.T) {
	lc, _, gw, _, st, _ := newLifecycleFixture()
	cat := gw.addCategory("g1")
	st.set(func(c *storage.GuildSettings) { c.CategoryID = cat })

	chID, invite, err := lc.Provision(context.Background(), "g1", "host", "Ana", "")
	if err != nil {
		t.Fatalf("provision: %v", err)
	}
	info, _ := gw.ChannelInfo(chID)
	if info.ParentID != cat {
		t.Fatalf("expected channel under %s, got parent %q", cat, info.ParentID)
	}
	if !strings.HasPrefix(invite, "https://discord.gg/") {
		t.Fatalf("bad invite url %q", invite)
	}
}

func TestProvisionFallsBackToOriginParent(t *testing.T) {
	lc, _, gw, _, st, _ := newLifecycleFixture()
	// la categoría configurada ya no existe
	st.set(func(c *storage.GuildSettings) { c.CategoryID = "gone" })
	cat := gw.addCategory("g1")
	origin := gw.addTextChannel("g1", cat)

	chID, _, err := lc.Provision(context.Background(), "g1", "host", "Ana", origin)
	if err != nil {
		t.Fatalf("provision: %v", err)
	}
	info, _ := gw.ChannelInfo(chID)
	if info.ParentID != cat {
		t.Fatalf("expected origin's parent %s, got %q", cat, info.ParentID)
	}
}

func TestProvisionFallsBackToOwnerVoiceParent(t *testing.T) {
	lc, _, gw, _, _, _ := newLifecycleFixture()
	cat := gw.addCategory("g1")
	ownerVC, _ := gw.CreateVoiceChannel("g1", "lounge", cat)
	gw.mu.Lock()
	gw.userVC["host"] = ownerVC
	gw.mu.Unlock()

	chID, _, err := lc.Provision(context.Background(), "g1", "host", "Ana", "")
	if err != nil {
		t.Fatalf("provision: %v", err)
	}
	info, _ := gw.ChannelInfo(chID)
	if info.ParentID != cat {
		t.Fatalf("expected owner's VC parent %s, got %q", cat, info.ParentID)
	}
}

func TestProvisionCreatesCategoryAsLastResort(t *testing.T) {
	lc, _, gw, _, _, _ := newLifecycleFixture()
	chID, _, err := lc.Provision(context.Background(), "g1", "host", "Ana", "")
	if err != nil {
		t.Fatalf("provision: %v", err)
	}
	info, _ := gw.ChannelInfo(chID)
	if info.ParentID == "" {
		t.Fatalf("expected a freshly created category as parent")
	}
	parent, err := gw.ChannelInfo(info.ParentID)
	if err != nil || !parent.IsCategory {
		t.Fatalf("parent is not a category: %+v %v", parent, err)
	}
}

func TestProvisionInviteFailureCleansUp(t *testing.T) {
	lc, _, gw, _, _, _ := newLifecycleFixture()
	gw.inviteErr = errors.New("missing permission")

	_, _, err := lc.Provision(context.Background(), "g1", "host", "Ana", "")
	if err == nil {
		t.Fatalf("expected error")
	}
	if gw.deletedCount() != 1 {
		t.Fatalf("orphan channel not deleted, deletions=%d", gw.deletedCount())
	}
}

func TestGraceTimerDeletesEmptyChannel(t *testing.T) {
	lc, store, gw, _, _, _ := newLifecycleFixture()
	r := testRally("r1")
	_ = store.Create(r)
	if _, err := store.UpsertParticipant("r1", domain.Participant{
		UserID: "u1", Type: domain.TroopCavalry, Tier: domain.TierT10, Capacity: 120000,
	}); err != nil {
		t.Fatalf("seed participant: %v", err)
	}
	store.IndexChannel(r.VoiceChannelID, "r1")
	gw.setMembers(r.VoiceChannelID) // vacío

	lc.ScheduleEmptyCheck(context.Background(), "g1", r.VoiceChannelID)
	time.Sleep(120 * time.Millisecond)

	if gw.deletedCount() != 1 {
		t.Fatalf("empty channel not deleted after grace")
	}
	got, _ := store.Get("r1")
	if got.VoiceChannelID != "" || !got.VoiceTornDown {
		t.Fatalf("rally voice state not cleared: %+v", got)
	}
	// el teardown borra la voz, nunca el roster
	if p, ok := got.Participants["u1"]; !ok || p.Capacity != 120000 {
		t.Fatalf("roster should survive the voice teardown: %+v", got.Participants)
	}
}

func TestProvisionPermissionFailureMapsToNoCategory(t *testing.T) {
	lc, _, gw, _, _, _ := newLifecycleFixture()
	gw.createErr = fmt.Errorf("%w: 403 creating channel", ErrPermission)

	_, _, err := lc.Provision(context.Background(), "g1", "host", "Ana", "")
	if !errors.Is(err, ErrNoCategory) {
		t.Fatalf("permission failure should map to ErrNoCategory, got %v", err)
	}
}

func TestProvisionTransientFailureKeepsRawError(t *testing.T) {
	lc, _, gw, _, _, _ := newLifecycleFixture()
	gw.createErr = errors.New("rate limited")

	_, _, err := lc.Provision(context.Background(), "g1", "host", "Ana", "")
	if err == nil {
		t.Fatalf("expected error")
	}
	if errors.Is(err, ErrNoCategory) {
		t.Fatalf("transient failure must not read as a permissions problem: %v", err)
	}
}

func TestGraceTimerCancelledWhenReoccupied(t *testing.T) {
	lc, store, gw, _, _, _ := newLifecycleFixture()
	r := testRally("r1")
	_ = store.Create(r)
	store.IndexChannel(r.VoiceChannelID, "r1")
	gw.setMembers(r.VoiceChannelID)

	lc.ScheduleEmptyCheck(context.Background(), "g1", r.VoiceChannelID)
	// alguien vuelve antes de que venza la gracia
	time.Sleep(10 * time.Millisecond)
	gw.setMembers(r.VoiceChannelID, "u1")
	lc.OnVoiceMembership(context.Background(), "g1", r.VoiceChannelID)

	time.Sleep(120 * time.Millisecond)
	if gw.deletedCount() != 0 {
		t.Fatalf("channel deleted despite being reoccupied")
	}
}

func TestGraceFireRevalidatesMembership(t *testing.T) {
	lc, store, gw, _, _, _ := newLifecycleFixture()
	r := testRally("r1")
	_ = store.Create(r)
	store.IndexChannel(r.VoiceChannelID, "r1")
	gw.setMembers(r.VoiceChannelID)

	lc.ScheduleEmptyCheck(context.Background(), "g1", r.VoiceChannelID)
	// el timer pendiente no se cancela, pero al disparar el canal ya
	// tiene gente: debe ser no-op
	gw.setMembers(r.VoiceChannelID, "u1")

	time.Sleep(120 * time.Millisecond)
	if gw.deletedCount() != 0 {
		t.Fatalf("grace fire ignored live membership")
	}
}

func TestTeardownIdempotent(t *testing.T) {
	lc, store, gw, _, _, _ := newLifecycleFixture()
	r := testRally("r1")
	r.ThreadID = "th1"
	_ = store.Create(r)
	store.IndexChannel(r.VoiceChannelID, "r1")

	if err := lc.Teardown(context.Background(), "r1", "test"); err != nil {
		t.Fatalf("teardown: %v", err)
	}
	if err := lc.Teardown(context.Background(), "r1", "test again"); err != nil {
		t.Fatalf("second teardown: %v", err)
	}

	if gw.deletedCount() != 1 {
		t.Fatalf("expected exactly one channel delete, got %d", gw.deletedCount())
	}
	if len(gw.archived) != 1 {
		t.Fatalf("thread not archived exactly once: %v", gw.archived)
	}
}

func TestTeardownDisconnectsAttachedSession(t *testing.T) {
	lc, store, _, tr, _, voice := newLifecycleFixture()
	r := testRally("r1")
	_ = store.Create(r)
	store.IndexChannel(r.VoiceChannelID, "r1")

	voice.SetStayMode("g1", true)
	if err := voice.EnsureConnected(context.Background(), "g1", r.VoiceChannelID); err != nil {
		t.Fatalf("connect: %v", err)
	}

	if err := lc.Teardown(context.Background(), "r1", "test"); err != nil {
		t.Fatalf("teardown: %v", err)
	}
	if _, ok := tr.connectedTo("g1"); ok {
		t.Fatalf("session still connected to a deleted channel")
	}
}
