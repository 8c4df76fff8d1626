package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jose-valero/rally-bot/internal/infra/storage"
)

func newPlaybackFixture() (*PlaybackController, *VoiceSessionManager, *fakeTransport, *fakeSettings) {
	tr := newFakeTransport()
	gw := newFakeGateway()
	st := newFakeSettings()
	voice := NewVoiceSessionManager(tr, gw, st, testDurations())
	pc := NewPlaybackController(tr, voice, st)
	return pc, voice, tr, st
}

func TestPlayRequiresConnection(t *testing.T) {
	pc, _, _, _ := newPlaybackFixture()
	err := pc.Play(context.Background(), "g1", "http://cdn/x.mp3")
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestPlayRejectsEmptyURL(t *testing.T) {
	pc, voice, _, _ := newPlaybackFixture()
	if err := voice.EnsureConnected(context.Background(), "g1", "vc1"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := pc.Play(context.Background(), "g1", ""); !errors.Is(err, ErrNoURL) {
		t.Fatalf("expected ErrNoURL, got %v", err)
	}
}

func TestPlayVoiceDisabledCarriesURL(t *testing.T) {
	pc, _, _, st := newPlaybackFixture()
	st.set(func(c *storage.GuildSettings) { c.VoiceEnabled = false })

	var vd *VoiceDisabledError
	err := pc.Play(context.Background(), "g1", "http://cdn/x.mp3")
	if !errors.As(err, &vd) {
		t.Fatalf("expected VoiceDisabledError, got %v", err)
	}
	if vd.URL != "http://cdn/x.mp3" {
		t.Fatalf("error should carry the raw URL, got %q", vd.URL)
	}
}

func TestPlayHappyPathAndFinish(t *testing.T) {
	pc, voice, tr, _ := newPlaybackFixture()
	if err := voice.EnsureConnected(context.Background(), "g1", "vc1"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := pc.Play(context.Background(), "g1", "http://cdn/count.mp3"); err != nil {
		t.Fatalf("play: %v", err)
	}
	if url, ok := pc.Current("g1"); !ok || url != "http://cdn/count.mp3" {
		t.Fatalf("current: %q %v", url, ok)
	}

	tr.finish("g1", nil)
	if _, ok := pc.Current("g1"); ok {
		t.Fatalf("current not cleared after finish")
	}
	// el fin del audio arma el timer de post-playback; canal vacío → se va
	time.Sleep(100 * time.Millisecond)
	if voice.Connected("g1") {
		t.Fatalf("expected post-playback disconnect")
	}
}

func TestPlayStopsPreviousStream(t *testing.T) {
	pc, voice, tr, _ := newPlaybackFixture()
	voice.SetStayMode("g1", true)
	if err := voice.EnsureConnected(context.Background(), "g1", "vc1"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := pc.Play(context.Background(), "g1", "http://cdn/a.mp3"); err != nil {
		t.Fatalf("play a: %v", err)
	}
	if err := pc.Play(context.Background(), "g1", "http://cdn/b.mp3"); err != nil {
		t.Fatalf("play b: %v", err)
	}
	if tr.stops == 0 {
		t.Fatalf("previous stream was not stopped")
	}
	if url, _ := pc.Current("g1"); url != "http://cdn/b.mp3" {
		t.Fatalf("last request should win, playing %q", url)
	}
}

func TestConcurrentPlaysSerialize(t *testing.T) {
	pc, voice, tr, _ := newPlaybackFixture()
	voice.SetStayMode("g1", true)
	if err := voice.EnsureConnected(context.Background(), "g1", "vc1"); err != nil {
		t.Fatalf("connect: %v", err)
	}

	// pedidos simultáneos se serializan: ninguno choca con el stream del
	// otro, el que llega último queda sonando
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			errs <- pc.Play(context.Background(), "g1", fmt.Sprintf("http://cdn/cue-%d.mp3", n))
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent play: %v", err)
		}
	}
	if !tr.Playing("g1") {
		t.Fatalf("nothing playing after concurrent requests")
	}
	if _, ok := pc.Current("g1"); !ok {
		t.Fatalf("no current url after concurrent requests")
	}
}

func TestFinishWithStreamError(t *testing.T) {
	pc, voice, tr, _ := newPlaybackFixture()
	voice.SetStayMode("g1", true)
	if err := voice.EnsureConnected(context.Background(), "g1", "vc1"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := pc.Play(context.Background(), "g1", "http://cdn/a.mp3"); err != nil {
		t.Fatalf("play: %v", err)
	}
	// un error a mitad de stream limpia estado igual que el fin normal
	tr.finish("g1", errors.New("ffmpeg died"))
	if _, ok := pc.Current("g1"); ok {
		t.Fatalf("current not cleared after stream error")
	}
	if !voice.Connected("g1") {
		t.Fatalf("stream error should not tear the session down")
	}
}
