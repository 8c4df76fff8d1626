// Package voice implementa el transporte de voz sobre discordgo:
// handshake del gateway de voz, y streaming de audio via ffmpeg → PCM
// s16le → opus (gopus) → OpusSend.
package voice

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"

	"github.com/bwmarrin/discordgo"
	"layeh.com/gopus"
)

// Parámetros que espera Discord; no son configurables.
const (
	channels  = 2
	frameRate = 48000
	frameSize = 960                 // 20ms por frame
	maxBytes  = (frameSize * 2) * 2 // peor caso del frame opus
)

type guildConn struct {
	vc      *discordgo.VoiceConnection
	closer  chan struct{} // cerrarlo frena el stream activo
	playing bool
}

type Transport struct {
	mu    sync.Mutex
	s     *discordgo.Session
	conns map[string]*guildConn
}

func New(s *discordgo.Session) *Transport {
	return &Transport{s: s, conns: make(map[string]*guildConn)}
}

// Connect bloquea hasta que el handshake de voz está listo o el ctx
// vence. discordgo no acepta ctx, así que el join corre en su goroutine
// y acá se hace el select.
func (t *Transport) Connect(ctx context.Context, guildID, channelID string) error {
	type result struct {
		vc  *discordgo.VoiceConnection
		err error
	}
	ch := make(chan result, 1)
	go func() {
		vc, err := t.s.ChannelVoiceJoin(guildID, channelID, false, true)
		ch <- result{vc, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return r.err
		}
		t.mu.Lock()
		t.conns[guildID] = &guildConn{vc: r.vc}
		t.mu.Unlock()
		return nil
	case <-ctx.Done():
		// el join puede completar después; si lo hace, lo soltamos
		go func() {
			if r := <-ch; r.err == nil && r.vc != nil {
				_ = r.vc.Disconnect()
			}
		}()
		return ctx.Err()
	}
}

func (t *Transport) Move(ctx context.Context, guildID, channelID string) error {
	t.mu.Lock()
	c, ok := t.conns[guildID]
	t.mu.Unlock()
	if !ok || c.vc == nil {
		return errors.New("no voice connection")
	}
	t.Stop(guildID)
	return c.vc.ChangeChannel(channelID, false, true)
}

func (t *Transport) Disconnect(guildID string) error {
	t.Stop(guildID)
	t.mu.Lock()
	c, ok := t.conns[guildID]
	delete(t.conns, guildID)
	t.mu.Unlock()
	if !ok || c.vc == nil {
		return nil
	}
	return c.vc.Disconnect()
}

// Play arranca el stream en su propia goroutine; onFinished se llama
// exactamente una vez, con el error del stream si lo hubo.
func (t *Transport) Play(guildID, url string, onFinished func(err error)) error {
	t.mu.Lock()
	c, ok := t.conns[guildID]
	if !ok || c.vc == nil {
		t.mu.Unlock()
		return errors.New("no voice connection")
	}
	if c.playing {
		t.mu.Unlock()
		return errors.New("already playing")
	}
	closer := make(chan struct{})
	c.closer = closer
	c.playing = true
	vc := c.vc
	t.mu.Unlock()

	go func() {
		err := t.stream(vc, url, closer)
		t.mu.Lock()
		if cur, ok := t.conns[guildID]; ok && cur.closer == closer {
			cur.playing = false
			cur.closer = nil
		}
		t.mu.Unlock()
		if onFinished != nil {
			onFinished(err)
		}
	}()
	return nil
}

func (t *Transport) Stop(guildID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.conns[guildID]
	if !ok || !c.playing || c.closer == nil {
		return
	}
	close(c.closer)
	c.closer = nil
	c.playing = false
}

func (t *Transport) Playing(guildID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.conns[guildID]
	return ok && c.playing
}

// stream: ffmpeg decodifica lo que sea (mp3, ogg, URL remota) a PCM
// crudo por stdout; acá se parte en frames de 20ms y se encodea a opus.
func (t *Transport) stream(vc *discordgo.VoiceConnection, url string, closer <-chan struct{}) error {
	cmd := exec.Command("ffmpeg",
		"-i", url,
		"-f", "s16le",
		"-ar", strconv.Itoa(frameRate),
		"-ac", strconv.Itoa(channels),
		"pipe:1")
	out, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg stdout: %w", err)
	}
	buf := bufio.NewReaderSize(out, 16384)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg start: %w", err)
	}
	defer func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	}()

	enc, err := gopus.NewEncoder(frameRate, channels, gopus.Audio)
	if err != nil {
		return fmt.Errorf("opus encoder: %w", err)
	}

	_ = vc.Speaking(true)
	defer func() { _ = vc.Speaking(false) }()

	pcm := make([]int16, frameSize*channels)
	for {
		select {
		case <-closer:
			return nil
		default:
		}

		err := binary.Read(buf, binary.LittleEndian, &pcm)
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil // fin normal del archivo
		}
		if err != nil {
			return fmt.Errorf("pcm read: %w", err)
		}

		opus, err := enc.Encode(pcm, frameSize, maxBytes)
		if err != nil {
			return fmt.Errorf("opus encode: %w", err)
		}

		if !vc.Ready || vc.OpusSend == nil {
			return errors.New("voice connection not ready mid-stream")
		}
		select {
		case vc.OpusSend <- opus:
		case <-closer:
			return nil
		}
	}
}
