package service

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrDuplicateID   = errors.New("duplicate id")
	ErrNotConnected  = errors.New("voice session not connected")
	ErrConnectFailed = errors.New("voice connect failed")
	ErrTimeout       = errors.New("voice connect timed out")
	ErrBusy          = errors.New("voice connect already in flight")
	ErrNoURL         = errors.New("no audio url configured")
	ErrNoCategory    = errors.New("no category available")
	ErrPermission    = errors.New("missing permissions")
	ErrLeaveDisabled = errors.New("leaving rallies is disabled in this guild")
	ErrNotHost       = errors.New("only the rally host can do that")
)

// CooldownError: el guild está en backoff tras un connect fallido.
type CooldownError struct{ Remaining time.Duration }

func (e *CooldownError) Error() string {
	return fmt.Sprintf("voice on cooldown, retry in %ds", int(e.Remaining.Seconds())+1)
}

// VoiceDisabledError: la voz está apagada por config; lleva la URL cruda
// para que el usuario pueda reproducirla por su cuenta.
type VoiceDisabledError struct{ URL string }

func (e *VoiceDisabledError) Error() string { return "voice disabled by config" }

// ValidationError: input de usuario inválido, se le repregunta.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string { return e.Field + ": " + e.Msg }
