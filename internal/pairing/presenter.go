// Package pairing renders the latest pairing payload as a scannable QR.
package pairing

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"time"

	"wa-group-gateway/internal/session"

	"github.com/fatih/color"
	"github.com/mdp/qrterminal/v3"
	"github.com/patrickmn/go-cache"
	"rsc.io/qr"
)

var (
	// ErrNotAvailable means no pairing payload has been issued yet.
	ErrNotAvailable = errors.New("pairing payload not available yet")
	// ErrRender wraps any encoding failure.
	ErrRender = errors.New("error generating pairing qr")
)

type Mode string

const (
	ModeImage    Mode = "image"
	ModeTerminal Mode = "terminal"
)

// ModeFromConfig maps QR_MODE to the mode served on /qr. "both" serves images.
func ModeFromConfig(qrMode string) Mode {
	if qrMode == string(ModeTerminal) {
		return ModeTerminal
	}
	return ModeImage
}

// PrintsToTerminal reports whether QR_MODE asks for codes on stdout.
func PrintsToTerminal(qrMode string) bool {
	return qrMode == "terminal" || qrMode == "both"
}

// Artifact is a rendered pairing code. Exactly one of DataURI or Glyph is set.
type Artifact struct {
	Mode    Mode
	DataURI string
	Glyph   string
}

type IPresenter interface {
	Render(payload string, mode Mode) (*Artifact, error)
	RenderLatest(mode Mode) (*Artifact, error)
}

type Presenter struct {
	store *session.PairingStore
	cache *cache.Cache
	scale int
}

func NewPresenter(store *session.PairingStore) *Presenter {
	return &Presenter{
		store: store,
		// Codes rotate every ~20s; repeated /qr hits reuse the encoded image.
		cache: cache.New(2*time.Minute, 5*time.Minute),
		scale: 8,
	}
}

func (p *Presenter) RenderLatest(mode Mode) (*Artifact, error) {
	payload, ok := p.store.Latest()
	if !ok {
		return nil, ErrNotAvailable
	}
	return p.Render(payload, mode)
}

func (p *Presenter) Render(payload string, mode Mode) (*Artifact, error) {
	key := string(mode) + ":" + payload
	if cached, found := p.cache.Get(key); found {
		return cached.(*Artifact), nil
	}

	code, err := qr.Encode(payload, qr.L)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRender, err)
	}

	var artifact *Artifact
	switch mode {
	case ModeTerminal:
		glyph, err := renderGlyph(payload)
		if err != nil {
			return nil, err
		}
		artifact = &Artifact{Mode: ModeTerminal, Glyph: glyph}
	default:
		code.Scale = p.scale
		artifact = &Artifact{
			Mode:    ModeImage,
			DataURI: "data:image/png;base64," + base64.StdEncoding.EncodeToString(code.PNG()),
		}
	}

	p.cache.Set(key, artifact, cache.DefaultExpiration)
	return artifact, nil
}

func renderGlyph(payload string) (glyph string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrRender, r)
		}
	}()

	if _, err := qr.Encode(payload, qr.L); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRender, err)
	}

	var buf bytes.Buffer
	qrterminal.GenerateHalfBlock(payload, qrterminal.L, &buf)
	return buf.String(), nil
}

// PrintTerminal writes a banner and the glyph for payload to w.
func PrintTerminal(w io.Writer, payload string) error {
	glyph, err := renderGlyph(payload)
	if err != nil {
		return err
	}

	banner := color.New(color.FgGreen, color.Bold)
	banner.Fprintln(w, "Escanea este QR con WhatsApp")
	color.New(color.FgHiBlack).Fprintln(w, "WhatsApp → Dispositivos vinculados → Vincular dispositivo")
	_, err = io.WriteString(w, glyph)
	return err
}
