// Package workspace runs one participant: a single loop goroutine owns the
// document and signature state and applies both remote events and local
// actions in turn.
package workspace

import (
	"context"
	"errors"

	"github.com/mossy-p/docsync/internal/document"
	"github.com/mossy-p/docsync/internal/models"
	"github.com/mossy-p/docsync/internal/signature"
	"github.com/rs/zerolog"
)

// ErrStopped is returned by Do once the loop has exited.
var ErrStopped = errors.New("workspace: loop stopped")

// Session is the relay connection the workspace publishes to and drains.
type Session interface {
	Publish(ev models.Event) bool
	Events() <-chan models.Event
	Disconnects() <-chan error
}

// Config tunes a workspace.
type Config struct {
	PadWidth float64
	Layout   document.Layout
}

// Workspace wires the controllers of one participant to a relay session.
type Workspace struct {
	session Session
	doc     *document.Controller
	sig     *signature.Controller
	cfg     Config
	logger  zerolog.Logger

	actions chan func()
	stopped chan struct{}

	onSigned     []func(signature.Result, document.Region)
	onDisconnect []func(error)
}

func New(session Session, cfg Config, logger zerolog.Logger) *Workspace {
	if cfg.Layout == nil {
		cfg.Layout = document.DefaultLayout()
	}
	w := &Workspace{
		session: session,
		cfg:     cfg,
		logger:  logger.With().Str("component", "workspace").Logger(),
		actions: make(chan func()),
		stopped: make(chan struct{}),
	}
	w.doc = document.NewController(session, w, cfg.Layout, logger)
	w.sig = signature.NewController(session, w, logger)
	return w
}

// OnSigned registers fn to run on the loop after a signature is committed,
// with the region as it now stands. Register hooks before Run.
func (w *Workspace) OnSigned(fn func(signature.Result, document.Region)) {
	w.onSigned = append(w.onSigned, fn)
}

// OnDisconnect registers fn to run on the loop when the relay connection is
// lost. Register hooks before Run.
func (w *Workspace) OnDisconnect(fn func(error)) {
	w.onDisconnect = append(w.onDisconnect, fn)
}

// Run processes events and actions until ctx is done.
func (w *Workspace) Run(ctx context.Context) error {
	defer close(w.stopped)
	events := w.session.Events()
	disconnects := w.session.Disconnects()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-events:
			w.dispatch(ev)
		case err := <-disconnects:
			w.logger.Warn().Err(err).Msg("relay connection lost")
			for _, fn := range w.onDisconnect {
				fn(err)
			}
		case fn := <-w.actions:
			fn()
		}
	}
}

// Do runs fn on the loop with exclusive access to the controllers and
// returns its error.
func (w *Workspace) Do(ctx context.Context, fn func(doc *document.Controller, sig *signature.Controller) error) error {
	result := make(chan error, 1)
	action := func() { result <- fn(w.doc, w.sig) }
	select {
	case w.actions <- action:
	case <-w.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Workspace) dispatch(ev models.Event) {
	var err error
	switch ev.Target {
	case models.TargetDocument:
		err = w.doc.Apply(ev)
	case models.TargetSignature:
		err = w.sig.Apply(ev)
	default:
		err = models.ErrUnknownEventTarget
	}
	if err != nil {
		w.logger.Warn().
			Err(err).
			Str("target", string(ev.Target)).
			Str("kind", string(ev.Kind)).
			Msg("event not applied")
	}
}

// OpenSignature sizes the drawing pad for req and starts a capture.
func (w *Workspace) OpenSignature(req signature.Request) {
	w.sig.Open(req, signature.FitSurface(req, w.cfg.PadWidth))
}

// ApplySignature commits a submitted signature to the document and then
// notifies OnSigned hooks.
func (w *Workspace) ApplySignature(res signature.Result) error {
	if err := w.doc.ApplySignature(res); err != nil {
		return err
	}
	region, _ := w.doc.Region(res.RegionID)
	for _, fn := range w.onSigned {
		fn(res, region)
	}
	return nil
}
