package translate

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/dkeye/Parley/internal/domain"
)

type job struct {
	text     string
	language domain.LanguageTag
}

// Pipeline translates transcripts one at a time in submission order.
type Pipeline struct {
	tr      Translator
	speaker Speaker
	pub     Publisher
	onError func(error)

	queue chan job

	mu       sync.Mutex
	language domain.LanguageTag
	last     string
}

type Option func(*Pipeline)

// WithSpeaker reads every translation aloud before it is published.
func WithSpeaker(s Speaker) Option { return func(p *Pipeline) { p.speaker = s } }

func WithErrorHandler(fn func(error)) Option { return func(p *Pipeline) { p.onError = fn } }

func WithQueueSize(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.queue = make(chan job, n)
		}
	}
}

func WithLanguage(tag domain.LanguageTag) Option { return func(p *Pipeline) { p.language = tag } }

func NewPipeline(tr Translator, pub Publisher, opts ...Option) *Pipeline {
	p := &Pipeline{
		tr:       tr,
		pub:      pub,
		queue:    make(chan job, 64),
		language: Albanian,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pipeline) SetLanguage(tag domain.LanguageTag) {
	p.mu.Lock()
	p.language = tag
	p.mu.Unlock()
}

func (p *Pipeline) Language() domain.LanguageTag {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.language
}

// Submit queues a transcript. Interim results and a repeat of the previous
// final text are skipped; the returned bool reports whether it was queued.
func (p *Pipeline) Submit(ctx context.Context, t Transcript) (bool, error) {
	if !t.Final || t.Text == "" {
		return false, nil
	}
	p.mu.Lock()
	if t.Text == p.last {
		p.mu.Unlock()
		return false, nil
	}
	p.last = t.Text
	lang := t.Language
	if lang == "" {
		lang = p.language
	}
	p.mu.Unlock()

	select {
	case p.queue <- job{text: t.Text, language: lang}:
		return true, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Run is the single worker. It returns when ctx ends.
func (p *Pipeline) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case j := <-p.queue:
			p.process(ctx, j)
		}
	}
}

// Listen feeds recognizer output into the queue until the stream ends.
func (p *Pipeline) Listen(ctx context.Context, r Recognizer) error {
	ch, err := r.Transcripts(ctx)
	if err != nil {
		return fmt.Errorf("start recognizer: %w", err)
	}
	for t := range ch {
		if _, err := p.Submit(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

// Start runs Listen and Run together. It returns when either fails or
// ctx ends.
func (p *Pipeline) Start(ctx context.Context, r Recognizer) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return p.Run(ctx) })
	g.Go(func() error { return p.Listen(ctx, r) })
	return g.Wait()
}

func (p *Pipeline) process(ctx context.Context, j job) {
	source, target := Direction(j.language)
	translated, err := p.tr.Translate(ctx, j.text, source, target)
	if err != nil {
		p.fail(fmt.Errorf("translate %s->%s: %w", source, target, err))
		return
	}
	if p.speaker != nil {
		if err := p.speaker.Speak(ctx, translated, target); err != nil {
			p.fail(fmt.Errorf("speak: %w", err))
		}
	}
	if err := p.pub.SendTranslation(j.text, translated, target); err != nil {
		p.fail(fmt.Errorf("publish: %w", err))
	}
}

func (p *Pipeline) fail(err error) {
	log.Warn().Err(err).Str("module", "translate").Msg("pipeline")
	if p.onError != nil {
		p.onError(err)
	}
}
