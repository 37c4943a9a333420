package main

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dkeye/Parley/internal/client"
	"github.com/dkeye/Parley/internal/domain"
	"github.com/dkeye/Parley/internal/protocol"
	"github.com/dkeye/Parley/internal/translate"
)

// lineRecognizer treats each input line as a final transcript.
type lineRecognizer struct {
	r io.Reader
}

func (l lineRecognizer) Transcripts(ctx context.Context) (<-chan translate.Transcript, error) {
	ch := make(chan translate.Transcript)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(l.r)
		for sc.Scan() {
			select {
			case ch <- translate.Transcript{Text: sc.Text(), Final: true}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

// passthrough shares text untranslated when no API key is configured.
type passthrough struct{}

func (passthrough) Translate(_ context.Context, text, _, _ string) (string, error) {
	return text, nil
}

func runSession(cmd *cobra.Command, room string, create bool) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	out := cmd.OutOrStdout()
	lang := domain.NormalizeLanguage(flagLanguage)

	var peers *peerSet
	if flagNegotiate {
		peers = newPeerSet()
		defer peers.close()
	}
	h := client.Handlers{
		OnRoomCreated: func(id string) { fmt.Fprintf(out, "* room %s created\n", id) },
		OnRoomJoined: func(ev protocol.RoomJoined) {
			fmt.Fprintf(out, "* joined %s (owner %s, %d members)\n", ev.RoomID, ev.Owner, len(ev.Members))
		},
		OnUserJoined: func(id string) {
			fmt.Fprintf(out, "* %s joined\n", id)
			peers.offer(ctx, id)
		},
		OnUserLeft: func(id string) {
			fmt.Fprintf(out, "* %s left\n", id)
			peers.drop(id)
		},
		OnRoomClosed: func(id string) {
			fmt.Fprintf(out, "* room %s closed\n", id)
			cancel()
		},
		OnRoomLeft: func(string) { cancel() },
		OnTranslation: func(ev protocol.TranslationEvent) {
			fmt.Fprintf(out, "%s: %s\n    (%s) %s\n", ev.UserID, ev.OriginalText, ev.TargetLanguage, ev.TranslatedText)
		},
		OnAudio: func(ev protocol.AudioEvent) {
			log.Debug().Str("module", "cli").Str("from", ev.UserID).Int("bytes", len(ev.Audio)).Msg("audio")
		},
		OnLanguage: func(ev protocol.LanguageEvent) {
			fmt.Fprintf(out, "* %s now speaks %s\n", ev.UserID, ev.Language)
		},
		OnSignal: func(ev protocol.SignalEvent) { peers.feed(ctx, ev.UserID, ev.Payload) },
		OnError: func(ev protocol.ErrorEvent) {
			fmt.Fprintf(out, "! %s: %s\n", ev.Code, ev.Message)
		},
	}

	c, err := client.Dial(ctx, flagServer, client.Options{Handlers: h})
	if err != nil {
		return err
	}
	defer c.Close()
	peers.bind(c)

	if create {
		err = c.CreateRoom(room)
	} else {
		err = c.JoinRoom(room)
	}
	if err != nil {
		return err
	}

	var tr translate.Translator = passthrough{}
	if flagTranslateKey != "" {
		tr = translate.NewGoogleTranslator(flagTranslateKey)
	}
	p := translate.NewPipeline(tr, c,
		translate.WithLanguage(lang),
		translate.WithErrorHandler(func(err error) { fmt.Fprintf(out, "! %v\n", err) }),
	)
	go func() {
		if err := p.Start(ctx, lineRecognizer{r: cmd.InOrStdin()}); err != nil && ctx.Err() == nil {
			log.Warn().Err(err).Str("module", "cli").Msg("pipeline stopped")
		}
	}()

	select {
	case <-ctx.Done():
	case <-c.Done():
	}
	return nil
}
