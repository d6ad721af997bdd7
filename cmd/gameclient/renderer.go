package main

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ocgp/gameclient/internal/client"
	"github.com/ocgp/gameclient/internal/models"
	"github.com/ocgp/gameclient/internal/roomsync"
)

// logRenderer is a headless presentation collaborator: it narrates the
// synchronized state through the structured log so the binary runs without
// any UI attached.
type logRenderer struct{}

func (logRenderer) ShowContext(ctx client.Context) {
	log.Info().Str("context", string(ctx)).Msg("context switched")
}

func (logRenderer) RenderLobby(rooms []models.Room) {
	log.Info().Int("rooms", len(rooms)).Msg("lobby refreshed")
}

func (logRenderer) RenderRoom(room *models.Room, chat []models.ChatMessage) {
	status := "waiting to start"
	switch {
	case room.Started && room.CurrentStatus() == models.RoomStatusFinished:
		status = "finished"
	case room.Started:
		status = "in progress"
	}
	log.Info().
		Str("room_id", room.ID).
		Str("name", room.Name).
		Str("status", status).
		Str("current_player", room.CurrentPlayerID).
		Int("chat_messages", len(chat)).
		Msg("room updated")
}

func (logRenderer) RenderCountdown(display string) {
	log.Debug().Str("countdown", display).Msg("turn countdown")
}

func (logRenderer) RenderElapsed(display string) {
	log.Debug().Str("elapsed", display).Msg("elapsed clock")
}

func (logRenderer) TurnStarted(room *models.Room) {
	log.Info().Str("room_id", room.ID).Msg("your turn")
}

func (logRenderer) MatchFinished(outcome roomsync.Outcome) {
	event := log.Info().Str("result", string(outcome.Result))
	if outcome.Draw {
		event.Msg("match finished in a draw")
		return
	}
	event.
		Str("winner", outcome.WinnerName).
		Str("winner_color", outcome.WinnerColor).
		Msg("match finished")
}

func (logRenderer) Toast(message string, isError bool) {
	if isError {
		log.Warn().Msg(message)
		return
	}
	log.Info().Msg(message)
}

func (logRenderer) Latency(d time.Duration) {
	log.Debug().Dur("latency", d).Msg("latency probe")
}
