package ws

import (
	"context"
	"errors"

	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/chat"
	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/domain"
)

func errorCode(err error) string {
	var (
		validation  *domain.ValidationError
		notFound    *domain.NotFoundError
		upstream    *domain.UpstreamStreamError
		timeout     *domain.TimeoutError
		persistence *domain.PersistenceError
	)
	switch {
	case errors.Is(err, chat.ErrTurnInFlight):
		return ErrorCodeTurnInFlight
	case errors.Is(err, chat.ErrEmptyInput):
		return ErrorCodeEmptyInput
	case errors.Is(err, chat.ErrNoActiveSession):
		return ErrorCodeNoActiveSession
	case errors.Is(err, chat.ErrSessionBusy):
		return ErrorCodeSessionBusy
	case errors.Is(err, chat.ErrNotPersisted):
		return ErrorCodePersistence
	case errors.Is(err, context.Canceled):
		return ErrorCodeCancelled
	case errors.As(err, &validation):
		return ErrorCodeValidation
	case errors.As(err, &notFound):
		return ErrorCodeNotFound
	case errors.As(err, &timeout):
		return ErrorCodeTimeout
	case errors.As(err, &upstream):
		return ErrorCodeUpstream
	case errors.As(err, &persistence):
		return ErrorCodePersistence
	default:
		return ErrorCodeInternal
	}
}

func domainCreateRequest(msg NewSessionMessage) domain.CreateSessionRequest {
	return domain.CreateSessionRequest{
		ThreadID: msg.ThreadID,
		Title:    msg.Title,
		Filename: msg.Filename,
		Snapshot: msg.Snapshot,
	}
}
