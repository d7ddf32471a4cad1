package messaging

import (
	"errors"

	"github.com/jmehdipour/messaging-gateway/internal/dispatcher"
)

var (
	ErrConversationPersistence = errors.New("conversation persistence failed")
	ErrMessagePersistence      = errors.New("message persistence failed")
	ErrProviderIDAlreadySet    = errors.New("provider message id already set")
	ErrMessageNotFound         = errors.New("message not found")

	// ErrUnsupportedType is a configuration error: no client serves the message type.
	ErrUnsupportedType = dispatcher.ErrUnsupportedType
)
