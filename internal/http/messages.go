package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/jmehdipour/messaging-gateway/internal/model"
	"github.com/jmehdipour/messaging-gateway/internal/service/messaging"
	"github.com/labstack/echo/v4"
)

// MessageService is the write path behind the send and webhook routes.
type MessageService interface {
	SendMessage(ctx context.Context, in messaging.OutboundMessage) (model.Message, error)
	ReceiveMessage(ctx context.Context, in messaging.InboundMessage) (model.Message, error)
}

func sendMessageHandler(svc MessageService, kind channelKind) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req messageRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		}

		in, err := req.validate(kind, false)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}

		// delivery outcome never changes the response; only storage problems do
		m, err := svc.SendMessage(c.Request().Context(), messaging.OutboundMessage{
			From:        in.From,
			To:          in.To,
			Type:        in.Type,
			Body:        in.Body,
			Attachments: in.Attachments,
			Timestamp:   in.Timestamp,
		})
		if err != nil {
			return serverError(c, err)
		}

		return c.JSON(http.StatusCreated, map[string]string{"message_id": m.ID})
	}
}

func receiveWebhookHandler(svc MessageService, kind channelKind) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req messageRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		}

		in, err := req.validate(kind, true)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}

		m, err := svc.ReceiveMessage(c.Request().Context(), messaging.InboundMessage{
			From:              in.From,
			To:                in.To,
			Type:              in.Type,
			Body:              in.Body,
			Attachments:       in.Attachments,
			Timestamp:         in.Timestamp,
			ProviderMessageID: in.ProviderMessageID,
		})
		if err != nil {
			return serverError(c, err)
		}

		return c.JSON(http.StatusCreated, map[string]string{"message_id": m.ID})
	}
}

func serverError(c echo.Context, err error) error {
	c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)

	if errors.Is(err, messaging.ErrUnsupportedType) {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "no provider configured for message type"})
	}
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "message could not be stored"})
}
