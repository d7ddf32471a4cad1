package http

import (
	"net/http"
	"time"

	"github.com/jmehdipour/messaging-gateway/internal/model"
	"github.com/jmehdipour/messaging-gateway/internal/repository"
	"github.com/jmehdipour/messaging-gateway/internal/util"
	"github.com/labstack/echo/v4"
)

type conversationResponse struct {
	ID           string    `json:"id"`
	Participant1 string    `json:"participant_1"`
	Participant2 string    `json:"participant_2"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type messageResponse struct {
	ID                string    `json:"id"`
	Direction         string    `json:"direction"`
	From              string    `json:"from"`
	To                string    `json:"to"`
	Type              string    `json:"type"`
	Body              string    `json:"body"`
	Attachments       []string  `json:"attachments"`
	ProviderMessageID *string   `json:"provider_message_id"`
	Timestamp         time.Time `json:"timestamp"`
	CreatedAt         time.Time `json:"created_at"`
}

func toMessageResponse(m model.Message) messageResponse {
	att := []string(m.Attachments)
	if att == nil {
		att = []string{}
	}
	return messageResponse{
		ID:                m.ID,
		Direction:         m.Direction.String(),
		From:              m.From,
		To:                m.To,
		Type:              m.Type.String(),
		Body:              m.Body,
		Attachments:       att,
		ProviderMessageID: m.ProviderMessageID,
		Timestamp:         m.Timestamp.UTC(),
		CreatedAt:         m.CreatedAt.UTC(),
	}
}

func listConversationsHandler(repo repository.ConversationsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		convs, err := repo.List(c.Request().Context())
		if err != nil {
			c.Logger().Errorf("list conversations: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		out := make([]conversationResponse, 0, len(convs))
		for _, cv := range convs {
			out = append(out, conversationResponse{
				ID:           cv.ID,
				Participant1: cv.Participant1,
				Participant2: cv.Participant2,
				CreatedAt:    cv.CreatedAt.UTC(),
				UpdatedAt:    cv.UpdatedAt.UTC(),
			})
		}
		return c.JSON(http.StatusOK, out)
	}
}

// listConversationMessagesHandler answers 404 for ids that cannot exist and an
// empty list for well-formed ids without messages.
func listConversationMessagesHandler(repo repository.MessagesRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Param("id")
		if !util.IsID(id) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "conversation not found"})
		}

		msgs, err := repo.ListByConversation(c.Request().Context(), id)
		if err != nil {
			c.Logger().Errorf("list messages of %s: %v", id, err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		out := make([]messageResponse, 0, len(msgs))
		for _, m := range msgs {
			out = append(out, toMessageResponse(m))
		}
		return c.JSON(http.StatusOK, out)
	}
}
