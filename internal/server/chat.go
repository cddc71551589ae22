package server

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/rango-productions/turbotalk/internal/conversation"
)

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	ThinkingSummary string `json:"thinking_summary"`
	FinalResponse   string `json:"final_response"`
}

// chat validates the message before touching the store, runs the
// reasoning pipeline, then persists exactly the user message and the
// final response (intermediate stage output is discarded).
func (s *Server) chat(c echo.Context) error {
	sessionID := c.Get(sessionCookie).(string)

	var req chatRequest
	if err := c.Bind(&req); err != nil {
		s.telemetry.CountRequest("bad_request")
		return echo.NewHTTPError(http.StatusBadRequest, "Please provide a message.")
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		s.telemetry.CountRequest("bad_request")
		return echo.NewHTTPError(http.StatusBadRequest, "Please provide a message.")
	}

	s.logger.Printf("processing message for session %s", shortID(sessionID))

	history := s.store.History(sessionID)
	result := s.pipeline.Process(c.Request().Context(), message, history)

	s.store.Append(sessionID, message, conversation.RoleUser)
	s.store.Append(sessionID, result.FinalResponse, conversation.RoleAssistant)

	s.telemetry.CountRequest("ok")
	return c.JSON(http.StatusOK, chatResponse{
		ThinkingSummary: result.ThinkingSummary,
		FinalResponse:   result.FinalResponse,
	})
}
