package handlers

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/efarmer/subsidy/cmd/subsidy/feed"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Same policy as the CORS middleware
		return true
	},
}

// FeedHandler streams decision events to dashboard clients
type FeedHandler struct {
	hub *feed.Hub
}

// NewFeedHandler creates a new feed handler
func NewFeedHandler(hub *feed.Hub) *FeedHandler {
	return &FeedHandler{hub: hub}
}

// Stream upgrades the connection and follows one farmer, or all of them
// when efn is omitted
// GET /api/v1/events/ws?efn=EFN-PUN-1A2B3C4D
func (h *FeedHandler) Stream(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		return nil
	}

	h.hub.Serve(conn, c.QueryParam("efn"))
	return nil
}
