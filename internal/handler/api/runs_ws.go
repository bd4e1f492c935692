package api

import (
	"net/http"
	"time"

	"VolTune/internal/middleware"
	"VolTune/internal/usecase"
	xhttp "VolTune/pkg/http"
	xlogger "VolTune/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// RunsWSHandler streams progress events of one run over WebSocket. The stream
// closes when the client disconnects or the run leaves the running state.
type RunsWSHandler struct {
	logger   *xlogger.Logger
	registry *usecase.RunRegistry
	progress *middleware.ProgressPipeline
	upgrader websocket.Upgrader
}

func NewRunsWSHandler(logger *xlogger.Logger, registry *usecase.RunRegistry, progress *middleware.ProgressPipeline) *RunsWSHandler {
	return &RunsWSHandler{
		logger:   logger,
		registry: registry,
		progress: progress,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// API is CORS-open; same policy here
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

const (
	wsWriteWait  = 10 * time.Second
	wsPingPeriod = 30 * time.Second
)

func (h *RunsWSHandler) Stream(c echo.Context) error {
	runID := c.Param("id")
	if h.registry.Get(runID) == nil {
		return xhttp.NotFoundResponse(c, "run not found")
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Error("websocket upgrade", xlogger.Error(err))
		return err
	}
	defer conn.Close()

	events, cancel := h.progress.Subscribe(runID)
	defer cancel()

	// discard client frames; close notifications arrive through read errors
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-done:
			return nil
		case <-c.Request().Context().Done():
			return nil
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(ev); err != nil {
				return nil
			}
		}
	}
}
