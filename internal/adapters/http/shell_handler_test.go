package http

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glassfocus/core/internal/infrastructure/logger"
	"github.com/glassfocus/core/internal/ports"
)

// stubShellService implements ports.ShellService with canned responses
type stubShellService struct {
	res      *ports.CachedResponse
	fetchErr error
	msgErr   error
	lastMsg  ports.ShellMessage
}

func (s *stubShellService) Fetch(ctx context.Context, req *http.Request) (*ports.CachedResponse, error) {
	return s.res, s.fetchErr
}

func (s *stubShellService) PostMessage(msg ports.ShellMessage) error {
	s.lastMsg = msg
	return s.msgErr
}

func TestServeWritesCachedResponse(t *testing.T) {
	stub := &stubShellService{res: &ports.CachedResponse{
		URL:    "https://glassfocus.app/app.js",
		Status: http.StatusOK,
		Header: http.Header{"Content-Type": []string{"application/javascript"}},
		Body:   []byte("console.log('app')"),
	}}
	h := NewShellHandler(stub, logger.NewNop())

	c, rec := newTestContext(t, http.MethodGet, "/app.js", "")
	require.NoError(t, h.Serve(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/javascript", rec.Header().Get("Content-Type"))
	assert.Equal(t, "console.log('app')", rec.Body.String())
}

func TestServeFailsWithBadGateway(t *testing.T) {
	stub := &stubShellService{fetchErr: errors.New("origin unreachable")}
	h := NewShellHandler(stub, logger.NewNop())

	c, _ := newTestContext(t, http.MethodGet, "/app.js", "")
	err := h.Serve(c)

	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusBadGateway, he.Code)
}

func TestPostMessageHandler(t *testing.T) {
	stub := &stubShellService{}
	h := NewShellHandler(stub, logger.NewNop())

	c, rec := newTestContext(t, http.MethodPost, "/api/v1/shell/message", `{"type":"SKIP_WAITING"}`)
	require.NoError(t, h.PostMessage(c))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, ports.MessageSkipWaiting, stub.lastMsg.Type)
}

func TestPostMessageHandlerRejectsUnknownType(t *testing.T) {
	h := NewShellHandler(&stubShellService{}, logger.NewNop())

	c, _ := newTestContext(t, http.MethodPost, "/api/v1/shell/message", `{"type":"REFRESH"}`)
	err := h.PostMessage(c)

	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}
