package interfaces

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tablecover/internal/service/quote/application"
)

func TestPushHandler_StreamsSnapshots(t *testing.T) {
	srv := newTestServer(t, &stubIntake{})
	c := newClient(t, srv)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?session=" + c.session
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var initial application.Snapshot
	require.NoError(t, conn.ReadJSON(&initial))
	assert.Equal(t, c.session, initial.SessionID)
	assert.Equal(t, "rectangle", initial.Configuration.Shape)

	c.snapshot(http.MethodPut, "/api/v1/widget/shape", valueRequest{Value: "oval"}, http.StatusOK)

	var update application.Snapshot
	require.NoError(t, conn.ReadJSON(&update))
	assert.Equal(t, "oval", update.Configuration.Shape)
}

func TestPushHandler_UnknownSession(t *testing.T) {
	srv := newTestServer(t, &stubIntake{})
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?session=missing"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
