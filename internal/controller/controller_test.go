package controller

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchroom/server/internal/filestore"
	connInmemory "github.com/watchroom/server/internal/repository/connection/inmemory"
	roomMemory "github.com/watchroom/server/internal/repository/room/memory"
	"github.com/watchroom/server/internal/service/room"
)

func newTestServer(t *testing.T, uploadLimitBytes int64) *httptest.Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	roomService := room.NewService(roomMemory.NewRepo(logger), connInmemory.NewRepo(), logger)

	files, err := filestore.New(t.TempDir())
	require.NoError(t, err)

	ctrl := NewController(roomService, files, &Config{UploadLimitBytes: uploadLimitBytes}, logger)

	server := httptest.NewServer(ctrl.GetMux())
	t.Cleanup(server.Close)

	return server
}

func TestHealthz(t *testing.T) {
	server := newTestServer(t, 1<<20)

	resp, err := http.Get(server.URL + "/api/v1/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStats(t *testing.T) {
	server := newTestServer(t, 1<<20)

	resp, err := http.Get(server.URL + "/api/v1/stats")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Data room.StatsResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, room.StatsResponse{Rooms: 0, Clients: 0}, body.Data)
}

func uploadFile(t *testing.T, server *httptest.Server, filename string, content []byte) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("video", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(server.URL+"/api/v1/videos", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	return resp
}

func TestUploadVideo(t *testing.T) {
	server := newTestServer(t, 1<<20)

	resp := uploadFile(t, server, "clip.mp4", []byte("video-bytes"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body struct {
		Data struct {
			Path string `json:"path"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.True(t, strings.HasPrefix(body.Data.Path, "/media/"), "path %s", body.Data.Path)

	// the returned path must be servable straight away
	mediaResp, err := http.Get(server.URL + body.Data.Path)
	require.NoError(t, err)
	defer mediaResp.Body.Close()

	require.Equal(t, http.StatusOK, mediaResp.StatusCode)
	data, err := io.ReadAll(mediaResp.Body)
	require.NoError(t, err)
	assert.Equal(t, "video-bytes", string(data))
}

func TestUploadVideo_RejectsUnsupportedType(t *testing.T) {
	server := newTestServer(t, 1<<20)

	resp := uploadFile(t, server, "malware.exe", []byte("x"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUploadVideo_RejectsOversizedPayload(t *testing.T) {
	server := newTestServer(t, 1024)

	resp := uploadFile(t, server, "clip.mp4", bytes.Repeat([]byte("x"), 4096))
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

type wsClient struct {
	t    *testing.T
	conn *websocket.Conn
}

func dialWS(t *testing.T, server *httptest.Server) *wsClient {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })

	return &wsClient{t: t, conn: conn}
}

func (c *wsClient) send(msgType string, payload any) {
	c.t.Helper()

	err := c.conn.WriteJSON(map[string]any{"type": msgType, "payload": payload})
	require.NoError(c.t, err)
}

type wsEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func (c *wsClient) read() wsEvent {
	c.t.Helper()

	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var ev wsEvent
	require.NoError(c.t, c.conn.ReadJSON(&ev))
	return ev
}

func (c *wsClient) readType(expected string) json.RawMessage {
	c.t.Helper()

	ev := c.read()
	require.Equal(c.t, expected, ev.Type)
	return ev.Payload
}

type roomStatePayload struct {
	VideoRef        *string `json:"videoRef"`
	Playing         bool    `json:"playing"`
	PositionSeconds float64 `json:"positionSeconds"`
	HostId          string  `json:"hostId"`
}

func TestWebSocket_RoomFlow(t *testing.T) {
	server := newTestServer(t, 1<<20)

	host := dialWS(t, server)
	host.send("join", "movie-night")

	var snapshot roomStatePayload
	require.NoError(t, json.Unmarshal(host.readType("room-state"), &snapshot))
	assert.Nil(t, snapshot.VideoRef)
	assert.False(t, snapshot.Playing)

	var hostId string
	require.NoError(t, json.Unmarshal(host.readType("new-host"), &hostId))
	assert.Equal(t, snapshot.HostId, hostId)

	follower := dialWS(t, server)
	follower.send("join", "movie-night")

	var fSnapshot roomStatePayload
	require.NoError(t, json.Unmarshal(follower.readType("room-state"), &fSnapshot))
	assert.Equal(t, hostId, fSnapshot.HostId)
	follower.readType("new-host")
	host.readType("new-host")

	// a follower's transport command is dropped without any broadcast; the
	// chat line right behind it must be the next event everyone sees
	follower.send("play", 99)
	follower.send("chat-message", "hi")

	for _, client := range []*wsClient{host, follower} {
		var msg struct {
			SenderId string `json:"senderId"`
			Text     string `json:"text"`
		}
		require.NoError(t, json.Unmarshal(client.readType("chat-message"), &msg))
		assert.Equal(t, "hi", msg.Text)
		assert.NotEqual(t, hostId, msg.SenderId)
	}

	// set-video reaches the whole room, the sender included
	host.send("set-video", "path/a.mp4")

	for _, client := range []*wsClient{host, follower} {
		var videoRef string
		require.NoError(t, json.Unmarshal(client.readType("video-set"), &videoRef))
		assert.Equal(t, "path/a.mp4", videoRef)
	}

	// play excludes the sender; the follower's next event is the position
	host.send("play", 12.5)

	var position float64
	require.NoError(t, json.Unmarshal(follower.readType("played"), &position))
	assert.Equal(t, 12.5, position)

	// a follow-up chat proves the host saw no played event in between
	host.send("chat-message", "rolling")

	var hostMsg struct {
		SenderId string `json:"senderId"`
		Text     string `json:"text"`
	}
	require.NoError(t, json.Unmarshal(host.readType("chat-message"), &hostMsg))
	assert.Equal(t, "rolling", hostMsg.Text)
	follower.readType("chat-message")
}

func TestWebSocket_HostDisconnectFailsOver(t *testing.T) {
	server := newTestServer(t, 1<<20)

	host := dialWS(t, server)
	host.send("join", "movie-night")
	host.readType("room-state")
	host.readType("new-host")

	follower := dialWS(t, server)
	follower.send("join", "movie-night")
	follower.readType("room-state")

	var origHostId string
	require.NoError(t, json.Unmarshal(follower.readType("new-host"), &origHostId))
	host.readType("new-host")

	host.send("set-video", "path/a.mp4")
	follower.readType("video-set")
	host.readType("video-set")

	require.NoError(t, host.conn.Close())

	// the remaining member takes over and the room is reset
	var newHostId string
	require.NoError(t, json.Unmarshal(follower.readType("new-host"), &newHostId))
	assert.NotEqual(t, origHostId, newHostId, "the successor must be a different member")

	var videoRef *string
	require.NoError(t, json.Unmarshal(follower.readType("video-set"), &videoRef))
	assert.Nil(t, videoRef)

	// the successor now passes the host guard
	follower.send("play", 0)
	follower.send("chat-message", "alone now")
	follower.readType("chat-message")
}

func TestWebSocket_UnknownMessageTypeIsIgnored(t *testing.T) {
	server := newTestServer(t, 1<<20)

	client := dialWS(t, server)
	client.send("teleport", "nowhere")
	client.send("join", "movie-night")

	client.readType("room-state")
	client.readType("new-host")
}
