package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/racer/internal/core/systems/physics"
	"github.com/zeusync/racer/internal/core/track"
	"github.com/zeusync/racer/internal/env"
)

func testFactory(t *testing.T) EnvFactory {
	t.Helper()
	course, err := track.NewCourse([]track.Spec{
		{Label: "CP1", Position: physics.Vec3{Z: 10}, Radius: 2},
		{Label: "CP2", Position: physics.Vec3{Z: 20}, Radius: 2},
	})
	require.NoError(t, err)
	return func(id string) (*env.Environment, error) {
		return env.New(env.DefaultConfig(), course, nil, env.WithID(id))
	}
}

func startTestServer(t *testing.T, cfg Config) (*Server, string) {
	t.Helper()
	srv, err := NewServer(cfg, testFactory(t), nil)
	require.NoError(t, err)
	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(hs.Close)
	return srv, "ws" + strings.TrimPrefix(hs.URL, "http") + cfg.Path
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func roundTrip[T any](t *testing.T, conn *websocket.Conn, req any) T {
	t.Helper()
	require.NoError(t, conn.WriteJSON(req))
	var resp T
	require.NoError(t, conn.ReadJSON(&resp))
	return resp
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultServerConfig().Validate())

	cfg := DefaultServerConfig()
	cfg.Path = "env"
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	_, err := NewServer(DefaultServerConfig(), nil, nil)
	assert.ErrorIs(t, err, ErrNilFactory)
}

func TestSpecResetStep(t *testing.T) {
	_, url := startTestServer(t, DefaultServerConfig())
	conn := dial(t, url)

	spec := roundTrip[SpecResponse](t, conn, Request{Op: OpSpec})
	assert.Equal(t, SpecResponse{Op: OpSpec, ObservationSize: 4, ActionSize: 3, Mode: "planar"}, spec)

	step := roundTrip[ErrorResponse](t, conn, Request{Op: OpStep, Action: []float64{0, 1, 0}})
	assert.Equal(t, OpError, step.Op)
	assert.Contains(t, step.Error, "not running")

	reset := roundTrip[ResetResponse](t, conn, Request{Op: OpReset})
	assert.Equal(t, OpReset, reset.Op)
	assert.Equal(t, []float64{0, 0, 0, 1}, reset.Observation)

	var last StepResponse
	for i := 0; i < 500; i++ {
		last = roundTrip[StepResponse](t, conn, Request{Op: OpStep, Action: []float64{0, 1, 0}})
		require.Equal(t, OpStep, last.Op)
		require.Len(t, last.Observation, 4)
		if last.Done {
			break
		}
		assert.Empty(t, last.Outcome)
	}
	assert.True(t, last.Done)
	assert.Equal(t, "completed", last.Outcome)
	assert.Greater(t, last.Reward, 25.0)
}

func TestProtocolErrorsKeepSessionOpen(t *testing.T) {
	_, url := startTestServer(t, DefaultServerConfig())
	conn := dial(t, url)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	var bad ErrorResponse
	require.NoError(t, conn.ReadJSON(&bad))
	assert.Equal(t, OpError, bad.Op)
	assert.Contains(t, bad.Error, ErrInvalidMessage.Error())

	unknown := roundTrip[ErrorResponse](t, conn, Request{Op: "fly"})
	assert.Contains(t, unknown.Error, ErrUnknownOp.Error())

	roundTrip[ResetResponse](t, conn, Request{Op: OpReset})
	short := roundTrip[ErrorResponse](t, conn, Request{Op: OpStep, Action: []float64{1}})
	assert.Contains(t, short.Error, "action")

	ok := roundTrip[StepResponse](t, conn, Request{Op: OpStep, Action: []float64{0, 0, 0}})
	assert.Equal(t, OpStep, ok.Op)
	assert.False(t, ok.Done)
}

func TestSessionsAreIndependent(t *testing.T) {
	_, url := startTestServer(t, DefaultServerConfig())
	a, b := dial(t, url), dial(t, url)

	roundTrip[ResetResponse](t, a, Request{Op: OpReset})
	stepA := roundTrip[StepResponse](t, a, Request{Op: OpStep, Action: []float64{0, 1, 0}})
	assert.Equal(t, OpStep, stepA.Op)

	stepB := roundTrip[ErrorResponse](t, b, Request{Op: OpStep, Action: []float64{0, 1, 0}})
	assert.Equal(t, OpError, stepB.Op, "b has not been reset")
}

func TestTokenAuth(t *testing.T) {
	cfg := DefaultServerConfig()
	cfg.Token = "supersecrettoken"
	_, url := startTestServer(t, cfg)

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, _, err = websocket.DefaultDialer.Dial(url+"?token=invalid", nil)
	require.Error(t, err)

	conn := dial(t, url+"?token=supersecrettoken")
	spec := roundTrip[SpecResponse](t, conn, Request{Op: OpSpec})
	assert.Equal(t, 3, spec.ActionSize)

	header := http.Header{"Authorization": []string{"Bearer supersecrettoken"}}
	bearer, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	_ = bearer.Close()
}

func TestMaxClients(t *testing.T) {
	cfg := DefaultServerConfig()
	cfg.MaxClients = 1
	srv, url := startTestServer(t, cfg)

	first := dial(t, url)
	roundTrip[SpecResponse](t, first, Request{Op: OpSpec})
	assert.Equal(t, int64(1), srv.Clients())

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestStartStop(t *testing.T) {
	cfg := DefaultServerConfig()
	cfg.ListenAddr = "127.0.0.1:0"
	srv, err := NewServer(cfg, testFactory(t), nil)
	require.NoError(t, err)

	require.NoError(t, srv.Start(context.Background()))
	assert.ErrorIs(t, srv.Start(context.Background()), ErrServerAlreadyRunning)

	conn := dial(t, "ws://"+srv.Addr().String()+cfg.Path)
	spec := roundTrip[SpecResponse](t, conn, Request{Op: OpSpec})
	assert.Equal(t, 4, spec.ObservationSize)

	require.NoError(t, srv.Stop(context.Background()))
	assert.ErrorIs(t, srv.Stop(context.Background()), ErrServerNotRunning)

	require.NoError(t, srv.Close())
	assert.ErrorIs(t, srv.Start(context.Background()), ErrServerClosed)
}
