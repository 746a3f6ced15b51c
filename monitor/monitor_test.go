package monitor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"gotest.tools/v3/assert"
	"gotest.tools/v3/poll"

	"carnot/report"
	"carnot/result"
	"carnot/solver"
)

type received struct {
	Type string `json:"type"`
	Step *struct {
		Iteration int
		Damping   float64
	} `json:"step"`
	Snapshot *struct {
		Name string `json:"name"`
	} `json:"snapshot"`
}

func start(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	s := NewServer(ctx, NewHub(nil), report.NewCharts(&report.Record{Name: "test"}))
	ts := httptest.NewServer(s.Router())
	t.Cleanup(ts.Close)
	return s, ts
}

func dial(t *testing.T, s *Server, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	assert.NilError(t, err)
	t.Cleanup(func() { conn.Close() })
	poll.WaitOn(t, func(poll.LogT) poll.Result {
		if s.Hub.Clients() == 1 {
			return poll.Success()
		}
		return poll.Continue("waiting for client")
	}, poll.WithTimeout(2*time.Second))
	return conn
}

func next(t *testing.T, conn *websocket.Conn) received {
	t.Helper()
	var msg received
	assert.NilError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	assert.NilError(t, conn.ReadJSON(&msg))
	return msg
}

func TestFeed(t *testing.T) {
	s, ts := start(t)
	conn := dial(t, s, ts)

	s.Hub.Observe(solver.Step{Iteration: 3, Damping: 0.5})
	msg := next(t, conn)
	assert.Equal(t, msg.Type, TypeStep)
	assert.Assert(t, msg.Step != nil)
	assert.Equal(t, msg.Step.Iteration, 3)
	assert.Equal(t, msg.Step.Damping, 0.5)

	s.Hub.Publish(&result.Snapshot{Name: "hp"})
	msg = next(t, conn)
	assert.Equal(t, msg.Type, TypeResult)
	assert.Assert(t, msg.Snapshot != nil)
	assert.Equal(t, msg.Snapshot.Name, "hp")
}

func TestLateJoin(t *testing.T) {
	s, ts := start(t)
	s.Hub.Publish(&result.Snapshot{Name: "orc"})
	conn := dial(t, s, ts)
	msg := next(t, conn)
	assert.Equal(t, msg.Type, TypeResult)
	assert.Equal(t, msg.Snapshot.Name, "orc")
}

func TestSnapshotHandler(t *testing.T) {
	s, ts := start(t)
	resp, err := http.Get(ts.URL + "/api/snapshot")
	assert.NilError(t, err)
	resp.Body.Close()
	assert.Equal(t, resp.StatusCode, http.StatusNotFound)

	s.Hub.Publish(&result.Snapshot{Name: "hp"})
	resp, err = http.Get(ts.URL + "/api/snapshot")
	assert.NilError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, resp.StatusCode, http.StatusOK)
	var body struct {
		Name string `json:"name"`
	}
	assert.NilError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, body.Name, "hp")
}

func TestPages(t *testing.T) {
	_, ts := start(t)
	resp, err := http.Get(ts.URL + "/")
	assert.NilError(t, err)
	resp.Body.Close()
	assert.Equal(t, resp.StatusCode, http.StatusOK)

	resp, err = http.Get(ts.URL + "/api/record")
	assert.NilError(t, err)
	defer resp.Body.Close()
	var rec struct {
		Name string `json:"name"`
	}
	assert.NilError(t, json.NewDecoder(resp.Body).Decode(&rec))
	assert.Equal(t, rec.Name, "test")

	resp2, err := http.Post(ts.URL+"/api/snapshot", "application/json", nil)
	assert.NilError(t, err)
	resp2.Body.Close()
	assert.Equal(t, resp2.StatusCode, http.StatusMethodNotAllowed)
}
