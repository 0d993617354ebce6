package client

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hiroki-koketsu/taskboard/internal/auth"
	"github.com/hiroki-koketsu/taskboard/internal/handler"
	"github.com/hiroki-koketsu/taskboard/internal/model"
	"github.com/hiroki-koketsu/taskboard/internal/repository"
	"github.com/hiroki-koketsu/taskboard/internal/service"
	"github.com/hiroki-koketsu/taskboard/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

const testSecret = "client-secret"

func newAPI(t *testing.T) string {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := repository.NewMemoryStore()
	metrics, err := telemetry.NewMetrics(noop.NewMeterProvider().Meter("test"), store.Count)
	require.NoError(t, err)

	h := handler.NewTaskHandler(service.NewTaskService(store), logger, metrics)
	srv := httptest.NewServer(handler.NewRouter(h, auth.NewHMACVerifier(testSecret, "", ""), logger))
	t.Cleanup(srv.Close)
	return srv.URL
}

func newClient(t *testing.T, url, user string) *Client {
	t.Helper()
	token, err := auth.IssueToken(testSecret, user, "", "", time.Hour)
	require.NoError(t, err)
	return New(url, token)
}

func titles(tasks []*model.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.Title)
	}
	return out
}

func TestBoardFiltersCachedTasks(t *testing.T) {
	ctx := context.Background()
	board := NewBoard(newClient(t, newAPI(t), "alice"))

	assert.Empty(t, board.Visible(), "an unloaded board shows nothing")

	_, err := board.Create(ctx, model.CreateTaskRequest{Title: "Buy milk", Description: "dairy"})
	require.NoError(t, err)
	eggs, err := board.Create(ctx, model.CreateTaskRequest{Title: "Groceries", Description: "buy eggs", Priority: model.PriorityHigh})
	require.NoError(t, err)
	_, err = board.Create(ctx, model.CreateTaskRequest{Title: "Clean", Description: "kitchen"})
	require.NoError(t, err)

	require.NoError(t, board.Refresh(ctx))
	assert.Equal(t, []string{"Clean", "Groceries", "Buy milk"}, titles(board.Visible()))

	board.SetCriteria(model.Criteria{Search: "Buy"})
	assert.Equal(t, []string{"Groceries", "Buy milk"}, titles(board.Visible()))

	board.SetCriteria(model.Criteria{Search: "buy", Priority: "HIGH"})
	assert.Equal(t, []string{"Groceries"}, titles(board.Visible()))

	_, err = board.Toggle(ctx, eggs.ID)
	require.NoError(t, err)
	board.SetCriteria(model.Criteria{Status: "completed"})
	assert.Equal(t, []string{"Groceries"}, titles(board.Visible()))

	require.NoError(t, board.Delete(ctx, eggs.ID))
	assert.Empty(t, board.Visible())

	board.ClearCriteria()
	assert.Equal(t, []string{"Clean", "Buy milk"}, titles(board.Visible()))
}

func TestBoardMatchesServerFiltering(t *testing.T) {
	ctx := context.Background()
	api := newClient(t, newAPI(t), "alice")
	board := NewBoard(api)

	for _, title := range []string{"alpha", "Beta", "gamma beta"} {
		_, err := board.Create(ctx, model.CreateTaskRequest{Title: title, Description: "x"})
		require.NoError(t, err)
	}
	require.NoError(t, board.Refresh(ctx))

	for _, c := range []model.Criteria{{}, {Search: "BETA"}, {Priority: "all", Status: "pending"}, {Search: "zzz"}} {
		server, err := api.List(ctx, c)
		require.NoError(t, err)
		board.SetCriteria(c)
		assert.Equal(t, titles(server), titles(board.Visible()), "criteria %+v", c)
	}
}

func TestClientErrors(t *testing.T) {
	ctx := context.Background()
	url := newAPI(t)
	alice := newClient(t, url, "alice")
	bob := newClient(t, url, "bob")

	task, err := alice.Create(ctx, model.CreateTaskRequest{Title: "mine", Description: "d"})
	require.NoError(t, err)

	_, err = bob.Get(ctx, task.ID)
	assert.ErrorIs(t, err, model.ErrForbidden)

	err = alice.Delete(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrTaskNotFound)

	_, err = alice.Create(ctx, model.CreateTaskRequest{Title: "", Description: "d"})
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = New(url, "").List(ctx, model.Criteria{})
	assert.ErrorIs(t, err, model.ErrUnauthenticated)
}

func TestBoardRefreshFailureClearsCache(t *testing.T) {
	ctx := context.Background()
	url := newAPI(t)
	board := NewBoard(newClient(t, url, "alice"))
	_, err := board.Create(ctx, model.CreateTaskRequest{Title: "t", Description: "d"})
	require.NoError(t, err)

	board.api = New(url, "bad-token")
	assert.Error(t, board.Refresh(ctx))
	assert.Nil(t, board.Tasks())
	assert.NotNil(t, board.Visible())
	assert.Empty(t, board.Visible())
}

func TestBoardDeleteLeavesEarlierSnapshotIntact(t *testing.T) {
	ctx := context.Background()
	board := NewBoard(newClient(t, newAPI(t), "alice"))
	_, err := board.Create(ctx, model.CreateTaskRequest{Title: "first", Description: "d"})
	require.NoError(t, err)
	second, err := board.Create(ctx, model.CreateTaskRequest{Title: "second", Description: "d"})
	require.NoError(t, err)

	snapshot := board.Tasks()
	require.Equal(t, []string{"second", "first"}, titles(snapshot))

	require.NoError(t, board.Delete(ctx, second.ID))
	assert.Equal(t, []string{"first"}, titles(board.Tasks()))
	assert.Equal(t, []string{"second", "first"}, titles(snapshot))
}
