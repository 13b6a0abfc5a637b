package tracker

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/gusuihan4-tech/kaluli/internal/analysis"
	"github.com/gusuihan4-tech/kaluli/internal/apperror"
	"github.com/gusuihan4-tech/kaluli/internal/imageprep"
	"github.com/gusuihan4-tech/kaluli/internal/model"
	"github.com/gusuihan4-tech/kaluli/internal/queue"
	"github.com/gusuihan4-tech/kaluli/internal/store"
)

func photoBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 40, 30))))
	return buf.Bytes()
}

// newPipeline builds a tracker against a real analysis client pointed at
// the given endpoint, with an in-memory store.
func newPipeline(t *testing.T, endpoint string) (*Tracker, *store.Store) {
	t.Helper()
	s, err := store.Open(store.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.SetCurrentUser("alice"))

	log := zaptest.NewLogger(t)
	client := analysis.NewClient(endpoint, 2*time.Second, log)
	q := queue.New(s, client, log)
	tr := New(s, imageprep.New(1024, 70), client, q, nil, log)
	return tr, s
}

func TestAnalyzePhoto_OfflineQueuesWithoutNetworkCall(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte(`{"success":true,"predictions":[{"name":"Apple","calories":95}]}`))
	}))
	defer srv.Close()

	tr, s := newPipeline(t, srv.URL)
	tr.SetOnline(false)

	out, err := tr.AnalyzePhoto(context.Background(), photoBytes(t))
	require.NoError(t, err)
	assert.True(t, out.Queued)
	assert.Equal(t, 1, out.QueueLength)
	assert.Zero(t, atomic.LoadInt32(&hits), "no network call while offline")

	items, err := s.ListPending()
	require.NoError(t, err)
	require.Len(t, items, 1)

	// flip online: the queue drains through the same client path
	tr.SetOnline(true)
	go tr.queue.Start()
	defer tr.queue.Stop()

	assert.Eventually(t, func() bool {
		items, err := s.ListPending()
		return err == nil && len(items) == 0
	}, 2*time.Second, 20*time.Millisecond, "queue should drain after reconnect")
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestAnalyzePhoto_OnlineSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"predictions":[{"name":"Apple","calories":95}]}`))
	}))
	defer srv.Close()

	tr, _ := newPipeline(t, srv.URL)

	out, err := tr.AnalyzePhoto(context.Background(), photoBytes(t))
	require.NoError(t, err)
	assert.False(t, out.Queued)
	require.Len(t, out.Predictions, 1)
	assert.Equal(t, "Apple", out.Predictions[0].Name)
}

func TestAnalyzePhoto_EndpointFailureDivertsToQueue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	tr, s := newPipeline(t, srv.URL)

	out, err := tr.AnalyzePhoto(context.Background(), photoBytes(t))
	require.NoError(t, err, "retryable failure must not surface as terminal")
	assert.True(t, out.Queued)

	items, err := s.ListPending()
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestAnalyzePhoto_ParseFailureIsTerminalAndNotQueued(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>gateway</html>`))
	}))
	defer srv.Close()

	tr, s := newPipeline(t, srv.URL)

	_, err := tr.AnalyzePhoto(context.Background(), photoBytes(t))
	assert.True(t, errors.Is(err, apperror.ErrParse))

	items, err := s.ListPending()
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestAnalyzePhoto_BadImageIsTerminal(t *testing.T) {
	tr, s := newPipeline(t, "http://unused")

	_, err := tr.AnalyzePhoto(context.Background(), []byte("not an image"))
	assert.True(t, errors.Is(err, apperror.ErrDecode))

	items, err := s.ListPending()
	require.NoError(t, err)
	assert.Empty(t, items, "undecodable input must not be queued")
}

func TestSaveAndHistoryAndStats(t *testing.T) {
	tr, _ := newPipeline(t, "http://unused")

	cal1, cal2 := 95.0, 110.0
	entry, err := tr.Save(model.MealBreakfast, []model.Prediction{
		{Name: "Apple", Calories: &cal1},
		{Name: "Juice", Calories: &cal2},
		{Name: "Mystery"}, // nil calories count as zero
	})
	require.NoError(t, err)
	assert.Equal(t, 205, entry.Total)

	history, err := tr.History()
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, model.MealBreakfast, history[0].Meal)

	stats, err := tr.Stats(time.Now())
	require.NoError(t, err)
	assert.Equal(t, 205, stats.TodayTotal)
	assert.Equal(t, 1, stats.TodayMeals)
	assert.Equal(t, 1, stats.TotalCount)
}

func TestDeleteAt_DisplayedIndexTranslation(t *testing.T) {
	tr, _ := newPipeline(t, "http://unused")

	for _, n := range []float64{100, 200, 300} {
		v := n
		_, err := tr.Save(model.MealSnack, []model.Prediction{{Name: "x", Calories: &v}})
		require.NoError(t, err)
	}

	history, err := tr.History()
	require.NoError(t, err)
	require.Len(t, history, 3)

	// newest-first display shows 300, 200, 100; deleting displayed row 0
	// must remove the 300 entry
	chrono := DisplayedToChronological(len(history), 0)
	assert.Equal(t, 2, chrono)
	require.NoError(t, tr.DeleteAt(chrono))

	history, err = tr.History()
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 100, history[0].Total)
	assert.Equal(t, 200, history[1].Total)
}
