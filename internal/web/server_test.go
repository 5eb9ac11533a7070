package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"ruleboard/internal/editor"
	"ruleboard/internal/model"
	"ruleboard/internal/store"

	"github.com/stretchr/testify/require"
)

func seedAssignment() model.Assignment {
	return model.Assignment{
		Catalog: []model.TemplateItem{
			{ID: "pool-1", Label: "Credit Check"},
			{ID: "pool-2", Label: "Range", RequiresInput: true, InputFields: []string{"start", "end"}},
		},
		Buckets: []model.Bucket{{Name: "key1"}, {Name: "key2"}},
	}
}

func newTestServer(t *testing.T) (*Server, http.Handler, store.Store) {
	t.Helper()
	dir := t.TempDir()
	st := store.Store{Dir: dir}
	require.NoError(t, st.SaveAssignment(context.Background(), seedAssignment()))

	srv, err := NewServer(context.Background(), ServerConfig{Dir: dir, Workspace: "test", IDs: editor.NewCounterIDs("inst")})
	require.NoError(t, err)
	t.Cleanup(srv.Close)
	return srv, srv.Handler(), st
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(string(b)))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	return rr
}

func postForm(t *testing.T, h http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	return rr
}

func drag(t *testing.T, h http.Handler, source string, target map[string]any) {
	t.Helper()
	postJSON(t, h, "/drag/start", map[string]any{"source": source})
	postJSON(t, h, "/drag/end", target)
}

func stored(t *testing.T, st store.Store, bucket string) []model.ItemInstance {
	t.Helper()
	a, err := st.LoadAssignment(context.Background())
	require.NoError(t, err)
	for _, b := range a.Buckets {
		if b.Name == bucket {
			return b.Instances
		}
	}
	t.Fatalf("bucket %q not stored", bucket)
	return nil
}

func TestHomeRendersPoolAndBuckets(t *testing.T) {
	_, h, _ := newTestServer(t)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	require.Contains(t, body, `id="pool"`)
	require.Contains(t, body, `id="board"`)
	require.Contains(t, body, `data-drag-source="pool:pool-1"`)
	require.Contains(t, body, `data-drop-bucket="key1"`)
	require.Contains(t, body, `data-drop-bucket="key2"`)
}

func TestDropPlainTemplatePersists(t *testing.T) {
	_, h, st := newTestServer(t)

	drag(t, h, "pool:pool-1", map[string]any{"bucket": "key1"})

	items := stored(t, st, "key1")
	require.Len(t, items, 1)
	require.Equal(t, "pool-1", items[0].TemplateID)
	require.Equal(t, "inst-1", items[0].InstanceID)

	evs, err := st.ReadEventsTail(0)
	require.NoError(t, err)
	require.NotEmpty(t, evs)
	require.Equal(t, "instance.place", evs[len(evs)-1].Type)
	require.Equal(t, "inst-1", evs[len(evs)-1].EntityID)
}

func TestParameterizedDropSavesFromForm(t *testing.T) {
	srv, h, st := newTestServer(t)

	drag(t, h, "pool:pool-2", map[string]any{"bucket": "key2"})
	require.Equal(t, editor.PhaseAwaitingParameters, srv.sess.State().Phase)
	require.Empty(t, stored(t, st, "key2"))

	board, err := srv.renderBoard("")
	require.NoError(t, err)
	require.Contains(t, board, `name="f.start"`)

	postForm(t, h, "/params/save", url.Values{"f.start": {"10"}, "f.end": {"20"}})

	items := stored(t, st, "key2")
	require.Len(t, items, 1)
	require.Equal(t, map[string]string{"start": "10", "end": "20"}, items[0].Values)
	require.Equal(t, editor.PhaseIdle, srv.sess.State().Phase)
}

func TestIncompleteSaveKeepsModalOpen(t *testing.T) {
	srv, h, st := newTestServer(t)

	drag(t, h, "pool:pool-2", map[string]any{"bucket": "key1"})
	postForm(t, h, "/params/save", url.Values{"f.start": {"10"}})

	require.Equal(t, editor.PhaseAwaitingParameters, srv.sess.State().Phase)
	require.Empty(t, stored(t, st, "key1"))
	board, err := srv.renderBoard("")
	require.NoError(t, err)
	require.Contains(t, board, `class="missing"`)

	postJSON(t, h, "/params/cancel", map[string]any{})
	require.Equal(t, editor.PhaseIdle, srv.sess.State().Phase)
	require.Empty(t, srv.sess.Buckets().Get("key1"))
}

func TestCollapsedBucketRejectsDrop(t *testing.T) {
	srv, h, st := newTestServer(t)

	postJSON(t, h, "/buckets/key1/collapse", map[string]any{"collapsed": true})
	require.True(t, srv.sess.State().IsCollapsed("key1"))

	drag(t, h, "pool:pool-1", map[string]any{"bucket": "key1"})
	require.Empty(t, srv.sess.Buckets().Get("key1"))
	require.Equal(t, editor.PhaseIdle, srv.sess.State().Phase)

	ui, err := st.LoadTUIState()
	require.NoError(t, err)
	require.Equal(t, []string{"key1"}, ui.Collapsed)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/buckets/nope/collapse", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestMoveAcrossBucketsAndRemove(t *testing.T) {
	srv, h, st := newTestServer(t)

	drag(t, h, "pool:pool-1", map[string]any{"bucket": "key1"})
	drag(t, h, "instance:inst-1", map[string]any{"bucket": "key2"})
	require.Empty(t, stored(t, st, "key1"))
	require.Len(t, stored(t, st, "key2"), 1)

	postJSON(t, h, "/instances/inst-1/remove", map[string]any{})
	require.Zero(t, srv.sess.Snapshot().Total())
	require.Empty(t, stored(t, st, "key2"))

	// Unknown ids are a no-op.
	postJSON(t, h, "/instances/ghost/remove", map[string]any{})
}

func TestPreviewKeepsBucketOrder(t *testing.T) {
	_, h, _ := newTestServer(t)

	drag(t, h, "pool:pool-1", map[string]any{"bucket": "key2"})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/preview", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	require.Less(t, strings.Index(body, `"key1"`), strings.Index(body, `"key2"`))
	require.Contains(t, body, `"Credit Check"`)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/preview/html", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "<h1>Submission preview</h1>")
}

func TestSubmitRecordsSubmission(t *testing.T) {
	_, h, st := newTestServer(t)

	drag(t, h, "pool:pool-1", map[string]any{"bucket": "key1"})
	postJSON(t, h, "/submit", map[string]any{})

	subs, err := st.ListSubmissions(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, subs, 1)

	evs, err := st.ReadEventsTail(1)
	require.NoError(t, err)
	require.Equal(t, "assignment.submit", evs[0].Type)
}

type fixedSubmitter struct{ id string }

func (f fixedSubmitter) SubmitAssignment(ctx context.Context, doc model.Document) (model.SubmitResult, error) {
	return model.SubmitResult{ID: f.id, Target: "https://rules.example/submit", Status: http.StatusAccepted}, nil
}

func TestRemoteSubmitReportsFailedLocalRecordSeparately(t *testing.T) {
	dir := t.TempDir()
	st := store.Store{Dir: dir}
	require.NoError(t, st.SaveAssignment(context.Background(), seedAssignment()))
	srv, err := NewServer(context.Background(), ServerConfig{
		Dir: dir, Workspace: "test", IDs: editor.NewCounterIDs("inst"),
		Submitter: fixedSubmitter{id: "remote-1"},
	})
	require.NoError(t, err)
	t.Cleanup(srv.Close)
	h := srv.Handler()

	drag(t, h, "pool:pool-1", map[string]any{"bucket": "key1"})
	postJSON(t, h, "/submit", map[string]any{})
	require.False(t, srv.flashErr, srv.flash)

	// The backend hands back the same id again, so the local insert collides.
	rr := postJSON(t, h, "/submit", map[string]any{})
	require.Contains(t, rr.Body.String(), "remote-1")
	require.True(t, srv.flashErr)
	require.Contains(t, srv.flash, "submitted remote-1 to https://rules.example/submit")
	require.Contains(t, srv.flash, "local record failed")
	require.NotContains(t, srv.flash, "submit failed")

	subs, err := st.ListSubmissions(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, subs, 1)

	evs, err := st.ReadEventsTail(1)
	require.NoError(t, err)
	require.Equal(t, "assignment.submit", evs[0].Type)
	require.Equal(t, "remote-1", evs[0].EntityID)
}

func TestEventsStreamsInitialBoard(t *testing.T) {
	_, h, _ := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	body := rr.Body.String()
	require.Contains(t, body, "datastar-patch-elements")
	require.Contains(t, body, "#board")
}

func TestBadDragSourceIsRejected(t *testing.T) {
	_, h, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/drag/start", strings.NewReader(`{"source":"bogus"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}
