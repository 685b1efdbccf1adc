package server_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskmanager/internal/auth"
	"taskmanager/internal/models"
	"taskmanager/internal/report"
	"taskmanager/internal/secure"
	"taskmanager/internal/server"
	"taskmanager/internal/session"
	"taskmanager/internal/storage/sqlite"
	"taskmanager/internal/view"
)

type app struct {
	t     *testing.T
	store *sqlite.Store
	ts    *httptest.Server
}

func newApp(t *testing.T) *app {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := sqlite.Open(":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	views, err := view.NewRenderer()
	require.NoError(t, err)

	hasher := secure.NewHasher("test-secret")
	srv := server.New(
		store,
		session.NewStore(store),
		auth.NewService(store, hasher),
		views,
		report.NewSlogReporter(logger),
		logger,
		server.Config{},
	)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &app{t: t, store: store, ts: ts}
}

// browser is an HTTP client with its own cookie jar, standing in for one
// user's session. Redirects are not followed so tests can assert on them.
type browser struct {
	t      *testing.T
	client *http.Client
	base   string
}

func (a *app) browser() *browser {
	jar, err := cookiejar.New(nil)
	require.NoError(a.t, err)
	return &browser{
		t: a.t,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		base: a.ts.URL,
	}
}

func (b *browser) get(path string) *http.Response {
	b.t.Helper()
	resp, err := b.client.Get(b.base + path)
	require.NoError(b.t, err)
	drain(resp)
	return resp
}

func (b *browser) postForm(path string, values url.Values) *http.Response {
	b.t.Helper()
	resp, err := b.client.PostForm(b.base+path, values)
	require.NoError(b.t, err)
	drain(resp)
	return resp
}

// submit posts a form carrying a _method override, the way the HTML pages
// express PATCH and DELETE.
func (b *browser) submit(method, path string, values url.Values) *http.Response {
	b.t.Helper()
	if values == nil {
		values = url.Values{}
	}
	values.Set("_method", method)
	return b.postForm(path, values)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

func (b *browser) register(email, password string) *http.Response {
	b.t.Helper()
	return b.postForm("/users", url.Values{
		"firstname": {"Jane"},
		"lastname":  {"Doe"},
		"email":     {email},
		"password":  {password},
	})
}

func (b *browser) signIn(email, password string) *http.Response {
	b.t.Helper()
	return b.postForm("/session", url.Values{
		"email":    {email},
		"password": {password},
	})
}

func (a *app) userByEmail(email string) models.User {
	a.t.Helper()
	user, err := a.store.UserByEmail(context.Background(), email)
	require.NoError(a.t, err)
	return user
}

func (a *app) defaultStatus() models.TaskStatus {
	a.t.Helper()
	status, err := a.store.DefaultStatus(context.Background())
	require.NoError(a.t, err)
	return status
}

func TestRegistrationSignsIn(t *testing.T) {
	a := newApp(t)
	b := a.browser()

	resp := b.register("jane@example.com", "password1")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	// The fresh session is already signed in.
	resp = b.get("/tasks/my")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRegistrationValidation(t *testing.T) {
	a := newApp(t)
	b := a.browser()

	resp := b.postForm("/users", url.Values{
		"email":    {"not-an-email"},
		"password": {"short"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	b.register("jane@example.com", "password1")
	other := a.browser()
	resp = other.register("jane@example.com", "password1")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestSignInOutcomes(t *testing.T) {
	a := newApp(t)
	b := a.browser()
	b.register("jane@example.com", "password1")

	fresh := a.browser()
	resp := fresh.signIn("jane@example.com", "wrong-password")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	// No session was established by the failed attempt.
	resp = fresh.get("/tasks/my")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = fresh.signIn("jane@example.com", "password1")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
	resp = fresh.get("/tasks/my")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSignOut(t *testing.T) {
	a := newApp(t)
	b := a.browser()
	b.register("jane@example.com", "password1")

	resp := b.submit(http.MethodDelete, "/session", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp = b.get("/tasks/my")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestDeletedUserIsOnlyRestorable(t *testing.T) {
	a := newApp(t)
	b := a.browser()
	b.register("jane@example.com", "password1")
	jane := a.userByEmail("jane@example.com")

	resp := b.submit(http.MethodDelete, fmt.Sprintf("/users/%d", jane.ID), nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	// Sign-in with valid credentials now routes to the restore flow.
	resp = b.signIn("jane@example.com", "password1")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, fmt.Sprintf("/users/deleted/%d/restore", jane.ID), resp.Header.Get("Location"))

	// A restorable identity never acts as the current user.
	resp = b.get("/tasks/my")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// The confirmation page greets the restorable identity.
	body := a.pageBody(b, fmt.Sprintf("/users/deleted/%d/restore", jane.ID))
	assert.Contains(t, body, jane.FullName())

	// Another deleted account's owner may not restore this one.
	other := a.browser()
	other.register("john@example.com", "password1")
	john := a.userByEmail("john@example.com")
	other.submit(http.MethodDelete, fmt.Sprintf("/users/%d", john.ID), nil)
	other.signIn("john@example.com", "password1")
	resp = other.get(fmt.Sprintf("/users/deleted/%d/restore", jane.ID))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = b.submit(http.MethodPatch, fmt.Sprintf("/users/deleted/%d", jane.ID), nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	restored := a.userByEmail("jane@example.com")
	assert.Equal(t, models.LifecycleActive, restored.Lifecycle)

	resp = b.signIn("jane@example.com", "password1")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
}

func TestUserProfilePermissions(t *testing.T) {
	a := newApp(t)
	b := a.browser()
	b.register("jane@example.com", "password1")
	jane := a.userByEmail("jane@example.com")

	other := a.browser()
	other.register("john@example.com", "password1")

	// Anyone may view a profile; only the owner may change it.
	resp := other.get(fmt.Sprintf("/users/%d", jane.ID))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = other.submit(http.MethodPatch, fmt.Sprintf("/users/%d", jane.ID), url.Values{
		"firstname": {"Hijacked"},
		"email":     {"jane@example.com"},
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = other.submit(http.MethodDelete, fmt.Sprintf("/users/%d", jane.ID), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = b.submit(http.MethodPatch, fmt.Sprintf("/users/%d", jane.ID), url.Values{
		"firstname": {"Janet"},
		"lastname":  {"Doe"},
		"email":     {"jane@example.com"},
	})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "Janet", a.userByEmail("jane@example.com").FirstName)
}

func TestUserNotFound(t *testing.T) {
	a := newApp(t)
	b := a.browser()

	resp := b.get("/users/9999")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = b.get("/users/not-a-number")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// A deleted user resolves only in the deleted scope.
	b.register("jane@example.com", "password1")
	jane := a.userByEmail("jane@example.com")
	resp = b.get(fmt.Sprintf("/users/deleted/%d/restore", jane.ID))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBuiltInStatusImmutable(t *testing.T) {
	a := newApp(t)
	b := a.browser()
	b.register("jane@example.com", "password1")

	builtIn, err := a.store.StatusByName(context.Background(), "New", models.ScopeActive)
	require.NoError(t, err)

	resp := b.submit(http.MethodPatch, fmt.Sprintf("/task-statuses/%d", builtIn.ID), url.Values{
		"name": {"Renamed"},
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = b.submit(http.MethodDelete, fmt.Sprintf("/task-statuses/%d", builtIn.ID), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	unchanged, err := a.store.StatusByID(context.Background(), builtIn.ID, models.ScopeActive)
	require.NoError(t, err)
	assert.Equal(t, "New", unchanged.Name)
}

func TestStatusLifecycleOverHTTP(t *testing.T) {
	a := newApp(t)
	b := a.browser()
	b.register("jane@example.com", "password1")

	// Anonymous status creation is forbidden.
	anon := a.browser()
	resp := anon.postForm("/task-statuses", url.Values{"name": {"Review"}})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = b.postForm("/task-statuses", url.Values{"name": {"Review"}})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	review, err := a.store.StatusByName(context.Background(), "Review", models.ScopeActive)
	require.NoError(t, err)

	resp = b.postForm("/task-statuses", url.Values{"name": {""}})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = b.submit(http.MethodDelete, fmt.Sprintf("/task-statuses/%d", review.ID), nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	// Re-posting the same name reactivates the soft-deleted row instead of
	// inserting a duplicate.
	resp = b.postForm("/task-statuses", url.Values{"name": {"Review"}})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	restored, err := a.store.StatusByName(context.Background(), "Review", models.ScopeActive)
	require.NoError(t, err)
	assert.Equal(t, review.ID, restored.ID)

	all, err := a.store.ListStatuses(context.Background(), models.ScopeAny)
	require.NoError(t, err)
	assert.Len(t, all, len(models.BuiltInStatusNames)+1)
}

func TestStatusDependencyConflict(t *testing.T) {
	a := newApp(t)
	b := a.browser()
	b.register("jane@example.com", "password1")

	b.postForm("/task-statuses", url.Values{"name": {"Review"}})
	review, err := a.store.StatusByName(context.Background(), "Review", models.ScopeActive)
	require.NoError(t, err)

	resp := b.postForm("/tasks", url.Values{
		"name":     {"Blocking task"},
		"statusId": {fmt.Sprintf("%d", review.ID)},
	})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp = b.submit(http.MethodDelete, fmt.Sprintf("/task-statuses/%d", review.ID), nil)
	assert.Equal(t, http.StatusFailedDependency, resp.StatusCode)

	still, err := a.store.StatusByID(context.Background(), review.ID, models.ScopeActive)
	require.NoError(t, err)
	assert.Equal(t, models.LifecycleActive, still.Lifecycle)
}

func TestTaskPermissionMatrix(t *testing.T) {
	a := newApp(t)

	creator := a.browser()
	creator.register("creator@example.com", "password1")
	performer := a.browser()
	performer.register("performer@example.com", "password1")
	other := a.browser()
	other.register("other@example.com", "password1")

	performerUser := a.userByEmail("performer@example.com")

	resp := creator.postForm("/tasks", url.Values{
		"name":         {"Shared task"},
		"description":  {"important"},
		"assignedToId": {fmt.Sprintf("%d", performerUser.ID)},
	})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	tasks, err := a.store.ListTasks(context.Background(), models.ScopeActive, sqlite.TaskFilter{})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	task := tasks[0]
	taskPath := fmt.Sprintf("/tasks/%d", task.ID)

	// Default status applied when the form sent none.
	assert.Equal(t, a.defaultStatus().ID, task.StatusID)

	// Creator and performer may view; everyone else may not.
	assert.Equal(t, http.StatusOK, creator.get(taskPath).StatusCode)
	assert.Equal(t, http.StatusOK, performer.get(taskPath).StatusCode)
	assert.Equal(t, http.StatusForbidden, other.get(taskPath).StatusCode)
	assert.Equal(t, http.StatusForbidden, a.browser().get(taskPath).StatusCode)

	assert.Equal(t, http.StatusOK, creator.get(taskPath+"/edit").StatusCode)
	assert.Equal(t, http.StatusForbidden, other.get(taskPath+"/edit").StatusCode)

	// Only the creator may delete.
	assert.Equal(t, http.StatusForbidden, performer.submit(http.MethodDelete, taskPath, nil).StatusCode)
	assert.Equal(t, http.StatusForbidden, other.submit(http.MethodDelete, taskPath, nil).StatusCode)
	assert.Equal(t, http.StatusForbidden, a.browser().submit(http.MethodDelete, taskPath, nil).StatusCode)

	alive, err := a.store.TaskByID(context.Background(), task.ID, models.ScopeActive)
	require.NoError(t, err)
	assert.Equal(t, models.LifecycleActive, alive.Lifecycle)

	resp = creator.submit(http.MethodDelete, taskPath, nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	_, err = a.store.TaskByID(context.Background(), task.ID, models.ScopeActive)
	assert.Error(t, err)
}

func TestPerformerUpdateNarrowedToStatus(t *testing.T) {
	a := newApp(t)

	creator := a.browser()
	creator.register("creator@example.com", "password1")
	performer := a.browser()
	performer.register("performer@example.com", "password1")

	performerUser := a.userByEmail("performer@example.com")

	creator.postForm("/task-statuses", url.Values{"name": {"Review"}})
	review, err := a.store.StatusByName(context.Background(), "Review", models.ScopeActive)
	require.NoError(t, err)

	creator.postForm("/tasks", url.Values{
		"name":         {"Original name"},
		"description":  {"original description"},
		"assignedToId": {fmt.Sprintf("%d", performerUser.ID)},
		"tags":         {"keep-me"},
	})
	tasks, err := a.store.ListTasks(context.Background(), models.ScopeActive, sqlite.TaskFilter{})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	taskID := tasks[0].ID

	// The performer's extra fields are dropped silently; the status change
	// goes through.
	resp := performer.submit(http.MethodPatch, fmt.Sprintf("/tasks/%d", taskID), url.Values{
		"name":        {"Hijacked name"},
		"description": {"hijacked"},
		"statusId":    {fmt.Sprintf("%d", review.ID)},
	})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	task, err := a.store.TaskByID(context.Background(), taskID, models.ScopeActive)
	require.NoError(t, err)
	assert.Equal(t, "Original name", task.Name)
	assert.Equal(t, "original description", task.Description)
	assert.Equal(t, review.ID, task.StatusID)
	require.Len(t, task.Tags, 1)
	assert.Equal(t, "keep-me", task.Tags[0].Name)
}

func TestTaskTagScenario(t *testing.T) {
	a := newApp(t)
	b := a.browser()
	b.register("jane@example.com", "password1")

	resp := b.postForm("/tasks", url.Values{
		"name": {"Tagged task"},
		"tags": {"foo, bar"},
	})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	tasks, err := a.store.ListTasks(context.Background(), models.ScopeActive, sqlite.TaskFilter{})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	task := tasks[0]

	require.Len(t, task.Tags, 2)
	assert.Equal(t, "bar", task.Tags[0].Name)
	assert.Equal(t, "foo", task.Tags[1].Name)

	resp = b.submit(http.MethodPatch, fmt.Sprintf("/tasks/%d", task.ID), url.Values{
		"name":     {"Tagged task"},
		"statusId": {fmt.Sprintf("%d", task.StatusID)},
		"tags":     {"bar"},
	})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	updated, err := a.store.TaskByID(context.Background(), task.ID, models.ScopeActive)
	require.NoError(t, err)
	require.Len(t, updated.Tags, 1)
	assert.Equal(t, "bar", updated.Tags[0].Name)

	// The orphaned tag row stays in the table.
	tags, err := a.store.ListTags(context.Background())
	require.NoError(t, err)
	assert.Len(t, tags, 2)
}

func TestTaskValidationOverHTTP(t *testing.T) {
	a := newApp(t)
	b := a.browser()
	b.register("jane@example.com", "password1")

	resp := b.postForm("/tasks", url.Values{"name": {""}})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = b.postForm("/tasks", url.Values{"name": {"Bad status"}, "statusId": {"9999"}})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	// Anonymous creation is a permission failure, not validation.
	resp = a.browser().postForm("/tasks", url.Values{"name": {"Nope"}})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestTasksIndexFilters(t *testing.T) {
	a := newApp(t)
	b := a.browser()
	b.register("jane@example.com", "password1")

	b.postForm("/tasks", url.Values{"name": {"First"}, "tags": {"urgent"}})
	b.postForm("/tasks", url.Values{"name": {"Second"}})

	// Consume the creation flash so the page bodies below carry only the
	// task list.
	b.get("/")

	body := a.pageBody(b, "/tasks?tag=urgent")
	assert.Contains(t, body, "First")
	assert.NotContains(t, body, "Second")

	body = a.pageBody(b, "/tasks?tag=missing")
	assert.NotContains(t, body, "First")
	assert.NotContains(t, body, "Second")

	// Filters remain anonymous-friendly; only mutations need a session.
	body = a.pageBody(a.browser(), "/tasks")
	assert.Contains(t, body, "First")
	assert.Contains(t, body, "Second")
}

func (a *app) pageBody(b *browser, path string) string {
	a.t.Helper()
	resp, err := b.client.Get(b.base + path)
	require.NoError(a.t, err)
	defer resp.Body.Close()
	require.Equal(a.t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(a.t, err)
	return string(body)
}

func TestFlashMessageShownOnce(t *testing.T) {
	a := newApp(t)
	b := a.browser()
	b.register("jane@example.com", "password1")

	body := a.pageBody(b, "/")
	assert.True(t, strings.Contains(body, "registered and signed in"), body)

	body = a.pageBody(b, "/")
	assert.False(t, strings.Contains(body, "registered and signed in"))
}
