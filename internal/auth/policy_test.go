package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"taskmanager/internal/models"
)

func user(id int64) *models.User {
	return &models.User{ID: id, Lifecycle: models.LifecycleActive}
}

func TestUserProfilePermissions(t *testing.T) {
	owner := user(1)
	other := user(2)
	target := Resource{User: owner}

	for _, method := range []string{"PATCH", "DELETE"} {
		assert.True(t, Allowed(RouteUserProfile, method, Actor{Current: owner}, target), method)
		assert.False(t, Allowed(RouteUserProfile, method, Actor{Current: other}, target), method)
		assert.False(t, Allowed(RouteUserProfile, method, Actor{}, target), method)
		// A restorable identity never counts as signed in.
		assert.False(t, Allowed(RouteUserProfile, method, Actor{Restorable: owner}, target), method)
	}
}

func TestRestorePermissions(t *testing.T) {
	deleted := &models.User{ID: 1, Lifecycle: models.LifecycleDeleted}
	target := Resource{User: deleted}

	assert.True(t, Allowed(RouteUserRestoreQuery, "GET", Actor{Restorable: deleted}, target))
	assert.True(t, Allowed(RouteUserRestore, "PATCH", Actor{Restorable: deleted}, target))

	assert.False(t, Allowed(RouteUserRestoreQuery, "GET", Actor{Current: deleted}, target))
	assert.False(t, Allowed(RouteUserRestore, "PATCH", Actor{Restorable: user(2)}, target))
	assert.False(t, Allowed(RouteUserRestoreQuery, "GET", Actor{}, target))
}

func TestStatusPermissions(t *testing.T) {
	custom := &models.TaskStatus{ID: 5, Name: "Review"}
	builtIn := &models.TaskStatus{ID: 1, Name: "New", IsBuiltIn: true}

	assert.True(t, Allowed(RouteStatusCollection, "POST", Actor{Current: user(1)}, Resource{}))
	assert.False(t, Allowed(RouteStatusCollection, "POST", Actor{}, Resource{}))

	for _, method := range []string{"PATCH", "DELETE"} {
		assert.True(t, Allowed(RouteStatus, method, Actor{Current: user(1)}, Resource{Status: custom}), method)
		// Built-in statuses are immutable for every actor.
		assert.False(t, Allowed(RouteStatus, method, Actor{Current: user(1)}, Resource{Status: builtIn}), method)
		assert.False(t, Allowed(RouteStatus, method, Actor{}, Resource{Status: custom}), method)
	}
}

func TestTaskCollectionPermissions(t *testing.T) {
	signedIn := Actor{Current: user(1)}

	assert.True(t, Allowed(RouteTasksMy, "GET", signedIn, Resource{}))
	assert.True(t, Allowed(RouteTaskNew, "GET", signedIn, Resource{}))
	assert.True(t, Allowed(RouteTaskCollection, "POST", signedIn, Resource{}))

	assert.False(t, Allowed(RouteTasksMy, "GET", Actor{}, Resource{}))
	assert.False(t, Allowed(RouteTaskNew, "GET", Actor{}, Resource{}))
	assert.False(t, Allowed(RouteTaskCollection, "POST", Actor{}, Resource{}))
}

func TestTaskPermissions(t *testing.T) {
	creator := user(1)
	assignee := user(2)
	other := user(3)

	assigneeID := assignee.ID
	task := &models.Task{ID: 10, CreatorID: creator.ID, AssignedToID: &assigneeID}
	target := Resource{Task: task}

	for _, method := range []string{"GET", "PATCH"} {
		assert.True(t, Allowed(RouteTask, method, Actor{Current: creator}, target), method)
		assert.True(t, Allowed(RouteTask, method, Actor{Current: assignee}, target), method)
		assert.False(t, Allowed(RouteTask, method, Actor{Current: other}, target), method)
		assert.False(t, Allowed(RouteTask, method, Actor{}, target), method)
	}

	// Deletion is creator-only.
	assert.True(t, Allowed(RouteTask, "DELETE", Actor{Current: creator}, target))
	assert.False(t, Allowed(RouteTask, "DELETE", Actor{Current: assignee}, target))
	assert.False(t, Allowed(RouteTask, "DELETE", Actor{Current: other}, target))
	assert.False(t, Allowed(RouteTask, "DELETE", Actor{}, target))

	unassigned := Resource{Task: &models.Task{ID: 11, CreatorID: creator.ID}}
	assert.True(t, Allowed(RouteTask, "GET", Actor{Current: creator}, unassigned))
	assert.False(t, Allowed(RouteTask, "GET", Actor{Current: assignee}, unassigned))
}

func TestUnknownRouteOrMethodDenied(t *testing.T) {
	assert.False(t, Allowed(Route("bogus"), "GET", Actor{Current: user(1)}, Resource{}))
	assert.False(t, Allowed(RouteTask, "PUT", Actor{Current: user(1)}, Resource{Task: &models.Task{CreatorID: 1}}))
}
