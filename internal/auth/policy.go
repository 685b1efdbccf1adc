package auth

import "taskmanager/internal/models"

// Route identifies a permission-checked route class. The routing layer
// supplies the identity and the HTTP method; the policy table knows nothing
// about HTTP beyond the method string.
type Route string

const (
	RouteUserProfile      Route = "users/profile"
	RouteUserRestoreQuery Route = "users/restore-query"
	RouteUserRestore      Route = "users/restore"
	RouteStatusCollection Route = "task-statuses"
	RouteStatus           Route = "task-statuses/one"
	RouteTasksMy          Route = "tasks/my"
	RouteTaskNew          Route = "tasks/new"
	RouteTaskCollection   Route = "tasks"
	RouteTask             Route = "tasks/one"
)

// Resource carries the entity a route addresses, if any. Only the slot
// matching the route class is set.
type Resource struct {
	User   *models.User
	Status *models.TaskStatus
	Task   *models.Task
}

type predicate func(actor Actor, res Resource) bool

func isCurrent(actor Actor, _ Resource) bool {
	return actor.Current != nil
}

func sameIdentity(a, b *models.User) bool {
	return a != nil && b != nil && a.ID == b.ID
}

func isOwnProfile(actor Actor, res Resource) bool {
	return sameIdentity(actor.Current, res.User)
}

func isOwnRestorableProfile(actor Actor, res Resource) bool {
	return sameIdentity(actor.Restorable, res.User)
}

func isNotBuiltIn(actor Actor, res Resource) bool {
	return isCurrent(actor, res) && res.Status != nil && !res.Status.IsBuiltIn
}

func isCreator(actor Actor, res Resource) bool {
	return actor.Current != nil && res.Task != nil && res.Task.CreatorID == actor.Current.ID
}

func isCreatorOrAssignee(actor Actor, res Resource) bool {
	if actor.Current == nil || res.Task == nil {
		return false
	}
	return res.Task.CreatorID == actor.Current.ID || res.Task.IsAssignedTo(actor.Current.ID)
}

// Task deletion is creator-only; the performer may only move the task
// between statuses.
var permissions = map[Route]map[string]predicate{
	RouteUserProfile: {
		"PATCH":  isOwnProfile,
		"DELETE": isOwnProfile,
	},
	RouteUserRestoreQuery: {
		"GET": isOwnRestorableProfile,
	},
	RouteUserRestore: {
		"PATCH": isOwnRestorableProfile,
	},
	RouteStatusCollection: {
		"POST": isCurrent,
	},
	RouteStatus: {
		"PATCH":  isNotBuiltIn,
		"DELETE": isNotBuiltIn,
	},
	RouteTasksMy: {
		"GET": isCurrent,
	},
	RouteTaskNew: {
		"GET": isCurrent,
	},
	RouteTaskCollection: {
		"POST": isCurrent,
	},
	RouteTask: {
		"GET":    isCreatorOrAssignee,
		"PATCH":  isCreatorOrAssignee,
		"DELETE": isCreator,
	},
}

// Allowed evaluates the permission table for a route class and method.
// Unknown combinations are denied.
func Allowed(route Route, method string, actor Actor, res Resource) bool {
	methods, ok := permissions[route]
	if !ok {
		return false
	}
	check, ok := methods[method]
	if !ok {
		return false
	}
	return check(actor, res)
}
