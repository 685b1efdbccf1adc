package models

import "time"

// User is an account that can sign in, create tasks and be assigned to them.
type User struct {
	ID           int64     `json:"id"`
	FirstName    string    `json:"firstname"`
	LastName     string    `json:"lastname"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Lifecycle    Lifecycle `json:"lifecycle"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// FullName joins the first and last name for display.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// IsActive reports whether the account is in the active lifecycle state.
func (u *User) IsActive() bool {
	return u.Lifecycle == LifecycleActive
}

// TaskStatus is a named column a task can sit in. Built-in statuses are
// seeded by the migrations and can never be edited or deleted.
type TaskStatus struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	IsBuiltIn bool      `json:"is_built_in"`
	Lifecycle Lifecycle `json:"lifecycle"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DefaultStatusName is the built-in status assigned to new tasks when the
// form does not pick one.
const DefaultStatusName = "New"

// BuiltInStatusNames enumerates the statuses seeded at initialization.
var BuiltInStatusNames = []string{"New", "In Progress", "Testing", "Done"}

// Task is a unit of work created by one user and optionally assigned to
// another.
type Task struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	StatusID     int64     `json:"status_id"`
	CreatorID    int64     `json:"creator_id"`
	AssignedToID *int64    `json:"assigned_to_id"`
	Lifecycle    Lifecycle `json:"lifecycle"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Loaded relations. Status and Creator are always populated by the
	// store when a task is fetched; AssignedTo only when set.
	Status     *TaskStatus `json:"status,omitempty"`
	Creator    *User       `json:"creator,omitempty"`
	AssignedTo *User       `json:"assigned_to,omitempty"`
	Tags       []Tag       `json:"tags,omitempty"`
}

// IsAssignedTo reports whether the task has the given user as performer.
func (t *Task) IsAssignedTo(userID int64) bool {
	return t.AssignedToID != nil && *t.AssignedToID == userID
}

// Tag is a label attached to tasks. Tags are created implicitly when first
// referenced and are never deleted; orphans are tolerated.
type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Session is a persisted HTTP session row. The payload is opaque JSON owned
// by the session store.
type Session struct {
	ID             string
	Data           string
	ExpirationDate time.Time
}
