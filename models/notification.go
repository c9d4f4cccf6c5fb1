package models

// Notification is the user-facing outcome of a store operation
type Notification struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	// Destructive marks failures
	Destructive bool `json:"destructive"`
	// Operation is the store operation that produced it, e.g. "add" or "reset"
	Operation string `json:"operation"`
}
