package ports

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"
)

// ErrInvalidID is returned for automation ids that cannot be used as storage keys.
var ErrInvalidID = errors.New("invalid automation id")

var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,127}$`)

// StoredAutomation is one persisted automation document. The YAML carries
// the editor layout extension, so the graph can be restored from it alone.
type StoredAutomation struct {
	ID        string    `json:"id"`
	Alias     string    `json:"alias,omitempty"`
	YAML      string    `json:"yaml"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ValidateID reports whether id is safe as a file name and a redis key.
func ValidateID(id string) error {
	if !idPattern.MatchString(id) || id == "." || id == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// AutomationStore persists automation documents.
type AutomationStore interface {
	// Save creates or replaces the automation with a.ID.
	Save(ctx context.Context, a *StoredAutomation) error

	// Load retrieves an automation.
	// Returns domain.ErrNotFound if it does not exist.
	Load(ctx context.Context, id string) (*StoredAutomation, error)

	// Delete removes an automation. Deleting a missing id is not an error.
	Delete(ctx context.Context, id string) error

	// List returns the ids of every stored automation, sorted.
	List(ctx context.Context) ([]string, error)
}
