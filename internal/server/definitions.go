package server

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/kokukuma/pex-verifier/document"
)

var ErrDefinitionNotFound = errors.New("presentation definition not found")

// Definitions keeps the presentation definitions registered by verifiers.
type Definitions struct {
	mu          sync.RWMutex
	definitions map[string]*document.PresentationDefinition
}

func NewDefinitions() *Definitions {
	return &Definitions{
		definitions: make(map[string]*document.PresentationDefinition),
	}
}

// AssignID gives pd a new id when it has none.
func AssignID(pd *document.PresentationDefinition) {
	if pd.ID == "" {
		pd.ID = uuid.New().String()
	}
}

// Save stores pd under its id. A definition with the same id is replaced.
func (d *Definitions) Save(pd *document.PresentationDefinition) string {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.definitions[pd.ID] = pd

	return pd.ID
}

func (d *Definitions) Get(id string) (*document.PresentationDefinition, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	pd, ok := d.definitions[id]
	if !ok {
		return nil, ErrDefinitionNotFound
	}
	return pd, nil
}

func (d *Definitions) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return len(d.definitions)
}
