package heroes

import "github.com/xraph/heroes/id"

// ID is the primary identifier type for all Heroes entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
