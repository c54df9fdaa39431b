// Package crate builds the RO-Crate metadata graph for an archived drive:
// typed, cross-referenced entities describing the projects, people and
// services behind the data, serialized as a canonical JSON document.
package crate

import (
	"sort"
	"strings"
)

// Profile identifies the Project Archive crate profile this graph conforms to.
const Profile = "https://uoa-eresearch.github.io/Project-Archive-RoCrate-Profile/"

// MetadataFilename is the fixed name of the serialized metadata document.
const MetadataFilename = "ro-crate-metadata.json"

const context = "https://w3id.org/ro/crate/1.1/context"
const specification = "https://w3id.org/ro/crate/1.1"

// Ref is a JSON-LD reference to another entity in the graph.
type Ref struct {
	ID string `json:"@id"`
}

// Entity is one node in the metadata graph. Properties hold the camelCase
// attributes serialized alongside @id and @type.
type Entity struct {
	ID         string
	Type       string
	Properties map[string]any
}

// Ref returns a reference to this entity.
func (e *Entity) Ref() Ref {
	return Ref{ID: e.ID}
}

// CanonicalID turns a natural key into a graph @id: URLs pass through,
// anything else gets the local "#" prefix.
func CanonicalID(key string) string {
	if strings.HasPrefix(key, "http://") || strings.HasPrefix(key, "https://") {
		return key
	}
	return "#" + key
}

// Crate is the in-memory metadata graph. Nodes are keyed by @id and the crate
// enforces at most one node per key: Add returns the existing node unchanged
// when the key is already present, so overlapping records (a person on two
// projects, a drive referenced by project and submission) never produce
// duplicates.
type Crate struct {
	entities map[string]*Entity
}

// New returns an empty crate.
func New() *Crate {
	return &Crate{entities: make(map[string]*Entity)}
}

// Dereference returns the entity with the given @id, or nil.
func (c *Crate) Dereference(id string) *Entity {
	return c.entities[id]
}

// Add inserts an entity unless one with the same @id already exists, in which
// case the existing entity is returned and the argument discarded.
func (c *Crate) Add(e *Entity) *Entity {
	if existing, ok := c.entities[e.ID]; ok {
		return existing
	}
	c.entities[e.ID] = e
	return e
}

// Len reports the number of entities in the graph, excluding the metadata
// descriptor and root dataset added at serialization time.
func (c *Crate) Len() int {
	return len(c.entities)
}

// graph assembles the serializable document: metadata descriptor, root
// dataset, then every entity, the whole array sorted by @id so repeated
// serializations are byte-identical.
func (c *Crate) graph() map[string]any {
	nodes := make([]map[string]any, 0, len(c.entities)+2)

	nodes = append(nodes, map[string]any{
		"@id":        MetadataFilename,
		"@type":      "CreativeWork",
		"about":      Ref{ID: "./"},
		"conformsTo": []Ref{{ID: specification}, {ID: Profile}},
	})

	parts := make([]Ref, 0, len(c.entities))
	ids := make([]string, 0, len(c.entities))
	for id := range c.entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		parts = append(parts, Ref{ID: id})
	}
	nodes = append(nodes, map[string]any{
		"@id":     "./",
		"@type":   "Dataset",
		"hasPart": parts,
	})

	for _, id := range ids {
		e := c.entities[id]
		node := make(map[string]any, len(e.Properties)+2)
		node["@id"] = e.ID
		node["@type"] = e.Type
		for k, v := range e.Properties {
			node[k] = v
		}
		nodes = append(nodes, node)
	}

	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i]["@id"].(string) < nodes[j]["@id"].(string)
	})

	return map[string]any{
		"@context": context,
		"@graph":   nodes,
	}
}
