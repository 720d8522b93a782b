package validators

import (
	"net/http"
	"testing"

	"sitemap-sync/domain/core/entities"
	"sitemap-sync/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// home -> about -> team, home -> contact
func sampleGraph() entities.Graph {
	node := func(id, slug string) entities.GraphNode {
		return entities.GraphNode{ID: id, Type: entities.NodeTypeFolder, Data: entities.NodeData{Label: id, Slug: slug}}
	}
	return entities.Graph{
		Nodes: []entities.GraphNode{
			node("home", "home"),
			node("about", "about"),
			node("team", "team"),
			node("contact", "contact"),
		},
		Edges: []entities.GraphEdge{
			entities.NewEdge("home", "about"),
			entities.NewEdge("about", "team"),
			entities.NewEdge("home", "contact"),
		},
	}
}

func TestCheckMove(t *testing.T) {
	v := NewForestValidator(0)
	g := sampleGraph()

	tests := []struct {
		name      string
		nodeID    string
		newParent string
		code      string
	}{
		{"valid move", "team", "contact", ""},
		{"move to root", "about", "", ""},
		{"unknown node", "ghost", "home", errors.CodeNodeNotFound},
		{"unknown parent", "team", "ghost", errors.CodeNodeNotFound},
		{"under itself", "about", "about", errors.CodeCircularReference},
		{"under descendant", "home", "team", errors.CodeCircularReference},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.CheckMove(g, tt.nodeID, tt.newParent)
			if tt.code == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.IsCode(err, tt.code), "got %v", err)
		})
	}
}

func TestCheckSiblingSlug(t *testing.T) {
	v := NewForestValidator(0)
	g := sampleGraph()

	err := v.CheckSiblingSlug(g, "home", "contact", "")
	assert.True(t, errors.IsCode(err, errors.CodeDuplicateSlug))

	// Same slug under another parent is fine.
	assert.NoError(t, v.CheckSiblingSlug(g, "about", "contact", ""))
	// Renaming a node to its own slug is fine.
	assert.NoError(t, v.CheckSiblingSlug(g, "home", "contact", "contact"))
	// Root level.
	assert.True(t, errors.IsCode(v.CheckSiblingSlug(g, "", "home", ""), errors.CodeDuplicateSlug))
}

func TestCheckDelete(t *testing.T) {
	v := NewForestValidator(0)
	g := sampleGraph()

	assert.NoError(t, v.CheckDelete(g, []string{"about"}, true))
	assert.NoError(t, v.CheckDelete(g, []string{"about", "team"}, false))
	assert.True(t, errors.IsCode(v.CheckDelete(g, []string{"about"}, false), errors.CodeOrphanedNode))
	assert.True(t, errors.IsCode(v.CheckDelete(g, []string{"nope"}, true), errors.CodeNodeNotFound))
}

func TestValidateForest(t *testing.T) {
	v := NewForestValidator(0)

	require.NoError(t, v.ValidateForest(sampleGraph()))

	t.Run("two parents", func(t *testing.T) {
		g := sampleGraph()
		g.Edges = append(g.Edges, entities.NewEdge("contact", "team"))
		assert.True(t, errors.IsCode(v.ValidateForest(g), errors.CodeOrphanedNode))
	})

	t.Run("cycle", func(t *testing.T) {
		g := sampleGraph()
		g.Edges = append(g.Edges, entities.NewEdge("team", "home"))
		assert.True(t, errors.IsCode(v.ValidateForest(g), errors.CodeCircularReference))
	})

	t.Run("dangling edge", func(t *testing.T) {
		g := sampleGraph()
		g.Edges = append(g.Edges, entities.NewEdge("home", "ghost"))
		assert.True(t, errors.IsCode(v.ValidateForest(g), errors.CodeNodeNotFound))
	})

	t.Run("duplicate id", func(t *testing.T) {
		g := sampleGraph()
		g.Nodes = append(g.Nodes, g.Nodes[0])
		err := v.ValidateForest(g)
		require.True(t, errors.IsCode(err, errors.CodeDuplicateNodeID))
		de, _ := errors.AsDomainError(err)
		assert.Equal(t, errors.DomainValidationError, de.Type)
		assert.Equal(t, http.StatusBadRequest, de.StatusCode)
		assert.False(t, de.Retryable)
	})
}
