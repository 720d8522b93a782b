package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitemap-sync/domain/core/entities"
)

const beforeTree = `{
  "id": "home", "slug": "home", "title": "Home",
  "children": [
    {"id": "about", "slug": "about", "title": "About", "children": [
      {"id": "team", "slug": "team", "title": "Team"}
    ]},
    {"id": "contact", "slug": "contact", "title": "Contact"}
  ]
}`

const afterTree = `{
  "id": "home", "slug": "home", "title": "Home",
  "children": [
    {"id": "about", "slug": "about", "title": "About us"},
    {"id": "blog", "slug": "blog", "title": "Blog", "children": [
      {"id": "team", "slug": "team", "title": "Team"}
    ]}
  ]
}`

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := New(&out, &errOut).Execute(context.Background(), args)
	return out.String(), errOut.String(), err
}

func TestSlugCommand(t *testing.T) {
	out, _, err := run(t, "slug", "My", "New", "Page!!")
	require.NoError(t, err)
	assert.Equal(t, "my-new-page\n", out)

	out, _, err = run(t, "slug", "!!!")
	require.NoError(t, err)
	assert.Equal(t, "untitled\n", out)
}

func TestGraphCommand(t *testing.T) {
	path := writeTemp(t, "tree.json", `{"id":"home","slug":"home","title":"Home","children":[
		{"id":"about","slug":"about","title":"About"},
		{"id":"","slug":"broken","title":"Broken"}
	]}`)

	out, logs, err := run(t, "graph", path)
	require.NoError(t, err)

	var g entities.Graph
	require.NoError(t, json.Unmarshal([]byte(out), &g))
	assert.Len(t, g.Nodes, 2)
	require.Len(t, g.Edges, 1)
	assert.Equal(t, "e-home-about", g.Edges[0].ID)
	about, _ := g.FindNode("about")
	assert.Equal(t, "home/about", about.Data.FullPath)
	assert.Contains(t, logs, "skipped malformed node")
}

func TestTreeCommand_RoundTripsAGraph(t *testing.T) {
	path := writeTemp(t, "graph.json", `{"nodes":[
		{"id":"home","type":"folder","data":{"label":"Home","slug":"home"}},
		{"id":"about","type":"page","data":{"label":"About","slug":"about"}}
	],"edges":[{"id":"e-home-about","source":"home","target":"about"}]}`)

	out, _, err := run(t, "tree", path)
	require.NoError(t, err)

	var roots []entities.TreeNode
	require.NoError(t, json.Unmarshal([]byte(out), &roots))
	require.Len(t, roots, 1)
	assert.Equal(t, "home", roots[0].ID)
	require.Len(t, roots[0].Children, 1)
	assert.Equal(t, "about", roots[0].Children[0].ID)
}

func TestDiffCommand(t *testing.T) {
	before := writeTemp(t, "before.json", beforeTree)
	after := writeTemp(t, "after.json", afterTree)

	out, _, err := run(t, "diff", before, after)
	require.NoError(t, err)

	var ops []entities.Operation
	require.NoError(t, json.Unmarshal([]byte(out), &ops))
	types := make([]entities.OperationType, 0, len(ops))
	for _, op := range ops {
		types = append(types, op.Type)
	}
	assert.Equal(t, []entities.OperationType{
		entities.OperationDelete,
		entities.OperationMove,
		entities.OperationUpdate,
		entities.OperationCreate,
	}, types)

	out, _, err = run(t, "diff", "--defer-moves", before, after)
	require.NoError(t, err)
	ops = nil
	require.NoError(t, json.Unmarshal([]byte(out), &ops))
	require.Len(t, ops, 4)
	assert.Equal(t, entities.OperationCreate, ops[2].Type)
	assert.Equal(t, "blog", ops[2].NodeID)
	assert.Equal(t, entities.OperationMove, ops[3].Type)
	assert.Equal(t, "team", ops[3].NodeID)

	out, _, err = run(t, "diff", before, before)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, out)
}

func TestValidateCommand(t *testing.T) {
	ok := writeTemp(t, "ok.json", beforeTree)
	out, _, err := run(t, "validate", ok)
	require.NoError(t, err)
	assert.Equal(t, "ok: 4 nodes\n", out)

	bad := writeTemp(t, "bad.json", `{"id":"home","slug":"home","title":"Home","children":[
		{"id":"a","slug":"dup","title":"A"},
		{"id":"b","slug":"dup","title":"B"},
		{"id":"c","slug":"Not_Valid","title":"C"}
	]}`)
	out, _, err = run(t, "validate", bad)
	require.Error(t, err)
	assert.Contains(t, out, "DUPLICATE_SLUG")
	assert.Contains(t, out, "INVALID_SLUG")
}

func TestMissingFile(t *testing.T) {
	_, _, err := run(t, "graph", filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
