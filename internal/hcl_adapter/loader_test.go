package hcl_adapter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/provisiongrid/internal/gate"
	"github.com/vk/provisiongrid/internal/node"
	"github.com/vk/provisiongrid/internal/nodeid"
	"github.com/vk/provisiongrid/internal/testutil"
)

const translationGrid = `
resource "project" "main" {
  name = "langbridge"
  labels = { team = "media", tier = 2 }
}

resource "service" "translate" {
  project = resource.project.main.project_id
  service = "translate.googleapis.com"
}

gate "propagation" {
  depends_on   = [resource.service.translate]
  min_duration = "30s"
}

resource "cloud_function" "tts" {
  project    = resource.project.main.project_id
  entrypoint = "${upper(value.settings.prefix)}-tts"
  depends_on = [gate.propagation]
}

value "settings" {
  prefix = "lb"
}

resource "api_gateway" "gateway" {
  url = resource.cloud_function.tts.url
}

output "gateway_url" {
  value = resource.api_gateway.gateway.url
}
`

func TestLoad_TranslationGrid(t *testing.T) {
	// --- Arrange ---
	ctx, _ := testutil.Context(t)
	dir := testutil.WriteGrid(t, map[string]string{"main.hcl": translationGrid})

	// --- Act ---
	model, err := NewLoader().Load(ctx, dir)

	// --- Assert ---
	require.NoError(t, err)
	require.NoError(t, model.Validate())

	var ids []string
	for _, d := range model.Declarations {
		ids = append(ids, d.ID.String())
	}
	assert.Equal(t, []string{
		"project.main",
		"service.translate",
		"gate.propagation",
		"cloud_function.tts",
		"value.settings",
		"api_gateway.gateway",
	}, ids, "source order is declaration order")

	project := model.Declarations[0]
	assert.Equal(t, node.KindOperation, project.Kind)
	assert.Equal(t, "langbridge", project.Inputs["name"].Literal)
	assert.Equal(t, map[string]any{"team": "media", "tier": int64(2)}, project.Inputs["labels"].Literal)

	svc := model.Declarations[1]
	require.NotNil(t, svc.Inputs["project"].Ref)
	assert.Equal(t, node.Reference{Node: nodeid.MustParse("project.main"), Key: "project_id"}, *svc.Inputs["project"].Ref)

	g := model.Declarations[2]
	assert.Equal(t, node.KindGate, g.Kind)
	require.NotNil(t, g.Gate)
	assert.Equal(t, 30*time.Second, g.Gate.MinDuration)
	assert.Nil(t, g.Gate.Poller)
	assert.Equal(t, []nodeid.ID{nodeid.MustParse("service.translate")}, g.DependsOn)

	fn := model.Declarations[3]
	assert.Equal(t, []nodeid.ID{nodeid.New(nodeid.TypeGate, "propagation")}, fn.DependsOn)
	entry := fn.Inputs["entrypoint"]
	require.NotNil(t, entry.Expr)
	assert.Equal(t, []node.Reference{{Node: nodeid.New(nodeid.TypeValue, "settings"), Key: "prefix"}}, entry.References())

	require.Len(t, model.Outputs, 1)
	assert.Equal(t, "gateway_url", model.Outputs[0].Name)
	assert.Equal(t, "url", model.Outputs[0].Ref.Key)
	assert.Len(t, model.Files, 1)
}

func TestExpressionEvaluate(t *testing.T) {
	ctx, _ := testutil.Context(t)
	dir := testutil.WriteGrid(t, map[string]string{"main.hcl": `
value "settings" { prefix = "lb" }
resource "cloud_function" "tts" { region = "us" }
resource "api_gateway" "gw" {
  route = "${value.settings.prefix}/${resource.cloud_function.tts.region}/${length(resource.cloud_function.tts.tags)}"
  whole = merge(value.settings, { extra = true })
}
`})
	model, err := NewLoader().Load(ctx, dir)
	require.NoError(t, err)
	gw := model.Declarations[2]

	settings := nodeid.New(nodeid.TypeValue, "settings")
	fn := nodeid.MustParse("cloud_function.tts")
	bound := map[node.Reference]any{
		{Node: settings, Key: "prefix"}: "lb",
		{Node: fn, Key: "region"}:       "us-central1",
		{Node: fn, Key: "tags"}:         []any{"a", "b"},
		{Node: settings}:                map[string]any{"prefix": "lb"},
	}

	resolved, err := node.Resolve(gw.Inputs, bound)

	require.NoError(t, err)
	assert.Equal(t, "lb/us-central1/2", resolved["route"])
	assert.Equal(t, map[string]any{"prefix": "lb", "extra": true}, resolved["whole"])
}

func TestLoad_GatePolling(t *testing.T) {
	ctx, _ := testutil.Context(t)
	dir := testutil.WriteGrid(t, map[string]string{"gates.hcl": `
gate "dns" {
  poll_url      = "https://api.example.com/healthz"
  poll_interval = 2
  max_wait      = "5m"
}
`})

	model, err := NewLoader().Load(ctx, dir)

	require.NoError(t, err)
	spec := model.Declarations[0].Gate
	assert.Equal(t, 2*time.Second, spec.PollInterval)
	assert.Equal(t, 5*time.Minute, spec.MaxWait)
	poller, ok := spec.Poller.(*gate.HTTPPoller)
	require.True(t, ok)
	assert.Equal(t, "https://api.example.com/healthz", poller.URL)
}

func TestLoad_MultipleFilesInPathOrder(t *testing.T) {
	ctx, _ := testutil.Context(t)
	dir := testutil.WriteGrid(t, map[string]string{
		"b.hcl":        `resource "bucket" "b" {}`,
		"a.hcl":        `resource "bucket" "a" {}`,
		"nested/c.hcl": `resource "bucket" "c" {}`,
	})

	model, err := NewLoader().Load(ctx, dir)

	require.NoError(t, err)
	require.Len(t, model.Declarations, 3)
	assert.Equal(t, "bucket.a", model.Declarations[0].ID.String())
	assert.Equal(t, "bucket.b", model.Declarations[1].ID.String())
	assert.Equal(t, "bucket.c", model.Declarations[2].ID.String())
}

func TestLoad_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		grid    string
		wantErr string
	}{
		{
			name:    "reserved resource type",
			grid:    `resource "gate" "x" {}`,
			wantErr: "reserved",
		},
		{
			name:    "unsupported reference root",
			grid:    `resource "bucket" "a" { name = var.bucket_name }`,
			wantErr: "unsupported reference root",
		},
		{
			name:    "depends_on with output key",
			grid:    "resource \"bucket\" \"a\" {}\nresource \"bucket\" \"b\" { depends_on = [resource.bucket.a.id] }",
			wantErr: "must name a node",
		},
		{
			name:    "bad duration",
			grid:    `gate "g" { min_duration = "soon" }`,
			wantErr: "min_duration",
		},
		{
			name:    "unknown gate attribute",
			grid:    `gate "g" { colour = "red" }`,
			wantErr: "colour",
		},
		{
			name:    "output is not a reference",
			grid:    `output "x" { value = "literal" }`,
			wantErr: "must be a reference",
		},
		{
			name:    "duplicate output",
			grid:    "resource \"bucket\" \"a\" {}\noutput \"x\" { value = resource.bucket.a.id }\noutput \"x\" { value = resource.bucket.a }",
			wantErr: "already declared",
		},
		{
			name:    "syntax error",
			grid:    `resource "bucket" {`,
			wantErr: "failed to parse",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx, _ := testutil.Context(t)
			dir := testutil.WriteGrid(t, map[string]string{"main.hcl": tc.grid})

			_, err := NewLoader().Load(ctx, dir)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}

	t.Run("no files", func(t *testing.T) {
		ctx, _ := testutil.Context(t)
		_, err := NewLoader().Load(ctx, t.TempDir())
		assert.ErrorContains(t, err, "no .hcl files")
	})
}
