package epilot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogResolvesKnownServices(t *testing.T) {
	c := DefaultCatalog()

	u, err := c.URL(ServiceEntity, "v1", "entity", "contact")
	require.NoError(t, err)
	assert.Equal(t, "https://entity.sls.epilot.io/v1/entity/contact", u)

	u, err = c.URL(ServiceBlueprint, "/v2/blueprint-manifest/", "blueprints")
	require.NoError(t, err)
	assert.Equal(t, "https://blueprint-manifest.sls.epilot.io/v2/blueprint-manifest/blueprints", u)

	_, err = c.URL("nope")
	assert.Error(t, err)

	ids := make([]string, 0)
	for _, s := range c.All() {
		ids = append(ids, s.ID)
	}
	assert.Contains(t, ids, ServiceDesign)
	assert.IsNonDecreasing(t, ids)
}

func TestCatalogURLEscapesSegments(t *testing.T) {
	c := DefaultCatalog()
	u, err := c.URL(ServiceEntity, "v1", "entity", "contact", "a b")
	require.NoError(t, err)
	assert.Equal(t, "https://entity.sls.epilot.io/v1/entity/contact/a%20b", u)
}

func TestCatalogURLRejectsDotSegments(t *testing.T) {
	c := DefaultCatalog()
	for _, seg := range []string{"../../../v2/other", "..", "a/./b", "x/.."} {
		u, err := c.URL(ServiceEntity, "v1", "entity", "contact", seg)
		assert.Error(t, err, seg)
		assert.Empty(t, u, seg)
	}
}

func TestLoadCatalogOverlaysYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "services.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
services:
  - id: " Entity "
    base_url: "http://localhost:9000/"
  - id: sandbox
    name: Sandbox
    base_url: https://sandbox.example.com
`), 0o600))

	c, err := LoadCatalog(path)
	require.NoError(t, err)

	s, ok := c.Service("entity")
	require.True(t, ok)
	assert.Equal(t, "http://localhost:9000", s.BaseURL)
	assert.Equal(t, "entity", s.Name)

	_, ok = c.Service("sandbox")
	assert.True(t, ok)
	_, ok = c.Service(ServiceAutomation)
	assert.True(t, ok, "defaults remain")
}

func TestLoadCatalogRejectsInvalidFiles(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"empty.json":     `{"services": []}`,
		"relative.json":  `{"services": [{"id": "x", "base_url": "/relative"}]}`,
		"noid.yaml":      "services:\n  - base_url: https://x.example.com\n",
		"duplicate.yaml": "services:\n  - id: a\n    base_url: https://a.example.com\n  - id: A\n    base_url: https://b.example.com\n",
	}
	for name, body := range cases {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
		_, err := LoadCatalog(path)
		assert.Error(t, err, name)
	}

	_, err := LoadCatalog(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestDecodeDocumentFallsBackForUnknownExtension(t *testing.T) {
	var out map[string]any
	require.NoError(t, DecodeDocument([]byte("a: 1\n"), ".txt", &out))
	assert.Equal(t, 1, out["a"])

	out = nil
	require.NoError(t, DecodeDocument([]byte(`{"a": 1}`), "", &out))
	assert.Equal(t, float64(1), out["a"])

	assert.Error(t, DecodeDocument([]byte("a: 1\n"), ".json", &out))
}
