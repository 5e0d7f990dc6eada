package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efarmer/subsidy/common/imagededup"
	"github.com/efarmer/subsidy/common/store"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRulesCheck(t *testing.T) {
	path := writeFile(t, "rules.json", `[
		{"cropType":"Wheat","rainfallZone":"Medium","productType":"Urea","maxPerAcre":10},
		{"cropType":"Paddy","rainfallZone":"High","productType":"Urea","maxPerAcre":12}
	]`)

	out, err := run(t, "rules", "check", path)
	require.NoError(t, err)
	assert.Contains(t, out, "2 rules, 2 distinct keys")
}

func TestRulesCheck_Duplicates(t *testing.T) {
	path := writeFile(t, "rules.yaml", `
- {cropType: Wheat, rainfallZone: Medium, productType: Urea, maxPerAcre: 10}
- {cropType: Wheat, rainfallZone: Medium, productType: Urea, maxPerAcre: 8}
`)

	_, err := run(t, "rules", "check", path)
	assert.ErrorIs(t, err, store.ErrDuplicateRule)

	out, err := run(t, "rules", "check", "--lenient", path)
	require.NoError(t, err)
	assert.Contains(t, out, "warning: duplicate rule Wheat/Medium/Urea ignored")
	assert.Contains(t, out, "2 rules, 1 distinct keys")
}

func TestRulesCheck_NegativeQuota(t *testing.T) {
	path := writeFile(t, "rules.json", `[{"cropType":"Wheat","rainfallZone":"Low","productType":"Urea","maxPerAcre":-1}]`)
	_, err := run(t, "rules", "check", path)
	assert.ErrorIs(t, err, store.ErrInvalidRule)
}

func TestDigest(t *testing.T) {
	path := writeFile(t, "photo.jpg", "pixels")

	out, err := run(t, "digest", path)
	require.NoError(t, err)
	assert.Equal(t, imagededup.Digest([]byte("pixels"))+"  "+path+"\n", out)

	_, err = run(t, "digest", filepath.Join(t.TempDir(), "missing.jpg"))
	assert.Error(t, err)
}

func TestSchemes(t *testing.T) {
	out, err := run(t, "schemes", "--land", "1.5", "--crop", "Paddy", "--soil", "Red", "--zone", "Low")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "PM-KISAN"))
	assert.True(t, strings.HasPrefix(lines[1], "Micro-Irrigation"))

	out, err = run(t, "schemes", "--land", "abc")
	require.NoError(t, err)
	// Unparseable land counts as 0 acres
	assert.Contains(t, out, "PM-KISAN")
}
