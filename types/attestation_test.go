package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAttestationType(t *testing.T) {
	for _, tag := range []string{"github", "twitter", "discord", "custom"} {
		typ, ok := ParseAttestationType(tag)
		require.True(t, ok, tag)
		assert.Equal(t, tag, string(typ))
		assert.True(t, typ.Valid())
	}

	for _, tag := range []string{"", "GitHub", "linkedin", "custom "} {
		_, ok := ParseAttestationType(tag)
		assert.False(t, ok, tag)
	}
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.True(t, StatusVerified.Terminal())
	assert.True(t, StatusRejected.Terminal())
}

func TestAttestationInvolves(t *testing.T) {
	a := Attestation{Issuer: "0xabc", Recipient: "0xDEF"}

	assert.True(t, a.Involves("0xABC"))
	assert.True(t, a.Involves("0xdef"))
	assert.False(t, a.Involves("0x123"))
	assert.False(t, a.Involves(""))
}

func TestCloneDetachesMetadata(t *testing.T) {
	a := Attestation{
		Id: "1",
		Metadata: map[string]interface{}{
			"username": "octocat",
			"orgs":     []interface{}{"github"},
			"extra":    map[string]interface{}{"k": "v"},
		},
	}

	c := a.Clone()
	c.Metadata["username"] = "mallory"
	c.Metadata["orgs"].([]interface{})[0] = "evil"
	c.Metadata["extra"].(map[string]interface{})["k"] = "x"

	assert.Equal(t, "octocat", a.Metadata["username"])
	assert.Equal(t, "github", a.Metadata["orgs"].([]interface{})[0])
	assert.Equal(t, "v", a.Metadata["extra"].(map[string]interface{})["k"])
	assert.Nil(t, Attestation{}.Clone().Metadata)
}

func TestMetadataString(t *testing.T) {
	m := map[string]interface{}{"username": "  octocat ", "id": 42}

	assert.Equal(t, "octocat", MetadataString(m, "username"))
	assert.Equal(t, "", MetadataString(m, "id"))
	assert.Equal(t, "", MetadataString(nil, "username"))
}

func TestSameAddress(t *testing.T) {
	assert.True(t, SameAddress("0xABC", " 0xabc"))
	assert.False(t, SameAddress("", ""))
	assert.True(t, IsWalletAddress("0x71C7656EC7ab88b098defB751B7401B5f6d8976F"))
	assert.False(t, IsWalletAddress("0xABC"))
}
