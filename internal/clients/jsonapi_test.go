package clients

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeKeysRewritesNestedHyphens(t *testing.T) {
	raw := []byte(`{
		"data": {
			"id": "1",
			"attributes": {
				"balance-currency": "EUR",
				"call-stats": {"total-duration": 120},
				"tags": [{"tag-name": "vip"}]
			}
		}
	}`)

	normalized, err := NormalizeKeys(raw)
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(normalized, &doc))

	attrs := doc["data"].(map[string]interface{})["attributes"].(map[string]interface{})
	assert.Contains(t, attrs, "balance_currency")
	assert.NotContains(t, attrs, "balance-currency")

	stats := attrs["call_stats"].(map[string]interface{})
	assert.Contains(t, stats, "total_duration")

	tags := attrs["tags"].([]interface{})
	assert.Contains(t, tags[0].(map[string]interface{}), "tag_name")
}

func TestNormalizeKeysPreservesValues(t *testing.T) {
	normalized, err := NormalizeKeys([]byte(`{"a-b":"keep-hyphens-in-values","n":1.5}`))
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(normalized, &doc))
	assert.Equal(t, "keep-hyphens-in-values", doc["a_b"])
	assert.Equal(t, 1.5, doc["n"])
}

func TestNormalizeKeysEmptyInput(t *testing.T) {
	normalized, err := NormalizeKeys(nil)
	require.NoError(t, err)
	assert.Nil(t, normalized)
}

func TestNormalizeKeysInvalidJSON(t *testing.T) {
	_, err := NormalizeKeys([]byte(`{broken`))
	assert.Error(t, err)
}

func TestDecodeResourcesEnvelope(t *testing.T) {
	raw := json.RawMessage(`{"data":[
		{"id":"1","type":"cdrs","attributes":{"duration":60}},
		{"id":"2","type":"cdrs","attributes":{"duration":30}}
	]}`)

	resources, err := DecodeResources(raw)
	require.NoError(t, err)
	require.Len(t, resources, 2)
	assert.Equal(t, "1", resources[0].ID)
	assert.Equal(t, "cdrs", resources[0].Type)
	assert.Equal(t, float64(60), resources[0].Attributes["duration"])
}

func TestDecodeResourcesBareArray(t *testing.T) {
	raw := json.RawMessage(`[{"id":"1","type":"nodes","attributes":{"name":"node1"}}]`)

	resources, err := DecodeResources(raw)
	require.NoError(t, err)
	require.Len(t, resources, 1)
	assert.Equal(t, "node1", resources[0].Attributes["name"])
}

func TestDecodeResourcesSingleObject(t *testing.T) {
	raw := json.RawMessage(`{"data":{"id":"1","type":"accounts","attributes":{"balance":"10.0"}}}`)

	resources, err := DecodeResources(raw)
	require.NoError(t, err)
	require.Len(t, resources, 1)
	assert.Equal(t, "accounts", resources[0].Type)
}

func TestDecodeResourcesEmpty(t *testing.T) {
	resources, err := DecodeResources(nil)
	require.NoError(t, err)
	assert.Nil(t, resources)
}
