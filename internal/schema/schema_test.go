package schema

import (
	"encoding/json"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonTags(v any) []string {
	t := reflect.TypeOf(v)
	var tags []string
	for i := 0; i < t.NumField(); i++ {
		tag := strings.Split(t.Field(i).Tag.Get("json"), ",")[0]
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

func keys(def jsonschema.Definition) []string {
	var out []string
	for k := range def.Properties {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sorted(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}

// The outbound schema and the inbound validator must describe the same shape.
func TestDefinition_MatchesWireFields(t *testing.T) {
	root := Definition()
	assert.Equal(t, jsonTags(wireResult{}), keys(root))
	assert.Equal(t, keys(root), sorted(root.Required), "every root property is required")

	detection := *root.Properties[FieldDetections].Items
	assert.Equal(t, jsonTags(wireDetection{}), keys(detection))
	assert.Equal(t, keys(detection), sorted(detection.Required))

	psychology := detection.Properties[FieldPsychology]
	assert.Equal(t, jsonTags(wirePsychology{}), keys(psychology))
	assert.Equal(t, keys(psychology), sorted(psychology.Required))

	redesign := detection.Properties[FieldRedesign]
	assert.Equal(t, jsonTags(wireRedesign{}), keys(redesign))
	assert.Equal(t, keys(redesign), sorted(redesign.Required))
}

func TestDefinition_SeverityEnum(t *testing.T) {
	detection := *Definition().Properties[FieldDetections].Items
	assert.Equal(t, []string{"High", "Medium", "Low"}, detection.Properties[FieldSeverity].Enum)
}

func TestJSON_IsValidSchemaDocument(t *testing.T) {
	var doc map[string]any
	require.NoError(t, json.Unmarshal(JSON(), &doc))

	assert.Equal(t, "object", doc["type"])
	assert.Equal(t, false, doc["additionalProperties"])
	props, ok := doc["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, FieldDetections)
}
