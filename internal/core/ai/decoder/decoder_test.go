package decoder

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func numbers(ns ...string) []interface{} {
	out := make([]interface{}, len(ns))
	for i, n := range ns {
		out[i] = json.Number(n)
	}
	return out
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want interface{}
	}{
		{"json fence", "```json\n[1,2,3]\n```", numbers("1", "2", "3")},
		{"bare fence", "```\n[1,2,3]\n```", numbers("1", "2", "3")},
		{"surrounding whitespace", "  \n[1,2,3]\n\t", numbers("1", "2", "3")},
		{"missing close bracket", "[1,2,3", numbers("1", "2", "3")},
		{"fenced and truncated", "```json\n[1,2,3", numbers("1", "2", "3")},
		{"object", `{"a":"b"}`, map[string]interface{}{"a": "b"}},
		{"not json", "not json", []interface{}{}},
		{"empty", "", []interface{}{}},
		{"truncated mid object", `[{"title":"Soup"},{"title":"Sal`, []interface{}{}},
		{"trailing garbage", `[1] and more`, []interface{}{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				assert.Equal(t, tt.want, Decode(tt.raw))
			})
		})
	}
}

func TestClean(t *testing.T) {
	assert.Equal(t, `["a"]`, Clean("```json\n[\"a\"]\n```"))
	assert.Equal(t, `{"a":1}`, Clean("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `["a"]`, Clean(`["a"`))
	assert.Equal(t, `{"a":1`, Clean(`{"a":1`))
}

func TestDecodeArray(t *testing.T) {
	assert.Equal(t, []interface{}{"egg", "milk"}, DecodeArray(`["egg","milk"]`))
	assert.Equal(t, []interface{}{"egg"}, DecodeArray(`{"ingredients":["egg"]}`, "ingredients"))
	assert.Len(t, DecodeArray(`{"ingredients":["egg"]}`), 1, "without wrapper keys the object stays whole")
	assert.Equal(t, []interface{}{map[string]interface{}{"title": "Soup"}}, DecodeArray(`{"title":"Soup"}`))
	assert.Equal(t, []interface{}{}, DecodeArray(`"just a string"`))
	assert.Equal(t, []interface{}{}, DecodeArray("garbage"))
}

func TestDecodeArray_SingleObjectNotUnwrappedByNestedField(t *testing.T) {
	raw := `{"title":"Pasta","ingredients":[{"name":"Egg"},{"name":"Flour"}],"instructions":["Mix"]}`
	got := DecodeArray(raw, "recipes")
	if assert.Len(t, got, 1) {
		obj, ok := got[0].(map[string]interface{})
		assert.True(t, ok)
		assert.Equal(t, "Pasta", obj["title"])
	}
}
