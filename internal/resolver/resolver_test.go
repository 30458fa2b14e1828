package resolver

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcncl/jsonfrag/internal/errors"
	"github.com/mcncl/jsonfrag/internal/models"
)

// object builds an ordered JSONObject from alternating key/value pairs.
func object(pairs ...interface{}) *models.JSONObject {
	obj := models.NewJSONObject()
	for i := 0; i < len(pairs); i += 2 {
		obj.Set(pairs[i].(string), pairs[i+1])
	}
	return obj
}

func mustGet(t *testing.T, obj models.JSONValue, key string) models.JSONValue {
	t.Helper()
	o, ok := obj.(*models.JSONObject)
	require.True(t, ok, "value is not an object, got %T", obj)
	v, found := o.Get(key)
	require.True(t, found, "key %q not present", key)
	return v
}

func TestResolve_FragmentWithNoDependencies(t *testing.T) {
	fragments := models.FragmentMap{
		"simple": object("name", "Alice", "age", json.Number("30")),
	}

	result, err := NewResolver(nil).Resolve(fragments, "simple")
	require.NoError(t, err)

	assert.Equal(t, "Alice", mustGet(t, result, "name"))
	assert.Equal(t, json.Number("30"), mustGet(t, result, "age"))
}

func TestResolve_StringTemplateReference(t *testing.T) {
	fragments := models.FragmentMap{
		"name":     "Bob",
		"greeting": object("message", "Hello, [name]!"),
	}

	result, err := NewResolver(nil).Resolve(fragments, "greeting")
	require.NoError(t, err)

	assert.Equal(t, "Hello, Bob!", mustGet(t, result, "message"))
}

func TestResolve_TypePreservingSubstitution(t *testing.T) {
	fragments := models.FragmentMap{
		"number":     json.Number("42"),
		"float":      json.Number("3.14"),
		"boolean":    true,
		"null_value": nil,
		"container": object(
			"int_value", "[number]",
			"float_value", "[float]",
			"bool_value", "[boolean]",
			"null_field", "[null_value]",
		),
	}

	result, err := NewResolver(nil).Resolve(fragments, "container")
	require.NoError(t, err)

	assert.Equal(t, json.Number("42"), mustGet(t, result, "int_value"))
	assert.Equal(t, json.Number("3.14"), mustGet(t, result, "float_value"))
	assert.Equal(t, true, mustGet(t, result, "bool_value"))
	assert.Nil(t, mustGet(t, result, "null_field"))
}

func TestResolve_DynamicObjectKeys(t *testing.T) {
	fragments := models.FragmentMap{
		"param_name":  "temperature",
		"param_value": json.Number("0.7"),
		"tool_call": object(
			"type", "function",
			"[param_name]", "[param_value]",
		),
	}

	result, err := NewResolver(nil).Resolve(fragments, "tool_call")
	require.NoError(t, err)

	assert.Equal(t, "function", mustGet(t, result, "type"))
	assert.Equal(t, json.Number("0.7"), mustGet(t, result, "temperature"))
}

func TestResolve_MultipleDynamicParameters(t *testing.T) {
	fragments := models.FragmentMap{
		"function_name": "set_temperature",
		"param_name":    "temperature",
		"param_value":   json.Number("0.7"),
		"param_name2":   "top_p",
		"param_value2":  json.Number("0.95"),
		"tool_call": object(
			"type", "function",
			"function", "[function_name]",
			"[param_name]", "[param_value]",
			"[param_name2]", "[param_value2]",
		),
	}

	result, err := NewResolver(nil).Resolve(fragments, "tool_call")
	require.NoError(t, err)

	assert.Equal(t, "function", mustGet(t, result, "type"))
	assert.Equal(t, "set_temperature", mustGet(t, result, "function"))
	assert.Equal(t, json.Number("0.7"), mustGet(t, result, "temperature"))
	assert.Equal(t, json.Number("0.95"), mustGet(t, result, "top_p"))
}

func TestResolve_CircularDependency(t *testing.T) {
	fragments := models.FragmentMap{
		"A": object("ref", "[B]"),
		"B": object("ref", "[C]"),
		"C": object("ref", "[A]"),
	}

	res := NewResolver(nil)

	_, err := res.Resolve(fragments, "A")
	require.Error(t, err)

	var circular *errors.CircularDependencyError
	require.ErrorAs(t, err, &circular)
	assert.Equal(t, []string{"A", "B", "C", "A"}, circular.Cycle)
	assert.Contains(t, err.Error(), "A -> B -> C -> A")
}

func TestResolve_CircularDependencyFromEveryEntryPoint(t *testing.T) {
	fragments := models.FragmentMap{
		"A": "[B]",
		"B": "[C]",
		"C": "[A]",
	}
	res := NewResolver(nil)

	for _, entry := range []string{"A", "B", "C"} {
		_, err := res.Resolve(fragments, entry)
		var circular *errors.CircularDependencyError
		require.ErrorAs(t, err, &circular, "entry %s", entry)
		assert.Equal(t, entry, circular.Cycle[0], "cycle should start at entry %s", entry)
		assert.Equal(t, entry, circular.Cycle[len(circular.Cycle)-1])
	}
}

func TestResolve_SelfReference(t *testing.T) {
	fragments := models.FragmentMap{
		"loop": "[loop]",
	}

	_, err := NewResolver(nil).Resolve(fragments, "loop")

	var circular *errors.CircularDependencyError
	require.ErrorAs(t, err, &circular)
	assert.Equal(t, []string{"loop", "loop"}, circular.Cycle)
}

func TestResolve_DiamondDependencyIsNotACycle(t *testing.T) {
	fragments := models.FragmentMap{
		"shared": "common",
		"left":   object("v", "[shared]"),
		"right":  object("v", "[shared]"),
		"top":    object("l", "[left]", "r", "[right]"),
	}

	result, err := NewResolver(nil).Resolve(fragments, "top")
	require.NoError(t, err)

	left := mustGet(t, result, "l").(*models.JSONObject)
	v, _ := left.Get("v")
	assert.Equal(t, "[shared]", v, "referenced values substitute as stored, without re-substitution")
}

func TestResolve_NestedStructures(t *testing.T) {
	fragments := models.FragmentMap{
		"user":     object("id", json.Number("123"), "name", "Alice"),
		"metadata": object("timestamp", "2024-01-29", "version", "1.0"),
		"message": object(
			"content", "Hello!",
			"user", "[user]",
			"meta", "[metadata]",
		),
	}

	result, err := NewResolver(nil).Resolve(fragments, "message")
	require.NoError(t, err)

	assert.Equal(t, "Hello!", mustGet(t, result, "content"))
	user := mustGet(t, result, "user")
	assert.Equal(t, json.Number("123"), mustGet(t, user, "id"))
	assert.Equal(t, "Alice", mustGet(t, user, "name"))
	meta := mustGet(t, result, "meta")
	assert.Equal(t, "2024-01-29", mustGet(t, meta, "timestamp"))
	assert.Equal(t, "1.0", mustGet(t, meta, "version"))
}

func TestResolve_Arrays(t *testing.T) {
	fragments := models.FragmentMap{
		"numbers": models.JSONArray{json.Number("1"), json.Number("2"), json.Number("3")},
		"item":    "test",
		"container": object(
			"direct_array", "[numbers]",
			"array_with_refs", models.JSONArray{"[item]", "[item]"},
		),
	}

	result, err := NewResolver(nil).Resolve(fragments, "container")
	require.NoError(t, err)

	direct, ok := mustGet(t, result, "direct_array").(models.JSONArray)
	require.True(t, ok)
	assert.Equal(t, models.JSONArray{json.Number("1"), json.Number("2"), json.Number("3")}, direct)

	withRefs, ok := mustGet(t, result, "array_with_refs").(models.JSONArray)
	require.True(t, ok)
	assert.Equal(t, models.JSONArray{"test", "test"}, withRefs)
}

func TestResolve_MissingStartFragmentAlwaysFails(t *testing.T) {
	fragments := models.FragmentMap{}

	behaviors := []MissingFragmentBehavior{Throw, LeaveUnresolved, UseDefault, Remove}
	for _, behavior := range behaviors {
		cfg := DefaultConfig()
		cfg.MissingFragmentBehavior = behavior
		cfg.DefaultValue = "N/A"

		_, err := NewResolver(cfg).Resolve(fragments, "missing")

		var notFound *errors.NotFoundError
		require.ErrorAs(t, err, &notFound, "behavior %s", behavior)
		assert.Equal(t, "missing", notFound.Fragment)
	}
}

func TestResolve_MissingReferencePolicies(t *testing.T) {
	tests := []struct {
		name     string
		behavior MissingFragmentBehavior
		def      models.JSONValue
		want     models.JSONValue
	}{
		{name: "leave unresolved", behavior: LeaveUnresolved, want: "[missing]"},
		{name: "remove", behavior: Remove, want: ""},
		{name: "use default", behavior: UseDefault, def: "N/A", want: "N/A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fragments := models.FragmentMap{
				"doc": object("v", "[missing]"),
			}
			cfg := DefaultConfig()
			cfg.MissingFragmentBehavior = tt.behavior
			cfg.DefaultValue = tt.def

			result, err := NewResolver(cfg).Resolve(fragments, "doc")
			require.NoError(t, err)
			assert.Equal(t, tt.want, mustGet(t, result, "v"))
		})
	}
}

func TestResolve_MissingReferenceThrowsByDefault(t *testing.T) {
	fragments := models.FragmentMap{
		"doc": object("v", "[missing]"),
	}

	_, err := NewResolver(nil).Resolve(fragments, "doc")

	var notFound *errors.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "missing", notFound.Fragment)
}

func TestResolve_NonStringObjectKeyFails(t *testing.T) {
	fragments := models.FragmentMap{
		"number":  json.Number("42"),
		"invalid": object("[number]", "value"),
	}

	_, err := NewResolver(nil).Resolve(fragments, "invalid")

	var invalidKey *errors.InvalidKeyError
	require.ErrorAs(t, err, &invalidKey)
}

func TestResolve_ErrorCarriesEvaluationPath(t *testing.T) {
	fragments := models.FragmentMap{
		"doc": object("outer", object("inner", "x [missing] y")),
	}

	_, err := NewResolver(nil).Resolve(fragments, "doc")
	require.Error(t, err)

	var pathErr *errors.PathError
	require.ErrorAs(t, err, &pathErr)
	assert.Equal(t, "/doc/outer/inner/template:missing", pathErr.Path)
}

func TestResolve_EmptyNameReference(t *testing.T) {
	// "[]" is a whole reference to the empty-named fragment.
	fragments := models.FragmentMap{
		"":    "anonymous",
		"doc": object("v", "[]"),
	}

	result, err := NewResolver(nil).Resolve(fragments, "doc")
	require.NoError(t, err)
	assert.Equal(t, "anonymous", mustGet(t, result, "v"))
}

func TestResolve_EmptyNameReferenceMissing(t *testing.T) {
	fragments := models.FragmentMap{
		"doc": object("v", "[]"),
	}
	cfg := DefaultConfig()
	cfg.MissingFragmentBehavior = LeaveUnresolved

	result, err := NewResolver(cfg).Resolve(fragments, "doc")
	require.NoError(t, err)
	assert.Equal(t, "[]", mustGet(t, result, "v"))
}

func TestResolve_CustomDelimiters(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Delimiters = Delimiters{Start: "{{", End: "}}"}

	fragments := models.FragmentMap{
		"name": "Carol",
		"doc": object(
			"whole", "{{name}}",
			"templated", "Hi {{name}}!",
			"plain", "[name]",
		),
	}

	result, err := NewResolver(cfg).Resolve(fragments, "doc")
	require.NoError(t, err)

	assert.Equal(t, "Carol", mustGet(t, result, "whole"))
	assert.Equal(t, "Hi Carol!", mustGet(t, result, "templated"))
	assert.Equal(t, "[name]", mustGet(t, result, "plain"), "default delimiters mean nothing under custom ones")
}

func TestResolve_DuplicateResolvedKeysLastWriteWins(t *testing.T) {
	fragments := models.FragmentMap{
		"alias": "name",
		"doc": object(
			"name", "first",
			"[alias]", "second",
		),
	}

	result, err := NewResolver(nil).Resolve(fragments, "doc")
	require.NoError(t, err)

	obj := result.(*models.JSONObject)
	assert.Equal(t, 1, obj.Len())
	assert.Equal(t, "second", mustGet(t, result, "name"))
}

func TestResolve_ResolverIsReusableAcrossCalls(t *testing.T) {
	res := NewResolver(nil)

	cyclic := models.FragmentMap{"A": "[B]", "B": "[A]"}
	_, err := res.Resolve(cyclic, "A")
	require.Error(t, err)

	// A failed call must not leak tracker or context state into the next.
	fragments := models.FragmentMap{
		"name":     "Bob",
		"greeting": object("message", "Hello, [name]!"),
	}
	result, err := res.Resolve(fragments, "greeting")
	require.NoError(t, err)
	assert.Equal(t, "Hello, Bob!", mustGet(t, result, "message"))
}

func TestResolve_ConcurrentCallsOnOneResolver(t *testing.T) {
	res := NewResolver(nil)
	fragments := models.FragmentMap{
		"name":     "Bob",
		"greeting": object("message", "Hello, [name]!"),
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := res.Resolve(fragments, "greeting")
			assert.NoError(t, err)
			if err == nil {
				obj := result.(*models.JSONObject)
				v, _ := obj.Get("message")
				assert.Equal(t, "Hello, Bob!", v)
			}
		}()
	}
	wg.Wait()
}

func TestDependencies_ReportsRecordedEdges(t *testing.T) {
	fragments := models.FragmentMap{
		"shared": "common",
		"left":   object("v", "[shared]"),
		"right":  object("v", "[shared]"),
		"top":    object("l", "[left]", "r", "[right]"),
	}

	edges, err := NewResolver(nil).Dependencies(fragments, "top")
	require.NoError(t, err)

	assert.Equal(t, map[string][]string{
		"top":   {"left", "right"},
		"left":  {"shared"},
		"right": {"shared"},
	}, edges)
}

func TestDependencies_CyclicInputFails(t *testing.T) {
	fragments := models.FragmentMap{"A": "[B]", "B": "[A]"}

	_, err := NewResolver(nil).Dependencies(fragments, "A")

	var circular *errors.CircularDependencyError
	require.ErrorAs(t, err, &circular)
}

func TestResolve_NoReferencesIsIdentity(t *testing.T) {
	fragments := models.FragmentMap{
		"doc": object(
			"s", "plain text",
			"n", json.Number("1"),
			"b", false,
			"z", nil,
			"arr", models.JSONArray{"a", json.Number("2")},
			"obj", object("k", "v"),
		),
	}

	result, err := NewResolver(nil).Resolve(fragments, "doc")
	require.NoError(t, err)

	got, err := json.Marshal(result)
	require.NoError(t, err)
	want, err := json.Marshal(fragments["doc"])
	require.NoError(t, err)
	assert.JSONEq(t, string(want), string(got))
}

func TestResolve_ObjectKeyOrderPreserved(t *testing.T) {
	fragments := models.FragmentMap{
		"b_val": "bee",
		"doc": object(
			"zulu", "1",
			"alpha", "[b_val]",
			"mike", "2",
		),
	}

	result, err := NewResolver(nil).Resolve(fragments, "doc")
	require.NoError(t, err)

	obj := result.(*models.JSONObject)
	assert.Equal(t, []string{"zulu", "alpha", "mike"}, obj.Keys())
}
