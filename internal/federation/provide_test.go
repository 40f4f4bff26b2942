package federation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chunk = "node_modules/.prebundle/prebundle/chunk-ABC.js"

func TestDefaultProvideMap(t *testing.T) {
	m := DefaultProvideMap(chunk)

	assert.Equal(t, []string{
		"Element", "MutationObserver", "SVGElement", "cancelAnimationFrame",
		"document", "navigator", "requestAnimationFrame", "window",
	}, m.Globals())
	assert.Equal(t, ProvideTarget{Path: chunk, Export: "window$1"}, m["window"])
	assert.Equal(t, ProvideTarget{Path: chunk, Export: "document$1"}, m["document"])
	assert.Equal(t, ProvideTarget{Path: chunk, Export: "raf"}, m["requestAnimationFrame"])
	assert.Equal(t, ProvideTarget{Path: chunk, Export: "caf"}, m["cancelAnimationFrame"])
	assert.Equal(t, ProvideTarget{Path: chunk, Export: "TaroElement"}, m["Element"])
}

func TestApplyProvideRunsTransformsInOrder(t *testing.T) {
	var seen []string
	first := func(m ProvideMap, path string) ProvideMap {
		seen = append(seen, "first")
		m["IntersectionObserver"] = ProvideTarget{Path: path, Export: "IO"}
		return m
	}
	second := func(m ProvideMap, path string) ProvideMap {
		seen = append(seen, "second")
		assert.Contains(t, m, "IntersectionObserver")
		delete(m, "navigator")
		return m
	}

	m := ApplyProvide(chunk, first, nil, second)

	assert.Equal(t, []string{"first", "second"}, seen)
	assert.Equal(t, ProvideTarget{Path: chunk, Export: "IO"}, m["IntersectionObserver"])
	assert.NotContains(t, m, "navigator")
}

func TestApplyProvideTransformsDoNotShareInput(t *testing.T) {
	var captured ProvideMap
	capture := func(m ProvideMap, _ string) ProvideMap {
		captured = m
		return ProvideMap{"only": {Path: "x.js", Export: "y"}}
	}
	mutate := func(m ProvideMap, _ string) ProvideMap {
		m["only"] = ProvideTarget{Path: "changed.js", Export: "z"}
		return m
	}

	m := ApplyProvide(chunk, capture, mutate)

	assert.Equal(t, "changed.js", m["only"].Path)
	assert.Contains(t, captured, "window")
	assert.NotContains(t, captured, "only")
}

func TestConfigProvide(t *testing.T) {
	m := ApplyProvide(chunk, ConfigProvide(map[string]string{"IntersectionObserver": "IntersectionObserver", "window": "win"}))

	assert.Equal(t, ProvideTarget{Path: chunk, Export: "IntersectionObserver"}, m["IntersectionObserver"])
	assert.Equal(t, ProvideTarget{Path: chunk, Export: "win"}, m["window"])
}

func TestProvideTargetJSON(t *testing.T) {
	data, err := json.Marshal(ProvideMap{"window": {Path: chunk, Export: "window$1"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"window": ["`+chunk+`", "window$1"]}`, string(data))

	var back ProvideMap
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, ProvideTarget{Path: chunk, Export: "window$1"}, back["window"])

	var bad ProvideTarget
	assert.Error(t, json.Unmarshal([]byte(`"window"`), &bad))
}

func TestProvidePairs(t *testing.T) {
	pairs := DefaultProvideMap(chunk).Pairs()
	assert.Equal(t, [2]string{chunk, "raf"}, pairs["requestAnimationFrame"])
	assert.Len(t, pairs, 8)
}
