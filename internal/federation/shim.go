package federation

import (
	"fmt"
	"strconv"
	"strings"
)

// Shim file names inside the shim directory.
const (
	runtimeShim     = "runtime.js"
	remoteEntryShim = "remoteEntry.js"
	provideShim     = "provide.js"
)

// runtimeSource is the bootstrap container registry shared by every remote
// loaded into the same global object.
func runtimeSource(globalObject, chunkLoadingGlobal string) string {
	key := strconv.Quote(chunkLoadingGlobal)
	return fmt.Sprintf(`const scope = typeof %[1]s !== "undefined" ? %[1]s : globalThis;
const registry = scope[%[2]s] = scope[%[2]s] || {};

export function register(name, container) {
  registry[name] = container;
  return container;
}

export function lookup(name) {
  return registry[name];
}
`, globalObject, key)
}

// remoteEntrySource declares the container named name. Every exposed module
// is loaded lazily through a dynamic import of its chunk.
func remoteEntrySource(name string, expose ExposeMap) string {
	var b strings.Builder
	b.WriteString("import { register } from \"./runtime.js\";\n\n")
	b.WriteString("const modules = {\n")
	for _, module := range expose.Names() {
		fmt.Fprintf(&b, "  %s: () => import(%s),\n", strconv.Quote(module), strconv.Quote(expose[module]))
	}
	b.WriteString("};\n\n")
	fmt.Fprintf(&b, `export function get(request) {
  const load = modules[request];
  if (!load) {
    return Promise.reject(new Error("Module " + request + " does not exist in container %[1]s"));
  }
  return load().then((m) => () => m);
}

export function init() {}

register(%[2]s, { get, init });
`, name, strconv.Quote(name))
	return b.String()
}

// provideSource re-exports each provide target under its global name.
// Used as an inject file, it replaces free references to those globals.
// paths maps a provide target path to the module specifier to import.
func provideSource(provide ProvideMap, paths map[string]string) string {
	var modules []string
	alias := make(map[string]string)
	for _, g := range provide.Globals() {
		p := provide[g].Path
		if _, ok := alias[p]; !ok {
			alias[p] = fmt.Sprintf("__provide%d", len(modules))
			modules = append(modules, p)
		}
	}

	var b strings.Builder
	for _, p := range modules {
		fmt.Fprintf(&b, "import * as %s from %s;\n", alias[p], strconv.Quote(paths[p]))
	}
	b.WriteString("\n")
	for _, g := range provide.Globals() {
		t := provide[g]
		fmt.Fprintf(&b, "const %s_%s = %s[%s];\n", alias[t.Path], g, alias[t.Path], strconv.Quote(t.Export))
		fmt.Fprintf(&b, "export { %s_%s as %s };\n", alias[t.Path], g, g)
	}
	return b.String()
}
