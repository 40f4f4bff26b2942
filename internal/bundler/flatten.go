package bundler

import (
	"regexp"
	"strings"
)

const entryNamespace = "entry"

var nestedSeparator = regexp.MustCompile(`\s*>\s*`)

var flatReplacer = strings.NewReplacer("/", "_", ":", "_", ".", "__")

// FlattenID derives a filesystem-safe module name from a package
// identifier: "@scope/pkg/sub" becomes "@scope_pkg_sub".
func FlattenID(id string) string {
	return flatReplacer.Replace(nestedSeparator.ReplaceAllString(id, "___"))
}

// EntryID is the manifest entry point reported for the virtual entry of
// package id.
func EntryID(id string) string {
	return entryNamespace + ":" + FlattenID(id)
}
