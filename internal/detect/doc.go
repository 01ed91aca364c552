// Package detect matches events against Sigma rules.
//
// Rules are loaded from a directory of YAML files; files that are not Sigma
// rules are skipped. Each delivered event is flattened into dotted keys
// ("kind", "event.username", "process.executable.path") and evaluated
// against every loaded rule. A Reloader watches the directory and swaps the
// rule set in place when files change.
package detect
