// Package builtin ships the plugins compiled into the binary. Each plugin
// embeds plugin.Base and registers a factory in Catalog at init time; the
// command wires that catalog into discovery so built-ins are always
// available without a plugin directory.
package builtin
