// Package output renders visibility reports and writes them to their
// destination.
//
// The package is organized around three concerns:
//
//   - Reports (report.go): the visible descriptors of one evaluation, plus
//     the scope and filters that produced them.
//
//   - Formats (registry.go, serializer.go): table, JSON and YAML renderers
//     looked up by name in a [Registry].
//
//   - Writers (writer.go): Pluggable output destinations via the [Writer]
//     interface, with [StdoutWriter] and [FileWriter] implementations.
package output
