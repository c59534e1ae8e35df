// Package graphdoc loads graph documents into model.Graph.
//
// Three encodings of the same document are accepted, chosen by file
// extension:
//
//	.json         {"nodes": [...], "edges": [...]}
//	.yaml / .yml  the same shape in YAML
//	.hcl          node and edge blocks
//
// The HCL form looks like this:
//
//	node "fetch" {
//	  kind   = "process"
//	  config = { command = "echo $${value}" }
//	  input "value" { type = string }
//	  output "stdout" { type = string }
//	}
//
//	edge "e1" {
//	  from = "source.value"
//	  to   = "fetch.value"
//	}
//
// HCL strings are templates, so a port reference inside a command has to be
// written as $${port}. Port types may be a bare keyword (string, number,
// bool, any) or any quoted value type name.
//
// A directory is loaded by merging every supported file below it, in
// lexical path order.
package graphdoc
