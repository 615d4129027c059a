// Package source loads column schemas from YAML and watches them for
// changes.
//
// # Format
//
//	columns:
//	  - id: col_full_name
//	    key: fullName
//	    name: Full Name
//	    type: text
//	    formula:
//	      expression: CONCAT(firstName, " ", lastName)
//	      dependencies: [firstName, lastName]
//	      result_type: text
//
// A path may name one file or a directory; the files of a directory are
// read in lexical order and their columns concatenated. Column ids must be
// unique across all files.
//
// # Hot Reload
//
// Watcher debounces file events and calls a reload function, typically one
// that loads the schema again and passes it to the engine's Initialize. A
// rejected schema leaves the previous one active.
package source
