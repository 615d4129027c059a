// Package records reads the records a calculation batch runs over.
//
// Two sources are provided: a JSON file holding an array of objects and a
// SQLite table. Sources only read; computed values are returned on the
// working copies of a batch and can be written back out with Encode.
//
//	src, err := records.Open(cfg.Records, logger)
//	if err != nil {
//	    return err
//	}
//	defer src.Close()
//	recs, err := src.Load(ctx)
//
// # JSON Format
//
//	[
//	  {"id": "lead-1", "firstName": "John", "custom": {"tier": "gold"}}
//	]
//
// "id" (configurable) becomes the record id, "custom" the extension map and
// every other key a named field. Records without an id are numbered from 1.
package records
