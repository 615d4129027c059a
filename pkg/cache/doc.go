// Package cache stores calculation results keyed by record, column and
// expression.
//
// Entries expire after a TTL (default 5 minutes). When the cache reaches
// MaxSize, expired entries are dropped and, if still above 80% of MaxSize,
// only the most frequently read entries survive. A Janitor runs the same
// cleanup on a cron schedule.
//
// # Usage
//
//	c := cache.New(cache.DefaultConfig())
//	key := cache.Key{RecordID: "r1", ColumnID: "score", Expression: "LEAD_SCORE()"}
//	c.Set(key, 85.0)
//	if v, ok := c.Get(key); ok {
//	    fmt.Println(v)
//	}
//
//	// Drop every cached column of a record after it changes.
//	c.Invalidate("r1", "")
package cache
