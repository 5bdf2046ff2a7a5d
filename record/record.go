package record

import "fmt"

/*
A record is a logical row in a merge-on-read table. Records are identified by
a record key scoped to a partition path, and carry either a field map (insert
or update) or a delete marker (tombstone). The ordering token is the source
ordering field of the row; between two records with the same key, the larger
ordering token is the later write, with log commit order as the tie-break.
*/

////////////////////////////////////////////////////////////////////////////////

// Key identifies a record within a table.
type Key struct {
	Record    string `json:"record"`
	Partition string `json:"partition"`
}

func (k Key) String() string {
	return k.Partition + "/" + k.Record
}

// Record is one logical row.
type Record struct {
	Key      Key            `json:"key"`
	Ordering uint64         `json:"ordering"`
	Deleted  bool           `json:"deleted,omitempty"`
	Fields   map[string]any `json:"fields,omitempty"`
}

// NewRecord returns a record with the given key, partition, ordering token,
// and fields.
func NewRecord(key, partition string, ordering uint64, fields map[string]any) Record {
	return Record{
		Key:      Key{Record: key, Partition: partition},
		Ordering: ordering,
		Fields:   fields,
	}
}

// NewTombstone returns a delete marker for the given key.
func NewTombstone(key, partition string, ordering uint64) Record {
	return Record{
		Key:      Key{Record: key, Partition: partition},
		Ordering: ordering,
		Deleted:  true,
	}
}

func (r Record) String() string {
	if r.Deleted {
		return fmt.Sprintf("%s@%d (deleted)", r.Key, r.Ordering)
	}
	return fmt.Sprintf("%s@%d %v", r.Key, r.Ordering, r.Fields)
}
