package domain

import (
	"fmt"
	"sync/atomic"
)

// PortID identifies a port for the lifetime of the process. IDs are
// minted from a process-wide counter at construction; two ports are the
// same port exactly when their IDs match, regardless of how the values
// were passed around.
type PortID int64

var portSeq atomic.Int64

// Port is a typed connection point between nodes. An upstream node mints
// a port for each of its outputs; downstream nodes hold the same port as
// an input. The context stores datasets by port ID.
type Port struct {
	id     PortID
	schema *Schema
}

// NewPort mints a port carrying records of the given schema.
func NewPort(schema *Schema) *Port {
	return &Port{id: PortID(portSeq.Add(1)), schema: schema}
}

// ID returns the port's process-unique identity.
func (p *Port) ID() PortID { return p.id }

// Schema returns the schema of the records the port carries.
func (p *Port) Schema() *Schema { return p.schema }

// ErrorPort mints the error companion of this port: a fresh port whose
// schema is this port's schema extended with the error fields.
func (p *Port) ErrorPort() *Port {
	return NewPort(p.schema.WithErrorFields())
}

// String renders the port identity for logs and graph dumps.
func (p *Port) String() string { return fmt.Sprintf("port#%d", p.id) }

// Dataset is an ordered collection of records carried by a port during a
// run. Datasets live in memory for the whole run; the engine is a batch
// processor, not a stream.
type Dataset struct {
	records []*Record
}

// NewDataset creates a dataset holding the given records.
func NewDataset(records ...*Record) *Dataset {
	return &Dataset{records: records}
}

// Add appends records to the dataset.
func (d *Dataset) Add(records ...*Record) {
	d.records = append(d.records, records...)
}

// Records returns the records in insertion order.
func (d *Dataset) Records() []*Record { return d.records }

// Len returns the number of records.
func (d *Dataset) Len() int { return len(d.records) }
