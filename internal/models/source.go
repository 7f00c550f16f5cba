package models

import "fmt"

// SourceKind distinguishes the two monitored platforms
type SourceKind string

const (
	SourceKindMessageChannel SourceKind = "message-channel"
	SourceKindRecordDatabase SourceKind = "record-database"
)

// MonitoredSource identifies one channel or database to poll. Built from configuration at startup.
type MonitoredSource struct {
	ID   string     // channel name as configured, or database id
	Name string     // human-readable label used in logs
	Kind SourceKind
}

// Key uniquely identifies the source across kinds
func (s MonitoredSource) Key() string {
	return fmt.Sprintf("%s:%s", s.Kind, s.ID)
}

// NewChannelSource builds a message-channel source from a configured channel name
func NewChannelSource(name string) MonitoredSource {
	return MonitoredSource{ID: name, Name: name, Kind: SourceKindMessageChannel}
}

// NewDatabaseSource builds a record-database source from a database id
func NewDatabaseSource(id string) MonitoredSource {
	return MonitoredSource{ID: id, Name: id, Kind: SourceKindRecordDatabase}
}
