// Copyright 2025 the prism-ct-service Authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package loglist models the v3 CT log list format and provides a fetching
// client plus a freshness-checked cache over it.
package loglist

import "time"

// LogList holds a versioned snapshot of the log directory. It is immutable
// once fetched and replaced wholesale on refresh.
type LogList struct {
	IsAllLogs        bool       `json:"is_all_logs"`
	Version          string     `json:"version"`
	LogListTimestamp time.Time  `json:"log_list_timestamp"`
	Operators        []Operator `json:"operators"`
}

// Operator is an organization running one or more CT logs.
type Operator struct {
	Name      string     `json:"name"`
	Email     []string   `json:"email"`
	Logs      []Log      `json:"logs"`
	TiledLogs []TiledLog `json:"tiled_logs"`
}

// Log describes a single CT log operated by an Operator. Key holds the
// DER-encoded public key of the log.
type Log struct {
	Description      string            `json:"description"`
	LogID            string            `json:"log_id"`
	Key              []byte            `json:"key"`
	URL              string            `json:"url"`
	MMD              int32             `json:"mmd"`
	State            *State            `json:"state,omitempty"`
	TemporalInterval *TemporalInterval `json:"temporal_interval,omitempty"`
	LogType          string            `json:"log_type,omitempty"`
}

// Usable reports whether the log is in the usable state. Only usable logs
// are eligible for monitoring.
func (l *Log) Usable() bool {
	return l.State != nil && l.State.Usable != nil
}

// TiledLog describes a log serving the tiled (static-ct-api) interface.
// These are carried through parsing but are not currently monitored.
type TiledLog struct {
	Description      string            `json:"description"`
	LogID            string            `json:"log_id"`
	Key              []byte            `json:"key"`
	SubmissionURL    string            `json:"submission_url"`
	MonitoringURL    string            `json:"monitoring_url"`
	MMD              int32             `json:"mmd"`
	State            *State            `json:"state,omitempty"`
	TemporalInterval *TemporalInterval `json:"temporal_interval,omitempty"`
	LogType          string            `json:"log_type,omitempty"`
}

// State is the one-of lifecycle state of a log. Exactly one of the fields
// is non-nil in a well-formed log list entry.
type State struct {
	Pending  *StateTimestamp `json:"pending,omitempty"`
	Usable   *StateTimestamp `json:"usable,omitempty"`
	Readonly *ReadonlyState  `json:"readonly,omitempty"`
	Retired  *StateTimestamp `json:"retired,omitempty"`
	Rejected *StateTimestamp `json:"rejected,omitempty"`
}

// StateTimestamp records when a log entered its current state.
type StateTimestamp struct {
	Timestamp time.Time `json:"timestamp"`
}

// ReadonlyState carries the terminal checkpoint of a log frozen in the
// readonly state.
type ReadonlyState struct {
	Timestamp     time.Time `json:"timestamp"`
	FinalTreeHead TreeHead  `json:"final_tree_head"`
}

// TreeHead is the size and root hash of a log tree at some point in time.
type TreeHead struct {
	SHA256RootHash []byte `json:"sha256_root_hash"`
	TreeSize       int64  `json:"tree_size"`
}

// TemporalInterval bounds the certificate expiry range a temporally sharded
// log accepts.
type TemporalInterval struct {
	StartInclusive time.Time `json:"start_inclusive"`
	EndExclusive   time.Time `json:"end_exclusive"`
}
