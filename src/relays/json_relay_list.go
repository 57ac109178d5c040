package relays

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

const jsonRelayListPath = "relays.json"

// JSONRelayList persists a relay list on disk as a JSON file that human
// operators can edit.
type JSONRelayList struct {
	l    sync.Mutex
	path string
}

// NewJSONRelayList creates a JSONRelayList in directory base.
func NewJSONRelayList(base string) *JSONRelayList {
	return &JSONRelayList{
		path: filepath.Join(base, jsonRelayListPath),
	}
}

// Path returns the location of the file.
func (j *JSONRelayList) Path() string {
	return j.path
}

// RelayList reads the file. A missing file is reported with an error
// satisfying os.IsNotExist; an empty file yields an empty list.
func (j *JSONRelayList) RelayList() (*RelayList, error) {
	j.l.Lock()
	defer j.l.Unlock()

	buf, err := os.ReadFile(j.path)
	if err != nil {
		return nil, err
	}

	if len(bytes.TrimSpace(buf)) == 0 {
		return NewRelayList(), nil
	}

	var relays []*Relay
	dec := json.NewDecoder(bytes.NewReader(buf))
	if err := dec.Decode(&relays); err != nil {
		return nil, err
	}

	return NewRelayListFromSlice(relays), nil
}

// Write replaces the file with relays.
func (j *JSONRelayList) Write(relays []*Relay) error {
	j.l.Lock()
	defer j.l.Unlock()

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "\t")
	if err := enc.Encode(relays); err != nil {
		return err
	}

	return os.WriteFile(j.path, buf.Bytes(), 0644)
}
