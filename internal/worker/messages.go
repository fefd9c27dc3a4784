package worker

import (
	"encoding/json"

	"sheetview/domain/sheet"
)

// MessageTypeLog marks a diagnostic message on the reply stream
const MessageTypeLog = "log"

// Request asks the worker to decode one file
type Request struct {
	ID       string `json:"id,omitempty"`
	FileData []byte `json:"fileData"`
	FileName string `json:"fileName"`
}

// Reply is the one answer to a Request
type Reply struct {
	ID         string         `json:"id,omitempty"`
	Success    bool           `json:"success"`
	Data       []sheet.Record `json:"data"`
	Fields     []string       `json:"fields,omitempty"`
	HeaderRow  int            `json:"headerRow"`
	Confidence float64        `json:"confidence"`
	Error      string         `json:"error,omitempty"`
}

// Collection returns the decoded records as a collection. Failed replies give nil.
func (r Reply) Collection() *sheet.Collection {
	if !r.Success {
		return nil
	}
	records := r.Data
	if records == nil {
		records = []sheet.Record{}
	}
	return &sheet.Collection{Fields: r.Fields, Records: records}
}

// LogMessage is a diagnostic line emitted while a request is processed. Consumers that only
// care about replies ignore it.
type LogMessage struct {
	Type      string `json:"type"`
	RequestID string `json:"requestId,omitempty"`
	Message   string `json:"message"`
}

// DecodeMessage tells a LogMessage from a Reply in a JSON stream. Exactly one of the results is
// non-nil when err is nil.
func DecodeMessage(data []byte) (*LogMessage, *Reply, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, nil, err
	}
	if probe.Type == MessageTypeLog {
		var msg LogMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, nil, err
		}
		return &msg, nil, nil
	}
	var reply Reply
	if err := json.Unmarshal(data, &reply); err != nil {
		return nil, nil, err
	}
	return nil, &reply, nil
}
