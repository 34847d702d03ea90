// Package wire defines the tagged message envelope exchanged between the
// page-side bridge client and the widget-side bridge. The transport is a
// one-way notification channel; request/response reliability is layered on
// top via request IDs by the client.
package wire

import "encoding/json"

// Source identifies which side of the frame boundary produced an envelope.
type Source string

const (
	// SourcePage is the main-frame bridge client.
	SourcePage Source = "page"
	// SourceWidget is the bridge running inside the assistant iframe.
	SourceWidget Source = "widget"
)

// MessageType tags the operation or result carried by an envelope.
type MessageType string

// Request types, sent page → widget.
const (
	TypeText                MessageType = "type_text"
	ClickSend               MessageType = "click_send"
	WaitForResponse         MessageType = "wait_for_response"
	CheckIfOpen             MessageType = "check_if_open"
	FindInteractiveElements MessageType = "find_interactive_elements"
	ClickFirstButton        MessageType = "click_first_button"
	ClickButtonByText       MessageType = "click_button_by_text"
	FindInput               MessageType = "find_input"
)

// Response types, sent widget → page.
const (
	IframeReady              MessageType = "iframe_ready" // unsolicited, emitted once on bridge init
	TextTyped                MessageType = "text_typed"
	SendClicked              MessageType = "send_clicked"
	ResponseDetected         MessageType = "response_detected"
	JouleStatus              MessageType = "joule_status"
	InteractiveElementsFound MessageType = "interactive_elements_found"
	ButtonClicked            MessageType = "button_clicked"
	InputFound               MessageType = "input_found"
	ErrorResponse            MessageType = "error"
)

// Envelope is the tagged message exchanged across the frame boundary.
// RequestID is zero for unsolicited notifications such as iframe_ready.
type Envelope struct {
	Source    Source          `json:"source"`
	Type      MessageType     `json:"type"`
	RequestID int64           `json:"requestId,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope builds an envelope, marshalling the payload. A nil payload
// produces an envelope with no data.
func NewEnvelope(source Source, msgType MessageType, requestID int64, payload interface{}) (Envelope, error) {
	env := Envelope{Source: source, Type: msgType, RequestID: requestID}
	if payload == nil {
		return env, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	env.Data = data
	return env, nil
}

// Decode unmarshals the envelope payload into out.
func (e Envelope) Decode(out interface{}) error {
	if len(e.Data) == 0 {
		return nil
	}
	return json.Unmarshal(e.Data, out)
}
