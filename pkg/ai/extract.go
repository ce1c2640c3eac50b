package ai

import (
	"encoding/json"
	"fmt"
)

// ExtractorRawEnvelope names the fallback that serializes the whole envelope.
const ExtractorRawEnvelope = "raw_envelope"

// Extractor pulls a text payload out of a decoded response envelope.
type Extractor struct {
	Name    string
	Extract func(envelope map[string]interface{}) (string, bool)
}

// DefaultExtractors is the priority order applied to every response: output
// segments first, then the raw-text field, then a generic content field.
var DefaultExtractors = []Extractor{
	{Name: "output_segment", Extract: firstOutputSegment},
	{Name: "chat_choice", Extract: firstChoiceContent},
	{Name: "output_text", Extract: outputTextField},
	{Name: "content", Extract: contentField},
}

// ExtractPayload applies the extractors to a raw response body. When no
// extractor yields text, or the body is not a JSON object, the body itself is
// returned as a diagnostic string.
func ExtractPayload(raw []byte, extractors ...Extractor) (string, string) {
	var envelope map[string]interface{}
	if err := json.Unmarshal(raw, &envelope); err != nil || envelope == nil {
		return string(raw), ExtractorRawEnvelope
	}
	return ExtractText(envelope, extractors...)
}

// ExtractText applies the extractors in order and stops at the first success.
// It falls back to the JSON serialization of the envelope.
func ExtractText(envelope map[string]interface{}, extractors ...Extractor) (string, string) {
	if len(extractors) == 0 {
		extractors = DefaultExtractors
	}

	for _, extractor := range extractors {
		if text, ok := extractor.Extract(envelope); ok {
			return text, extractor.Name
		}
	}

	encoded, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Sprintf("%v", envelope), ExtractorRawEnvelope
	}
	return string(encoded), ExtractorRawEnvelope
}

// firstOutputSegment reads output[].content[] entries of type output_text.
func firstOutputSegment(envelope map[string]interface{}) (string, bool) {
	for _, item := range asSlice(envelope["output"]) {
		entry, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		for _, part := range asSlice(entry["content"]) {
			segment, ok := part.(map[string]interface{})
			if !ok || segment["type"] != "output_text" {
				continue
			}
			if text := asString(segment["text"]); text != "" {
				return text, true
			}
		}
	}
	return "", false
}

// firstChoiceContent reads choices[].message.content of chat completions.
func firstChoiceContent(envelope map[string]interface{}) (string, bool) {
	for _, item := range asSlice(envelope["choices"]) {
		choice, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		message, ok := choice["message"].(map[string]interface{})
		if !ok {
			continue
		}
		if text := asString(message["content"]); text != "" {
			return text, true
		}
		if text, ok := firstTextPart(message["content"]); ok {
			return text, true
		}
	}
	return "", false
}

func outputTextField(envelope map[string]interface{}) (string, bool) {
	text := asString(envelope["output_text"])
	return text, text != ""
}

func contentField(envelope map[string]interface{}) (string, bool) {
	if text := asString(envelope["content"]); text != "" {
		return text, true
	}
	return firstTextPart(envelope["content"])
}

func firstTextPart(value interface{}) (string, bool) {
	for _, item := range asSlice(value) {
		part, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		if text := asString(part["text"]); text != "" {
			return text, true
		}
	}
	return "", false
}

func asSlice(value interface{}) []interface{} {
	if items, ok := value.([]interface{}); ok {
		return items
	}
	return nil
}

func asString(value interface{}) string {
	if text, ok := value.(string); ok {
		return text
	}
	return ""
}
