// Package eventgrid decodes Event Grid webhook batches.
package eventgrid

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/common"
)

const (
	TypeSubscriptionValidation = "Microsoft.EventGrid.SubscriptionValidationEvent"
	TypeBlobCreated            = "Microsoft.Storage.BlobCreated"
)

type Event struct {
	ID        string          `json:"id"`
	EventType string          `json:"eventType"`
	Subject   string          `json:"subject"`
	EventTime string          `json:"eventTime"`
	Data      json.RawMessage `json:"data"`
}

type validationData struct {
	ValidationCode string `json:"validationCode"`
}

type blobData struct {
	URL string `json:"url"`
}

// ValidationResponse is the handshake reply body.
type ValidationResponse struct {
	ValidationResponse string `json:"validationResponse"`
}

const batchSchema = `{
  "type": "array",
  "items": {
    "type": "object",
    "required": ["eventType"],
    "properties": {
      "eventType": {"type": "string"},
      "data": {"type": "object"}
    }
  }
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

// Parse validates and decodes a batch. Malformed input wraps ErrInvalidInput.
func Parse(body []byte) ([]Event, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = common.CompileSchema("eventgrid.json", []byte(batchSchema))
	})
	if schemaErr != nil {
		return nil, schemaErr
	}
	if err := common.ValidateJSON(schema, body); err != nil {
		return nil, common.Errorf(common.ErrInvalidInput, "event batch: %v", err)
	}
	var events []Event
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, common.Errorf(common.ErrInvalidInput, "event batch: %v", err)
	}
	return events, nil
}

// ValidationCode returns the handshake code of the first validation event.
func ValidationCode(events []Event) (string, bool) {
	for _, e := range events {
		if e.EventType != TypeSubscriptionValidation {
			continue
		}
		var d validationData
		if err := json.Unmarshal(e.Data, &d); err == nil && d.ValidationCode != "" {
			return d.ValidationCode, true
		}
	}
	return "", false
}

// BlobCreatedURL returns data.url of the first BlobCreated event.
func BlobCreatedURL(events []Event) (string, bool, error) {
	for _, e := range events {
		if e.EventType != TypeBlobCreated {
			continue
		}
		var d blobData
		if err := json.Unmarshal(e.Data, &d); err != nil || strings.TrimSpace(d.URL) == "" {
			return "", true, fmt.Errorf("%w: blob created event without data.url", common.ErrInvalidInput)
		}
		return d.URL, true, nil
	}
	return "", false, nil
}
