package dte

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// Provider submits documents to the issuing service.
type Provider interface {
	// Submit emits the document and returns its folio and artifact URLs.
	// Non-success answers are returned as *UpstreamError.
	Submit(ctx context.Context, kind Kind, req DocumentRequest) (*EmissionResult, error)
	// EndpointURL is the absolute URL Submit posts to for kind.
	EndpointURL(kind Kind) string
}

// EmissionResult is the issuing service's answer to a successful emission.
type EmissionResult struct {
	Folio  Folio  `json:"folio"`
	PDFURL string `json:"urlPDF"`
	XMLURL string `json:"urlXML"`
}

// Folio is the serial number assigned to an emitted document. The issuing
// service sends it either as a JSON number or a string.
type Folio string

func (f *Folio) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = Folio(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode folio: %w", err)
	}
	*f = Folio(n.String())
	return nil
}

func (f Folio) String() string {
	return string(f)
}
