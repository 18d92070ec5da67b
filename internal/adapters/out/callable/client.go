// Package callable invokes the remote document functions over HTTP. Each
// function takes {"data": ...} and answers {"result": {"success": bool,
// "error": string}} or {"error": ...}.
package callable

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"freight/internal/core/ports"
)

const (
	FunctionGenerateBOL                 = "generateBOL"
	FunctionGenerateCarrierConfirmation = "generateCarrierConfirmation"

	DefaultTimeout = 30 * time.Second

	// maxResponseBytes bounds how much of a response body is read.
	maxResponseBytes = 1 << 20
)

var _ ports.DocumentGenerator = (*Client)(nil)

// Error is a failure reported by the remote function itself.
type Error struct {
	Function   string `json:"-"`
	StatusCode int    `json:"-"`
	Status     string `json:"status"`
	Message    string `json:"message"`
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Status != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Function, msg, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Function, msg)
}

type Client struct {
	baseURL *url.URL
	http    *http.Client
}

// NewClient builds a client for functions hosted under baseURL. A zero
// timeout falls back to DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse callable base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("callable base url %q must be http or https", baseURL)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{baseURL: u, http: &http.Client{Timeout: timeout}}, nil
}

type requestData struct {
	ShipmentID     string          `json:"shipmentId"`
	DocID          string          `json:"docId"`
	CarrierDetails *carrierDetails `json:"carrierDetails,omitempty"`
}

type carrierDetails struct {
	CarrierID    string `json:"carrierId,omitempty"`
	Name         string `json:"name,omitempty"`
	SCAC         string `json:"scac,omitempty"`
	ContactEmail string `json:"contactEmail,omitempty"`
}

type envelope struct {
	Data requestData `json:"data"`
}

type reply struct {
	Result *outcome `json:"result"`
	Error  *Error   `json:"error"`
}

// outcome is what a function reports once it has run.
type outcome struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (c *Client) GenerateBOL(ctx context.Context, req ports.DocumentRequest) error {
	return c.call(ctx, FunctionGenerateBOL, requestData{
		ShipmentID: req.ShipmentID.String(),
		DocID:      req.RecordKey.String(),
	})
}

func (c *Client) GenerateCarrierConfirmation(ctx context.Context, req ports.DocumentRequest) error {
	d := req.CarrierDetails
	return c.call(ctx, FunctionGenerateCarrierConfirmation, requestData{
		ShipmentID: req.ShipmentID.String(),
		DocID:      req.RecordKey.String(),
		CarrierDetails: &carrierDetails{
			CarrierID:    d.CarrierID,
			Name:         d.Name,
			SCAC:         d.SCAC,
			ContactEmail: d.ContactEmail,
		},
	})
}

func (c *Client) call(ctx context.Context, function string, data requestData) error {
	body, err := json.Marshal(envelope{Data: data})
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", function, err)
	}

	endpoint := c.baseURL.JoinPath(function)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: build request: %w", function, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s: %w", function, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%s: read response: %w", function, err)
	}

	var out reply
	decodeErr := json.Unmarshal(raw, &out)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		callErr := &Error{Function: function, StatusCode: resp.StatusCode}
		if decodeErr == nil && out.Error != nil {
			callErr.Status = out.Error.Status
			callErr.Message = out.Error.Message
		}
		return callErr
	}
	if decodeErr != nil {
		return fmt.Errorf("%s: decode response: %w", function, decodeErr)
	}
	if out.Error != nil {
		out.Error.Function = function
		out.Error.StatusCode = resp.StatusCode
		return out.Error
	}
	if out.Result == nil {
		return fmt.Errorf("%s: %w", function, ErrEmptyResult)
	}
	if !out.Result.Success {
		msg := out.Result.Error
		if msg == "" {
			msg = "function reported failure"
		}
		return &Error{Function: function, StatusCode: resp.StatusCode, Message: msg}
	}
	return nil
}

var ErrEmptyResult = errors.New("response carries no result")
