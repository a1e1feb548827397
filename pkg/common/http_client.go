package common

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"
)

// Response is the decoded result of an outbound provider call. Body is the
// parsed JSON document when the body is valid JSON, otherwise the raw string.
type Response struct {
	StatusCode int
	Body       interface{}
	Raw        []byte
}

var httpClient = &http.Client{Timeout: 30 * time.Second}

// OK reports whether the response carries a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// BodyMap returns the body as a JSON object, or nil when it is not one.
func (r *Response) BodyMap() map[string]interface{} {
	m, _ := r.Body.(map[string]interface{})
	return m
}

// Post sends a JSON POST request to the specified URL with the given payload
// and headers.
func Post(url string, payload interface{}, headers map[string]string) (*Response, error) {
	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return do("POST", url, bytes.NewBuffer(jsonPayload), headers)
}

// Get sends a GET request to the specified URL with the given headers.
func Get(url string, headers map[string]string) (*Response, error) {
	return do("GET", url, nil, headers)
}

func do(method, url string, body io.Reader, headers map[string]string) (*Response, error) {
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	out := &Response{StatusCode: resp.StatusCode, Raw: raw}
	if len(raw) > 0 {
		var decoded interface{}
		if err := json.Unmarshal(raw, &decoded); err != nil {
			out.Body = string(raw)
		} else {
			out.Body = decoded
		}
	}
	return out, nil
}
