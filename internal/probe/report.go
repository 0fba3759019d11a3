package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const notJSONNotice = "Response was not JSON"

// Parsed is the outcome of trying to read a body as JSON. OK is false when the
// body is not JSON; that is an ordinary result, not an error.
type Parsed struct {
	Value any
	OK    bool
}

func ParseJSON(body []byte) Parsed {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return Parsed{}
	}
	return Parsed{Value: v, OK: true}
}

// FlattenHeaders collapses multi-valued headers into one comma separated value
// per key.
func FlattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vs := range h {
		out[k] = strings.Join(vs, ", ")
	}
	return out
}

// Report writes the outcome of a send to w. A non-nil sendErr produces the
// single failure line and nothing else.
func Report(w io.Writer, resp *Response, sendErr error) error {
	if sendErr != nil {
		_, err := fmt.Fprintf(w, "Request failed: %v\n", sendErr)
		return err
	}
	if resp == nil {
		return fmt.Errorf("nothing to report")
	}

	lines := []string{
		fmt.Sprintf("Status Code: %d", resp.StatusCode),
		fmt.Sprintf("Headers: %v", FlattenHeaders(resp.Headers)),
		fmt.Sprintf("Response Body: %s", resp.Body),
	}

	if parsed := ParseJSON(resp.Body); parsed.OK {
		lines = append(lines, fmt.Sprintf("JSON Response: %v", parsed.Value))
	} else {
		lines = append(lines, notJSONNotice)
	}

	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
	}
	return nil
}

// Run sends req once through p and reports to w. Transport failures are
// reported, not returned; the only error Run returns is a failure to write the
// report itself.
func Run(ctx context.Context, w io.Writer, p *Probe, req *Request) error {
	resp, err := p.Send(ctx, req)
	return Report(w, resp, err)
}
