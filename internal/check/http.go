package check

import (
	"context"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/tmater/pulse/internal/proto"
)

// maxDrain bounds how much of a response body is read before closing.
const maxDrain = 64 << 10

// HTTP requests target with the given options. Any response, whatever its
// status code, counts as ok: the check measures reachability and reports the
// status for the caller to judge.
func HTTP(ctx context.Context, target string, opts proto.HTTPOptions) proto.HTTPResult {
	log.Printf("check: running HTTP target=%s method=%s follow_redirects=%v timeout_ms=%d",
		target, opts.Method, opts.FollowRedirects, opts.TimeoutMS)

	var result proto.HTTPResult
	if !proto.ValidHTTPMethod(opts.Method) {
		result.Error = &proto.ErrInfo{Type: proto.ErrInvalidMethod, Message: "invalid or missing http method"}
		log.Printf("check: HTTP skipped target=%s reason=invalid method %q", target, opts.Method)
		return result
	}
	result.Attempted = true

	if opts.TimeoutMS > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(opts.TimeoutMS)*time.Millisecond)
		defer cancel()
	}

	client := &http.Client{}
	if !opts.FollowRedirects {
		client.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	req, err := http.NewRequestWithContext(ctx, opts.Method, target, nil)
	if err != nil {
		result.Error = &proto.ErrInfo{Type: proto.ErrRequestFailed, Message: "could not create request"}
		log.Printf("check: HTTP failed target=%s error=%s", target, err)
		return result
	}
	req.Header.Set("User-Agent", "pulse-check/1.0")

	start := time.Now()
	resp, err := client.Do(req)
	latency := time.Since(start)
	result.MS = int(latency.Milliseconds())

	if err != nil {
		result.Error = failure(ctx, err, proto.ErrRequestFailed, "request failed")
		log.Printf("check: HTTP failed target=%s error=%s", target, err)
		return result
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrain))

	result.OK = true
	result.Status = resp.StatusCode
	result.FinalURL = resp.Request.URL.String()
	log.Printf("check: HTTP done target=%s status=%d final_url=%s latency=%s", target, resp.StatusCode, result.FinalURL, latency)
	return result
}
