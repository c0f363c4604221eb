package publisher

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"ContentPipeline/internal/domain"
)

// checkResponse maps a resty outcome to the domain error classes. Rejected
// credentials become ErrUnauthorized so the dispatcher can refresh and retry.
func checkResponse(op string, resp *resty.Response, err error) error {
	if err != nil {
		return domain.TransientError(op, err)
	}
	if resp.IsSuccess() {
		return nil
	}
	body := strings.TrimSpace(resp.String())
	if len(body) > 300 {
		body = body[:300]
	}
	switch resp.StatusCode() {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%s: %w: status %d: %s", op, domain.ErrUnauthorized, resp.StatusCode(), body)
	}
	return domain.TransientError(op, fmt.Errorf("status %d: %s", resp.StatusCode(), body))
}

func newClient(client *resty.Client) *resty.Client {
	if client == nil {
		return resty.New()
	}
	return client
}
