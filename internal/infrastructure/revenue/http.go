package revenue

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"ContentPipeline/internal/domain"
)

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
	if resp.StatusCode() == http.StatusUnauthorized {
		return fmt.Errorf("%s: %w: %s", op, domain.ErrUnauthorized, body)
	}
	return domain.TransientError(op, fmt.Errorf("status %d: %s", resp.StatusCode(), body))
}
