package posedex

import (
	"context"
	"net/http"
)

// Health returns the aggregated server health. A degraded or failing server
// answers 503 with the same report, which is returned without error.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	var st HealthStatus
	err := c.do(ctx, "health", http.MethodGet, "/health", nil, &st,
		http.StatusOK, http.StatusServiceUnavailable)
	if err != nil {
		return HealthStatus{}, err
	}
	return st, nil
}
