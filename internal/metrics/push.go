package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// PushJob is the job label used when pushing to a Pushgateway
const PushJob = "vault_etl"

// Push sends everything registered in gatherer to the Pushgateway at url,
// replacing the previous push of the same job.
func Push(ctx context.Context, url string, gatherer prometheus.Gatherer) error {
	if err := push.New(url, PushJob).Gatherer(gatherer).PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}
	return nil
}
