package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outreach_engine/internal/campaign"
	"outreach_engine/internal/model"
)

var _ campaign.Recorder = (*Collector)(nil)

func TestCollectorCounts(t *testing.T) {
	c := NewCollector()

	c.ActionAttempted(campaign.KindConnect, campaign.OutcomeSent)
	c.ActionAttempted(campaign.KindConnect, campaign.OutcomeSent)
	c.ActionAttempted(campaign.KindFollow, campaign.OutcomeFailed)
	c.PostPublished(true)
	c.PostPublished(false)
	c.ReplySent()
	c.CampaignFinished(model.TaskKindConnect, model.CampaignCompleted, 2)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.actionsTotal.WithLabelValues("connect", "sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.actionsTotal.WithLabelValues("follow", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.postsTotal.WithLabelValues("published")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.postsTotal.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.repliesTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.campaignsTotal.WithLabelValues("connect", "completed")))
}

func TestCampaignStartedGauge(t *testing.T) {
	c := NewCollector()

	stopA := c.CampaignStarted(model.TaskKindConnect)
	stopB := c.CampaignStarted(model.TaskKindPost)
	assert.Equal(t, 2.0, testutil.ToFloat64(c.campaignsRunning))

	stopA()
	stopB()
	assert.Equal(t, 0.0, testutil.ToFloat64(c.campaignsRunning))
}

func TestHandlerServesRegistry(t *testing.T) {
	c := NewCollector()
	c.RecordHTTPRequest(http.MethodGet, "/api/v1/tasks", http.StatusOK, 12*time.Millisecond)

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `outreach_http_requests_total{method="GET",path="/api/v1/tasks",status="200"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
