package rabbitmq

import (
	"context"
	"os"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobCodec(t *testing.T) {
	body, err := EncodeJob("01J0000000000000000000000A")
	require.NoError(t, err)
	assert.JSONEq(t, `{"job_id":"01J0000000000000000000000A"}`, string(body))

	m, err := DecodeJob(body)
	require.NoError(t, err)
	assert.Equal(t, "01J0000000000000000000000A", m.JobID)

	_, err = EncodeJob("")
	assert.Error(t, err)
	_, err = DecodeJob([]byte(`{}`))
	assert.Error(t, err)
	_, err = DecodeJob([]byte(`not json`))
	assert.Error(t, err)
}

func TestQueueNames(t *testing.T) {
	assert.Equal(t, "advice_jobs.retry", RetryQueue("advice_jobs"))
	assert.Equal(t, "advice_jobs.dlq", DeadLetterQueue("advice_jobs"))
}

func TestAttempt(t *testing.T) {
	assert.Equal(t, 0, Attempt(nil))
	assert.Equal(t, 0, Attempt(amqp.Table{"other": int32(4)}))
	assert.Equal(t, 2, Attempt(amqp.Table{AttemptHeader: int32(2)}))
	assert.Equal(t, 3, Attempt(amqp.Table{AttemptHeader: int64(3)}))
	assert.Equal(t, 0, Attempt(amqp.Table{AttemptHeader: "7"}))
}

// Runs against a real broker only when RABBIT_TEST_URL is set.
func TestPublisher_Broker(t *testing.T) {
	url := os.Getenv("RABBIT_TEST_URL")
	if url == "" {
		t.Skip("RABBIT_TEST_URL not set")
	}
	queue := "advice_jobs_test_" + time.Now().Format("150405.000")
	p, err := NewPublisher(url, queue)
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, p.PublishJob(context.Background(), "job-1"))
	require.NoError(t, p.PublishRetry(context.Background(), "job-1", 1, time.Second))

	d, ok, err := p.ch.Get(queue, true)
	require.NoError(t, err)
	require.True(t, ok)
	m, err := DecodeJob(d.Body)
	require.NoError(t, err)
	assert.Equal(t, "job-1", m.JobID)

	for _, q := range []string{queue, RetryQueue(queue), DeadLetterQueue(queue)} {
		_, _ = p.ch.QueueDelete(q, false, false, false)
	}
}
