//go:build integration

package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	id "aegis/pkg/domain"
	audit "aegis/pkg/platform/audit"
	"aegis/pkg/testutil/containers"
)

type ProducerSuite struct {
	suite.Suite
	broker string
}

func TestProducerSuite(t *testing.T) {
	suite.Run(t, new(ProducerSuite))
}

func (s *ProducerSuite) SetupSuite() {
	s.broker = containers.GetManager().GetRedpanda(s.T()).Broker
}

func (s *ProducerSuite) TestAppendIsConsumable() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	topic := "aegis.audit.test." + id.NewInstanceID().String()
	producer, err := NewProducer(ctx, []string{s.broker}, topic)
	s.Require().NoError(err)
	defer func() { s.NoError(producer.Close(ctx)) }()

	instanceID := id.NewInstanceID()
	event := audit.NewEvent(audit.EventVoteCast, "donor-1")
	event.InstanceID = instanceID
	event.Decision = "for"
	event.Timestamp = time.Now()
	s.Require().NoError(producer.Append(ctx, event))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	s.Require().Empty(fetches.Errors())
	records := fetches.Records()
	s.Require().Len(records, 1)
	s.Equal(instanceID.String(), string(records[0].Key))

	var decoded Record
	s.Require().NoError(json.Unmarshal(records[0].Value, &decoded))
	s.Equal("vote_cast", decoded.Action)
	s.Equal("for", decoded.Decision)
}

func (s *ProducerSuite) TestNewProducerToleratesExistingTopic() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	topic := "aegis.audit.existing"
	first, err := NewProducer(ctx, []string{s.broker}, topic)
	s.Require().NoError(err)
	s.Require().NoError(first.Close(ctx))

	second, err := NewProducer(ctx, []string{s.broker}, topic)
	s.Require().NoError(err)
	s.Require().NoError(second.Close(ctx))
}
