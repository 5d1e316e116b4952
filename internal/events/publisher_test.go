package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/wolfman30/prescription-ai-portal/pkg/logging"
)

type mockSQS struct {
	input *sqs.SendMessageInput
	err   error
}

func (m *mockSQS) SendMessage(ctx context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	m.input = in
	if m.err != nil {
		return nil, m.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSQSPublisher_PublishWrapsPayload(t *testing.T) {
	mock := &mockSQS{}
	pub := NewSQSPublisher(mock, "https://sqs.local/patients", logging.Default())

	evt := PatientRegisteredV1{EventID: "evt-1", PatientID: "u1", Email: "a@x.com", Name: "Alice", RegisteredAt: time.Now().UTC()}
	if err := pub.Publish(context.Background(), TypePatientRegisteredV1, evt); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if aws.ToString(mock.input.QueueUrl) != "https://sqs.local/patients" {
		t.Fatalf("unexpected queue url %s", aws.ToString(mock.input.QueueUrl))
	}
	if got := aws.ToString(mock.input.MessageAttributes["event_type"].StringValue); got != TypePatientRegisteredV1 {
		t.Fatalf("unexpected event_type attribute %q", got)
	}

	var env Envelope
	if err := json.Unmarshal([]byte(aws.ToString(mock.input.MessageBody)), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	var decoded PatientRegisteredV1
	if err := json.Unmarshal(env.Payload, &decoded); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if env.Type != TypePatientRegisteredV1 || decoded.PatientID != "u1" {
		t.Fatalf("unexpected envelope %+v payload %+v", env, decoded)
	}
}

func TestSQSPublisher_PublishError(t *testing.T) {
	boom := errors.New("queue unavailable")
	pub := NewSQSPublisher(&mockSQS{err: boom}, "https://sqs.local/patients", logging.Default())
	err := pub.Publish(context.Background(), TypePatientSignedInV1, PatientSignedInV1{PatientID: "u1"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped send error, got %v", err)
	}
}

func TestLogPublisher_WritesEnvelope(t *testing.T) {
	var buf bytes.Buffer
	pub := NewLogPublisher(logging.NewWithWriter("info", &buf))
	if err := pub.Publish(context.Background(), TypePatientSignedInV1, PatientSignedInV1{PatientID: "u1"}); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if !strings.Contains(buf.String(), TypePatientSignedInV1) {
		t.Fatalf("expected event type in log output, got %s", buf.String())
	}
}
