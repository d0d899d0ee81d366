package publishers

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadRegistryEnabledFilter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "publishers.yaml")
	raw := `
publishers:
  - id: http1
    type: http
    enabled: false
    http:
      url: https://example.com
  - id: http2
    type: HTTP
    http:
      url: https://example.com/2
      headers:
        X-Token: " secret "
        Empty: ""
  - id: queue
    type: sqs
    sqs:
      uri: https://sqs.eu-central-1.amazonaws.com/123/provisioning
      region: eu-central-1
      credentials:
        access_key_id: AKIA
        secret_access_key: shh
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	enabled := reg.Enabled()
	if len(enabled) != 2 || enabled[0].ID != "http2" || enabled[1].ID != "queue" {
		t.Fatalf("expected http2 and queue enabled, got %#v", enabled)
	}

	h, _ := reg.ByID("http2")
	if h.Type != TypeHTTP || h.HTTP.Method != "POST" || h.HTTP.TimeoutSeconds != httpDefaultTimeoutSeconds {
		t.Fatalf("http defaults not applied: %#v", h.HTTP)
	}
	if len(h.HTTP.Headers) != 1 || h.HTTP.Headers["X-Token"] != "secret" {
		t.Fatalf("headers not sanitized: %#v", h.HTTP.Headers)
	}

	q, _ := reg.ByID("queue")
	if q.SQS.Credentials == nil || q.SQS.Credentials.AccessKeyID != "AKIA" {
		t.Fatalf("credentials not loaded: %#v", q.SQS)
	}
}

func TestLoadRegistryJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "publishers.json")
	raw := `{"publishers":[{"id":"topic","type":"gcp_pubsub","gcp_pubsub":{"project_id":"p","topic":"t"}}]}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	if got := reg.All(); len(got) != 1 || got[0].GCPPubSub.Topic != "t" {
		t.Fatalf("unexpected registry %#v", got)
	}
}

func TestLoadRegistryRejectsDuplicates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "publishers.yml")
	raw := `
publishers:
  - id: a
    type: http
    http: {url: "https://example.com"}
  - id: a
    type: http
    http: {url: "https://example.com"}
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := LoadRegistry(path); err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestValidatePublisherConfig(t *testing.T) {
	cases := []struct {
		name string
		cfg  PublisherConfig
		want string
	}{
		{name: "missing http block", cfg: PublisherConfig{ID: "h1", Type: TypeHTTP}, want: "http"},
		{name: "bad url", cfg: PublisherConfig{ID: "h2", Type: TypeHTTP, HTTP: &HTTPPublisherConfig{URL: "not a url", Method: "POST"}}, want: "http.url"},
		{name: "unknown type", cfg: PublisherConfig{ID: "k", Type: "kafka"}, want: "type"},
		{name: "sqs region", cfg: PublisherConfig{ID: "q", Type: TypeSQS, SQS: &SQSPublisherConfig{QueueURL: "https://sqs.example.com/q"}}, want: "sqs.region"},
		{name: "sns arn", cfg: PublisherConfig{ID: "s", Type: TypeSNS, SNS: &SNSPublisherConfig{TopicARN: "topic", Region: "eu-central-1"}}, want: "sns.topic_arn"},
		{name: "half credentials", cfg: PublisherConfig{ID: "s2", Type: TypeSNS, SNS: &SNSPublisherConfig{
			TopicARN: "arn:aws:sns:eu-central-1:123:t", Region: "eu-central-1",
			Credentials: &AWSCredentials{AccessKeyID: "AKIA"},
		}}, want: "secret_access_key"},
		{name: "pubsub topic", cfg: PublisherConfig{ID: "g", Type: TypeGCPPubSub, GCPPubSub: &GCPPubSubPublisherConfig{ProjectID: "p"}}, want: "gcp_pubsub.topic"},
	}
	for _, tc := range cases {
		err := validatePublisherConfig(tc.cfg)
		if err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: error %q does not mention %q", tc.name, err, tc.want)
		}
	}

	valid := PublisherConfig{ID: "ok", Type: TypeSNS, SNS: &SNSPublisherConfig{TopicARN: "arn:aws:sns:eu-central-1:123:t", Region: "eu-central-1"}}
	if err := validatePublisherConfig(valid); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestLoadRegistrySharedDecoder(t *testing.T) {
	dir := t.TempDir()

	conf := filepath.Join(dir, "publishers.conf")
	if err := os.WriteFile(conf, []byte("publishers:\n  - id: hook\n    type: http\n    http:\n      url: https://example.com/hook\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	reg, err := LoadRegistry(conf)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	if got := reg.Enabled(); len(got) != 1 || got[0].ID != "hook" {
		t.Fatalf("unexpected registry %#v", got)
	}

	broken := filepath.Join(dir, "publishers.json")
	if err := os.WriteFile(broken, []byte("publishers:\n  - id: hook\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := LoadRegistry(broken); err == nil || !strings.Contains(err.Error(), "format not recognized") {
		t.Fatalf("expected decode error, got %v", err)
	}
}
