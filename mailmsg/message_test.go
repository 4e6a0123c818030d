package mailmsg

import (
	"reflect"
	"strings"
	"testing"

	"github.com/d--j/go-sieve"
)

const sample = "Received: from a.example by b.example; Thu, 1 Jan 2026 00:00:00 +0000\r\n" +
	"Received: from c.example by a.example; Wed, 31 Dec 2025 23:59:00 +0000\r\n" +
	"From: =?utf-8?q?J=C3=BCrgen?= <j@example.com>\r\n" +
	"To: user@example.com\r\n" +
	"Subject: =?utf-8?q?Weekend_SALE!!?=\r\n" +
	"\r\n" +
	"body text\r\n"

func sampleMessage(t *testing.T) *Message {
	t.Helper()
	msg, err := Parse(strings.NewReader(sample), Envelope{
		From: "sender@example.com",
		To:   []string{"user@example.com"},
	})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return msg
}

func TestPhysicalSize(t *testing.T) {
	msg := sampleMessage(t)
	size, err := msg.PhysicalSize()
	if err != nil {
		t.Fatal(err)
	}
	if size != uint64(len(sample)) {
		t.Errorf("PhysicalSize() = %d, want %d", size, len(sample))
	}
}

func TestHeaderValuesOrder(t *testing.T) {
	msg := sampleMessage(t)
	got, err := msg.HeaderValues("Received", false)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("HeaderValues(Received) = %d values, want 2", len(got))
	}
	if !strings.Contains(got[0], "from a.example") || !strings.Contains(got[1], "from c.example") {
		t.Errorf("values not in message order: %q", got)
	}
}

func TestHeaderValuesDecoded(t *testing.T) {
	msg := sampleMessage(t)
	raw, err := msg.HeaderValues("Subject", false)
	if err != nil {
		t.Fatal(err)
	}
	if len(raw) != 1 || !strings.Contains(raw[0], "=?utf-8?q?") {
		t.Fatalf("raw value = %q, want encoded form", raw)
	}
	decoded, err := msg.HeaderValues("Subject", true)
	if err != nil {
		t.Fatal(err)
	}
	if len(decoded) != 1 || decoded[0] != "Weekend SALE!!" {
		t.Errorf("decoded value = %q, want %q", decoded, "Weekend SALE!!")
	}
}

func TestHeaderValuesMissing(t *testing.T) {
	msg := sampleMessage(t)
	got, err := msg.HeaderValues("X-Missing", false)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("HeaderValues(X-Missing) = %q, want none", got)
	}
}

func TestEnvelope(t *testing.T) {
	msg := sampleMessage(t)
	tests := []struct {
		field sieve.EnvelopeField
		want  []string
	}{
		{sieve.EnvelopeFrom, []string{"sender@example.com"}},
		{sieve.EnvelopeTo, []string{"user@example.com"}},
		{sieve.EnvelopeOrigTo, []string{"user@example.com"}}, // falls back to To
		{sieve.EnvelopeAuth, nil},
	}
	for _, tt := range tests {
		if got := msg.Envelope(tt.field); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Envelope(%v) = %q, want %q", tt.field, got, tt.want)
		}
	}
}

func TestAddressList(t *testing.T) {
	msg := sampleMessage(t)
	addrs, err := msg.AddressList("From")
	if err != nil {
		t.Fatal(err)
	}
	if len(addrs) != 1 || addrs[0].Address != "j@example.com" {
		t.Fatalf("AddressList(From) = %v", addrs)
	}
	if addrs[0].Name != "Jürgen" {
		t.Errorf("display name = %q, want decoded form", addrs[0].Name)
	}
}

func TestParseRejectsGarbageHeader(t *testing.T) {
	if _, err := FromBytes([]byte(" broken\r\n\r\n"), Envelope{}); err == nil {
		t.Error("FromBytes accepted a message starting with a continuation line")
	}
}

func TestEndToEndWithEngine(t *testing.T) {
	inst, err := sieve.New()
	if err != nil {
		t.Fatal(err)
	}
	errs := sieve.NewErrorHandler(nil, 0)
	script := sieve.NewScript("t", "t", []byte("if header :contains \"Subject\" \"sale\" { discard; }"))
	bin, err := inst.Compile(script, errs, 0)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	var out strings.Builder
	status := inst.Test(t.Context(), bin, sampleMessage(t), &sieve.ScriptEnv{}, errs, &out)
	if status != sieve.StatusOK {
		t.Fatalf("Test() = %v", status)
	}
	if !strings.Contains(out.String(), "discard") {
		t.Errorf("expected a discard in the dry-run output:\n%s", out.String())
	}
}
