package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/appetiteclub/dinein/pkg/event"
)

func TestPrintHandler(t *testing.T) {
	evt, err := event.New(event.KitchenTopic, event.EventKitchenTicketCreated, "kitchen-1", nil)
	if err != nil {
		t.Fatal(err)
	}
	evt.SessionID = "session-1"
	data, err := json.Marshal(evt)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		data    []byte
		want    string
		wantErr bool
	}{
		{name: "changeEvent", data: data, want: "session=session-1"},
		{name: "undecodable", data: []byte("{"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := printHandler(&out)(context.Background(), tt.data)
			if (err != nil) != tt.wantErr {
				t.Fatalf("handler error = %v, wantErr %v", err, tt.wantErr)
			}
			if !strings.Contains(out.String(), tt.want) {
				t.Errorf("output = %q, want it to contain %q", out.String(), tt.want)
			}
		})
	}
}
