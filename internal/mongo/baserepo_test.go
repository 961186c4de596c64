package mongo

import (
	"context"
	"testing"
	"time"
)

func TestConfigDefaults(t *testing.T) {
	tests := []struct {
		name string
		in   Config
		want Config
	}{
		{
			name: "empty",
			in:   Config{},
			want: Config{URL: "mongodb://localhost:27017", Database: "dinein", Timeout: 10 * time.Second},
		},
		{
			name: "explicit",
			in:   Config{URL: "mongodb://db:27017", Database: "venue", Timeout: time.Second},
			want: Config{URL: "mongodb://db:27017", Database: "venue", Timeout: time.Second},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.withDefaults(); got != tt.want {
				t.Errorf("withDefaults() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestUnstartedRepo(t *testing.T) {
	r := NewBaseRepo(Config{}, nil)
	if err := r.Stop(context.Background()); err != nil {
		t.Errorf("Stop() before Start = %v", err)
	}
	if err := r.DropDatabase(context.Background()); err == nil {
		t.Error("DropDatabase() before Start should fail")
	}
}
